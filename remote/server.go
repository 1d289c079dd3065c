/*
 * MIT License
 *
 * Copyright (c) 2022-2026 Tochemey
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package remote

import (
	"net"
	"sync"

	"go.uber.org/atomic"

	"github.com/tochemey/dataflow/log"
)

// server is the receiving half of the channel. Every accepted connection is
// drained by its own goroutine; frames of one connection are handed to the
// handler strictly in arrival order, which preserves the per-channel
// ordering guarantee on the receive path.
type server struct {
	listener net.Listener
	handler  func(msg *Message)
	logger   log.Logger
	stopped  *atomic.Bool
	wg       sync.WaitGroup

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}
}

func newServer(addr string, handler func(msg *Message), logger log.Logger) (*server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &server{
		listener: listener,
		handler:  handler,
		logger:   logger,
		stopped:  atomic.NewBool(false),
		conns:    make(map[net.Conn]struct{}),
	}
	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

// addr returns the actual listen address
func (s *server) addr() string {
	return s.listener.Addr().String()
}

// shutdown stops accepting, closes every live connection and waits for
// their reader goroutines to exit
func (s *server) shutdown() {
	s.stopped.Store(true)
	_ = s.listener.Close()
	s.connsMu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.connsMu.Unlock()
	s.wg.Wait()
}

func (s *server) track(conn net.Conn) {
	s.connsMu.Lock()
	s.conns[conn] = struct{}{}
	s.connsMu.Unlock()
}

func (s *server) untrack(conn net.Conn) {
	s.connsMu.Lock()
	delete(s.conns, conn)
	s.connsMu.Unlock()
}

func (s *server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.stopped.Load() {
				return
			}
			s.logger.Warnf("accept failed: %v", err)
			continue
		}
		s.track(conn)
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer s.untrack(conn)
	defer func() { _ = conn.Close() }()
	for {
		msg, err := readFrame(conn)
		if err != nil {
			if !s.stopped.Load() {
				s.logger.Debugf("connection from=(%s) closed: %v", conn.RemoteAddr(), err)
			}
			return
		}
		s.handler(msg)
	}
}
