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
	"time"

	"github.com/flowchartsman/retry"
	"go.uber.org/atomic"

	"github.com/tochemey/dataflow/internal/queue"
	"github.com/tochemey/dataflow/internal/ticker"
	"github.com/tochemey/dataflow/log"
)

// peer is the sending half of the channel to one remote node. A single
// writer goroutine drains the outbound queue, which keeps send order across
// data tokens and migration messages. A message that cannot be written stays
// at the head of the line until the link recovers: the channel starves
// downstream, it never drops or reorders.
type peer struct {
	addr          string
	logger        log.Logger
	outbound      *queue.Mpsc[*Message]
	notify        chan struct{}
	stop          chan struct{}
	done          chan struct{}
	conn          net.Conn
	broken        *atomic.Bool
	dialTimeout   time.Duration
	maxRetries    int
	minBackoff    time.Duration
	maxBackoff    time.Duration
	probeInterval time.Duration
	onLinkChange  func(addr string, up bool)
}

func newPeer(addr string, r *Remoting) *peer {
	p := &peer{
		addr:          addr,
		logger:        r.logger,
		outbound:      queue.NewMpsc[*Message](),
		notify:        make(chan struct{}, 1),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
		broken:        atomic.NewBool(false),
		dialTimeout:   r.dialTimeout,
		maxRetries:    r.maxRetries,
		minBackoff:    r.minBackoff,
		maxBackoff:    r.maxBackoff,
		probeInterval: r.probeInterval,
		onLinkChange:  r.linkHandler,
	}
	go p.writerLoop()
	return p
}

// enqueue appends a message to the outbound queue. Safe from any goroutine.
func (p *peer) enqueue(msg *Message) {
	p.outbound.Push(msg)
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// isBroken reports whether the bounded retries to this peer are exhausted
func (p *peer) isBroken() bool {
	return p.broken.Load()
}

// shutdown stops the writer loop and closes the connection
func (p *peer) shutdown() {
	close(p.stop)
	<-p.done
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

func (p *peer) writerLoop() {
	defer close(p.done)
	for {
		select {
		case <-p.stop:
			return
		case <-p.notify:
		}
		for {
			msg, ok := p.outbound.Pop()
			if !ok {
				break
			}
			if !p.deliver(msg) {
				return
			}
		}
	}
}

// deliver writes one message, retrying with bounded exponential backoff and
// falling back to slow link probes when the retries are exhausted. It only
// gives up when the peer is shut down.
func (p *peer) deliver(msg *Message) bool {
	var probe *ticker.Ticker
	defer func() {
		if probe != nil {
			probe.Stop()
		}
	}()
	for {
		retrier := retry.NewRetrier(p.maxRetries, p.minBackoff, p.maxBackoff)
		err := retrier.Run(func() error {
			return p.write(msg)
		})
		if err == nil {
			if p.broken.CompareAndSwap(true, false) {
				p.logger.Infof("link to peer=(%s) recovered", p.addr)
				if p.onLinkChange != nil {
					p.onLinkChange(p.addr, true)
				}
			}
			return true
		}

		if p.broken.CompareAndSwap(false, true) {
			p.logger.Warnf("link to peer=(%s) is broken: %v", p.addr, err)
			if p.onLinkChange != nil {
				p.onLinkChange(p.addr, false)
			}
		}

		if probe == nil {
			probe = ticker.New(p.probeInterval)
			probe.Start()
		}
		select {
		case <-p.stop:
			return false
		case <-probe.Ticks:
		}
	}
}

// write sends one frame on the current connection, dialing when needed
func (p *peer) write(msg *Message) error {
	if p.conn == nil {
		conn, err := net.DialTimeout("tcp", p.addr, p.dialTimeout)
		if err != nil {
			return err
		}
		p.conn = conn
	}
	if err := writeFrame(p.conn, msg); err != nil {
		_ = p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}
