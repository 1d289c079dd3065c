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
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/tochemey/dataflow/errors"
	"github.com/tochemey/dataflow/internal/tcp"
	"github.com/tochemey/dataflow/log"
)

const (
	defaultDialTimeout   = 5 * time.Second
	defaultMaxRetries    = 5
	defaultMinBackoff    = 50 * time.Millisecond
	defaultMaxBackoff    = time.Second
	defaultProbeInterval = 2 * time.Second
)

// Handler consumes inbound messages. It is invoked from the server's
// connection goroutines in per-channel arrival order and must not block.
type Handler func(msg *Message)

// Remoting is the transport adapter of a node: it owns the listening server
// and one ordered sending channel per remote peer.
type Remoting struct {
	nodeName      string
	bindAddr      string
	logger        log.Logger
	handler       Handler
	dialTimeout   time.Duration
	maxRetries    int
	minBackoff    time.Duration
	maxBackoff    time.Duration
	probeInterval time.Duration
	linkHandler   func(addr string, up bool)

	mu      sync.RWMutex
	peers   map[string]*peer
	server  *server
	started *atomic.Bool
}

// Option is the interface that applies a configuration option
type Option interface {
	// Apply sets the Option value of a config
	Apply(r *Remoting)
}

// enforce compilation error
var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface
type OptionFunc func(*Remoting)

func (f OptionFunc) Apply(r *Remoting) {
	f(r)
}

// WithLogger sets the remoting logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(r *Remoting) { r.logger = logger })
}

// WithBackoff sets the send retry policy
func WithBackoff(maxRetries int, minBackoff, maxBackoff time.Duration) Option {
	return OptionFunc(func(r *Remoting) {
		r.maxRetries = maxRetries
		r.minBackoff = minBackoff
		r.maxBackoff = maxBackoff
	})
}

// WithProbeInterval sets how often a broken link is probed
func WithProbeInterval(interval time.Duration) Option {
	return OptionFunc(func(r *Remoting) { r.probeInterval = interval })
}

// WithLinkHandler sets the callback notified when a peer link goes down or
// recovers
func WithLinkHandler(handler func(addr string, up bool)) Option {
	return OptionFunc(func(r *Remoting) { r.linkHandler = handler })
}

// NewRemoting creates a transport adapter for the given node binding to
// host:port. Port zero picks a free port; the actual address is available
// from BindAddr after Start.
func NewRemoting(nodeName, host string, port int, opts ...Option) *Remoting {
	r := &Remoting{
		nodeName:      nodeName,
		bindAddr:      fmt.Sprintf("%s:%d", host, port),
		logger:        log.DefaultLogger,
		dialTimeout:   defaultDialTimeout,
		maxRetries:    defaultMaxRetries,
		minBackoff:    defaultMinBackoff,
		maxBackoff:    defaultMaxBackoff,
		probeInterval: defaultProbeInterval,
		peers:         make(map[string]*peer),
		started:       atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt.Apply(r)
	}
	return r
}

// SetHandler installs the inbound message handler. It must be called before
// Start.
func (r *Remoting) SetHandler(handler Handler) {
	r.handler = handler
}

// Start binds the listening server
func (r *Remoting) Start(_ context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return errors.ErrNodeAlreadyStarted
	}
	if _, _, err := tcp.GetHostPort(r.bindAddr); err != nil {
		return errors.NewTransportError(fmt.Errorf("%w: %s", errors.ErrInvalidHost, r.bindAddr))
	}

	handler := r.handler
	if handler == nil {
		handler = func(*Message) {}
	}

	server, err := newServer(r.bindAddr, handler, r.logger)
	if err != nil {
		r.started.Store(false)
		return errors.NewTransportError(err)
	}

	// peers must be able to dial what we advertise, so a wildcard bind
	// is rewritten to a routable interface address
	advertised, err := tcp.AdvertiseAddr(server.addr())
	if err != nil {
		server.shutdown()
		r.started.Store(false)
		return errors.NewTransportError(err)
	}

	r.mu.Lock()
	r.server = server
	r.bindAddr = advertised
	r.mu.Unlock()

	r.logger.Infof("node=(%s) transport listening on=(%s)", r.nodeName, r.bindAddr)
	return nil
}

// Stop shuts the server and every peer channel down
func (r *Remoting) Stop(_ context.Context) error {
	if !r.started.CompareAndSwap(true, false) {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.server != nil {
		r.server.shutdown()
		r.server = nil
	}
	for _, p := range r.peers {
		p.shutdown()
	}
	r.peers = make(map[string]*peer)
	return nil
}

// BindAddr returns the actual listen address
func (r *Remoting) BindAddr() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bindAddr
}

// Send queues a message on the ordered channel to the given peer address.
// Delivery is asynchronous: a down link buffers and starves, it never drops.
func (r *Remoting) Send(_ context.Context, peerAddr string, msg *Message) error {
	if !r.started.Load() {
		return errors.ErrNodeNotStarted
	}
	msg.FromNode = r.nodeName
	r.peerFor(peerAddr).enqueue(msg)
	return nil
}

// Broken reports whether the link to the given peer address is currently
// marked broken
func (r *Remoting) Broken(peerAddr string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.peers[peerAddr]
	return ok && p.isBroken()
}

func (r *Remoting) peerFor(addr string) *peer {
	r.mu.RLock()
	p, ok := r.peers[addr]
	r.mu.RUnlock()
	if ok {
		return p
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.peers[addr]; ok {
		return p
	}
	p = newPeer(addr, r)
	r.peers[addr] = p
	return p
}
