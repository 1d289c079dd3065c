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

package actor

import (
	"fmt"

	"github.com/tochemey/dataflow/errors"
	"github.com/tochemey/dataflow/internal/queue"
)

// DefaultPortCapacity bounds an inport queue when the port spec does not
// set an explicit capacity
const DefaultPortCapacity = 64

// PortDirection tells whether a port consumes or produces tokens
type PortDirection uint8

const (
	// DirectionIn marks a port that receives tokens
	DirectionIn PortDirection = iota
	// DirectionOut marks a port that emits tokens
	DirectionOut
)

// PortSpec declares one port of an actor type
type PortSpec struct {
	// Name identifies the port within the actor
	Name string
	// Direction tells whether the port consumes or produces
	Direction PortDirection
	// Capacity bounds the inport queue. Zero means DefaultPortCapacity.
	// Ignored for outports.
	Capacity int
}

// PortRef names one port of one actor instance
type PortRef struct {
	// ActorID is the owning actor instance
	ActorID string `msgpack:"a"`
	// Port is the port name within the actor
	Port string `msgpack:"p"`
}

// Key returns the canonical string form actorID.port
func (r PortRef) Key() string {
	return fmt.Sprintf("%s.%s", r.ActorID, r.Port)
}

// inPort is a bounded FIFO of tokens owned by the scheduler goroutine.
// The single upstream writer is enforced at connection time, so the queue
// itself needs no synchronization.
type inPort struct {
	name     string
	capacity int
	tokens   *queue.Ring[Token]
}

func newInPort(spec PortSpec) *inPort {
	capacity := spec.Capacity
	if capacity <= 0 {
		capacity = DefaultPortCapacity
	}
	return &inPort{
		name:     spec.Name,
		capacity: capacity,
		tokens:   queue.NewRing[Token](),
	}
}

// Free returns the number of tokens the port can still accept
func (p *inPort) Free() int {
	return p.capacity - p.tokens.Len()
}

// Push appends a token. It returns ErrQueueFull when the port is at
// capacity; the caller must not drop the token in that case.
func (p *inPort) Push(t Token) error {
	if p.tokens.Len() >= p.capacity {
		return errors.ErrQueueFull
	}
	p.tokens.Push(t)
	return nil
}

// Peek returns the i-th oldest token without consuming it
func (p *inPort) Peek(i int) (Token, bool) {
	return p.tokens.Peek(i)
}

// Pop consumes and returns the oldest token
func (p *inPort) Pop() (Token, error) {
	t, ok := p.tokens.Pop()
	if !ok {
		return Token{}, errors.ErrQueueEmpty
	}
	return t, nil
}

// Len returns the number of queued tokens
func (p *inPort) Len() int {
	return p.tokens.Len()
}

// Drain removes and returns all queued tokens oldest first
func (p *inPort) Drain() []Token {
	out := p.tokens.Items()
	p.tokens = queue.NewRing[Token]()
	return out
}

// Restore pushes tokens back in order ahead of any current content.
// Used when rebuilding a port from a snapshot or an aborted export.
func (p *inPort) Restore(tokens []Token) {
	if len(tokens) == 0 {
		return
	}
	current := p.tokens.Items()
	p.tokens = queue.NewRing[Token]()
	for _, t := range tokens {
		p.tokens.Push(t)
	}
	for _, t := range current {
		p.tokens.Push(t)
	}
}

// outPort records the ordered set of connections fanned out from one
// producing port. Order is fixed at wiring time and every produced token
// is offered to all destinations in that order.
type outPort struct {
	name        string
	connections []*connection
}

func newOutPort(spec PortSpec) *outPort {
	return &outPort{name: spec.Name}
}

func (p *outPort) attach(c *connection) {
	p.connections = append(p.connections, c)
}

func (p *outPort) detach(id string) {
	for i, c := range p.connections {
		if c.id == id {
			p.connections = append(p.connections[:i], p.connections[i+1:]...)
			return
		}
	}
}
