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
	"time"

	"github.com/tochemey/dataflow/eventstream"
	"github.com/tochemey/dataflow/internal/queue"
	"github.com/tochemey/dataflow/log"
)

// transmitFunc hands a token to the transport for a remote connection
type transmitFunc func(conn *connection, seq uint64, token Token)

// scheduler runs every actor hosted on a node from one goroutine. All
// cell and connection state is owned by that goroutine; the rest of the
// node talks to it by submitting closures through an MPSC queue. Firing
// is non-preemptive and actors are visited round robin, so one busy
// actor cannot monopolize the loop.
type scheduler struct {
	logger   log.Logger
	events   *eventstream.Stream
	transmit transmitFunc

	ops    *queue.Mpsc[func()]
	notify chan struct{}
	stop   chan struct{}
	done   chan struct{}

	// loop-owned state
	cells map[string]*cell
	table *connectionTable
	order []string
	next  int
	// inSeq tracks the highest sequence accepted per sender and
	// connection, dropping wire duplicates
	inSeq map[string]uint64
}

func newScheduler(logger log.Logger, events *eventstream.Stream, transmit transmitFunc) *scheduler {
	return &scheduler{
		logger:   logger,
		events:   events,
		transmit: transmit,
		ops:      queue.NewMpsc[func()](),
		notify:   make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		cells:    make(map[string]*cell),
		table:    newConnectionTable(),
		inSeq:    make(map[string]uint64),
	}
}

func (s *scheduler) start() {
	go s.run()
}

func (s *scheduler) shutdown() {
	close(s.stop)
	<-s.done
}

// invoke submits a closure for execution on the loop goroutine. Closures
// run in submission order and may freely mutate cells and connections.
func (s *scheduler) invoke(op func()) {
	s.ops.Push(op)
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// call submits a closure and waits for it to finish
func (s *scheduler) call(op func()) {
	ack := make(chan struct{})
	s.invoke(func() {
		defer close(ack)
		op()
	})
	<-ack
}

func (s *scheduler) run() {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			s.drainOps()
			return
		case <-s.notify:
		}
		s.drainOps()
		for s.fireRound() {
			s.drainOps()
			select {
			case <-s.stop:
				return
			default:
			}
		}
	}
}

func (s *scheduler) drainOps() {
	for {
		op, ok := s.ops.Pop()
		if !ok {
			return
		}
		op()
	}
}

// addCell registers a cell with the loop. Loop goroutine only.
func (s *scheduler) addCell(c *cell) {
	s.cells[c.id] = c
	s.order = append(s.order, c.id)
}

// removeCell unregisters a cell and its round robin slot. Loop goroutine
// only.
func (s *scheduler) removeCell(id string) {
	delete(s.cells, id)
	for i, cand := range s.order {
		if cand == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			if s.next > i {
				s.next--
			}
			break
		}
	}
}

// fireRound gives every hosted actor at most one firing opportunity,
// starting after the last actor that fired. It reports whether any actor
// fired, which keeps the loop hot while work remains.
func (s *scheduler) fireRound() bool {
	n := len(s.order)
	if n == 0 {
		return false
	}
	fired := false
	base := s.next
	for i := 0; i < n; i++ {
		idx := (base + i) % n
		c, ok := s.cells[s.order[idx]]
		if !ok {
			continue
		}
		s.drainOverflow(c)
		if !c.fireable() {
			continue
		}
		if s.tryFire(c) {
			fired = true
			s.next = (idx + 1) % n
		}
	}
	return fired
}

// tryFire selects and fires the first eligible action of the cell. An
// action is eligible when its consume claims are covered by queued
// tokens, its produce claims fit every downstream queue and its guard
// accepts the pending inputs. Returns true only when a firing committed.
func (s *scheduler) tryFire(c *cell) bool {
	for _, action := range c.actions {
		if !s.claimsSatisfied(c, action) {
			continue
		}
		if action.Guard != nil && !action.Guard(queueInputs{ports: c.inports}) {
			continue
		}
		return s.fire(c, action)
	}
	return false
}

// claimsSatisfied checks token availability upstream and queue space
// downstream without consuming anything
func (s *scheduler) claimsSatisfied(c *cell, action Action) bool {
	for _, claim := range action.Consumes {
		p, ok := c.inports[claim.Port]
		if !ok || p.Len() < claim.count() {
			return false
		}
	}
	for _, claim := range action.Produces {
		if !s.roomFor(c, claim) {
			return false
		}
	}
	return true
}

// roomFor checks that every destination of the claimed outport can take
// the claimed token count. Remote destinations are always considered
// available; the receiving node absorbs overflow. A destination that is
// migrating locally parks tokens in its side buffer, which has no bound.
func (s *scheduler) roomFor(c *cell, claim Claim) bool {
	fanout := s.table.fanout(PortRef{ActorID: c.id, Port: claim.Port})
	for _, conn := range fanout {
		if conn.isRemote() || conn.destCell.migrating() {
			continue
		}
		dest, ok := conn.destCell.inports[conn.to.Port]
		if !ok {
			return false
		}
		if dest.Free() < claim.count() {
			return false
		}
	}
	return true
}

// fire consumes the claimed tokens, runs the action and either commits
// the staged outputs or restores the inputs and faults the actor
func (s *scheduler) fire(c *cell, action Action) bool {
	consumed := make(map[string][]Token, len(action.Consumes))
	for _, claim := range action.Consumes {
		p := c.inports[claim.Port]
		batch := make([]Token, 0, claim.count())
		for i := 0; i < claim.count(); i++ {
			t, err := p.Pop()
			if err != nil {
				// claimsSatisfied guarantees availability
				p.Restore(batch)
				for port, tokens := range consumed {
					c.inports[port].Restore(tokens)
				}
				return false
			}
			batch = append(batch, t)
		}
		consumed[claim.Port] = batch
	}

	budget := make(map[string]int, len(action.Produces))
	for _, claim := range action.Produces {
		budget[claim.Port] = claim.count()
	}
	firing := &Firing{budget: budget}

	err := action.Fire(stagedInputs{tokens: consumed}, firing)
	if err == nil {
		err = firing.err
	}
	if err != nil {
		for _, claim := range action.Consumes {
			c.inports[claim.Port].Restore(consumed[claim.Port])
		}
		c.fault(action.Name, err.Error())
		s.logger.Warnf("actor=%s action=%s faulted: %v", c.id, action.Name, err)
		s.events.Publish(eventstream.TopicFaults, &ActorFaultEvent{
			ActorID:     c.id,
			Application: c.application,
			Action:      action.Name,
			Reason:      err.Error(),
			Timestamp:   time.Now(),
		})
		return false
	}

	for _, out := range firing.produced {
		s.route(c, out.port, out.token)
	}
	return true
}

// route fans a committed token out to every connection of the outport in
// wiring order. An unconnected outport discards the token.
func (s *scheduler) route(c *cell, port string, t Token) {
	for _, conn := range s.table.fanout(PortRef{ActorID: c.id, Port: port}) {
		s.deliverLocalOrRemote(conn, t)
	}
}

// deliverLocalOrRemote places one token on one connection. Local
// delivery goes straight into the destination inport, or into the side
// buffer while the destination is mid-migration. Remote delivery is
// sequenced and handed to the transport.
func (s *scheduler) deliverLocalOrRemote(conn *connection, t Token) {
	if conn.isRemote() {
		s.transmit(conn, conn.nextSeq(), t)
		return
	}
	dest := conn.destCell
	if dest.migrating() {
		dest.sideBuffer = append(dest.sideBuffer, bufferedToken{ConnectionID: conn.id, Token: t})
		return
	}
	p, ok := dest.inports[conn.to.Port]
	if !ok {
		s.logger.Errorf("connection=%s targets unknown inport", conn.id)
		return
	}
	// a full inport never drops: the token queues behind earlier parked
	// arrivals and is redelivered once a firing frees space
	if s.overflowPending(dest, conn.id) || p.Push(t) != nil {
		dest.overflow = append(dest.overflow, bufferedToken{ConnectionID: conn.id, Token: t})
	}
}

// overflowPending reports whether the cell holds a parked token of the
// given connection, in which case later tokens must queue behind it
func (s *scheduler) overflowPending(c *cell, connectionID string) bool {
	for _, buffered := range c.overflow {
		if buffered.ConnectionID == connectionID {
			return true
		}
	}
	return false
}

// drainOverflow redelivers parked tokens in arrival order as far as
// their inports have space. A connection whose head token still does
// not fit keeps its later tokens parked, preserving per-connection
// order without blocking the other inports.
func (s *scheduler) drainOverflow(c *cell) {
	if len(c.overflow) == 0 {
		return
	}
	var remaining []bufferedToken
	blocked := make(map[string]bool)
	for _, buffered := range c.overflow {
		conn, ok := s.table.get(buffered.ConnectionID)
		if !ok {
			s.logger.Warnf("dropping parked token of vanished connection %s", buffered.ConnectionID)
			continue
		}
		if blocked[buffered.ConnectionID] {
			remaining = append(remaining, buffered)
			continue
		}
		p, ok := c.inports[conn.to.Port]
		if !ok {
			continue
		}
		if p.Push(buffered.Token) != nil {
			blocked[buffered.ConnectionID] = true
			remaining = append(remaining, buffered)
		}
	}
	c.overflow = remaining
}

// enqueueInbound places a token arriving from the wire. Loop goroutine
// only. Tokens for a migrating cell are parked in its side buffer.
func (s *scheduler) enqueueInbound(conn *connection, t Token) {
	s.deliverLocalOrRemote(conn, t)
	s.kick()
}

// removeActor drops a cell and every connection touching it. Loop
// goroutine only.
func (s *scheduler) removeActor(id string) {
	s.removeCell(id)
	for _, conn := range s.table.touching(id) {
		s.table.remove(conn.id)
	}
}

// flushSide re-delivers parked tokens into the cell's inports in arrival
// order. Parked tokens were accepted before the park, so capacity checks
// are bypassed; backpressure resumes on the next firing selection.
func (s *scheduler) flushSide(c *cell) {
	for _, buffered := range c.sideBuffer {
		conn, ok := s.table.get(buffered.ConnectionID)
		if !ok {
			s.logger.Warnf("dropping parked token of vanished connection %s", buffered.ConnectionID)
			continue
		}
		p, ok := c.inports[conn.to.Port]
		if !ok {
			continue
		}
		p.tokens.Push(buffered.Token)
	}
	c.sideBuffer = nil
}

// kick wakes the loop so newly available tokens get a firing round
func (s *scheduler) kick() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}
