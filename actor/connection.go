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
)

// ConnectionID returns the deterministic identifier of the connection from
// one outport to one inport. Both endpoints derive the same identifier
// independently, so no coordination is needed to agree on it.
func ConnectionID(from, to PortRef) string {
	return fmt.Sprintf("%s->%s", from.Key(), to.Key())
}

// connection is one edge of the dataflow graph as seen by the node that
// hosts its producing end. The consuming end is either a local inport or
// a port on a remote node; migration rebinds the endpoint in place.
type connection struct {
	id   string
	from PortRef
	to   PortRef

	// destCell is set when the destination actor runs on this node
	destCell *cell
	// destNode and destAddr locate a remote destination
	destNode string
	destAddr string
	// seq numbers tokens sent over the wire. Fresh per binding: rebinding
	// to a new destination node restarts the sequence at 1.
	seq uint64
}

func (c *connection) isRemote() bool {
	return c.destCell == nil
}

// rebind points the connection at a new destination, resetting the wire
// sequence for the new binding
func (c *connection) rebind(destCell *cell, destNode, destAddr string) {
	c.destCell = destCell
	c.destNode = destNode
	c.destAddr = destAddr
	c.seq = 0
}

// retarget moves a remote binding to a new peer without restarting the
// sequence. Used when a redirect announces a migrated consumer.
func (c *connection) retarget(destNode, destAddr string) {
	c.destCell = nil
	c.destNode = destNode
	c.destAddr = destAddr
}

func (c *connection) nextSeq() uint64 {
	c.seq++
	return c.seq
}

// connectionTable tracks every connection whose producing or consuming
// end is hosted on this node. It enforces the single writer rule: at
// most one connection may feed a given inport.
type connectionTable struct {
	// byID indexes every known connection
	byID map[string]*connection
	// writer maps an inport key to the connection feeding it
	writer map[string]*connection
	// outgoing maps an outport key to its ordered fan-out
	outgoing map[string][]*connection
}

func newConnectionTable() *connectionTable {
	return &connectionTable{
		byID:     make(map[string]*connection),
		writer:   make(map[string]*connection),
		outgoing: make(map[string][]*connection),
	}
}

// add registers a connection. It fails with a ConfigurationError when the
// destination inport already has a writer.
func (t *connectionTable) add(c *connection) error {
	if existing, ok := t.writer[c.to.Key()]; ok && existing.id != c.id {
		return errors.NewConfigurationError(
			fmt.Errorf("inport %s already fed by %s: %w", c.to.Key(), existing.id, errors.ErrInportBusy))
	}
	if _, ok := t.byID[c.id]; ok {
		return nil
	}
	t.byID[c.id] = c
	t.writer[c.to.Key()] = c
	fromKey := c.from.Key()
	t.outgoing[fromKey] = append(t.outgoing[fromKey], c)
	return nil
}

// remove unregisters a connection by identifier
func (t *connectionTable) remove(id string) {
	c, ok := t.byID[id]
	if !ok {
		return
	}
	delete(t.byID, id)
	delete(t.writer, c.to.Key())
	fromKey := c.from.Key()
	fanout := t.outgoing[fromKey]
	for i, cand := range fanout {
		if cand.id == id {
			t.outgoing[fromKey] = append(fanout[:i], fanout[i+1:]...)
			break
		}
	}
	if len(t.outgoing[fromKey]) == 0 {
		delete(t.outgoing, fromKey)
	}
}

// get returns the connection with the given identifier
func (t *connectionTable) get(id string) (*connection, bool) {
	c, ok := t.byID[id]
	return c, ok
}

// fanout returns the ordered connections leaving the given outport
func (t *connectionTable) fanout(from PortRef) []*connection {
	return t.outgoing[from.Key()]
}

// feeding returns the connection feeding the given inport
func (t *connectionTable) feeding(to PortRef) (*connection, bool) {
	c, ok := t.writer[to.Key()]
	return c, ok
}

// touching returns every connection with the given actor at either end
func (t *connectionTable) touching(actorID string) []*connection {
	var out []*connection
	for _, c := range t.byID {
		if c.from.ActorID == actorID || c.to.ActorID == actorID {
			out = append(out, c)
		}
	}
	return out
}
