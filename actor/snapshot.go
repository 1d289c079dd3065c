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
	"github.com/vmihailenco/msgpack/v5"

	"github.com/tochemey/dataflow/errors"
)

// edge is the wire form of one graph connection carried in a snapshot
type edge struct {
	From PortRef `msgpack:"f"`
	To   PortRef `msgpack:"t"`
}

// peerBinding locates the node hosting a peer actor at capture time
type peerBinding struct {
	Node string `msgpack:"n"`
	Addr string `msgpack:"a"`
}

// snapshot is the complete transferable image of one actor: behavior
// state, every queued input token, tokens parked during the migration
// and the edges the destination must rebind. A fresh snapshot carries
// deployment arguments instead of marshaled state and materializes a
// brand new instance.
type snapshot struct {
	ActorID     string             `msgpack:"id"`
	Type        string             `msgpack:"ty"`
	Application string             `msgpack:"app"`
	Fresh       bool               `msgpack:"fr"`
	Args        map[string]any     `msgpack:"ar,omitempty"`
	State       []byte             `msgpack:"st,omitempty"`
	Inports     map[string][]Token `msgpack:"in,omitempty"`
	SideBuffer  []bufferedToken    `msgpack:"sb,omitempty"`
	Inbound     []edge             `msgpack:"ie,omitempty"`
	Outbound    []edge             `msgpack:"oe,omitempty"`
	// Peers maps each peer actor id to its placement so the importer can
	// bind remote edges without registry round trips
	Peers map[string]peerBinding `msgpack:"pe,omitempty"`
}

// export captures the cell into a transferable snapshot. Inport queues
// are drained in FIFO order; the cell must be quiescent.
func (c *cell) export(table *connectionTable) (*snapshot, error) {
	state, err := c.instance.MarshalState()
	if err != nil {
		return nil, errors.NewMigrationError(err)
	}
	snap := &snapshot{
		ActorID:     c.id,
		Type:        c.typeName,
		Application: c.application,
		State:       state,
		Inports:     make(map[string][]Token, len(c.inports)),
		// parked arrivals go behind the queue content they overflowed
		SideBuffer: append(append([]bufferedToken(nil), c.overflow...), c.sideBuffer...),
	}
	for name, p := range c.inports {
		snap.Inports[name] = p.Drain()
	}
	for _, conn := range table.touching(c.id) {
		e := edge{From: conn.from, To: conn.to}
		if conn.to.ActorID == c.id {
			snap.Inbound = append(snap.Inbound, e)
		} else {
			snap.Outbound = append(snap.Outbound, e)
		}
	}
	return snap, nil
}

// restore pushes the snapshot's tokens into a freshly built cell. Side
// buffer tokens go behind the drained queue content, preserving the
// arrival order at the source.
func (c *cell) restore(snap *snapshot) error {
	if err := c.instance.UnmarshalState(snap.State); err != nil {
		return errors.NewMigrationError(err)
	}
	for name, tokens := range snap.Inports {
		p, ok := c.inports[name]
		if !ok {
			return errors.NewMigrationError(errors.ErrPortNotFound)
		}
		for _, t := range tokens {
			p.tokens.Push(t)
		}
	}
	inportByConn := make(map[string]string, len(snap.Inbound))
	for _, e := range snap.Inbound {
		inportByConn[ConnectionID(e.From, e.To)] = e.To.Port
	}
	for _, buffered := range snap.SideBuffer {
		name, ok := inportByConn[buffered.ConnectionID]
		if !ok {
			return errors.NewMigrationError(errors.ErrPortNotFound)
		}
		p, ok := c.inports[name]
		if !ok {
			return errors.NewMigrationError(errors.ErrPortNotFound)
		}
		p.tokens.Push(buffered.Token)
	}
	return nil
}

func encodeSnapshot(snap *snapshot) ([]byte, error) {
	encoded, err := msgpack.Marshal(snap)
	if err != nil {
		return nil, errors.NewMigrationError(err)
	}
	return encoded, nil
}

func decodeSnapshot(encoded []byte) (*snapshot, error) {
	snap := new(snapshot)
	if err := msgpack.Unmarshal(encoded, snap); err != nil {
		return nil, errors.NewMigrationError(err)
	}
	return snap, nil
}
