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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/dataflow/errors"
)

func TestInPort(t *testing.T) {
	t.Run("FIFO order", func(t *testing.T) {
		p := newInPort(PortSpec{Name: "in", Direction: DirectionIn})
		for i := 1; i <= 5; i++ {
			require.NoError(t, p.Push(NewToken(i)))
		}
		for i := 1; i <= 5; i++ {
			tok, err := p.Pop()
			require.NoError(t, err)
			assert.Equal(t, i, tok.Value)
		}
		_, err := p.Pop()
		assert.ErrorIs(t, err, errors.ErrQueueEmpty)
	})
	t.Run("capacity", func(t *testing.T) {
		p := newInPort(PortSpec{Name: "in", Direction: DirectionIn, Capacity: 2})
		require.NoError(t, p.Push(NewToken(1)))
		require.NoError(t, p.Push(NewToken(2)))
		assert.Zero(t, p.Free())
		assert.ErrorIs(t, p.Push(NewToken(3)), errors.ErrQueueFull)
		assert.Equal(t, 2, p.Len())
	})
	t.Run("default capacity", func(t *testing.T) {
		p := newInPort(PortSpec{Name: "in", Direction: DirectionIn})
		assert.Equal(t, DefaultPortCapacity, p.Free())
	})
	t.Run("restore puts tokens ahead", func(t *testing.T) {
		p := newInPort(PortSpec{Name: "in", Direction: DirectionIn})
		require.NoError(t, p.Push(NewToken(3)))
		p.Restore([]Token{NewToken(1), NewToken(2)})
		for i := 1; i <= 3; i++ {
			tok, err := p.Pop()
			require.NoError(t, err)
			assert.Equal(t, i, tok.Value)
		}
	})
	t.Run("drain empties in order", func(t *testing.T) {
		p := newInPort(PortSpec{Name: "in", Direction: DirectionIn})
		require.NoError(t, p.Push(NewToken(1)))
		require.NoError(t, p.Push(NewToken(2)))
		drained := p.Drain()
		require.Len(t, drained, 2)
		assert.Equal(t, 1, drained[0].Value)
		assert.Equal(t, 2, drained[1].Value)
		assert.Zero(t, p.Len())
	})
}

func TestTokenKinds(t *testing.T) {
	assert.True(t, NewToken(1).IsData())
	assert.True(t, EOSToken().IsEOS())
	fault := FaultToken("boom")
	assert.True(t, fault.IsFault())
	assert.Equal(t, "boom", fault.Reason)
}

func TestTokenCodec(t *testing.T) {
	encoded, err := encodeToken(NewToken("payload"))
	require.NoError(t, err)
	decoded, err := decodeToken(encoded)
	require.NoError(t, err)
	assert.True(t, decoded.IsData())
	assert.Equal(t, "payload", decoded.Value)
}

func TestConnectionID(t *testing.T) {
	from := PortRef{ActorID: "a", Port: "out"}
	to := PortRef{ActorID: "b", Port: "in"}
	assert.Equal(t, "a.out->b.in", ConnectionID(from, to))
}

func TestConnectionTableSingleWriter(t *testing.T) {
	table := newConnectionTable()
	to := PortRef{ActorID: "c", Port: "in"}
	first := &connection{id: ConnectionID(PortRef{ActorID: "a", Port: "out"}, to), from: PortRef{ActorID: "a", Port: "out"}, to: to}
	require.NoError(t, table.add(first))

	second := &connection{id: ConnectionID(PortRef{ActorID: "b", Port: "out"}, to), from: PortRef{ActorID: "b", Port: "out"}, to: to}
	err := table.add(second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInportBusy))

	var confErr *errors.ConfigurationError
	assert.ErrorAs(t, err, &confErr)
}

func TestConnectionTableFanOutOrder(t *testing.T) {
	table := newConnectionTable()
	from := PortRef{ActorID: "a", Port: "out"}
	var ids []string
	for _, dest := range []string{"x", "y", "z"} {
		to := PortRef{ActorID: dest, Port: "in"}
		conn := &connection{id: ConnectionID(from, to), from: from, to: to}
		require.NoError(t, table.add(conn))
		ids = append(ids, conn.id)
	}
	fanout := table.fanout(from)
	require.Len(t, fanout, 3)
	for i, conn := range fanout {
		assert.Equal(t, ids[i], conn.id)
	}

	table.remove(ids[1])
	fanout = table.fanout(from)
	require.Len(t, fanout, 2)
	assert.Equal(t, ids[0], fanout[0].id)
	assert.Equal(t, ids[2], fanout[1].id)
}
