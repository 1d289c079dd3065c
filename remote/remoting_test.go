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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travisjeffery/go-dynaport"

	"github.com/tochemey/dataflow/log"
)

type collector struct {
	mu       sync.Mutex
	messages []*Message
}

func (c *collector) handle(msg *Message) {
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func (c *collector) all() []*Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func TestSendOrdering(t *testing.T) {
	ctx := context.TODO()
	ports := dynaport.Get(2)

	sink := new(collector)
	receiver := NewRemoting("node-b", "127.0.0.1", ports[0], WithLogger(log.DiscardLogger))
	receiver.SetHandler(sink.handle)
	require.NoError(t, receiver.Start(ctx))
	defer func() { _ = receiver.Stop(ctx) }()

	sender := NewRemoting("node-a", "127.0.0.1", ports[1], WithLogger(log.DiscardLogger))
	require.NoError(t, sender.Start(ctx))
	defer func() { _ = sender.Stop(ctx) }()

	total := 500
	for i := 0; i < total; i++ {
		msg := &Message{
			Kind: KindToken,
			Token: &TokenFrame{
				ConnectionID: "c1",
				Seq:          uint64(i + 1),
				Payload:      []byte(fmt.Sprintf("t%d", i)),
			},
		}
		require.NoError(t, sender.Send(ctx, receiver.BindAddr(), msg))
	}

	require.Eventually(t, func() bool {
		return sink.count() == total
	}, five(), 10*time.Millisecond)

	// messages must arrive in the exact send order with the sender name set
	for i, msg := range sink.all() {
		require.Equal(t, KindToken, msg.Kind)
		require.Equal(t, "node-a", msg.FromNode)
		require.EqualValues(t, i+1, msg.Token.Seq)
	}
}

func TestMigrationBarrierOrdering(t *testing.T) {
	ctx := context.TODO()
	ports := dynaport.Get(2)

	sink := new(collector)
	receiver := NewRemoting("node-b", "127.0.0.1", ports[0], WithLogger(log.DiscardLogger))
	receiver.SetHandler(sink.handle)
	require.NoError(t, receiver.Start(ctx))
	defer func() { _ = receiver.Stop(ctx) }()

	sender := NewRemoting("node-a", "127.0.0.1", ports[1], WithLogger(log.DiscardLogger))
	require.NoError(t, sender.Start(ctx))
	defer func() { _ = sender.Stop(ctx) }()

	addr := receiver.BindAddr()
	// tokens, then a migration barrier, then more tokens: the barrier must
	// neither overtake earlier tokens nor be overtaken by later ones
	for seq := uint64(1); seq <= 5; seq++ {
		require.NoError(t, sender.Send(ctx, addr, &Message{
			Kind:  KindToken,
			Token: &TokenFrame{ConnectionID: "c1", Seq: seq},
		}))
	}
	require.NoError(t, sender.Send(ctx, addr, &Message{
		Kind:      KindMigration,
		Migration: &MigrationFrame{Phase: 1, ActorID: "a1", MigrationID: "m1"},
	}))
	for seq := uint64(6); seq <= 10; seq++ {
		require.NoError(t, sender.Send(ctx, addr, &Message{
			Kind:  KindToken,
			Token: &TokenFrame{ConnectionID: "c1", Seq: seq},
		}))
	}

	require.Eventually(t, func() bool {
		return sink.count() == 11
	}, five(), 10*time.Millisecond)

	messages := sink.all()
	for i, msg := range messages[:5] {
		require.Equal(t, KindToken, msg.Kind)
		require.EqualValues(t, i+1, msg.Token.Seq)
	}
	require.Equal(t, KindMigration, messages[5].Kind)
	require.Equal(t, "a1", messages[5].Migration.ActorID)
	for i, msg := range messages[6:] {
		require.Equal(t, KindToken, msg.Kind)
		require.EqualValues(t, i+6, msg.Token.Seq)
	}
}

func TestBrokenLinkRecovery(t *testing.T) {
	ctx := context.TODO()
	ports := dynaport.Get(2)
	receiverPort := ports[0]

	var linkEvents []bool
	var linkMu sync.Mutex

	sender := NewRemoting("node-a", "127.0.0.1", ports[1],
		WithLogger(log.DiscardLogger),
		WithBackoff(2, time.Millisecond, 5*time.Millisecond),
		WithProbeInterval(20*time.Millisecond),
		WithLinkHandler(func(_ string, up bool) {
			linkMu.Lock()
			linkEvents = append(linkEvents, up)
			linkMu.Unlock()
		}))
	require.NoError(t, sender.Start(ctx))
	defer func() { _ = sender.Stop(ctx) }()

	target := fmt.Sprintf("127.0.0.1:%d", receiverPort)
	// no receiver is listening yet: the link must go broken, not drop
	require.NoError(t, sender.Send(ctx, target, &Message{
		Kind:  KindToken,
		Token: &TokenFrame{ConnectionID: "c1", Seq: 1},
	}))

	require.Eventually(t, func() bool {
		return sender.Broken(target)
	}, five(), 5*time.Millisecond)

	// bring the receiver up: the queued message must be delivered
	sink := new(collector)
	receiver := NewRemoting("node-b", "127.0.0.1", receiverPort, WithLogger(log.DiscardLogger))
	receiver.SetHandler(sink.handle)
	require.NoError(t, receiver.Start(ctx))
	defer func() { _ = receiver.Stop(ctx) }()

	require.Eventually(t, func() bool {
		return sink.count() == 1 && !sender.Broken(target)
	}, five(), 5*time.Millisecond)

	linkMu.Lock()
	defer linkMu.Unlock()
	require.GreaterOrEqual(t, len(linkEvents), 2)
	assert.False(t, linkEvents[0])
	assert.True(t, linkEvents[len(linkEvents)-1])
}

func TestStopWithLiveInboundLink(t *testing.T) {
	ctx := context.TODO()
	ports := dynaport.Get(2)

	sink := new(collector)
	receiver := NewRemoting("node-b", "127.0.0.1", ports[0], WithLogger(log.DiscardLogger))
	receiver.SetHandler(sink.handle)
	require.NoError(t, receiver.Start(ctx))

	sender := NewRemoting("node-a", "127.0.0.1", ports[1], WithLogger(log.DiscardLogger))
	require.NoError(t, sender.Start(ctx))
	defer func() { _ = sender.Stop(ctx) }()

	require.NoError(t, sender.Send(ctx, receiver.BindAddr(), &Message{
		Kind:  KindToken,
		Token: &TokenFrame{ConnectionID: "c1", Seq: 1},
	}))
	require.Eventually(t, func() bool {
		return sink.count() == 1
	}, five(), 5*time.Millisecond)

	// the peer keeps its connection open; Stop must still return by
	// closing accepted connections instead of waiting on their readers
	stopped := make(chan error, 1)
	go func() { stopped <- receiver.Stop(ctx) }()
	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(five()):
		t.Fatal("Stop did not return while an inbound link was live")
	}
}

func TestSendBeforeStart(t *testing.T) {
	sender := NewRemoting("node-a", "127.0.0.1", 0, WithLogger(log.DiscardLogger))
	err := sender.Send(context.TODO(), "127.0.0.1:1", &Message{Kind: KindToken})
	require.Error(t, err)
}

func five() time.Duration {
	return 5 * time.Second
}
