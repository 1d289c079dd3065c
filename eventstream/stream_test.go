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

package eventstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStream(t *testing.T) {
	t.Run("With publish and subscribe", func(t *testing.T) {
		stream := New()
		defer stream.Close()

		sub := stream.AddSubscriber(TopicFaults)
		require.Equal(t, 1, stream.SubscribersCount(TopicFaults))
		require.Zero(t, stream.SubscribersCount(TopicLinks))

		stream.Publish(TopicFaults, "boom")
		event := <-sub.Iterator()
		assert.Equal(t, TopicFaults, event.Topic)
		assert.Equal(t, "boom", event.Payload)
	})
	t.Run("With topic isolation", func(t *testing.T) {
		stream := New()
		defer stream.Close()

		faults := stream.AddSubscriber(TopicFaults)
		stream.Publish(TopicLinks, "link down")
		select {
		case event := <-faults.Iterator():
			t.Fatalf("unexpected event: %v", event)
		default:
		}
	})
	t.Run("With subscriber removal", func(t *testing.T) {
		stream := New()
		defer stream.Close()

		sub := stream.AddSubscriber(TopicMigrations, TopicFaults)
		require.Len(t, sub.Topics(), 2)
		stream.RemoveSubscriber(sub)
		assert.Zero(t, stream.SubscribersCount(TopicMigrations))
		assert.Zero(t, stream.SubscribersCount(TopicFaults))
		_, open := <-sub.Iterator()
		assert.False(t, open)
	})
	t.Run("With closed stream", func(t *testing.T) {
		stream := New()
		sub := stream.AddSubscriber(TopicFaults)
		stream.Close()
		stream.Publish(TopicFaults, "dropped")
		_, open := <-sub.Iterator()
		assert.False(t, open)
	})
}
