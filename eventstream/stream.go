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

// Package eventstream carries runtime lifecycle events upward to whoever
// wants to observe them: actor faults, link health changes and migration
// progress. Engine faults never travel through dataflow ports; they are
// published here instead.
package eventstream

import (
	"sync"

	"github.com/google/uuid"
)

// Topic names events are broadcast under
const (
	// TopicFaults carries ActorFault events
	TopicFaults = "faults"
	// TopicLinks carries LinkDown/LinkUp events
	TopicLinks = "links"
	// TopicMigrations carries migration lifecycle events
	TopicMigrations = "migrations"
)

// Event is a runtime lifecycle notification
type Event struct {
	// Topic the event was broadcast under
	Topic string
	// Payload is the event value
	Payload any
}

// Subscriber consumes events from the topics it is subscribed to
type Subscriber interface {
	// ID returns the subscriber id
	ID() string
	// Iterator returns the channel events are delivered on
	Iterator() <-chan *Event
	// Topics returns the topics the subscriber listens to
	Topics() []string
}

// Stream broadcasts runtime events to subscribers per topic. A slow
// subscriber never blocks the publisher: events overflowing the
// subscriber buffer are dropped for that subscriber only.
type Stream struct {
	mu     sync.RWMutex
	topics map[string]map[string]*subscriber
	subs   map[string]*subscriber
	closed bool
}

// New creates an instance of Stream
func New() *Stream {
	return &Stream{
		topics: make(map[string]map[string]*subscriber),
		subs:   make(map[string]*subscriber),
	}
}

// AddSubscriber registers a subscriber for the given topics
func (s *Stream) AddSubscriber(topics ...string) Subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := &subscriber{
		id:     uuid.NewString(),
		events: make(chan *Event, subscriberBuffer),
		topics: topics,
	}
	s.subs[sub.id] = sub
	for _, topic := range topics {
		if s.topics[topic] == nil {
			s.topics[topic] = make(map[string]*subscriber)
		}
		s.topics[topic][sub.id] = sub
	}
	return sub
}

// RemoveSubscriber removes a subscriber from every topic and closes its channel
func (s *Stream) RemoveSubscriber(sub Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	internal, ok := s.subs[sub.ID()]
	if !ok {
		return
	}
	for _, topic := range internal.topics {
		delete(s.topics[topic], internal.id)
	}
	delete(s.subs, internal.id)
	internal.close()
}

// Publish broadcasts an event to every subscriber of the topic
func (s *Stream) Publish(topic string, payload any) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	for _, sub := range s.topics[topic] {
		sub.signal(&Event{Topic: topic, Payload: payload})
	}
}

// SubscribersCount returns the number of subscribers for a given topic
func (s *Stream) SubscribersCount(topic string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.topics[topic])
}

// Close shuts the stream down and closes every subscriber channel
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, sub := range s.subs {
		sub.close()
	}
	s.topics = make(map[string]map[string]*subscriber)
	s.subs = make(map[string]*subscriber)
}

// subscriberBuffer is the per-subscriber channel depth
const subscriberBuffer = 256

type subscriber struct {
	id     string
	events chan *Event
	topics []string
	once   sync.Once
}

var _ Subscriber = (*subscriber)(nil)

func (s *subscriber) ID() string {
	return s.id
}

func (s *subscriber) Iterator() <-chan *Event {
	return s.events
}

func (s *subscriber) Topics() []string {
	return s.topics
}

// signal delivers an event without ever blocking the publisher
func (s *subscriber) signal(event *Event) {
	select {
	case s.events <- event:
	default:
	}
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.events)
	})
}
