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

package queue

import (
	"sync/atomic"
)

// mpscNode is a single entry in the Mpsc queue
type mpscNode[T any] struct {
	value T
	next  atomic.Pointer[mpscNode[T]]
}

// Mpsc is a Multi-Producer-Single-Consumer queue. Push is safe from any
// goroutine; Pop and IsEmpty must only be called from the single consumer.
// The scheduler loop is the sole consumer of its event mailbox.
// reference: https://concurrencyfreaks.blogspot.com/2014/04/multi-producer-single-consumer-queue.html
type Mpsc[T any] struct {
	head   atomic.Pointer[mpscNode[T]]
	tail   *mpscNode[T]
	length atomic.Int64
}

// NewMpsc creates an instance of Mpsc
func NewMpsc[T any]() *Mpsc[T] {
	stub := new(mpscNode[T])
	q := new(Mpsc[T])
	q.head.Store(stub)
	q.tail = stub
	return q
}

// Push places the given value at the back of the queue (FIFO).
// It can be safely called from multiple goroutines.
func (q *Mpsc[T]) Push(value T) {
	n := &mpscNode[T]{value: value}
	prev := q.head.Swap(n)
	prev.next.Store(n)
	q.length.Add(1)
}

// Pop removes the value at the front of the queue.
// Returns false when the queue is empty. Single consumer only.
func (q *Mpsc[T]) Pop() (T, bool) {
	var zero T
	next := q.tail.next.Load()
	if next == nil {
		return zero, false
	}
	q.tail = next
	value := next.value
	next.value = zero
	q.length.Add(-1)
	return value, true
}

// Len returns the number of queued values
func (q *Mpsc[T]) Len() int64 {
	return q.length.Load()
}

// IsEmpty returns true when the queue is empty. Single consumer only.
func (q *Mpsc[T]) IsEmpty() bool {
	return q.tail.next.Load() == nil
}
