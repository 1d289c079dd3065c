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

// minRingLen is the smallest capacity a ring may have.
// Must be a power of 2 for bitwise modulus: x % n == x & (n - 1).
const minRingLen = 16

// Ring is a FIFO queue backed by a growable ring buffer. It is not safe for
// concurrent use: in this runtime every Ring is owned by the single scheduler
// goroutine of its node (inport token queues, migration side buffers).
// reference: https://github.com/eapache/queue
type Ring[T any] struct {
	nodes []T
	head  int
	tail  int
	count int
}

// NewRing creates an instance of Ring
func NewRing[T any]() *Ring[T] {
	return &Ring[T]{
		nodes: make([]T, minRingLen),
	}
}

// Push adds a value to the back of the queue
func (r *Ring[T]) Push(value T) {
	if r.count == len(r.nodes) {
		r.resize()
	}
	r.nodes[r.tail] = value
	// bitwise modulus
	r.tail = (r.tail + 1) & (len(r.nodes) - 1)
	r.count++
}

// Pop removes and returns the value at the front of the queue.
// Returns false when the queue is empty.
func (r *Ring[T]) Pop() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}
	value := r.nodes[r.head]
	r.nodes[r.head] = zero
	// bitwise modulus
	r.head = (r.head + 1) & (len(r.nodes) - 1)
	r.count--
	return value, true
}

// Peek returns the i-th value from the front of the queue without removing it.
// Returns false when fewer than i+1 values are queued.
func (r *Ring[T]) Peek(i int) (T, bool) {
	var zero T
	if i < 0 || i >= r.count {
		return zero, false
	}
	// bitwise modulus
	return r.nodes[(r.head+i)&(len(r.nodes)-1)], true
}

// Len returns the number of queued values
func (r *Ring[T]) Len() int {
	return r.count
}

// IsEmpty returns true when the queue is empty
func (r *Ring[T]) IsEmpty() bool {
	return r.count == 0
}

// Items returns the queued values front to back without removing them
func (r *Ring[T]) Items() []T {
	out := make([]T, 0, r.count)
	for i := 0; i < r.count; i++ {
		out = append(out, r.nodes[(r.head+i)&(len(r.nodes)-1)])
	}
	return out
}

// resize doubles the underlying buffer
func (r *Ring[T]) resize() {
	nodes := make([]T, r.count<<1)
	if r.tail > r.head {
		copy(nodes, r.nodes[r.head:r.tail])
	} else {
		n := copy(nodes, r.nodes[r.head:])
		copy(nodes[n:], r.nodes[:r.tail])
	}
	r.head = 0
	r.tail = r.count
	r.nodes = nodes
}
