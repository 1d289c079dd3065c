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

	"github.com/tochemey/dataflow/log"
)

// Option configures a Node at creation time
type Option interface {
	// Apply sets the Option value of a Node
	Apply(node *Node)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface
type OptionFunc func(node *Node)

// Apply applies the options to the Node
func (f OptionFunc) Apply(node *Node) {
	f(node)
}

// WithLogger sets the node logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(node *Node) {
		node.logger = logger
	})
}

// WithAttributes sets the capability attributes advertised by the node.
// Placement constraints of deployed actors match against these.
func WithAttributes(attributes map[string]string) Option {
	return OptionFunc(func(node *Node) {
		node.attributes = attributes
	})
}

// WithAckTimeout bounds how long the node waits for a remote peer to
// acknowledge a deployment or a migration transfer
func WithAckTimeout(timeout time.Duration) Option {
	return OptionFunc(func(node *Node) {
		node.ackTimeout = timeout
	})
}
