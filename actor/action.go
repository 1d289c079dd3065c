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

import "fmt"

// Claim declares how many tokens an action consumes from an inport, or
// the most it may produce on an outport, during one firing
type Claim struct {
	// Port names the port the claim applies to
	Port string
	// Count is the number of tokens. Zero means one.
	Count int
}

func (c Claim) count() int {
	if c.Count <= 0 {
		return 1
	}
	return c.Count
}

// Consume builds a one-token consume claim on the given inport
func Consume(port string) Claim {
	return Claim{Port: port, Count: 1}
}

// ConsumeN builds an n-token consume claim on the given inport
func ConsumeN(port string, n int) Claim {
	return Claim{Port: port, Count: n}
}

// Produce builds a one-token produce claim on the given outport
func Produce(port string) Claim {
	return Claim{Port: port, Count: 1}
}

// ProduceN builds an n-token produce claim on the given outport
func ProduceN(port string, n int) Claim {
	return Claim{Port: port, Count: n}
}

// Inputs gives an action read access to tokens. For a guard it peeks the
// live inport queues; for a firing it covers exactly the consumed tokens.
type Inputs interface {
	// Get returns the i-th oldest token on the given port
	Get(port string, i int) (Token, bool)
	// First returns the oldest token on the given port
	First(port string) (Token, bool)
	// Available returns the number of readable tokens on the given port
	Available(port string) int
}

// Firing collects the tokens produced during one firing. Tokens become
// visible downstream only when the firing commits; a returned error
// discards the whole batch.
type Firing struct {
	produced []produced
	budget   map[string]int
	err      error
}

type produced struct {
	port  string
	token Token
}

// Produce stages a token on the given outport. Producing past the
// action's declared claim fails the firing.
func (f *Firing) Produce(port string, t Token) {
	if f.err != nil {
		return
	}
	remaining, ok := f.budget[port]
	if !ok {
		f.err = fmt.Errorf("produce on undeclared port %s", port)
		return
	}
	if remaining <= 0 {
		f.err = fmt.Errorf("produce claim exhausted on port %s", port)
		return
	}
	f.budget[port] = remaining - 1
	f.produced = append(f.produced, produced{port: port, token: t})
}

// Action is one guarded behavior of an actor. The scheduler selects the
// first action, in declaration order, whose consume claims are satisfied
// by queued tokens, whose produce claims fit downstream, and whose guard
// accepts the pending inputs.
type Action struct {
	// Name identifies the action in fault reports
	Name string
	// Consumes lists the inport tokens the action atomically consumes
	Consumes []Claim
	// Produces bounds the outport tokens the action may emit
	Produces []Claim
	// Guard inspects pending inputs without consuming them. Nil means
	// always eligible once the claims are satisfiable.
	Guard func(in Inputs) bool
	// Fire runs the action over the consumed tokens. A non-nil error
	// discards staged outputs, restores consumed tokens and faults the
	// actor. Required.
	Fire func(in Inputs, out *Firing) error
}

// queueInputs adapts live inport queues to the Inputs interface for
// guard evaluation
type queueInputs struct {
	ports map[string]*inPort
}

func (q queueInputs) Get(port string, i int) (Token, bool) {
	p, ok := q.ports[port]
	if !ok {
		return Token{}, false
	}
	return p.Peek(i)
}

func (q queueInputs) First(port string) (Token, bool) {
	return q.Get(port, 0)
}

func (q queueInputs) Available(port string) int {
	p, ok := q.ports[port]
	if !ok {
		return 0
	}
	return p.Len()
}

// stagedInputs exposes the tokens consumed by one firing
type stagedInputs struct {
	tokens map[string][]Token
}

func (s stagedInputs) Get(port string, i int) (Token, bool) {
	batch := s.tokens[port]
	if i < 0 || i >= len(batch) {
		return Token{}, false
	}
	return batch[i], true
}

func (s stagedInputs) First(port string) (Token, bool) {
	return s.Get(port, 0)
}

func (s stagedInputs) Available(port string) int {
	return len(s.tokens[port])
}
