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
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// asInt copes with deployment arguments crossing the wire, where msgpack
// turns ints into sized integer types
func asInt(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint8:
		return int(v)
	case uint16:
		return int(v)
	case uint32:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// recorder collects sink output across nodes of a test
type recorder struct {
	mu     sync.Mutex
	values []int
	once   sync.Once
	done   chan struct{}
}

func newRecorder() *recorder {
	return &recorder{done: make(chan struct{})}
}

func (r *recorder) record(value int) {
	r.mu.Lock()
	r.values = append(r.values, value)
	r.mu.Unlock()
}

func (r *recorder) finish() {
	r.once.Do(func() { close(r.done) })
}

func (r *recorder) snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.values))
	copy(out, r.values)
	return out
}

// rangeSource emits the integers 1..limit followed by end of stream
type rangeSource struct {
	limit int
	next  int
}

func (s *rangeSource) Init(args map[string]any) error {
	s.limit = asInt(args["limit"])
	s.next = 1
	if s.limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", s.limit)
	}
	return nil
}

func (s *rangeSource) Ports() []PortSpec {
	return []PortSpec{{Name: "out", Direction: DirectionOut}}
}

func (s *rangeSource) Actions() []Action {
	return []Action{
		{
			Name:     "emit",
			Produces: []Claim{Produce("out")},
			Guard:    func(Inputs) bool { return s.next <= s.limit },
			Fire: func(_ Inputs, out *Firing) error {
				out.Produce("out", NewToken(s.next))
				s.next++
				return nil
			},
		},
		{
			Name:     "close",
			Produces: []Claim{Produce("out")},
			Guard:    func(Inputs) bool { return s.next == s.limit+1 },
			Fire: func(_ Inputs, out *Firing) error {
				out.Produce("out", EOSToken())
				s.next++
				return nil
			},
		},
	}
}

func (s *rangeSource) MarshalState() ([]byte, error) {
	return msgpack.Marshal([2]int{s.limit, s.next})
}

func (s *rangeSource) UnmarshalState(data []byte) error {
	var state [2]int
	if err := msgpack.Unmarshal(data, &state); err != nil {
		return err
	}
	s.limit, s.next = state[0], state[1]
	return nil
}

// doubler multiplies every incoming integer by two
type doubler struct{}

func (d *doubler) Init(map[string]any) error { return nil }

func (d *doubler) Ports() []PortSpec {
	return []PortSpec{
		{Name: "in", Direction: DirectionIn},
		{Name: "out", Direction: DirectionOut},
	}
}

func (d *doubler) Actions() []Action {
	return []Action{
		{
			Name:     "double",
			Consumes: []Claim{Consume("in")},
			Produces: []Claim{Produce("out")},
			Fire: func(in Inputs, out *Firing) error {
				t, _ := in.First("in")
				if !t.IsData() {
					out.Produce("out", t)
					return nil
				}
				out.Produce("out", NewToken(asInt(t.Value)*2))
				return nil
			},
		},
	}
}

func (d *doubler) MarshalState() ([]byte, error)  { return nil, nil }
func (d *doubler) UnmarshalState(data []byte) error { return nil }

// recordingSink feeds a recorder and counts what it saw
type recordingSink struct {
	rec  *recorder
	seen int
}

func (s *recordingSink) Init(map[string]any) error { return nil }

func (s *recordingSink) Ports() []PortSpec {
	return []PortSpec{{Name: "in", Direction: DirectionIn}}
}

func (s *recordingSink) Actions() []Action {
	return []Action{
		{
			Name:     "collect",
			Consumes: []Claim{Consume("in")},
			Fire: func(in Inputs, _ *Firing) error {
				t, _ := in.First("in")
				if t.IsEOS() {
					s.rec.finish()
					return nil
				}
				s.rec.record(asInt(t.Value))
				s.seen++
				return nil
			},
		},
	}
}

func (s *recordingSink) MarshalState() ([]byte, error) {
	return msgpack.Marshal(s.seen)
}

func (s *recordingSink) UnmarshalState(data []byte) error {
	return msgpack.Unmarshal(data, &s.seen)
}

// splitter routes booleans: true values to "yes", everything else to "no"
type splitter struct{}

func (s *splitter) Init(map[string]any) error { return nil }

func (s *splitter) Ports() []PortSpec {
	return []PortSpec{
		{Name: "in", Direction: DirectionIn},
		{Name: "yes", Direction: DirectionOut},
		{Name: "no", Direction: DirectionOut},
	}
}

func (s *splitter) Actions() []Action {
	isTrue := func(in Inputs) bool {
		t, ok := in.First("in")
		if !ok || !t.IsData() {
			return false
		}
		b, ok := t.Value.(bool)
		return ok && b
	}
	return []Action{
		{
			Name:     "route_true",
			Consumes: []Claim{Consume("in")},
			Produces: []Claim{Produce("yes")},
			Guard:    isTrue,
			Fire: func(in Inputs, out *Firing) error {
				t, _ := in.First("in")
				out.Produce("yes", t)
				return nil
			},
		},
		{
			Name:     "route_false",
			Consumes: []Claim{Consume("in")},
			Produces: []Claim{Produce("no")},
			Fire: func(in Inputs, out *Firing) error {
				t, _ := in.First("in")
				out.Produce("no", t)
				return nil
			},
		},
	}
}

func (s *splitter) MarshalState() ([]byte, error)  { return nil, nil }
func (s *splitter) UnmarshalState(data []byte) error { return nil }

// tripwire fails its firing on a marked value, faulting the actor
type tripwire struct {
	trigger int
}

func (f *tripwire) Init(args map[string]any) error {
	f.trigger = asInt(args["trigger"])
	return nil
}

func (f *tripwire) Ports() []PortSpec {
	return []PortSpec{
		{Name: "in", Direction: DirectionIn},
		{Name: "out", Direction: DirectionOut},
	}
}

func (f *tripwire) Actions() []Action {
	return []Action{
		{
			Name:     "forward",
			Consumes: []Claim{Consume("in")},
			Produces: []Claim{Produce("out")},
			Fire: func(in Inputs, out *Firing) error {
				t, _ := in.First("in")
				if t.IsData() && asInt(t.Value) == f.trigger {
					return fmt.Errorf("tripped on %d", f.trigger)
				}
				out.Produce("out", t)
				return nil
			},
		},
	}
}

func (f *tripwire) MarshalState() ([]byte, error)  { return msgpack.Marshal(f.trigger) }
func (f *tripwire) UnmarshalState(data []byte) error { return msgpack.Unmarshal(data, &f.trigger) }

// testTypes registers every fixture type against the given recorder
func testTypes(rec *recorder) *TypeRegistry {
	types := NewTypeRegistry()
	types.Register("source", func() Actor { return new(rangeSource) })
	types.Register("doubler", func() Actor { return new(doubler) })
	types.Register("sink", func() Actor { return &recordingSink{rec: rec} })
	types.Register("splitter", func() Actor { return new(splitter) })
	types.Register("tripwire", func() Actor { return new(tripwire) })
	return types
}
