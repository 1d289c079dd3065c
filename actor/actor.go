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

	"github.com/tochemey/dataflow/errors"
)

// Actor is the behavior contract implemented by dataflow actor types.
// An actor never blocks, never spawns goroutines and never touches other
// actors' state: all it does is declare ports and guarded actions, and
// the scheduler fires those actions one at a time.
type Actor interface {
	// Init configures a fresh instance from its deployment arguments
	Init(args map[string]any) error
	// Ports declares the actor's inports and outports
	Ports() []PortSpec
	// Actions declares the guarded actions in priority order
	Actions() []Action
	// MarshalState serializes internal state for migration
	MarshalState() ([]byte, error)
	// UnmarshalState restores internal state from MarshalState output
	UnmarshalState(data []byte) error
}

// Phase is the lifecycle state of a hosted actor instance
type Phase uint8

const (
	// PhaseEnabled means the actor is live and may fire
	PhaseEnabled Phase = iota
	// PhaseFaulted means an action returned an error; the actor holds
	// its state and queues but will not fire until reset
	PhaseFaulted
	// PhaseDraining means the actor no longer fires and the node is
	// waiting for the current firing to finish
	PhaseDraining
	// PhaseExporting means the state snapshot is being transferred
	PhaseExporting
	// PhaseImporting means this node is materializing an actor that is
	// not yet allowed to fire
	PhaseImporting
)

// String returns the lower-case name of the phase
func (p Phase) String() string {
	switch p {
	case PhaseEnabled:
		return "enabled"
	case PhaseFaulted:
		return "faulted"
	case PhaseDraining:
		return "draining"
	case PhaseExporting:
		return "exporting"
	case PhaseImporting:
		return "importing"
	default:
		return "unknown"
	}
}

// TypeRegistry maps actor type names to factories. Deployment and
// migration both materialize instances through it, so every node in a
// system registers the same types.
type TypeRegistry struct {
	mu        sync.RWMutex
	factories map[string]func() Actor
}

// NewTypeRegistry creates an empty type registry
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{factories: make(map[string]func() Actor)}
}

// Register binds a type name to a factory, replacing any previous binding
func (r *TypeRegistry) Register(typeName string, factory func() Actor) {
	r.mu.Lock()
	r.factories[typeName] = factory
	r.mu.Unlock()
}

// New materializes a fresh, uninitialized instance of the given type
func (r *TypeRegistry) New(typeName string) (Actor, error) {
	r.mu.RLock()
	factory, ok := r.factories[typeName]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("type %s: %w", typeName, errors.ErrTypeNotRegistered)
	}
	return factory(), nil
}

// cell is the scheduler-owned runtime shell around one actor instance.
// All fields are read and written only on the scheduler goroutine.
type cell struct {
	id          string
	typeName    string
	application string
	instance    Actor

	inports  map[string]*inPort
	outports map[string]*outPort
	actions  []Action

	phase       Phase
	faultAction string
	faultReason string

	// sideBuffer holds tokens that arrived after a migration started.
	// Each entry remembers the connection the token arrived on so an
	// abort or a transfer can put it back where it belongs.
	sideBuffer []bufferedToken

	// overflow holds wire tokens that found their inport full. They are
	// redelivered in arrival order as firings free space; while any are
	// pending, new local deliveries to the cell queue behind them.
	overflow []bufferedToken

	// migrationID is the registry token of the in-flight migration
	migrationID string
	// migrationDest is the node the actor is moving to
	migrationDest string
}

// bufferedToken is a token parked outside its inport during migration
type bufferedToken struct {
	ConnectionID string `msgpack:"c"`
	Token        Token  `msgpack:"t"`
}

func newCell(id, typeName, application string, instance Actor) (*cell, error) {
	c := &cell{
		id:          id,
		typeName:    typeName,
		application: application,
		instance:    instance,
		inports:     make(map[string]*inPort),
		outports:    make(map[string]*outPort),
		actions:     instance.Actions(),
	}
	for _, spec := range instance.Ports() {
		switch spec.Direction {
		case DirectionIn:
			if _, dup := c.inports[spec.Name]; dup {
				return nil, errors.NewConfigurationError(fmt.Errorf("actor %s declares inport %s twice", id, spec.Name))
			}
			c.inports[spec.Name] = newInPort(spec)
		case DirectionOut:
			if _, dup := c.outports[spec.Name]; dup {
				return nil, errors.NewConfigurationError(fmt.Errorf("actor %s declares outport %s twice", id, spec.Name))
			}
			c.outports[spec.Name] = newOutPort(spec)
		}
	}
	if len(c.actions) == 0 {
		return nil, errors.NewConfigurationError(fmt.Errorf("actor %s declares no actions", id))
	}
	for _, action := range c.actions {
		if action.Fire == nil {
			return nil, errors.NewConfigurationError(fmt.Errorf("actor %s action %s has no fire function", id, action.Name))
		}
		for _, claim := range action.Consumes {
			if _, ok := c.inports[claim.Port]; !ok {
				return nil, errors.NewConfigurationError(fmt.Errorf("actor %s action %s consumes unknown inport %s", id, action.Name, claim.Port))
			}
		}
		for _, claim := range action.Produces {
			if _, ok := c.outports[claim.Port]; !ok {
				return nil, errors.NewConfigurationError(fmt.Errorf("actor %s action %s produces on unknown outport %s", id, action.Name, claim.Port))
			}
		}
	}
	return c, nil
}

// migrating reports whether the cell is in any migration phase
func (c *cell) migrating() bool {
	switch c.phase {
	case PhaseDraining, PhaseExporting, PhaseImporting:
		return true
	default:
		return false
	}
}

// fireable reports whether the scheduler may select an action on the cell
func (c *cell) fireable() bool {
	return c.phase == PhaseEnabled
}

// fault parks the cell after a failed firing
func (c *cell) fault(action string, reason string) {
	c.phase = PhaseFaulted
	c.faultAction = action
	c.faultReason = reason
}

// reset clears a fault and makes the cell fireable again. Queued tokens
// and actor state are kept as they were at the fault.
func (c *cell) reset() error {
	if c.phase != PhaseFaulted {
		return errors.ErrActorNotFaulted
	}
	c.phase = PhaseEnabled
	c.faultAction = ""
	c.faultReason = ""
	return nil
}

// ActorStatus is the externally visible description of a hosted actor
type ActorStatus struct {
	// ID is the actor instance identifier
	ID string
	// Type is the registered actor type name
	Type string
	// Application is the owning application name
	Application string
	// Phase is the current lifecycle phase
	Phase Phase
	// Pending maps each inport to its queued token count
	Pending map[string]int
	// FaultReason is set when the phase is faulted
	FaultReason string
}

func (c *cell) status() ActorStatus {
	pending := make(map[string]int, len(c.inports))
	for name, p := range c.inports {
		pending[name] = p.Len()
	}
	return ActorStatus{
		ID:          c.id,
		Type:        c.typeName,
		Application: c.application,
		Phase:       c.phase,
		Pending:     pending,
		FaultReason: c.faultReason,
	}
}
