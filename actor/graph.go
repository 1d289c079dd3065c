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

	"github.com/tochemey/dataflow/errors"
	"github.com/tochemey/dataflow/internal/validation"
)

// ActorSpec declares one actor instance of an application graph
type ActorSpec struct {
	// ID is the instance identifier, unique within the system
	ID string
	// Type is the registered actor type name
	Type string
	// Args is passed to the instance's Init
	Args map[string]any
	// Constraints restricts placement to nodes whose attributes match
	// every listed key and value. Empty means any node.
	Constraints map[string]string
}

// ConnectionSpec declares one edge of an application graph
type ConnectionSpec struct {
	// From is the producing endpoint
	From PortRef
	// To is the consuming endpoint
	To PortRef
}

// Graph is a deployable application: named actor instances plus the
// connections between their ports. Fan-out order on a shared outport
// follows the declaration order of the connections.
type Graph struct {
	// Name identifies the application in the registry
	Name string
	// Actors lists the instances to materialize
	Actors []ActorSpec
	// Connections lists the edges to wire
	Connections []ConnectionSpec
}

// Validate checks the graph for structural errors: missing names, dangling
// connection endpoints, duplicate actor IDs and inports with two writers
func (g Graph) Validate() error {
	chain := validation.New(validation.AllErrors()).
		AddValidator(validation.NewIDValidator(g.Name, fmt.Errorf("invalid application name %q", g.Name))).
		AddAssertion(len(g.Actors) > 0, "application declares no actors")

	ids := make(map[string]bool, len(g.Actors))
	for _, spec := range g.Actors {
		chain = chain.
			AddValidator(validation.NewIDValidator(spec.ID, nil)).
			AddAssertion(spec.Type != "", fmt.Sprintf("actor %s has no type", spec.ID))
		if ids[spec.ID] {
			chain = chain.AddAssertion(false, fmt.Sprintf("duplicate actor id %s", spec.ID))
		}
		ids[spec.ID] = true
	}

	writers := make(map[string]string, len(g.Connections))
	for _, conn := range g.Connections {
		id := ConnectionID(conn.From, conn.To)
		if !ids[conn.From.ActorID] {
			chain = chain.AddAssertion(false, fmt.Sprintf("connection %s leaves unknown actor %s", id, conn.From.ActorID))
		}
		if !ids[conn.To.ActorID] {
			chain = chain.AddAssertion(false, fmt.Sprintf("connection %s enters unknown actor %s", id, conn.To.ActorID))
		}
		if prev, taken := writers[conn.To.Key()]; taken {
			chain = chain.AddAssertion(false, fmt.Sprintf("inport %s fed by both %s and %s", conn.To.Key(), prev, id))
		}
		writers[conn.To.Key()] = id
	}

	if err := chain.Validate(); err != nil {
		return errors.NewConfigurationError(err)
	}
	return nil
}
