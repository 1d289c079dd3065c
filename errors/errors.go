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

// Package errors defines the error taxonomy of the dataflow runtime.
//
// Domain-level errors produced by actor logic (bad input, not-found, ...)
// are ordinary data tokens flowing through normal ports; the engine never
// interprets them. The errors in this package are reserved for engine-level
// failures: malformed graphs, actor implementation bugs, transport and
// registry outages and failed migrations.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrActorNotFound indicates that the requested actor is not hosted on the node.
	ErrActorNotFound = errors.New("actor not found")

	// ErrActorAlreadyExists is returned when deploying an actor whose id is already hosted.
	ErrActorAlreadyExists = errors.New("actor already exists")

	// ErrApplicationNotFound indicates that the requested application is unknown.
	ErrApplicationNotFound = errors.New("application not found")

	// ErrTypeNotRegistered is returned when a graph references an actor type
	// that has not been registered with the node.
	ErrTypeNotRegistered = errors.New("actor type is not registered")

	// ErrPortNotFound is returned when a connection references a port the actor does not declare.
	ErrPortNotFound = errors.New("port not found")

	// ErrInportBusy is returned when a second producer is wired into an inport.
	// An inport accepts exactly one producing connection.
	ErrInportBusy = errors.New("inport already has a producing connection")

	// ErrQueueFull is returned when a token is pushed onto a bounded inport
	// queue that has reached its configured maximum depth.
	ErrQueueFull = errors.New("inport queue is full")

	// ErrQueueEmpty is returned when popping from an empty inport queue.
	ErrQueueEmpty = errors.New("inport queue is empty")

	// ErrNodeNotStarted indicates that the node has not been started before use.
	ErrNodeNotStarted = errors.New("node is not running")

	// ErrNodeAlreadyStarted is returned when starting a node that is already running.
	ErrNodeAlreadyStarted = errors.New("node has already started")

	// ErrActorFaulted is returned when operating on an actor stuck in the FAULT state.
	ErrActorFaulted = errors.New("actor is in fault state")

	// ErrActorNotFaulted is returned when resetting an actor that is not in the FAULT state.
	ErrActorNotFaulted = errors.New("actor is not in fault state")

	// ErrBrokenConnection indicates that the channel to a peer node is down
	// and the bounded retries have been exhausted.
	ErrBrokenConnection = errors.New("connection to peer is broken")

	// ErrPeerNotFound is returned when the remote peer address cannot be resolved.
	ErrPeerNotFound = errors.New("peer is not found")

	// ErrMigrationInProgress is returned when a migration is requested for an
	// actor that is already migrating.
	ErrMigrationInProgress = errors.New("actor migration already in progress")

	// ErrMigrationConflict indicates that the placement compare-and-set failed
	// because another coordinator committed a conflicting placement.
	ErrMigrationConflict = errors.New("placement compare-and-set failed")

	// ErrSameNode is returned when migrating an actor to the node already hosting it.
	ErrSameNode = errors.New("actor is already placed on the destination node")

	// ErrConstraintUnsatisfied is returned when a destination node does not
	// match the actor's placement constraints.
	ErrConstraintUnsatisfied = errors.New("placement constraints not satisfied")

	// ErrKeyNotFound is returned by the registry when a key is absent.
	ErrKeyNotFound = errors.New("key not found")

	// ErrInvalidTimeout is returned when a timeout value is less than or equal to zero.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidHost is returned when the specified remote host is invalid or cannot be resolved.
	ErrInvalidHost = errors.New("invalid host")
)

// Is reports whether any error in err's tree matches target. It is a
// convenience passthrough to the standard library so callers do not need
// two errors imports.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// ConfigurationError reports a malformed actor graph or invalid actor
// constructor arguments. Applications failing with this error are rejected
// at deploy time and never started.
type ConfigurationError struct {
	err error
}

var _ error = (*ConfigurationError)(nil)

// NewConfigurationError returns an instance of ConfigurationError
func NewConfigurationError(err error) *ConfigurationError {
	return &ConfigurationError{
		err: fmt.Errorf("configuration error: %w", err),
	}
}

// Error implements the standard error interface
func (c *ConfigurationError) Error() string {
	return c.err.Error()
}

func (c *ConfigurationError) Unwrap() error {
	return c.err
}

// ActionFault reports an internal error raised by an actor's firing. The
// firing is rolled back before the fault is reported: no declared input
// token is consumed and no output is produced.
type ActionFault struct {
	err error
}

var _ error = (*ActionFault)(nil)

// NewActionFault returns an instance of ActionFault
func NewActionFault(err error) *ActionFault {
	return &ActionFault{
		err: fmt.Errorf("action fault: %w", err),
	}
}

// Error implements the standard error interface
func (a *ActionFault) Error() string {
	return a.err.Error()
}

func (a *ActionFault) Unwrap() error {
	return a.err
}

// TransportError reports a failure of the node-to-node channel.
type TransportError struct {
	err error
}

var _ error = (*TransportError)(nil)

// NewTransportError returns an instance of TransportError
func NewTransportError(err error) *TransportError {
	return &TransportError{
		err: fmt.Errorf("transport error: %w", err),
	}
}

// Error implements the standard error interface
func (t *TransportError) Error() string {
	return t.err.Error()
}

func (t *TransportError) Unwrap() error {
	return t.err
}

// RegistryError reports a failure of the placement registry. It blocks only
// registry-dependent operations; local dataflow on already-placed actors is
// unaffected.
type RegistryError struct {
	err error
}

var _ error = (*RegistryError)(nil)

// NewRegistryError returns an instance of RegistryError
func NewRegistryError(err error) *RegistryError {
	return &RegistryError{
		err: fmt.Errorf("registry error: %w", err),
	}
}

// Error implements the standard error interface
func (r *RegistryError) Error() string {
	return r.err.Error()
}

func (r *RegistryError) Unwrap() error {
	return r.err
}

// MigrationError reports a failed actor migration. Any failure before commit
// aborts cleanly to the pre-migration state; no partial or duplicate actor
// placement is ever observable.
type MigrationError struct {
	err error
}

var _ error = (*MigrationError)(nil)

// NewMigrationError returns an instance of MigrationError
func NewMigrationError(err error) *MigrationError {
	return &MigrationError{
		err: fmt.Errorf("migration error: %w", err),
	}
}

// Error implements the standard error interface
func (m *MigrationError) Error() string {
	return m.err.Error()
}

func (m *MigrationError) Unwrap() error {
	return m.err
}
