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

import "time"

// ActorFaultEvent is published on the faults topic when an action fails
type ActorFaultEvent struct {
	// ActorID is the faulted actor
	ActorID string
	// Application is the owning application
	Application string
	// Action is the action whose firing failed
	Action string
	// Reason is the error text returned by the action
	Reason string
	// Timestamp is when the fault was recorded
	Timestamp time.Time
}

// LinkEvent is published on the links topic when the transport marks a
// peer link broken or restores it
type LinkEvent struct {
	// PeerAddr is the remote transport address
	PeerAddr string
	// Up is true when the link recovered, false when it broke
	Up bool
	// Timestamp is when the change was observed
	Timestamp time.Time
}

// MigrationOutcome summarizes how a migration ended
type MigrationOutcome uint8

const (
	// MigrationCommitted means the actor now runs on the destination
	MigrationCommitted MigrationOutcome = iota
	// MigrationAborted means the actor was restored on the source
	MigrationAborted
)

// MigrationEvent is published on the migrations topic when a migration
// commits or aborts
type MigrationEvent struct {
	// ActorID is the migrated actor
	ActorID string
	// MigrationID is the registry token of the attempt
	MigrationID string
	// FromNode is the source node
	FromNode string
	// ToNode is the requested destination node
	ToNode string
	// Outcome tells whether the attempt committed or aborted
	Outcome MigrationOutcome
	// Reason is set on abort
	Reason string
	// Timestamp is when the outcome was recorded
	Timestamp time.Time
}
