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

// Package registry is the thin client over the external key/value service
// recording actor placement. The registry is the only resource shared
// across nodes for placement; every placement mutation that may race goes
// through CompareAndSet to avoid split-brain, never through shared memory.
// Registry unavailability blocks only migration and placement decisions,
// never local firing of already-placed actors.
package registry

import (
	"context"
)

// Key prefixes namespacing the registry entries
const (
	// ActorPrefix namespaces actor_id -> node_id entries
	ActorPrefix = "actor:"
	// ApplicationPrefix namespaces application_id -> actor id set entries
	ApplicationPrefix = "application:"
	// NodePrefix namespaces node_id -> capability attributes entries
	NodePrefix = "node:"
	// MigrationPrefix namespaces migration_id -> coordinator token entries
	MigrationPrefix = "migration:"
)

// ActorKey returns the registry key of an actor placement entry
func ActorKey(actorID string) string {
	return ActorPrefix + actorID
}

// ApplicationKey returns the registry key of an application entry
func ApplicationKey(appID string) string {
	return ApplicationPrefix + appID
}

// NodeKey returns the registry key of a node attributes entry
func NodeKey(nodeID string) string {
	return NodePrefix + nodeID
}

// MigrationKey returns the registry key of a migration token entry
func MigrationKey(migrationID string) string {
	return MigrationPrefix + migrationID
}

// Entry is a key/value pair returned by prefix scans
type Entry struct {
	Key   string
	Value string
}

// KV abstracts the external registry backend. Implementations must be safe
// for concurrent use. Get returns errors.ErrKeyNotFound for absent keys.
// CompareAndSet with an empty expected value succeeds only when the key is
// absent (create-if-absent).
type KV interface {
	// Get retrieves the value of a given key
	Get(ctx context.Context, key string) (string, error)
	// Set sets the value of a given key
	Set(ctx context.Context, key string, value string) error
	// CompareAndSet atomically replaces the value of key with newValue when
	// its current value equals expected. It reports whether the swap happened.
	CompareAndSet(ctx context.Context, key string, expected string, newValue string) (bool, error)
	// Delete removes a given key
	Delete(ctx context.Context, key string) error
	// ListByPrefix returns all entries whose key starts with the given prefix
	ListByPrefix(ctx context.Context, prefix string) ([]Entry, error)
	// Close releases the backend resources
	Close() error
}
