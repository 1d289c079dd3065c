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

package registry

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/tochemey/dataflow/errors"
)

// MemStore is an in-process KV used for single-node runs and tests. All
// nodes of a test cluster can share one MemStore; its CompareAndSet carries
// the same atomicity contract as the etcd-backed store.
type MemStore struct {
	mu   sync.RWMutex
	data map[string]string
}

var _ KV = (*MemStore)(nil)

// NewMemStore creates an instance of MemStore
func NewMemStore() *MemStore {
	return &MemStore{
		data: make(map[string]string),
	}
}

// Get retrieves the value of a given key
func (m *MemStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[key]
	if !ok {
		return "", errors.ErrKeyNotFound
	}
	return value, nil
}

// Set sets the value of a given key
func (m *MemStore) Set(_ context.Context, key string, value string) error {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
	return nil
}

// CompareAndSet atomically replaces the value of key with newValue when its
// current value equals expected. An empty expected value means the key must
// be absent.
func (m *MemStore) CompareAndSet(_ context.Context, key string, expected string, newValue string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.data[key]
	if expected == "" {
		if ok {
			return false, nil
		}
		m.data[key] = newValue
		return true, nil
	}
	if !ok || current != expected {
		return false, nil
	}
	m.data[key] = newValue
	return true, nil
}

// Delete removes a given key
func (m *MemStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

// ListByPrefix returns all entries whose key starts with the given prefix,
// sorted by key
func (m *MemStore) ListByPrefix(_ context.Context, prefix string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []Entry
	for key, value := range m.data {
		if strings.HasPrefix(key, prefix) {
			entries = append(entries, Entry{Key: key, Value: value})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// Close releases the backend resources
func (m *MemStore) Close() error {
	return nil
}
