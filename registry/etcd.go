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
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/tochemey/dataflow/errors"
	"github.com/tochemey/dataflow/log"
)

const (
	defaultDialTimeout    = 5 * time.Second
	defaultRequestTimeout = 3 * time.Second
)

// EtcdStore is the etcd-backed KV. Compare-and-set maps onto an etcd
// transaction with a value compare, so concurrent coordinators racing on
// the same placement key settle on exactly one winner.
type EtcdStore struct {
	client         *clientv3.Client
	requestTimeout time.Duration
	logger         log.Logger
}

var _ KV = (*EtcdStore)(nil)

// EtcdOption configures an EtcdStore at creation time
type EtcdOption func(*EtcdStore)

// WithRequestTimeout sets the per-request timeout
func WithRequestTimeout(timeout time.Duration) EtcdOption {
	return func(s *EtcdStore) { s.requestTimeout = timeout }
}

// WithEtcdLogger sets the store logger
func WithEtcdLogger(logger log.Logger) EtcdOption {
	return func(s *EtcdStore) { s.logger = logger }
}

// NewEtcdStore creates an EtcdStore connected to the given endpoints
func NewEtcdStore(endpoints []string, opts ...EtcdOption) (*EtcdStore, error) {
	store := &EtcdStore{
		requestTimeout: defaultRequestTimeout,
		logger:         log.DefaultLogger,
	}

	for _, opt := range opts {
		opt(store)
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: defaultDialTimeout,
	})
	if err != nil {
		return nil, errors.NewRegistryError(err)
	}

	store.client = client
	return store, nil
}

// Get retrieves the value of a given key
func (s *EtcdStore) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	resp, err := s.client.Get(ctx, key)
	if err != nil {
		return "", errors.NewRegistryError(err)
	}
	if resp.Count == 0 {
		return "", errors.ErrKeyNotFound
	}
	return string(resp.Kvs[0].Value), nil
}

// Set sets the value of a given key
func (s *EtcdStore) Set(ctx context.Context, key string, value string) error {
	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	if _, err := s.client.Put(ctx, key, value); err != nil {
		return errors.NewRegistryError(err)
	}
	return nil
}

// CompareAndSet atomically replaces the value of key with newValue when its
// current value equals expected. An empty expected value means the key must
// be absent.
func (s *EtcdStore) CompareAndSet(ctx context.Context, key string, expected string, newValue string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	var compare clientv3.Cmp
	if expected == "" {
		// the key must not exist yet
		compare = clientv3.Compare(clientv3.CreateRevision(key), "=", 0)
	} else {
		compare = clientv3.Compare(clientv3.Value(key), "=", expected)
	}

	resp, err := s.client.Txn(ctx).
		If(compare).
		Then(clientv3.OpPut(key, newValue)).
		Commit()
	if err != nil {
		return false, errors.NewRegistryError(err)
	}
	return resp.Succeeded, nil
}

// Delete removes a given key
func (s *EtcdStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	if _, err := s.client.Delete(ctx, key); err != nil {
		return errors.NewRegistryError(err)
	}
	return nil
}

// ListByPrefix returns all entries whose key starts with the given prefix
func (s *EtcdStore) ListByPrefix(ctx context.Context, prefix string) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	resp, err := s.client.Get(ctx, prefix, clientv3.WithPrefix(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		return nil, errors.NewRegistryError(err)
	}

	entries := make([]Entry, 0, resp.Count)
	for _, kv := range resp.Kvs {
		entries = append(entries, Entry{Key: string(kv.Key), Value: string(kv.Value)})
	}
	return entries, nil
}

// Close releases the underlying etcd client
func (s *EtcdStore) Close() error {
	return s.client.Close()
}
