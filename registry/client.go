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
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/flowchartsman/retry"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/tochemey/dataflow/errors"
	"github.com/tochemey/dataflow/log"
)

const (
	defaultMaxRetries = 5
	defaultMinBackoff = 100 * time.Millisecond
	defaultMaxBackoff = 2 * time.Second
)

// Client wraps a KV backend with the placement bookkeeping of the runtime:
// actor-to-node mapping, application membership, node capability attributes
// and migration tokens. Every call is retried with bounded exponential
// backoff; an absent key is reported immediately without retrying.
type Client struct {
	kv         KV
	logger     log.Logger
	maxRetries int
	minBackoff time.Duration
	maxBackoff time.Duration
}

// ClientOption configures a Client at creation time
type ClientOption func(*Client)

// WithLogger sets the client logger
func WithLogger(logger log.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithBackoff sets the retry policy of the client
func WithBackoff(maxRetries int, minBackoff, maxBackoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.minBackoff = minBackoff
		c.maxBackoff = maxBackoff
	}
}

// NewClient creates an instance of Client on top of the given backend
func NewClient(kv KV, opts ...ClientOption) *Client {
	client := &Client{
		kv:         kv,
		logger:     log.DefaultLogger,
		maxRetries: defaultMaxRetries,
		minBackoff: defaultMinBackoff,
		maxBackoff: defaultMaxBackoff,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// ActorNode returns the node currently hosting the given actor
func (c *Client) ActorNode(ctx context.Context, actorID string) (string, error) {
	var nodeID string
	err := c.run(ctx, func(ctx context.Context) error {
		var err error
		nodeID, err = c.kv.Get(ctx, ActorKey(actorID))
		return err
	})
	return nodeID, err
}

// SetActorNode records the placement of an actor
func (c *Client) SetActorNode(ctx context.Context, actorID string, nodeID string) error {
	return c.run(ctx, func(ctx context.Context) error {
		return c.kv.Set(ctx, ActorKey(actorID), nodeID)
	})
}

// CompareAndSetActorNode atomically moves an actor placement from one node
// to another. It reports whether the swap happened.
func (c *Client) CompareAndSetActorNode(ctx context.Context, actorID string, expectedNode string, newNode string) (bool, error) {
	var swapped bool
	err := c.run(ctx, func(ctx context.Context) error {
		var err error
		swapped, err = c.kv.CompareAndSet(ctx, ActorKey(actorID), expectedNode, newNode)
		return err
	})
	return swapped, err
}

// DeleteActor removes the placement entry of an actor
func (c *Client) DeleteActor(ctx context.Context, actorID string) error {
	return c.run(ctx, func(ctx context.Context) error {
		return c.kv.Delete(ctx, ActorKey(actorID))
	})
}

// ActorsOn returns the ids of all actors placed on the given node
func (c *Client) ActorsOn(ctx context.Context, nodeID string) ([]string, error) {
	var actorIDs []string
	err := c.run(ctx, func(ctx context.Context) error {
		entries, err := c.kv.ListByPrefix(ctx, ActorPrefix)
		if err != nil {
			return err
		}
		actorIDs = actorIDs[:0]
		for _, entry := range entries {
			if entry.Value == nodeID {
				actorIDs = append(actorIDs, entry.Key[len(ActorPrefix):])
			}
		}
		return nil
	})
	return actorIDs, err
}

// SetApplication records the actor membership of an application
func (c *Client) SetApplication(ctx context.Context, appID string, actorIDs mapset.Set[string]) error {
	ids := actorIDs.ToSlice()
	sort.Strings(ids)
	encoded, err := msgpack.Marshal(ids)
	if err != nil {
		return errors.NewRegistryError(err)
	}
	return c.run(ctx, func(ctx context.Context) error {
		return c.kv.Set(ctx, ApplicationKey(appID), string(encoded))
	})
}

// Application returns the actor membership of an application
func (c *Client) Application(ctx context.Context, appID string) (mapset.Set[string], error) {
	var encoded string
	if err := c.run(ctx, func(ctx context.Context) error {
		var err error
		encoded, err = c.kv.Get(ctx, ApplicationKey(appID))
		return err
	}); err != nil {
		return nil, err
	}

	var ids []string
	if err := msgpack.Unmarshal([]byte(encoded), &ids); err != nil {
		return nil, errors.NewRegistryError(err)
	}
	return mapset.NewSet(ids...), nil
}

// DeleteApplication removes the membership entry of an application
func (c *Client) DeleteApplication(ctx context.Context, appID string) error {
	return c.run(ctx, func(ctx context.Context) error {
		return c.kv.Delete(ctx, ApplicationKey(appID))
	})
}

// SetNodeAttributes records the capability attributes of a node, used for
// placement-constraint matching
func (c *Client) SetNodeAttributes(ctx context.Context, nodeID string, attributes map[string]string) error {
	encoded, err := msgpack.Marshal(attributes)
	if err != nil {
		return errors.NewRegistryError(err)
	}
	return c.run(ctx, func(ctx context.Context) error {
		return c.kv.Set(ctx, NodeKey(nodeID), string(encoded))
	})
}

// NodeAttributes returns the capability attributes of a node
func (c *Client) NodeAttributes(ctx context.Context, nodeID string) (map[string]string, error) {
	var encoded string
	if err := c.run(ctx, func(ctx context.Context) error {
		var err error
		encoded, err = c.kv.Get(ctx, NodeKey(nodeID))
		return err
	}); err != nil {
		return nil, err
	}

	var attributes map[string]string
	if err := msgpack.Unmarshal([]byte(encoded), &attributes); err != nil {
		return nil, errors.NewRegistryError(err)
	}
	return attributes, nil
}

// Nodes returns the capability attributes of every registered node
func (c *Client) Nodes(ctx context.Context) (map[string]map[string]string, error) {
	var entries []Entry
	if err := c.run(ctx, func(ctx context.Context) error {
		var err error
		entries, err = c.kv.ListByPrefix(ctx, NodePrefix)
		return err
	}); err != nil {
		return nil, err
	}

	nodes := make(map[string]map[string]string, len(entries))
	for _, entry := range entries {
		var attributes map[string]string
		if err := msgpack.Unmarshal([]byte(entry.Value), &attributes); err != nil {
			return nil, errors.NewRegistryError(err)
		}
		nodes[entry.Key[len(NodePrefix):]] = attributes
	}
	return nodes, nil
}

// DeleteNode removes the attributes entry of a node
func (c *Client) DeleteNode(ctx context.Context, nodeID string) error {
	return c.run(ctx, func(ctx context.Context) error {
		return c.kv.Delete(ctx, NodeKey(nodeID))
	})
}

// BeginMigration claims the migration token of an actor. Exactly one
// coordinator can hold the token of a given actor at a time; it reports
// false when another migration of the same actor is in flight.
func (c *Client) BeginMigration(ctx context.Context, actorID string, token string) (bool, error) {
	var claimed bool
	err := c.run(ctx, func(ctx context.Context) error {
		var err error
		claimed, err = c.kv.CompareAndSet(ctx, MigrationKey(actorID), "", token)
		return err
	})
	return claimed, err
}

// EndMigration releases the migration token of an actor
func (c *Client) EndMigration(ctx context.Context, actorID string) error {
	return c.run(ctx, func(ctx context.Context) error {
		return c.kv.Delete(ctx, MigrationKey(actorID))
	})
}

// MigrationToken returns the in-flight migration token of an actor
func (c *Client) MigrationToken(ctx context.Context, actorID string) (string, error) {
	var token string
	err := c.run(ctx, func(ctx context.Context) error {
		var err error
		token, err = c.kv.Get(ctx, MigrationKey(actorID))
		return err
	})
	return token, err
}

// run executes the given call with the client's retry policy. An absent key
// is a final answer, not a transient failure, so it stops the retrier.
func (c *Client) run(ctx context.Context, call func(ctx context.Context) error) error {
	retrier := retry.NewRetrier(c.maxRetries, c.minBackoff, c.maxBackoff)
	return retrier.RunContext(ctx, func(ctx context.Context) error {
		err := call(ctx)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, errors.ErrKeyNotFound):
			return retry.Stop(err)
		default:
			c.logger.Warnf("registry call failed: %v", err)
			return err
		}
	})
}
