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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/dataflow/errors"
)

func TestMemStore(t *testing.T) {
	ctx := context.TODO()

	t.Run("With Get/Set/Delete", func(t *testing.T) {
		store := NewMemStore()
		_, err := store.Get(ctx, "actor:unknown")
		require.ErrorIs(t, err, errors.ErrKeyNotFound)

		require.NoError(t, store.Set(ctx, "actor:a1", "node-1"))
		value, err := store.Get(ctx, "actor:a1")
		require.NoError(t, err)
		assert.Equal(t, "node-1", value)

		require.NoError(t, store.Delete(ctx, "actor:a1"))
		_, err = store.Get(ctx, "actor:a1")
		require.ErrorIs(t, err, errors.ErrKeyNotFound)
	})

	t.Run("With CompareAndSet", func(t *testing.T) {
		store := NewMemStore()
		// create-if-absent
		swapped, err := store.CompareAndSet(ctx, "actor:a1", "", "node-1")
		require.NoError(t, err)
		require.True(t, swapped)

		// second create must lose
		swapped, err = store.CompareAndSet(ctx, "actor:a1", "", "node-2")
		require.NoError(t, err)
		require.False(t, swapped)

		// swap with correct expectation
		swapped, err = store.CompareAndSet(ctx, "actor:a1", "node-1", "node-2")
		require.NoError(t, err)
		require.True(t, swapped)

		// swap with stale expectation must lose
		swapped, err = store.CompareAndSet(ctx, "actor:a1", "node-1", "node-3")
		require.NoError(t, err)
		require.False(t, swapped)

		value, err := store.Get(ctx, "actor:a1")
		require.NoError(t, err)
		assert.Equal(t, "node-2", value)
	})

	t.Run("With ListByPrefix", func(t *testing.T) {
		store := NewMemStore()
		require.NoError(t, store.Set(ctx, "actor:a2", "node-2"))
		require.NoError(t, store.Set(ctx, "actor:a1", "node-1"))
		require.NoError(t, store.Set(ctx, "node:node-1", "attrs"))

		entries, err := store.ListByPrefix(ctx, "actor:")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "actor:a1", entries[0].Key)
		assert.Equal(t, "actor:a2", entries[1].Key)
	})
}
