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

package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrors(t *testing.T) {
	err := errors.New("something went wrong")

	configErr := NewConfigurationError(err)
	require.Error(t, configErr)
	require.EqualError(t, configErr, "configuration error: something went wrong")
	assert.ErrorIs(t, configErr.Unwrap(), err)

	fault := NewActionFault(err)
	require.Error(t, fault)
	require.EqualError(t, fault, "action fault: something went wrong")
	assert.ErrorIs(t, fault.Unwrap(), err)

	transportErr := NewTransportError(err)
	require.Error(t, transportErr)
	require.EqualError(t, transportErr, "transport error: something went wrong")
	assert.ErrorIs(t, transportErr.Unwrap(), err)

	registryErr := NewRegistryError(err)
	require.Error(t, registryErr)
	require.EqualError(t, registryErr, "registry error: something went wrong")
	assert.ErrorIs(t, registryErr.Unwrap(), err)

	migrationErr := NewMigrationError(err)
	require.Error(t, migrationErr)
	require.EqualError(t, migrationErr, "migration error: something went wrong")
	assert.ErrorIs(t, migrationErr.Unwrap(), err)
}

func TestErrorsIs(t *testing.T) {
	wrapped := NewMigrationError(ErrMigrationConflict)
	assert.True(t, errors.Is(wrapped, ErrMigrationConflict))

	wrapped = NewMigrationError(ErrSameNode)
	assert.True(t, errors.Is(wrapped, ErrSameNode))

	configErr := NewConfigurationError(ErrInportBusy)
	assert.True(t, errors.Is(configErr, ErrInportBusy))
}
