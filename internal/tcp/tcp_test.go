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

package tcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHostPort(t *testing.T) {
	t.Run("With valid address", func(t *testing.T) {
		host, port, err := GetHostPort("127.0.0.1:9000")
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1", host)
		assert.Equal(t, 9000, port)
	})
	t.Run("With invalid address", func(t *testing.T) {
		_, _, err := GetHostPort("not an address")
		require.Error(t, err)
	})
}

func TestAdvertiseAddr(t *testing.T) {
	t.Run("With explicit IP", func(t *testing.T) {
		addr, err := AdvertiseAddr("10.1.2.3:9000")
		require.NoError(t, err)
		assert.Equal(t, "10.1.2.3:9000", addr)
	})
	t.Run("With wildcard bind", func(t *testing.T) {
		addr, err := AdvertiseAddr("0.0.0.0:9000")
		require.NoError(t, err)
		assert.NotContains(t, addr, "0.0.0.0")
		host, port, err := GetHostPort(addr)
		require.NoError(t, err)
		assert.NotEmpty(t, host)
		assert.Equal(t, 9000, port)
	})
	t.Run("With invalid address", func(t *testing.T) {
		_, err := AdvertiseAddr("boom")
		require.Error(t, err)
	})
}
