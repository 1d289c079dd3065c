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
	"github.com/vmihailenco/msgpack/v5"

	"github.com/tochemey/dataflow/errors"
)

// TokenKind discriminates data tokens from the stream markers
type TokenKind uint8

const (
	// KindData is an ordinary data token
	KindData TokenKind = iota
	// KindEOS marks the end of a stream: no more data will follow
	KindEOS
	// KindFault carries an error payload produced by actor logic. It is
	// ordinary data to the engine, which never interprets it.
	KindFault
)

// Token is the unit of data passed between actors. A token is immutable
// after creation: ownership transfers from the producer to the consuming
// inport queue, and broadcast fan-out hands each destination its own copy.
type Token struct {
	// Kind discriminates data tokens from stream markers
	Kind TokenKind `msgpack:"k"`
	// Value is the opaque payload of a data token
	Value any `msgpack:"v,omitempty"`
	// Reason is the error payload of a fault token
	Reason string `msgpack:"r,omitempty"`
}

// NewToken creates a data token wrapping the given value
func NewToken(value any) Token {
	return Token{Kind: KindData, Value: value}
}

// EOSToken creates an end-of-stream marker token
func EOSToken() Token {
	return Token{Kind: KindEOS}
}

// FaultToken creates a fault marker token carrying the given reason
func FaultToken(reason string) Token {
	return Token{Kind: KindFault, Reason: reason}
}

// IsData reports whether the token is an ordinary data token
func (t Token) IsData() bool {
	return t.Kind == KindData
}

// IsEOS reports whether the token is an end-of-stream marker
func (t Token) IsEOS() bool {
	return t.Kind == KindEOS
}

// IsFault reports whether the token is a fault marker
func (t Token) IsFault() bool {
	return t.Kind == KindFault
}

// encodeToken serializes a token for the wire and for snapshots
func encodeToken(t Token) ([]byte, error) {
	encoded, err := msgpack.Marshal(t)
	if err != nil {
		return nil, errors.NewTransportError(err)
	}
	return encoded, nil
}

// decodeToken deserializes a token encoded with encodeToken
func decodeToken(encoded []byte) (Token, error) {
	var t Token
	if err := msgpack.Unmarshal(encoded, &t); err != nil {
		return Token{}, errors.NewTransportError(err)
	}
	return t, nil
}
