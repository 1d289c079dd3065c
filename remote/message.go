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

// Package remote implements the node-to-node channel of the runtime: one
// reliable, ordered stream per node pair carrying data tokens and migration
// control messages. Both kinds travel the same stream, so a migration
// barrier is never overtaken by tokens sent before it.
//
// The engine payloads are opaque bytes here; the package knows framing,
// ordering and link health, nothing about actors.
package remote

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/tochemey/dataflow/errors"
)

// MessageKind discriminates the two wire message kinds
type MessageKind uint8

const (
	// KindToken is a data token delivery
	KindToken MessageKind = iota + 1
	// KindMigration is a migration control message
	KindMigration
)

// TokenFrame carries one data token for a remote connection
type TokenFrame struct {
	// ConnectionID identifies the connection the token travels on
	ConnectionID string `msgpack:"cid"`
	// Seq is the per-connection sequence number assigned by the sender
	Seq uint64 `msgpack:"seq"`
	// Payload is the encoded token
	Payload []byte `msgpack:"pl"`
}

// MigrationFrame carries one migration control message
type MigrationFrame struct {
	// Phase is the migration handshake phase
	Phase uint8 `msgpack:"ph"`
	// ActorID is the migrating actor
	ActorID string `msgpack:"aid"`
	// MigrationID is the coordinator's migration token
	MigrationID string `msgpack:"mid"`
	// Payload is the phase-specific body (e.g. the actor snapshot)
	Payload []byte `msgpack:"pl"`
}

// Message is the envelope travelling between two nodes
type Message struct {
	// Kind discriminates the payload
	Kind MessageKind `msgpack:"k"`
	// FromNode is the name of the sending node
	FromNode string `msgpack:"fn"`
	// Token is set when Kind is KindToken
	Token *TokenFrame `msgpack:"t,omitempty"`
	// Migration is set when Kind is KindMigration
	Migration *MigrationFrame `msgpack:"m,omitempty"`
}

// maxFrameSize bounds a single wire frame. A larger frame aborts the
// connection instead of exhausting memory.
const maxFrameSize = 64 << 20

// writeFrame writes a length-prefixed msgpack frame:
//
//	┌──────────┬───────────────┐
//	│ totalLen │ msgpack bytes │
//	│ 4 bytes  │ N bytes       │
//	└──────────┴───────────────┘
//
// totalLen is a big-endian uint32 covering only the msgpack bytes.
func writeFrame(w io.Writer, msg *Message) error {
	body, err := msgpack.Marshal(msg)
	if err != nil {
		return errors.NewTransportError(err)
	}
	if len(body) > maxFrameSize {
		return errors.NewTransportError(fmt.Errorf("frame of %d bytes exceeds limit", len(body)))
	}

	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(body)))
	if _, err := w.Write(hdr[:]); err != nil {
		return errors.NewTransportError(err)
	}
	if _, err := w.Write(body); err != nil {
		return errors.NewTransportError(err)
	}
	return nil
}

// readFrame reads one length-prefixed msgpack frame written by writeFrame
func readFrame(r io.Reader) (*Message, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(hdr[:])
	if size > maxFrameSize {
		return nil, errors.NewTransportError(fmt.Errorf("frame of %d bytes exceeds limit", size))
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}

	msg := new(Message)
	if err := msgpack.Unmarshal(body, msg); err != nil {
		return nil, errors.NewTransportError(err)
	}
	return msg, nil
}
