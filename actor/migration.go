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
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/tochemey/dataflow/errors"
	"github.com/tochemey/dataflow/eventstream"
	"github.com/tochemey/dataflow/remote"
)

// Migration handshake phases carried in remote.MigrationFrame. The
// source drives the protocol: it exports a snapshot, waits for the
// destination's acknowledgement, then commits the placement swap in the
// registry and activates the import, or aborts and restores the actor
// in place; the destination never fires before the commit. Tokens arriving at
// the source while the handshake runs are parked in the actor's side
// buffer and either forwarded after the commit or replayed on abort, so
// none is lost either way.
const (
	// phaseExport transfers an actor snapshot to the destination
	phaseExport uint8 = iota + 1
	// phaseImported acknowledges a successful import
	phaseImported
	// phaseImportFailed reports an import failure, payload is the reason
	phaseImportFailed
	// phaseAbort tells the destination to discard an imported actor
	phaseAbort
	// phaseRedirect announces the new placement of a migrated consumer
	phaseRedirect
	// phaseDeploy materializes a fresh actor as part of a deployment
	phaseDeploy
	// phaseActivate unpauses an imported actor once the coordinator has
	// committed its placement
	phaseActivate
	// phaseTerminate removes an actor from its hosting node
	phaseTerminate
)

// redirectNote is the payload of a phaseRedirect frame
type redirectNote struct {
	ActorID string `msgpack:"a"`
	Node    string `msgpack:"n"`
	Addr    string `msgpack:"ad"`
}

// MigrateActor moves a locally hosted actor to another node without
// losing tokens. The call blocks until the migration commits or aborts;
// on abort the actor keeps running here with everything it had.
func (n *Node) MigrateActor(ctx context.Context, actorID, destNode string) error {
	if !n.started.Load() {
		return errors.ErrNodeNotStarted
	}
	if destNode == n.name {
		return errors.ErrSameNode
	}
	destAttributes, err := n.registry.NodeAttributes(ctx, destNode)
	if err != nil {
		if errors.Is(err, errors.ErrKeyNotFound) {
			return fmt.Errorf("node %s: %w", destNode, errors.ErrPeerNotFound)
		}
		return err
	}
	destAddr := destAttributes[AddressAttribute]

	migrationID := uuid.NewString()
	claimed, err := n.registry.BeginMigration(ctx, actorID, migrationID)
	if err != nil {
		return err
	}
	if !claimed {
		return fmt.Errorf("actor %s: %w", actorID, errors.ErrMigrationInProgress)
	}

	snap, err := n.exportActor(actorID, migrationID, destNode)
	if err != nil {
		_ = n.registry.EndMigration(ctx, actorID)
		return err
	}

	snap.Peers, err = n.resolvePeers(ctx, snap)
	if err == nil {
		err = n.pushActor(ctx, destAddr, phaseExport, migrationID, snap)
	}
	if err != nil {
		n.restoreAfterAbort(actorID, snap)
		n.sendMigrationControl(ctx, destAddr, phaseAbort, actorID, migrationID)
		_ = n.registry.EndMigration(ctx, actorID)
		n.publishMigration(actorID, migrationID, destNode, MigrationAborted, err.Error())
		return fmt.Errorf("migrating %s to %s: %w", actorID, destNode, err)
	}

	swapped, err := n.registry.CompareAndSetActorNode(ctx, actorID, n.name, destNode)
	if err != nil || !swapped {
		if err == nil {
			err = fmt.Errorf("actor %s: %w", actorID, errors.ErrMigrationConflict)
		}
		n.restoreAfterAbort(actorID, snap)
		n.sendMigrationControl(ctx, destAddr, phaseAbort, actorID, migrationID)
		_ = n.registry.EndMigration(ctx, actorID)
		n.publishMigration(actorID, migrationID, destNode, MigrationAborted, err.Error())
		return err
	}
	_ = n.registry.EndMigration(ctx, actorID)

	// the placement swap is committed, only now may the import fire
	n.sendMigrationControl(ctx, destAddr, phaseActivate, actorID, migrationID)
	n.commitMigration(actorID, destNode, destAddr)
	n.sendRedirects(ctx, actorID, snap, destNode, destAddr)
	n.publishMigration(actorID, migrationID, destNode, MigrationCommitted, "")
	n.logger.Infof("node=%s migrated actor=%s to=%s", n.name, actorID, destNode)
	return nil
}

// exportActor drains the actor into a snapshot on the scheduler
// goroutine. The cell stays registered in exporting phase, so tokens
// produced for it while the handshake runs park in its side buffer.
func (n *Node) exportActor(actorID, migrationID, destNode string) (*snapshot, error) {
	var snap *snapshot
	var opErr error
	n.sched.call(func() {
		c, ok := n.sched.cells[actorID]
		if !ok {
			opErr = errors.ErrActorNotFound
			return
		}
		if c.phase != PhaseEnabled {
			if c.phase == PhaseFaulted {
				opErr = errors.ErrActorFaulted
			} else {
				opErr = fmt.Errorf("actor %s in phase %s: %w", actorID, c.phase, errors.ErrMigrationInProgress)
			}
			return
		}
		c.phase = PhaseDraining
		snap, opErr = c.export(n.sched.table)
		if opErr != nil {
			c.phase = PhaseEnabled
			return
		}
		c.sideBuffer = nil
		c.overflow = nil
		c.phase = PhaseExporting
		c.migrationID = migrationID
		c.migrationDest = destNode
	})
	return snap, opErr
}

// resolvePeers looks up the placement of every actor sharing an edge
// with the snapshot's actor so the importer binds edges without registry
// round trips
func (n *Node) resolvePeers(ctx context.Context, snap *snapshot) (map[string]peerBinding, error) {
	peers := make(map[string]peerBinding)
	resolve := func(actorID string) error {
		if actorID == snap.ActorID {
			return nil
		}
		if _, done := peers[actorID]; done {
			return nil
		}
		nodeID, err := n.registry.ActorNode(ctx, actorID)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", actorID, err)
		}
		if nodeID == n.name {
			peers[actorID] = peerBinding{Node: n.name, Addr: n.remoting.BindAddr()}
			return nil
		}
		attributes, err := n.registry.NodeAttributes(ctx, nodeID)
		if err != nil {
			return fmt.Errorf("resolving node %s: %w", nodeID, err)
		}
		peers[actorID] = peerBinding{Node: nodeID, Addr: attributes[AddressAttribute]}
		return nil
	}
	for _, e := range snap.Inbound {
		if err := resolve(e.From.ActorID); err != nil {
			return nil, err
		}
	}
	for _, e := range snap.Outbound {
		if err := resolve(e.To.ActorID); err != nil {
			return nil, err
		}
	}
	return peers, nil
}

// pushActor transfers a snapshot and waits for the importer's verdict
func (n *Node) pushActor(ctx context.Context, addr string, phase uint8, migrationID string, snap *snapshot) error {
	payload, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	ack := make(chan *remote.MigrationFrame, 1)
	n.pendingMu.Lock()
	n.pending[migrationID] = ack
	n.pendingMu.Unlock()
	defer func() {
		n.pendingMu.Lock()
		delete(n.pending, migrationID)
		n.pendingMu.Unlock()
	}()

	frame := &remote.MigrationFrame{Phase: phase, ActorID: snap.ActorID, MigrationID: migrationID, Payload: payload}
	msg := &remote.Message{Kind: remote.KindMigration, Migration: frame}
	if err := n.remoting.Send(ctx, addr, msg); err != nil {
		return err
	}

	select {
	case reply := <-ack:
		if reply.Phase == phaseImportFailed {
			return errors.NewMigrationError(fmt.Errorf("import of %s rejected: %s", snap.ActorID, string(reply.Payload)))
		}
		return nil
	case <-time.After(n.ackTimeout):
		return errors.NewMigrationError(fmt.Errorf("import of %s not acknowledged within %s", snap.ActorID, n.ackTimeout))
	case <-ctx.Done():
		return ctx.Err()
	}
}

// commitMigration rebinds the actor's connections to the destination and
// forwards everything parked in its side buffer. Inbound connections
// stay in the table as remote relays so late arrivals from stale senders
// keep flowing to the new home.
func (n *Node) commitMigration(actorID, destNode, destAddr string) {
	n.sched.call(func() {
		s := n.sched
		c, ok := s.cells[actorID]
		if !ok {
			return
		}
		for _, conn := range s.table.touching(actorID) {
			if conn.to.ActorID == actorID {
				conn.rebind(nil, destNode, destAddr)
			} else {
				// the importer wired its own outbound edges
				s.table.remove(conn.id)
			}
		}
		side := c.sideBuffer
		c.sideBuffer = nil
		s.removeCell(actorID)
		for _, buffered := range side {
			conn, ok := s.table.get(buffered.ConnectionID)
			if !ok {
				continue
			}
			s.transmit(conn, conn.nextSeq(), buffered.Token)
		}
	})
}

// restoreAfterAbort puts the snapshot's tokens back into the live cell
// and re-enables it. Arrival order is preserved: drained queue content
// first, then tokens parked before the export, then tokens parked while
// the handshake ran.
func (n *Node) restoreAfterAbort(actorID string, snap *snapshot) {
	n.sched.call(func() {
		s := n.sched
		c, ok := s.cells[actorID]
		if !ok {
			return
		}
		for name, tokens := range snap.Inports {
			p, ok := c.inports[name]
			if !ok {
				continue
			}
			for _, t := range tokens {
				p.tokens.Push(t)
			}
		}
		c.sideBuffer = append(snap.SideBuffer, c.sideBuffer...)
		s.flushSide(c)
		c.phase = PhaseEnabled
		c.migrationID = ""
		c.migrationDest = ""
	})
	n.sched.kick()
}

// sendRedirects tells every remote producer feeding the migrated actor
// where it lives now, so their connections retarget and stop relaying
// through this node
func (n *Node) sendRedirects(ctx context.Context, actorID string, snap *snapshot, destNode, destAddr string) {
	note := redirectNote{ActorID: actorID, Node: destNode, Addr: destAddr}
	payload, err := msgpack.Marshal(note)
	if err != nil {
		n.logger.Errorf("redirect encode failed: %v", err)
		return
	}
	notified := make(map[string]bool)
	for _, e := range snap.Inbound {
		binding, ok := snap.Peers[e.From.ActorID]
		if !ok || binding.Node == n.name || binding.Node == destNode || notified[binding.Addr] {
			continue
		}
		notified[binding.Addr] = true
		frame := &remote.MigrationFrame{Phase: phaseRedirect, ActorID: actorID, Payload: payload}
		msg := &remote.Message{Kind: remote.KindMigration, Migration: frame}
		if err := n.remoting.Send(ctx, binding.Addr, msg); err != nil {
			n.logger.Errorf("redirect to %s failed: %v", binding.Addr, err)
		}
	}
}

// sendMigrationControl sends a payload-free handshake frame
func (n *Node) sendMigrationControl(ctx context.Context, addr string, phase uint8, actorID, migrationID string) {
	frame := &remote.MigrationFrame{Phase: phase, ActorID: actorID, MigrationID: migrationID}
	msg := &remote.Message{Kind: remote.KindMigration, Migration: frame}
	if err := n.remoting.Send(ctx, addr, msg); err != nil {
		n.logger.Errorf("migration control phase=%d to %s failed: %v", phase, addr, err)
	}
}

func (n *Node) publishMigration(actorID, migrationID, destNode string, outcome MigrationOutcome, reason string) {
	n.events.Publish(eventstream.TopicMigrations, &MigrationEvent{
		ActorID:     actorID,
		MigrationID: migrationID,
		FromNode:    n.name,
		ToNode:      destNode,
		Outcome:     outcome,
		Reason:      reason,
		Timestamp:   time.Now(),
	})
}

// importActor materializes a snapshot on this node: build the cell,
// restore or initialize the instance and wire every edge. The cell
// stays paused with tokens parking in its side buffer until the
// coordinator's activation frame arrives, so nothing fires before the
// placement swap committed.
func (n *Node) importActor(snap *snapshot) error {
	instance, err := n.types.New(snap.Type)
	if err != nil {
		return err
	}
	var opErr error
	n.sched.call(func() {
		s := n.sched
		if _, exists := s.cells[snap.ActorID]; exists {
			opErr = fmt.Errorf("actor %s: %w", snap.ActorID, errors.ErrActorAlreadyExists)
			return
		}
		if snap.Fresh {
			if err := instance.Init(snap.Args); err != nil {
				opErr = errors.NewConfigurationError(err)
				return
			}
		}
		c, err := newCell(snap.ActorID, snap.Type, snap.Application, instance)
		if err != nil {
			opErr = err
			return
		}
		c.phase = PhaseImporting
		if !snap.Fresh {
			if err := c.restore(snap); err != nil {
				opErr = err
				return
			}
		}
		for _, e := range snap.Inbound {
			if _, ok := c.inports[e.To.Port]; !ok {
				opErr = errors.NewConfigurationError(fmt.Errorf("actor %s declares no inport %s", snap.ActorID, e.To.Port))
				return
			}
			id := ConnectionID(e.From, e.To)
			if existing, ok := s.table.get(id); ok {
				// the producer lives here: its remote edge turns local
				existing.rebind(c, "", "")
				continue
			}
			conn := &connection{id: id, from: e.From, to: e.To, destCell: c}
			if err := s.table.add(conn); err != nil {
				opErr = err
				return
			}
		}
		for _, e := range snap.Outbound {
			if _, ok := c.outports[e.From.Port]; !ok {
				opErr = errors.NewConfigurationError(fmt.Errorf("actor %s declares no outport %s", snap.ActorID, e.From.Port))
				return
			}
			id := ConnectionID(e.From, e.To)
			if _, ok := s.table.get(id); ok {
				continue
			}
			conn := &connection{id: id, from: e.From, to: e.To}
			if dest, ok := s.cells[e.To.ActorID]; ok {
				conn.destCell = dest
			} else {
				binding := snap.Peers[e.To.ActorID]
				conn.destNode = binding.Node
				conn.destAddr = binding.Addr
			}
			if err := s.table.add(conn); err != nil {
				opErr = err
				return
			}
		}
		s.addCell(c)
	})
	return opErr
}

// handleMigrationFrame dispatches one migration control message arriving
// from the wire
func (n *Node) handleMigrationFrame(msg *remote.Message) {
	frame := msg.Migration
	if frame == nil {
		return
	}
	switch frame.Phase {
	case phaseDeploy, phaseExport:
		snap, err := decodeSnapshot(frame.Payload)
		if err == nil {
			err = n.importActor(snap)
		}
		reply := &remote.MigrationFrame{Phase: phaseImported, ActorID: frame.ActorID, MigrationID: frame.MigrationID}
		if err != nil {
			n.logger.Errorf("node=%s import of actor=%s failed: %v", n.name, frame.ActorID, err)
			reply = &remote.MigrationFrame{Phase: phaseImportFailed, ActorID: frame.ActorID, MigrationID: frame.MigrationID, Payload: []byte(err.Error())}
		}
		n.replyTo(msg.FromNode, reply)
	case phaseImported, phaseImportFailed:
		n.pendingMu.Lock()
		ack, ok := n.pending[frame.MigrationID]
		n.pendingMu.Unlock()
		if ok {
			select {
			case ack <- frame:
			default:
			}
		}
	case phaseAbort:
		n.sched.invoke(func() {
			n.sched.removeActor(frame.ActorID)
		})
	case phaseActivate:
		n.sched.invoke(func() {
			if c, ok := n.sched.cells[frame.ActorID]; ok && c.phase == PhaseImporting {
				c.phase = PhaseEnabled
				n.sched.flushSide(c)
			}
		})
	case phaseTerminate:
		n.sched.invoke(func() {
			n.sched.removeActor(frame.ActorID)
		})
	case phaseRedirect:
		var note redirectNote
		if err := msgpack.Unmarshal(frame.Payload, &note); err != nil {
			n.logger.Errorf("redirect decode failed: %v", err)
			return
		}
		n.sched.invoke(func() {
			for _, conn := range n.sched.table.touching(note.ActorID) {
				if conn.to.ActorID == note.ActorID && conn.isRemote() {
					conn.retarget(note.Node, note.Addr)
				}
			}
		})
	default:
		n.logger.Warnf("node=%s dropping migration frame of unknown phase %d", n.name, frame.Phase)
	}
}

// replyTo resolves a node name to its transport address and sends one
// handshake frame back
func (n *Node) replyTo(nodeName string, frame *remote.MigrationFrame) {
	ctx, cancel := context.WithTimeout(context.Background(), n.ackTimeout)
	defer cancel()
	attributes, err := n.registry.NodeAttributes(ctx, nodeName)
	if err != nil {
		n.logger.Errorf("node=%s cannot resolve peer %s: %v", n.name, nodeName, err)
		return
	}
	msg := &remote.Message{Kind: remote.KindMigration, Migration: frame}
	if err := n.remoting.Send(ctx, attributes[AddressAttribute], msg); err != nil {
		n.logger.Errorf("reply to %s failed: %v", nodeName, err)
	}
}
