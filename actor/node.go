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

// Package actor implements a distributed dataflow runtime. Actors are
// single-threaded state machines with typed ports; guarded actions fire
// atomically over queued tokens, connections deliver in FIFO order with
// backpressure, and live actors migrate between nodes without losing
// tokens.
package actor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/tochemey/dataflow/errors"
	"github.com/tochemey/dataflow/eventstream"
	"github.com/tochemey/dataflow/log"
	"github.com/tochemey/dataflow/registry"
	"github.com/tochemey/dataflow/remote"
)

// AddressAttribute is the reserved node attribute carrying the transport
// address. It is written by the node itself at startup.
const AddressAttribute = "address"

// DefaultAckTimeout bounds deployment and migration handshakes
const DefaultAckTimeout = 10 * time.Second

// Node hosts dataflow actors. It owns one scheduler goroutine for all
// local actors, one transport endpoint for its peers and a registry
// client for placement. Nodes are symmetric: any node can deploy an
// application or coordinate a migration.
type Node struct {
	name       string
	host       string
	port       int
	logger     log.Logger
	registry   *registry.Client
	types      *TypeRegistry
	attributes map[string]string
	ackTimeout time.Duration

	events   *eventstream.Stream
	sched    *scheduler
	remoting *remote.Remoting
	started  *atomic.Bool

	pendingMu sync.Mutex
	pending   map[string]chan *remote.MigrationFrame
}

// NewNode creates a node. The registry client must point at the same
// backend on every node of the system, and every node must register the
// same actor types.
func NewNode(name, host string, port int, registryClient *registry.Client, types *TypeRegistry, opts ...Option) *Node {
	node := &Node{
		name:       name,
		host:       host,
		port:       port,
		logger:     log.DefaultLogger,
		registry:   registryClient,
		types:      types,
		ackTimeout: DefaultAckTimeout,
		events:     eventstream.New(),
		started:    atomic.NewBool(false),
		pending:    make(map[string]chan *remote.MigrationFrame),
	}
	for _, opt := range opts {
		opt.Apply(node)
	}
	node.sched = newScheduler(node.logger, node.events, node.transmitToken)
	node.remoting = remote.NewRemoting(name, host, port,
		remote.WithLogger(node.logger),
		remote.WithLinkHandler(node.onLinkChange),
	)
	return node
}

// Name returns the node name
func (n *Node) Name() string {
	return n.name
}

// BindAddr returns the transport address peers reach this node on. Only
// valid after Start.
func (n *Node) BindAddr() string {
	return n.remoting.BindAddr()
}

// Start binds the transport, launches the scheduler and registers the
// node in the registry
func (n *Node) Start(ctx context.Context) error {
	if !n.started.CompareAndSwap(false, true) {
		return errors.ErrNodeAlreadyStarted
	}
	n.remoting.SetHandler(n.handleInbound)
	if err := n.remoting.Start(ctx); err != nil {
		n.started.Store(false)
		return err
	}
	n.sched.start()

	attributes := make(map[string]string, len(n.attributes)+1)
	for key, value := range n.attributes {
		attributes[key] = value
	}
	attributes[AddressAttribute] = n.remoting.BindAddr()
	if err := n.registry.SetNodeAttributes(ctx, n.name, attributes); err != nil {
		n.sched.shutdown()
		_ = n.remoting.Stop(ctx)
		n.started.Store(false)
		return err
	}
	n.logger.Infof("node=%s started addr=%s", n.name, n.remoting.BindAddr())
	return nil
}

// Stop deregisters the node, tears down the transport and stops the
// scheduler. Hosted actors are discarded, not migrated.
func (n *Node) Stop(ctx context.Context) error {
	if !n.started.CompareAndSwap(true, false) {
		return errors.ErrNodeNotStarted
	}
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return n.registry.DeleteNode(egCtx, n.name)
	})
	eg.Go(func() error {
		return n.remoting.Stop(egCtx)
	})
	err := eg.Wait()
	n.sched.shutdown()
	n.events.Close()
	n.logger.Infof("node=%s stopped", n.name)
	return err
}

// Subscribe returns an event subscriber for the given topics. See the
// eventstream package for the topic names.
func (n *Node) Subscribe(topics ...string) eventstream.Subscriber {
	return n.events.AddSubscriber(topics...)
}

// Unsubscribe detaches a subscriber obtained from Subscribe
func (n *Node) Unsubscribe(sub eventstream.Subscriber) {
	n.events.RemoveSubscriber(sub)
}

// DeployApplication validates the graph, places every actor on a node
// whose attributes satisfy its constraints, materializes the actors and
// wires the connections. Remote placements are pushed to their hosting
// nodes and acknowledged before any actor starts firing.
func (n *Node) DeployApplication(ctx context.Context, graph Graph) error {
	if !n.started.Load() {
		return errors.ErrNodeNotStarted
	}
	if err := graph.Validate(); err != nil {
		return err
	}
	if _, err := n.registry.Application(ctx, graph.Name); err == nil {
		return errors.NewConfigurationError(fmt.Errorf("application %s already deployed", graph.Name))
	}

	nodes, err := n.registry.Nodes(ctx)
	if err != nil {
		return err
	}
	placement := make(map[string]string, len(graph.Actors))
	for _, spec := range graph.Actors {
		if _, err := n.registry.ActorNode(ctx, spec.ID); err == nil {
			return fmt.Errorf("actor %s: %w", spec.ID, errors.ErrActorAlreadyExists)
		}
		nodeID, err := placeActor(n.name, spec, nodes)
		if err != nil {
			return err
		}
		placement[spec.ID] = nodeID
	}

	actorIDs := mapset.NewSet[string]()
	for _, spec := range graph.Actors {
		if err := n.registry.SetActorNode(ctx, spec.ID, placement[spec.ID]); err != nil {
			return err
		}
		actorIDs.Add(spec.ID)
	}
	if err := n.registry.SetApplication(ctx, graph.Name, actorIDs); err != nil {
		return err
	}

	inboundOf := make(map[string][]edge)
	outboundOf := make(map[string][]edge)
	for _, conn := range graph.Connections {
		e := edge{From: conn.From, To: conn.To}
		outboundOf[conn.From.ActorID] = append(outboundOf[conn.From.ActorID], e)
		inboundOf[conn.To.ActorID] = append(inboundOf[conn.To.ActorID], e)
	}

	// all actors materialize paused, then a second phase activates them,
	// so no token can reach an unwired inport
	var local []ActorSpec
	for _, spec := range graph.Actors {
		if placement[spec.ID] == n.name {
			local = append(local, spec)
		}
	}
	if err := n.materializeLocal(graph, local, placement, nodes); err != nil {
		return err
	}
	for _, spec := range graph.Actors {
		nodeID := placement[spec.ID]
		if nodeID == n.name {
			continue
		}
		snap := &snapshot{
			ActorID:     spec.ID,
			Type:        spec.Type,
			Application: graph.Name,
			Fresh:       true,
			Args:        spec.Args,
			Inbound:     inboundOf[spec.ID],
			Outbound:    outboundOf[spec.ID],
			Peers:       peersOf(spec.ID, inboundOf[spec.ID], outboundOf[spec.ID], placement, nodes),
		}
		if err := n.pushActor(ctx, nodes[nodeID][AddressAttribute], phaseDeploy, uuid.NewString(), snap); err != nil {
			return fmt.Errorf("deploying %s on %s: %w", spec.ID, nodeID, err)
		}
	}

	// phase two: everything is wired, let them fire
	for nodeID := range nodes {
		if nodeID == n.name {
			continue
		}
		for _, spec := range graph.Actors {
			if placement[spec.ID] != nodeID {
				continue
			}
			frame := &remote.MigrationFrame{Phase: phaseActivate, ActorID: spec.ID}
			msg := &remote.Message{Kind: remote.KindMigration, Migration: frame}
			if err := n.remoting.Send(ctx, nodes[nodeID][AddressAttribute], msg); err != nil {
				return err
			}
		}
	}
	n.sched.invoke(func() {
		for _, spec := range local {
			if c, ok := n.sched.cells[spec.ID]; ok {
				c.phase = PhaseEnabled
				n.sched.flushSide(c)
			}
		}
	})
	n.logger.Infof("node=%s deployed application=%s actors=%d", n.name, graph.Name, len(graph.Actors))
	return nil
}

// materializeLocal creates and wires the locally placed actors of a
// graph. Cells start paused and are activated once every placement is
// acknowledged.
func (n *Node) materializeLocal(graph Graph, local []ActorSpec, placement map[string]string, nodes map[string]map[string]string) error {
	instances := make(map[string]Actor, len(local))
	for _, spec := range local {
		instance, err := n.types.New(spec.Type)
		if err != nil {
			return err
		}
		instances[spec.ID] = instance
	}
	var opErr error
	n.sched.call(func() {
		created := make([]string, 0, len(local))
		fail := func(err error) {
			for _, id := range created {
				n.sched.removeActor(id)
			}
			opErr = err
		}
		for _, spec := range local {
			instance := instances[spec.ID]
			if err := instance.Init(spec.Args); err != nil {
				fail(errors.NewConfigurationError(err))
				return
			}
			c, err := newCell(spec.ID, spec.Type, graph.Name, instance)
			if err != nil {
				fail(err)
				return
			}
			c.phase = PhaseImporting
			n.sched.addCell(c)
			created = append(created, spec.ID)
		}
		for _, spec := range graph.Connections {
			producerLocal := placement[spec.From.ActorID] == n.name
			consumerLocal := placement[spec.To.ActorID] == n.name
			if !producerLocal && !consumerLocal {
				continue
			}
			// every edge must name ports the actor types declare; the
			// table never holds an edge tokens would vanish into
			if producerLocal {
				producer := n.sched.cells[spec.From.ActorID]
				if _, ok := producer.outports[spec.From.Port]; !ok {
					fail(errors.NewConfigurationError(fmt.Errorf("actor %s declares no outport %s", spec.From.ActorID, spec.From.Port)))
					return
				}
			}
			conn := &connection{id: ConnectionID(spec.From, spec.To), from: spec.From, to: spec.To}
			if consumerLocal {
				consumer := n.sched.cells[spec.To.ActorID]
				if _, ok := consumer.inports[spec.To.Port]; !ok {
					fail(errors.NewConfigurationError(fmt.Errorf("actor %s declares no inport %s", spec.To.ActorID, spec.To.Port)))
					return
				}
				conn.destCell = consumer
			} else {
				nodeID := placement[spec.To.ActorID]
				conn.destNode = nodeID
				conn.destAddr = nodes[nodeID][AddressAttribute]
			}
			if err := n.sched.table.add(conn); err != nil {
				fail(err)
				return
			}
		}
	})
	return opErr
}

// placeActor picks the hosting node of one actor. The deploying node is
// preferred; among other candidates the smallest node id wins, keeping
// placement deterministic.
func placeActor(self string, spec ActorSpec, nodes map[string]map[string]string) (string, error) {
	matches := func(attributes map[string]string) bool {
		for key, want := range spec.Constraints {
			if attributes[key] != want {
				return false
			}
		}
		return true
	}
	if attributes, ok := nodes[self]; ok && matches(attributes) {
		return self, nil
	}
	candidates := make([]string, 0, len(nodes))
	for nodeID, attributes := range nodes {
		if nodeID != self && matches(attributes) {
			candidates = append(candidates, nodeID)
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("actor %s: %w", spec.ID, errors.ErrConstraintUnsatisfied)
	}
	sort.Strings(candidates)
	return candidates[0], nil
}

// peersOf collects the placement of every actor sharing an edge with the
// given one, so the importer binds remote edges without registry lookups
func peersOf(actorID string, inbound, outbound []edge, placement map[string]string, nodes map[string]map[string]string) map[string]peerBinding {
	peers := make(map[string]peerBinding)
	record := func(id string) {
		if id == actorID {
			return
		}
		nodeID := placement[id]
		peers[id] = peerBinding{Node: nodeID, Addr: nodes[nodeID][AddressAttribute]}
	}
	for _, e := range inbound {
		record(e.From.ActorID)
	}
	for _, e := range outbound {
		record(e.To.ActorID)
	}
	return peers
}

// TerminateApplication removes every actor of the application from its
// hosting node and deletes the registry records
func (n *Node) TerminateApplication(ctx context.Context, name string) error {
	if !n.started.Load() {
		return errors.ErrNodeNotStarted
	}
	actorIDs, err := n.registry.Application(ctx, name)
	if err != nil {
		return err
	}
	members := actorIDs.ToSlice()
	sort.Strings(members)
	for _, actorID := range members {
		nodeID, err := n.registry.ActorNode(ctx, actorID)
		if err != nil {
			continue
		}
		if nodeID == n.name {
			n.sched.call(func() {
				n.sched.removeActor(actorID)
			})
		} else if attributes, err := n.registry.NodeAttributes(ctx, nodeID); err == nil {
			frame := &remote.MigrationFrame{Phase: phaseTerminate, ActorID: actorID}
			msg := &remote.Message{Kind: remote.KindMigration, Migration: frame}
			_ = n.remoting.Send(ctx, attributes[AddressAttribute], msg)
		}
		if err := n.registry.DeleteActor(ctx, actorID); err != nil {
			return err
		}
	}
	if err := n.registry.DeleteApplication(ctx, name); err != nil {
		return err
	}
	n.logger.Infof("node=%s terminated application=%s", n.name, name)
	return nil
}

// ListActors returns the status of every actor hosted on this node,
// sorted by actor id
func (n *Node) ListActors() ([]ActorStatus, error) {
	if !n.started.Load() {
		return nil, errors.ErrNodeNotStarted
	}
	var statuses []ActorStatus
	n.sched.call(func() {
		for _, c := range n.sched.cells {
			statuses = append(statuses, c.status())
		}
	})
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].ID < statuses[j].ID
	})
	return statuses, nil
}

// ActorStatusOf returns the status of one locally hosted actor
func (n *Node) ActorStatusOf(actorID string) (ActorStatus, error) {
	if !n.started.Load() {
		return ActorStatus{}, errors.ErrNodeNotStarted
	}
	var status ActorStatus
	var opErr error
	n.sched.call(func() {
		c, ok := n.sched.cells[actorID]
		if !ok {
			opErr = errors.ErrActorNotFound
			return
		}
		status = c.status()
	})
	return status, opErr
}

// Placement returns the node currently hosting the given actor according
// to the registry
func (n *Node) Placement(ctx context.Context, actorID string) (string, error) {
	nodeID, err := n.registry.ActorNode(ctx, actorID)
	if err != nil {
		if errors.Is(err, errors.ErrKeyNotFound) {
			return "", errors.ErrActorNotFound
		}
		return "", err
	}
	return nodeID, nil
}

// ResetActor clears the fault of a locally hosted actor, making it
// fireable again with its state and queues untouched
func (n *Node) ResetActor(actorID string) error {
	if !n.started.Load() {
		return errors.ErrNodeNotStarted
	}
	var opErr error
	n.sched.call(func() {
		c, ok := n.sched.cells[actorID]
		if !ok {
			opErr = errors.ErrActorNotFound
			return
		}
		opErr = c.reset()
	})
	if opErr == nil {
		n.sched.kick()
	}
	return opErr
}

// transmitToken encodes one token and hands it to the transport. Called
// on the scheduler goroutine; the transport queues without blocking.
func (n *Node) transmitToken(conn *connection, seq uint64, t Token) {
	payload, err := encodeToken(t)
	if err != nil {
		n.logger.Errorf("connection=%s token encode failed: %v", conn.id, err)
		return
	}
	msg := &remote.Message{
		Kind:  remote.KindToken,
		Token: &remote.TokenFrame{ConnectionID: conn.id, Seq: seq, Payload: payload},
	}
	if err := n.remoting.Send(context.Background(), conn.destAddr, msg); err != nil {
		n.logger.Errorf("connection=%s send to %s failed: %v", conn.id, conn.destAddr, err)
	}
}

// onLinkChange publishes transport link transitions on the event stream
func (n *Node) onLinkChange(addr string, up bool) {
	n.events.Publish(eventstream.TopicLinks, &LinkEvent{
		PeerAddr:  addr,
		Up:        up,
		Timestamp: time.Now(),
	})
}

// handleInbound dispatches one wire message. Runs on a transport reader
// goroutine; all state mutation is delegated to scheduler closures.
func (n *Node) handleInbound(msg *remote.Message) {
	switch msg.Kind {
	case remote.KindToken:
		n.handleToken(msg)
	case remote.KindMigration:
		n.handleMigrationFrame(msg)
	default:
		n.logger.Warnf("node=%s dropping message of unknown kind %d", n.name, msg.Kind)
	}
}

// handleToken delivers one wire token: into a local inport, into the
// side buffer of a migrating local actor, or relayed on the rebound
// connection when the consumer has moved away
func (n *Node) handleToken(msg *remote.Message) {
	frame := msg.Token
	if frame == nil {
		return
	}
	n.sched.invoke(func() {
		s := n.sched
		key := msg.FromNode + "|" + frame.ConnectionID
		if frame.Seq <= s.inSeq[key] {
			return
		}
		s.inSeq[key] = frame.Seq

		conn, ok := s.table.get(frame.ConnectionID)
		if !ok {
			n.logger.Warnf("node=%s dropping token of unknown connection %s", n.name, frame.ConnectionID)
			return
		}
		if conn.isRemote() {
			out := &remote.Message{
				Kind:  remote.KindToken,
				Token: &remote.TokenFrame{ConnectionID: frame.ConnectionID, Seq: conn.nextSeq(), Payload: frame.Payload},
			}
			if err := n.remoting.Send(context.Background(), conn.destAddr, out); err != nil {
				n.logger.Errorf("connection=%s relay to %s failed: %v", conn.id, conn.destAddr, err)
			}
			return
		}
		t, err := decodeToken(frame.Payload)
		if err != nil {
			n.logger.Errorf("connection=%s token decode failed: %v", conn.id, err)
			return
		}
		s.enqueueInbound(conn, t)
	})
}
