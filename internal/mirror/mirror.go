// Package mirror maintains a client-side replica of a room graph, built
// from an initial snapshot plus the event stream. The replica is never
// authoritative: it converges to the store given the router's per-entity
// ordering, and tolerates edges that arrive before their endpoint nodes by
// parking them until both endpoints resolve.
package mirror

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/nickelm/tapestry/internal/graph"
	"github.com/nickelm/tapestry/internal/room"
	"github.com/nickelm/tapestry/internal/store"
)

// Mirror is a read-mostly local copy of one room's nodes and edges. Safe
// for concurrent use; the render loop reads while the network goroutine
// applies events.
type Mirror struct {
	mu      sync.RWMutex
	nodes   map[string]*graph.Node
	edges   map[string]*graph.Edge
	pending map[string]*graph.Edge
	upvoted map[string]map[string]bool // node id -> user ids
}

// New creates an empty mirror.
func New() *Mirror {
	return &Mirror{
		nodes:   make(map[string]*graph.Node),
		edges:   make(map[string]*graph.Edge),
		pending: make(map[string]*graph.Edge),
		upvoted: make(map[string]map[string]bool),
	}
}

// LoadSnapshot replaces the mirror contents with a full room snapshot.
func (m *Mirror) LoadSnapshot(snap *store.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nodes = make(map[string]*graph.Node, len(snap.Nodes))
	m.edges = make(map[string]*graph.Edge, len(snap.Edges))
	m.pending = make(map[string]*graph.Edge)
	m.upvoted = make(map[string]map[string]bool)

	for i := range snap.Nodes {
		n := snap.Nodes[i]
		m.nodes[n.ID] = &n
	}
	for i := range snap.Edges {
		e := snap.Edges[i]
		m.insertEdgeLocked(&e)
	}
	for _, uv := range snap.Upvotes {
		if m.upvoted[uv.NodeID] == nil {
			m.upvoted[uv.NodeID] = make(map[string]bool)
		}
		m.upvoted[uv.NodeID][uv.UserID] = true
	}
}

// Apply folds one broadcast event into the mirror. Unknown event types are
// ignored; presence and activity events carry no graph state.
func (m *Mirror) Apply(eventType string, payload json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch eventType {
	case room.EventNodeAdded:
		var n graph.Node
		if err := json.Unmarshal(payload, &n); err != nil {
			return fmt.Errorf("decoding node-added: %w", err)
		}
		m.nodes[n.ID] = &n
		m.resolvePendingLocked()

	case room.EventNodeRemoved:
		var p struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("decoding node-removed: %w", err)
		}
		m.removeNodeLocked(p.ID)

	case room.EventNodeUpdated:
		var p struct {
			ID          string  `json:"id"`
			Title       *string `json:"title"`
			Description *string `json:"description"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("decoding node-updated: %w", err)
		}
		if n, ok := m.nodes[p.ID]; ok {
			if p.Title != nil {
				n.Title = *p.Title
			}
			if p.Description != nil {
				n.Description = *p.Description
			}
		}

	case room.EventNodeUpvoted:
		var p struct {
			ID      string `json:"id"`
			Upvotes int    `json:"upvotes"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("decoding node-upvoted: %w", err)
		}
		if n, ok := m.nodes[p.ID]; ok {
			n.Upvotes = p.Upvotes
		}

	case room.EventNodeMoved:
		var p struct {
			ID     string  `json:"id"`
			X      float64 `json:"x"`
			Y      float64 `json:"y"`
			Pinned bool    `json:"pinned"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("decoding node-moved: %w", err)
		}
		if n, ok := m.nodes[p.ID]; ok {
			n.X, n.Y, n.Pinned = p.X, p.Y, p.Pinned
		}

	case room.EventNodesMerged:
		var p store.MergeResult
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("decoding nodes-merged: %w", err)
		}
		m.applyMergeLocked(&p)

	case room.EventEdgeAdded:
		var e graph.Edge
		if err := json.Unmarshal(payload, &e); err != nil {
			return fmt.Errorf("decoding edge-added: %w", err)
		}
		m.insertEdgeLocked(&e)

	case room.EventEdgeUpdated:
		var e graph.Edge
		if err := json.Unmarshal(payload, &e); err != nil {
			return fmt.Errorf("decoding edge-updated: %w", err)
		}
		// A flip swaps endpoints but never their pair, so the edge stays in
		// whichever set it already occupied.
		delete(m.edges, e.ID)
		delete(m.pending, e.ID)
		m.insertEdgeLocked(&e)

	case room.EventEdgeRemoved:
		var p struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("decoding edge-removed: %w", err)
		}
		delete(m.edges, p.ID)
		delete(m.pending, p.ID)
	}
	return nil
}

func (m *Mirror) applyMergeLocked(res *store.MergeResult) {
	keep, ok := m.nodes[res.KeepID]
	if ok {
		keep.Title = res.Title
		keep.Description = res.Description
		keep.MergedCount = res.MergedCount
		keep.Contributors = res.Contributors
	}
	delete(m.nodes, res.MergeID)

	// Reparent surviving edges, then drop the ones the store deleted and
	// any self-loop the reparenting produced locally.
	for _, set := range []map[string]*graph.Edge{m.edges, m.pending} {
		for id, e := range set {
			if e.SourceID == res.MergeID {
				e.SourceID = res.KeepID
			}
			if e.TargetID == res.MergeID {
				e.TargetID = res.KeepID
			}
			if e.SourceID == e.TargetID {
				delete(set, id)
			}
		}
	}
	for _, id := range res.RemovedEdges {
		delete(m.edges, id)
		delete(m.pending, id)
	}
	m.resolvePendingLocked()
}

func (m *Mirror) removeNodeLocked(id string) {
	delete(m.nodes, id)
	delete(m.upvoted, id)
	for eid, e := range m.edges {
		if e.Touches(id) {
			delete(m.edges, eid)
		}
	}
	for eid, e := range m.pending {
		if e.Touches(id) {
			delete(m.pending, eid)
		}
	}
}

// insertEdgeLocked files an edge as resolved or pending depending on
// whether both endpoints are known yet.
func (m *Mirror) insertEdgeLocked(e *graph.Edge) {
	_, hasSource := m.nodes[e.SourceID]
	_, hasTarget := m.nodes[e.TargetID]
	if hasSource && hasTarget {
		m.edges[e.ID] = e
	} else {
		m.pending[e.ID] = e
	}
}

func (m *Mirror) resolvePendingLocked() {
	for id, e := range m.pending {
		_, hasSource := m.nodes[e.SourceID]
		_, hasTarget := m.nodes[e.TargetID]
		if hasSource && hasTarget {
			m.edges[id] = e
			delete(m.pending, id)
		}
	}
}

// Node returns a copy of one node, if present.
func (m *Mirror) Node(id string) (graph.Node, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return graph.Node{}, false
	}
	return *n, true
}

// Nodes returns copies of all nodes, ordered by id for determinism.
func (m *Mirror) Nodes() []graph.Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]graph.Node, 0, len(m.nodes))
	for _, n := range m.nodes {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NodeIDs returns the set of known node ids.
func (m *Mirror) NodeIDs() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]bool, len(m.nodes))
	for id := range m.nodes {
		out[id] = true
	}
	return out
}

// ResolvedEdges returns copies of edges whose endpoints both exist. Only
// resolved edges are ever rendered or routed.
func (m *Mirror) ResolvedEdges() []graph.Edge {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]graph.Edge, 0, len(m.edges))
	for _, e := range m.edges {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PendingEdges reports how many edges are parked awaiting endpoints.
func (m *Mirror) PendingEdges() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pending)
}

// UpvotedBy reports whether a user has upvoted a node, per the snapshot
// upvote rows. Toggle events do not carry per-user detail, so this reflects
// snapshot-time state only.
func (m *Mirror) UpvotedBy(nodeID, userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.upvoted[nodeID][userID]
}

// SetPositions overwrites node positions from a layout pass. Unknown ids
// are ignored.
func (m *Mirror) SetPositions(pos map[string][2]float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range pos {
		if n, ok := m.nodes[id]; ok {
			n.X, n.Y = p[0], p[1]
		}
	}
}
