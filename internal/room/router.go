// Package room implements the realtime collaboration core: intent routing,
// per-room broadcast, presence, and websocket session handling. Structural
// mutations in a room are serialized behind the hub's structural mutex so
// duplicate-edge and merge precondition checks cannot interleave; move and
// hover traffic bypasses that serialization.
package room

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nickelm/tapestry/internal/concept"
	"github.com/nickelm/tapestry/internal/graph"
	"github.com/nickelm/tapestry/internal/store"
)

// Call kinds for per-session concept-service supersession.
const (
	callChat      = "chat"
	callHarvest   = "harvest"
	callConnect   = "connect"
	callExpand    = "expand"
	callElaborate = "elaborate"
	callMerge     = "merge"
)

// Router validates client intents, applies them to the store, and decides
// what each room's sessions get told about the result. Broadcasts reflect
// only committed state: a structural intent completes its store write,
// including any concept-service call it depends on, before anything is
// fanned out.
type Router struct {
	store  *store.DB
	svc    concept.Service
	hubs   *Hubs
	logger *slog.Logger
}

// NewRouter creates a router over a store and concept service.
func NewRouter(db *store.DB, svc concept.Service, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		store:  db,
		svc:    svc,
		hubs:   NewHubs(),
		logger: logger,
	}
}

// Hubs exposes the hub registry, used by the HTTP layer for live counts.
func (r *Router) Hubs() *Hubs {
	return r.hubs
}

// NewSession wraps an upgraded websocket connection. The caller runs it.
func (r *Router) NewSession(conn *websocket.Conn) *Session {
	return newSession(r, conn)
}

func (r *Router) dispatch(s *Session, intent Intent) {
	if intent.Type == IntentJoinRoom {
		r.handleJoin(s, intent.Payload)
		return
	}
	if s.hub == nil || s.user == nil {
		s.sendEvent(Event{Type: EventError, Payload: errorPayload{Message: "not in a room"}})
		return
	}

	switch intent.Type {
	case IntentLeaveRoom:
		r.handleLeave(s)
	case IntentChat:
		r.handleChat(s, intent.Payload)
	case IntentCancelChat:
		s.cancelCall(callChat)
	case IntentHarvest:
		r.handleHarvest(s, intent.Payload, false)
	case IntentForceHarvest:
		r.handleHarvest(s, intent.Payload, true)
	case IntentConnectNodes:
		r.handleConnect(s, intent.Payload)
	case IntentExpandNode:
		r.handleExpand(s, intent.Payload)
	case IntentElaborate:
		r.handleElaborate(s, intent.Payload)
	case IntentEditNode:
		r.handleEdit(s, intent.Payload)
	case IntentPruneNode:
		r.handlePrune(s, intent.Payload)
	case IntentUpvoteNode:
		r.handleUpvote(s, intent.Payload)
	case IntentMergeNodes:
		r.handleMerge(s, intent.Payload)
	case IntentMoveNode:
		r.handleMove(s, intent.Payload)
	case IntentEditEdge:
		r.handleEditEdge(s, intent.Payload)
	case IntentDeleteEdge:
		r.handleDeleteEdge(s, intent.Payload)
	case IntentHoverNode:
		r.handleHover(s, intent.Payload)
	case IntentUnhoverNode:
		r.handleUnhover(s)
	default:
		s.sendEvent(Event{Type: EventError, Payload: errorPayload{Message: fmt.Sprintf("unknown intent %q", intent.Type)}})
	}
}

// --- join / leave ---

func (r *Router) handleJoin(s *Session, raw json.RawMessage) {
	var p joinRoomPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.UserName == "" {
		s.sendEvent(Event{Type: EventError, Payload: errorPayload{Message: "invalid join request"}})
		return
	}
	rm, err := r.store.GetRoom(p.RoomID)
	if err != nil {
		s.sendEvent(Event{Type: EventError, Payload: errorPayload{Message: "Room not found"}})
		return
	}
	if s.hub != nil {
		r.handleLeave(s)
	}

	user := &User{ID: uuid.NewString(), Name: p.UserName, Color: nextColor()}
	if err := r.store.CreateUser(user.ID, user.Name, user.Color, rm.ID); err != nil {
		r.logger.Error("create user failed", "err", err)
		s.sendEvent(Event{Type: EventError, Payload: errorPayload{Message: "join failed"}})
		return
	}

	s.user = user
	s.hub = r.hubs.get(rm.ID)
	s.setLogRoom(rm.ID)
	count := s.hub.add(s)

	s.sendEvent(Event{Type: EventJoined, Payload: joinedPayload{User: *user, Room: *rm}})
	s.hub.broadcast(Event{Type: EventUserJoined, Payload: userJoinedPayload{User: *user}})
	s.hub.broadcast(Event{Type: EventUserCount, Payload: userCountPayload{Count: count}})

	r.logActivityExcept(s.hub, s, store.Activity{
		RoomID: rm.ID, UserID: user.ID, UserName: user.Name,
		Action: "joined", TargetType: "room", Details: rm.Name,
	})
	r.logger.Info("user joined", "room", rm.ID, "user", user.Name, "sessions", count)
}

func (r *Router) handleLeave(s *Session) {
	hub, user := s.hub, s.user
	if hub == nil || user == nil {
		s.sendEvent(Event{Type: EventLeftRoom})
		return
	}
	s.hub, s.user = nil, nil
	s.setLogRoom("")
	s.cancelAllCalls()

	count := hub.remove(s, user.ID)
	hub.broadcast(Event{Type: EventUserLeft, Payload: userLeftPayload{UserID: user.ID}})
	hub.broadcast(Event{Type: EventUserUnhover, Payload: userLeftPayload{UserID: user.ID}})
	hub.broadcast(Event{Type: EventUserCount, Payload: userCountPayload{Count: count}})
	r.logActivity(hub, store.Activity{
		RoomID: hub.roomID, UserID: user.ID, UserName: user.Name,
		Action: "left", TargetType: "room",
	})
	s.sendEvent(Event{Type: EventLeftRoom})
}

// handleDisconnect runs when the read pump exits for any reason.
func (r *Router) handleDisconnect(s *Session) {
	hub, user := s.hub, s.user
	if hub == nil || user == nil {
		return
	}
	s.hub, s.user = nil, nil
	s.setLogRoom("")

	count := hub.remove(s, user.ID)
	hub.broadcast(Event{Type: EventUserLeft, Payload: userLeftPayload{UserID: user.ID}})
	hub.broadcast(Event{Type: EventUserUnhover, Payload: userLeftPayload{UserID: user.ID}})
	hub.broadcast(Event{Type: EventUserCount, Payload: userCountPayload{Count: count}})
	r.logActivity(hub, store.Activity{
		RoomID: hub.roomID, UserID: user.ID, UserName: user.Name,
		Action: "left", TargetType: "room",
	})
	r.logger.Info("user disconnected", "room", hub.roomID, "user", user.Name, "sessions", count)
}

// --- chat ---

func (r *Router) handleChat(s *Session, raw json.RawMessage) {
	var p chatPayload
	if err := json.Unmarshal(raw, &p); err != nil || len(p.Messages) == 0 {
		s.sendEvent(Event{Type: EventChatError, Payload: errorPayload{Message: "invalid chat request"}})
		return
	}
	hub, roomID := s.hub, s.hub.roomID

	go func() {
		ctx, done := s.beginCall(callChat)
		defer done()

		existing, err := r.roomConcepts(roomID)
		if err != nil {
			r.logger.Error("listing nodes for chat", "err", err)
			s.sendEvent(Event{Type: EventChatError, Payload: errorPayload{Message: "chat failed"}})
			return
		}
		result, err := r.svc.ChatExtract(ctx, p.Messages, existing)
		if ctx.Err() != nil {
			return // superseded or cancelled
		}
		if err != nil {
			r.logger.Error("chat request failed", "room", hub.roomID, "err", err)
			s.sendEvent(Event{Type: EventChatError, Payload: errorPayload{Message: "Concept service request failed."}})
			return
		}
		s.sendEvent(Event{Type: EventChatResponse, Payload: chatResponsePayload{Text: result.Text, Concepts: result.Concepts}})
	}()
}

// --- harvest / create node ---

func (r *Router) handleHarvest(s *Session, raw json.RawMessage, force bool) {
	var p harvestPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.Title == "" {
		s.sendEvent(Event{Type: EventError, Payload: errorPayload{Message: "invalid harvest request"}})
		return
	}
	hub, user := s.hub, s.user

	if force {
		r.createNode(hub, s, user, p)
		return
	}

	go func() {
		ctx, done := s.beginCall(callHarvest)
		defer done()

		nodes, err := r.store.ListNodes(hub.roomID)
		if err != nil {
			r.logger.Error("listing nodes for harvest", "err", err)
			s.sendEvent(Event{Type: EventError, Payload: errorPayload{Message: "harvest failed"}})
			return
		}
		fresh := concept.Concept{Title: p.Title, Description: p.Description}
		sim, err := r.svc.ClassifySimilar(ctx, fresh, asConcepts(nodes))
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			// Similarity is advisory; a classifier failure falls through to
			// a plain create rather than blocking the user.
			r.logger.Warn("similarity classification failed", "err", err)
		}
		if len(sim.Duplicates) > 0 {
			s.sendEvent(Event{Type: EventSimilarFound, Payload: similarFoundPayload{
				NewConcept: fresh,
				Duplicates: pickNodes(nodes, sim.Duplicates),
				Related:    pickNodes(nodes, sim.Related),
				Broader:    pickNodes(nodes, sim.Broader),
			}})
			return
		}
		r.createNode(hub, s, user, p)
	}()
}

func (r *Router) createNode(hub *Hub, s *Session, user *User, p harvestPayload) {
	x, y := p.X, p.Y
	if x == 0 && y == 0 {
		x = (rand.Float64() - 0.5) * 800
		y = (rand.Float64() - 0.5) * 600
	}

	hub.structural.Lock()
	defer hub.structural.Unlock()

	node, err := r.store.CreateNode(hub.roomID, p.Title, p.Description, x, y, user.ID)
	if err != nil {
		r.reportError(s, err)
		return
	}
	hub.broadcast(Event{Type: EventNodeAdded, Payload: node})
	r.logActivity(hub, store.Activity{
		RoomID: hub.roomID, UserID: user.ID, UserName: user.Name,
		Action: "harvested", TargetType: "node", TargetID: node.ID, Details: node.Title,
	})
}

// --- connect ---

func (r *Router) handleConnect(s *Session, raw json.RawMessage) {
	var p connectNodesPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		s.sendEvent(Event{Type: EventError, Payload: errorPayload{Message: "invalid connect request"}})
		return
	}
	hub, user := s.hub, s.user

	go func() {
		ctx, done := s.beginCall(callConnect)
		defer done()

		source, err := r.store.GetNode(p.SourceID)
		if err != nil {
			r.reportError(s, err)
			return
		}
		target, err := r.store.GetNode(p.TargetID)
		if err != nil {
			r.reportError(s, err)
			return
		}

		label, err := r.svc.GenerateEdgeLabel(ctx,
			concept.Concept{Title: source.Title, Description: source.Description},
			concept.Concept{Title: target.Title, Description: target.Description})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			r.logger.Error("edge label generation failed", "err", err)
			s.sendEvent(Event{Type: EventError, Payload: errorPayload{Message: "Failed to label connection"}})
			return
		}

		hub.structural.Lock()
		defer hub.structural.Unlock()

		edge, err := r.store.CreateEdge(hub.roomID, p.SourceID, p.TargetID, label.Label, label.Directed, user.ID)
		if err != nil {
			r.reportError(s, err)
			return
		}
		hub.broadcast(Event{Type: EventEdgeAdded, Payload: edge})
		r.logActivity(hub, store.Activity{
			RoomID: hub.roomID, UserID: user.ID, UserName: user.Name,
			Action: "connected", TargetType: "edge", TargetID: edge.ID,
			Details: fmt.Sprintf("%s -> %s: %q", source.Title, target.Title, edge.Label),
		})
	}()
}

// --- expand / elaborate ---

func (r *Router) handleExpand(s *Session, raw json.RawMessage) {
	var p nodeIDPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		s.sendEvent(Event{Type: EventError, Payload: errorPayload{Message: "invalid expand request"}})
		return
	}
	hub, user := s.hub, s.user

	go func() {
		ctx, done := s.beginCall(callExpand)
		defer done()

		node, err := r.store.GetNode(p.NodeID)
		if err != nil {
			r.reportError(s, err)
			return
		}
		existing, err := r.roomConcepts(hub.roomID)
		if err != nil {
			r.logger.Error("listing nodes for expand", "err", err)
			s.sendEvent(Event{Type: EventError, Payload: errorPayload{Message: "Failed to expand concept"}})
			return
		}

		expansions, err := r.svc.ExpandConcept(ctx,
			concept.Concept{Title: node.Title, Description: node.Description}, existing)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			r.logger.Error("expand failed", "err", err)
			s.sendEvent(Event{Type: EventError, Payload: errorPayload{Message: "Failed to expand concept"}})
			return
		}

		hub.structural.Lock()
		defer hub.structural.Unlock()

		var titles []string
		for _, exp := range expansions {
			x := node.X + (rand.Float64()-0.5)*200
			y := node.Y + (rand.Float64()-0.5)*200
			child, err := r.store.CreateNode(hub.roomID, exp.Title, exp.Description, x, y, user.ID)
			if err != nil {
				r.logger.Warn("skipping expansion node", "title", exp.Title, "err", err)
				continue
			}
			hub.broadcast(Event{Type: EventNodeAdded, Payload: child})

			lbl := exp.RelationLabel
			if lbl == "" {
				lbl = "relates to"
			}
			edge, err := r.store.CreateEdge(hub.roomID, node.ID, child.ID, lbl, false, user.ID)
			if err != nil {
				r.logger.Warn("skipping expansion edge", "title", exp.Title, "err", err)
				continue
			}
			hub.broadcast(Event{Type: EventEdgeAdded, Payload: edge})
			titles = append(titles, exp.Title)
		}
		r.logActivity(hub, store.Activity{
			RoomID: hub.roomID, UserID: user.ID, UserName: user.Name,
			Action: "expanded", TargetType: "node", TargetID: node.ID,
			Details: fmt.Sprintf("%s -> %s", node.Title, strings.Join(titles, ", ")),
		})
	}()
}

func (r *Router) handleElaborate(s *Session, raw json.RawMessage) {
	var p nodeIDPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		s.sendEvent(Event{Type: EventError, Payload: errorPayload{Message: "invalid elaborate request"}})
		return
	}
	hub, user := s.hub, s.user

	go func() {
		ctx, done := s.beginCall(callElaborate)
		defer done()

		node, err := r.store.GetNode(p.NodeID)
		if err != nil {
			r.reportError(s, err)
			return
		}
		text, err := r.svc.ElaborateConcept(ctx,
			concept.Concept{Title: node.Title, Description: node.Description})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			r.logger.Error("elaborate failed", "err", err)
			s.sendEvent(Event{Type: EventError, Payload: errorPayload{Message: "Failed to elaborate concept"}})
			return
		}

		hub.structural.Lock()
		defer hub.structural.Unlock()

		if err := r.store.SetNodeDescription(node.ID, text); err != nil {
			r.reportError(s, err)
			return
		}
		hub.broadcast(Event{Type: EventNodeUpdated, Payload: nodeUpdatedPayload{ID: node.ID, Description: &text}})
		r.logActivity(hub, store.Activity{
			RoomID: hub.roomID, UserID: user.ID, UserName: user.Name,
			Action: "elaborated", TargetType: "node", TargetID: node.ID, Details: node.Title,
		})
	}()
}

// --- plain structural intents ---

func (r *Router) handleEdit(s *Session, raw json.RawMessage) {
	var p editNodePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		s.sendEvent(Event{Type: EventError, Payload: errorPayload{Message: "invalid edit request"}})
		return
	}
	if p.Title == nil && p.Description == nil {
		return
	}
	hub, user := s.hub, s.user

	hub.structural.Lock()
	defer hub.structural.Unlock()

	node, err := r.store.UpdateNode(p.NodeID, p.Title, p.Description)
	if err != nil {
		r.reportError(s, err)
		return
	}
	hub.broadcast(Event{Type: EventNodeUpdated, Payload: nodeUpdatedPayload{ID: node.ID, Title: p.Title, Description: p.Description}})
	r.logActivity(hub, store.Activity{
		RoomID: hub.roomID, UserID: user.ID, UserName: user.Name,
		Action: "edited", TargetType: "node", TargetID: node.ID, Details: node.Title,
	})
}

func (r *Router) handlePrune(s *Session, raw json.RawMessage) {
	var p nodeIDPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		s.sendEvent(Event{Type: EventError, Payload: errorPayload{Message: "invalid prune request"}})
		return
	}
	hub, user := s.hub, s.user

	hub.structural.Lock()
	defer hub.structural.Unlock()

	node, err := r.store.GetNode(p.NodeID)
	if err != nil {
		r.reportError(s, err)
		return
	}
	if err := r.store.DeleteNode(node.ID); err != nil {
		r.reportError(s, err)
		return
	}
	hub.broadcast(Event{Type: EventNodeRemoved, Payload: nodeRemovedPayload{ID: node.ID}})
	r.logActivity(hub, store.Activity{
		RoomID: hub.roomID, UserID: user.ID, UserName: user.Name,
		Action: "pruned", TargetType: "node", TargetID: node.ID, Details: node.Title,
	})
}

func (r *Router) handleUpvote(s *Session, raw json.RawMessage) {
	var p nodeIDPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		s.sendEvent(Event{Type: EventError, Payload: errorPayload{Message: "invalid upvote request"}})
		return
	}
	hub := s.hub

	hub.structural.Lock()
	defer hub.structural.Unlock()

	count, err := r.store.ToggleUpvote(p.NodeID, s.user.ID)
	if err != nil {
		r.reportError(s, err)
		return
	}
	hub.broadcast(Event{Type: EventNodeUpvoted, Payload: nodeUpvotedPayload{ID: p.NodeID, Upvotes: count}})
}

func (r *Router) handleMerge(s *Session, raw json.RawMessage) {
	var p mergeNodesPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		s.sendEvent(Event{Type: EventError, Payload: errorPayload{Message: "invalid merge request"}})
		return
	}
	hub, user := s.hub, s.user

	go func() {
		ctx, done := s.beginCall(callMerge)
		defer done()

		keep, err := r.store.GetNode(p.KeepID)
		if err != nil {
			r.reportError(s, err)
			return
		}
		merge, err := r.store.GetNode(p.MergeID)
		if err != nil {
			r.reportError(s, err)
			return
		}

		merged, err := r.svc.SuggestMerge(ctx,
			concept.Concept{Title: keep.Title, Description: keep.Description},
			concept.Concept{Title: merge.Title, Description: merge.Description})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			r.logger.Error("merge suggestion failed", "err", err)
			s.sendEvent(Event{Type: EventError, Payload: errorPayload{Message: "Failed to merge concepts"}})
			return
		}

		hub.structural.Lock()
		defer hub.structural.Unlock()

		// MergeNodes re-verifies both nodes inside its transaction; a
		// concurrent prune between the reads above and this point surfaces
		// as NotFound here, with nothing written.
		result, err := r.store.MergeNodes(p.KeepID, p.MergeID, merged.Title, merged.Description, user.ID)
		if err != nil {
			r.reportError(s, err)
			return
		}
		hub.broadcast(Event{Type: EventNodesMerged, Payload: result})
		r.logActivity(hub, store.Activity{
			RoomID: hub.roomID, UserID: user.ID, UserName: user.Name,
			Action: "merged", TargetType: "node", TargetID: result.KeepID,
			Details: fmt.Sprintf("%s + %s -> %s", keep.Title, merge.Title, result.Title),
		})
	}()
}

// handleMove is fire-and-forget: persisted best-effort and forwarded only
// to other sessions, never echoed to the dragger.
func (r *Router) handleMove(s *Session, raw json.RawMessage) {
	var p moveNodePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	if err := r.store.MoveNode(p.NodeID, p.X, p.Y, p.Pinned); err != nil {
		r.logger.Warn("move persist failed", "node", p.NodeID, "err", err)
		return
	}
	s.hub.broadcastExcept(Event{Type: EventNodeMoved, Payload: nodeMovedPayload{
		ID: p.NodeID, X: p.X, Y: p.Y, Pinned: p.Pinned,
	}}, s)
}

func (r *Router) handleEditEdge(s *Session, raw json.RawMessage) {
	var p editEdgePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		s.sendEvent(Event{Type: EventError, Payload: errorPayload{Message: "invalid edge edit request"}})
		return
	}
	if p.Label == nil && p.Directed == nil && !p.Flip {
		return
	}
	hub, user := s.hub, s.user

	hub.structural.Lock()
	defer hub.structural.Unlock()

	if p.Label != nil {
		if err := r.store.UpdateEdgeLabel(p.EdgeID, *p.Label); err != nil {
			r.reportError(s, err)
			return
		}
	}
	if p.Directed != nil {
		if err := r.store.UpdateEdgeDirected(p.EdgeID, *p.Directed); err != nil {
			r.reportError(s, err)
			return
		}
	}
	var edge *graph.Edge
	var err error
	if p.Flip {
		edge, err = r.store.FlipEdge(p.EdgeID)
	} else {
		edge, err = r.store.GetEdge(p.EdgeID)
	}
	if err != nil {
		r.reportError(s, err)
		return
	}
	hub.broadcast(Event{Type: EventEdgeUpdated, Payload: edge})
	r.logActivity(hub, store.Activity{
		RoomID: hub.roomID, UserID: user.ID, UserName: user.Name,
		Action: "edited", TargetType: "edge", TargetID: edge.ID, Details: edge.Label,
	})
}

func (r *Router) handleDeleteEdge(s *Session, raw json.RawMessage) {
	var p deleteEdgePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		s.sendEvent(Event{Type: EventError, Payload: errorPayload{Message: "invalid delete request"}})
		return
	}
	hub := s.hub

	hub.structural.Lock()
	defer hub.structural.Unlock()

	if err := r.store.DeleteEdge(p.EdgeID); err != nil {
		r.reportError(s, err)
		return
	}
	hub.broadcast(Event{Type: EventEdgeRemoved, Payload: edgeRemovedPayload{ID: p.EdgeID}})
}

// --- presence ---

func (r *Router) handleHover(s *Session, raw json.RawMessage) {
	var p hoverPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	if p.NodeID == "" {
		r.handleUnhover(s)
		return
	}
	s.hub.setHover(s.user.ID, p.NodeID)
	s.hub.broadcastExcept(Event{Type: EventUserHover, Payload: userHoverPayload{
		UserID: s.user.ID, UserName: s.user.Name, Color: s.user.Color, NodeID: p.NodeID,
	}}, s)
}

func (r *Router) handleUnhover(s *Session) {
	s.hub.setHover(s.user.ID, "")
	s.hub.broadcastExcept(Event{Type: EventUserUnhover, Payload: userLeftPayload{UserID: s.user.ID}}, s)
}

// --- helpers ---

// logActivity appends to the durable activity log and broadcasts the entry.
func (r *Router) logActivity(hub *Hub, a store.Activity) {
	r.logActivityExcept(hub, nil, a)
}

func (r *Router) logActivityExcept(hub *Hub, except *Session, a store.Activity) {
	if err := r.store.AppendActivity(a); err != nil {
		r.logger.Error("appending activity", "err", err)
	}
	hub.broadcastExcept(Event{Type: EventActivity, Payload: newActivityPayload(
		a.UserName, a.Action, a.TargetType, a.TargetID, a.Details,
	)}, except)
}

// reportError translates a store error into an error event for the
// initiating session only. Store errors are never fatal to the session.
func (r *Router) reportError(s *Session, err error) {
	var msg string
	switch {
	case errors.Is(err, graph.ErrNodeNotFound):
		msg = "Node not found"
	case errors.Is(err, graph.ErrEdgeNotFound):
		msg = "Connection not found"
	case errors.Is(err, graph.ErrDuplicateEdge):
		msg = "Connection already exists"
	case errors.Is(err, graph.ErrSelfEdge):
		msg = "Cannot connect a concept to itself"
	case errors.Is(err, graph.ErrSameNodeMerge):
		msg = "Cannot merge a concept with itself"
	case errors.Is(err, graph.ErrEmptyTitle):
		msg = "Title must not be empty"
	default:
		r.logger.Error("store operation failed", "err", err)
		msg = "Operation failed"
	}
	s.sendEvent(Event{Type: EventError, Payload: errorPayload{Message: msg}})
}

func (r *Router) roomConcepts(roomID string) ([]concept.Concept, error) {
	nodes, err := r.store.ListNodes(roomID)
	if err != nil {
		return nil, err
	}
	return asConcepts(nodes), nil
}

func asConcepts(nodes []graph.Node) []concept.Concept {
	out := make([]concept.Concept, len(nodes))
	for i, n := range nodes {
		out[i] = concept.Concept{ID: n.ID, Title: n.Title, Description: n.Description}
	}
	return out
}

func pickNodes(nodes []graph.Node, ids []string) []graph.Node {
	if len(ids) == 0 {
		return nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []graph.Node
	for _, n := range nodes {
		if want[n.ID] {
			out = append(out, n)
		}
	}
	return out
}
