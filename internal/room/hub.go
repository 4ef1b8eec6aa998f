package room

import "sync"

// Hub is the per-room broadcast bus. It tracks connected sessions and
// ephemeral hover presence, and serializes structural mutations through a
// dedicated mutex so check-then-act sequences cannot interleave. Fan-out
// never blocks: a session whose send buffer is full is dropped.
type Hub struct {
	roomID string

	// structural serializes graph mutations and their broadcasts within the
	// room. It is never held across a concept-service call.
	structural sync.Mutex

	mu       sync.Mutex
	sessions map[*Session]struct{}
	hover    map[string]string // user id -> hovered node id
}

func newHub(roomID string) *Hub {
	return &Hub{
		roomID:   roomID,
		sessions: make(map[*Session]struct{}),
		hover:    make(map[string]string),
	}
}

// add registers a session and returns the new session count.
func (h *Hub) add(s *Session) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s] = struct{}{}
	return len(h.sessions)
}

// remove unregisters a session, clears the user's hover state, and returns
// the remaining session count. The user id is passed in because the router
// detaches the session from its user before removal.
func (h *Hub) remove(s *Session, userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, s)
	delete(h.hover, userID)
	return len(h.sessions)
}

func (h *Hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// broadcast sends an event to every session in the room.
func (h *Hub) broadcast(ev Event) {
	h.broadcastExcept(ev, nil)
}

// broadcastExcept sends an event to every session except one. Used for
// move and presence events, which the originator already applied locally.
func (h *Hub) broadcastExcept(ev Event, except *Session) {
	raw := ev.encode()
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.sessions {
		if s == except {
			continue
		}
		s.enqueue(raw)
	}
}

// setHover records a user's hovered node; empty node id clears it.
func (h *Hub) setHover(userID, nodeID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if nodeID == "" {
		delete(h.hover, userID)
	} else {
		h.hover[userID] = nodeID
	}
}

// Hubs is the registry of live room hubs.
type Hubs struct {
	mu    sync.Mutex
	rooms map[string]*Hub
}

// NewHubs creates an empty hub registry.
func NewHubs() *Hubs {
	return &Hubs{rooms: make(map[string]*Hub)}
}

// get returns the hub for a room, creating it on first use.
func (h *Hubs) get(roomID string) *Hub {
	h.mu.Lock()
	defer h.mu.Unlock()
	hub, ok := h.rooms[roomID]
	if !ok {
		hub = newHub(roomID)
		h.rooms[roomID] = hub
	}
	return hub
}

// Count returns the number of live sessions in a room.
func (h *Hubs) Count(roomID string) int {
	h.mu.Lock()
	hub, ok := h.rooms[roomID]
	h.mu.Unlock()
	if !ok {
		return 0
	}
	return hub.count()
}
