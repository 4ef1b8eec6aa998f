package room

import (
	"encoding/json"
	"time"

	"github.com/nickelm/tapestry/internal/concept"
	"github.com/nickelm/tapestry/internal/graph"
	"github.com/nickelm/tapestry/internal/store"
)

// Event type names broadcast to sessions.
const (
	EventJoined       = "joined"
	EventLeftRoom     = "left-room"
	EventUserJoined   = "user-joined"
	EventUserLeft     = "user-left"
	EventUserCount    = "user-count"
	EventError        = "error"
	EventChatResponse = "chat-response"
	EventChatError    = "chat-error"
	EventSimilarFound = "similar-found"
	EventNodeAdded    = "node-added"
	EventNodeRemoved  = "node-removed"
	EventNodeUpdated  = "node-updated"
	EventNodeUpvoted  = "node-upvoted"
	EventNodeMoved    = "node-moved"
	EventNodesMerged  = "nodes-merged"
	EventEdgeAdded    = "edge-added"
	EventEdgeUpdated  = "edge-updated"
	EventEdgeRemoved  = "edge-removed"
	EventUserHover    = "user-hover"
	EventUserUnhover  = "user-unhover"
	EventActivity     = "activity"
)

// Event is the wire envelope for a server-to-client message.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// encode marshals an event for transmission. Marshaling only fails for
// unencodable payloads, which would be a programming error.
func (e Event) encode() []byte {
	raw, err := json.Marshal(e)
	if err != nil {
		raw, _ = json.Marshal(Event{Type: EventError, Payload: errorPayload{Message: "internal encoding error"}})
	}
	return raw
}

// User identifies a joined participant.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type joinedPayload struct {
	User User       `json:"user"`
	Room store.Room `json:"room"`
}

type userJoinedPayload struct {
	User User `json:"user"`
}

type userLeftPayload struct {
	UserID string `json:"userId"`
}

type userCountPayload struct {
	Count int `json:"count"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type chatResponsePayload struct {
	Text     string                     `json:"text"`
	Concepts []concept.ExtractedConcept `json:"concepts"`
}

type similarFoundPayload struct {
	NewConcept concept.Concept `json:"newConcept"`
	Duplicates []graph.Node    `json:"duplicates"`
	Related    []graph.Node    `json:"related"`
	Broader    []graph.Node    `json:"broader"`
}

type nodeRemovedPayload struct {
	ID string `json:"id"`
}

type nodeUpdatedPayload struct {
	ID          string  `json:"id"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

type nodeUpvotedPayload struct {
	ID      string `json:"id"`
	Upvotes int    `json:"upvotes"`
}

type nodeMovedPayload struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Pinned bool    `json:"pinned"`
}

type edgeRemovedPayload struct {
	ID string `json:"id"`
}

type userHoverPayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Color    string `json:"color"`
	NodeID   string `json:"nodeId"`
}

type activityPayload struct {
	UserName   string `json:"user_name"`
	Action     string `json:"action"`
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id,omitempty"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

func newActivityPayload(userName, action, targetType, targetID, details string) activityPayload {
	return activityPayload{
		UserName:   userName,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Details:    details,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
}
