package room

import (
	"encoding/json"

	"github.com/nickelm/tapestry/internal/concept"
)

// Intent type names accepted over the websocket. Each frame is an envelope
// {"type": "...", "payload": {...}} whose payload shape is fixed per type.
const (
	IntentJoinRoom     = "join-room"
	IntentLeaveRoom    = "leave-room"
	IntentChat         = "chat"
	IntentCancelChat   = "cancel-chat"
	IntentHarvest      = "harvest"
	IntentForceHarvest = "force-harvest"
	IntentConnectNodes = "connect-nodes"
	IntentExpandNode   = "expand-node"
	IntentElaborate    = "elaborate-node"
	IntentEditNode     = "edit-node"
	IntentPruneNode    = "prune-node"
	IntentUpvoteNode   = "upvote-node"
	IntentMergeNodes   = "merge-nodes"
	IntentMoveNode     = "move-node"
	IntentEditEdge     = "edit-edge"
	IntentDeleteEdge   = "delete-edge"
	IntentHoverNode    = "hover-node"
	IntentUnhoverNode  = "unhover-node"
)

// Intent is the wire envelope for a client request.
type Intent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinRoomPayload struct {
	RoomID   string `json:"roomId"`
	UserName string `json:"userName"`
}

type chatPayload struct {
	Messages []concept.ChatMessage `json:"messages"`
}

type harvestPayload struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

type connectNodesPayload struct {
	SourceID string `json:"sourceId"`
	TargetID string `json:"targetId"`
}

type nodeIDPayload struct {
	NodeID string `json:"nodeId"`
}

type editNodePayload struct {
	NodeID      string  `json:"nodeId"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type mergeNodesPayload struct {
	KeepID  string `json:"keepId"`
	MergeID string `json:"mergeId"`
}

type moveNodePayload struct {
	NodeID string  `json:"nodeId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Pinned bool    `json:"pinned"`
}

type editEdgePayload struct {
	EdgeID   string  `json:"edgeId"`
	Label    *string `json:"label"`
	Directed *bool   `json:"directed"`
	Flip     bool    `json:"flip"`
}

type deleteEdgePayload struct {
	EdgeID string `json:"edgeId"`
}

type hoverPayload struct {
	NodeID string `json:"nodeId"`
}
