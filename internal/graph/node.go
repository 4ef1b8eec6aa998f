// Package graph defines the core domain types for the shared concept graph.
package graph

import "errors"

// Node represents a concept card in a room's shared graph.
type Node struct {
	ID          string  `json:"id"`
	RoomID      string  `json:"room_id,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`

	// Pinned positions are authoritative from the store and excluded from
	// simulation. Hidden nodes simulate and route but are never drawn.
	Pinned bool `json:"pinned"`
	Hidden bool `json:"hidden"`

	Upvotes     int    `json:"upvotes"`
	MergedCount int    `json:"merged_count"`
	CreatedBy   string `json:"created_by"`
	CreatedAt   string `json:"created_at,omitempty"`

	Contributors []Contributor `json:"contributors,omitempty"`
}

// Contributor identifies a user who created a node or was folded into it
// by a merge.
type Contributor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Validation errors.
var (
	ErrEmptyTitle    = errors.New("title is required")
	ErrNodeNotFound  = errors.New("node not found")
	ErrRoomNotFound  = errors.New("room not found")
	ErrEmptyRoomName = errors.New("room name is required")
	ErrSameNodeMerge = errors.New("keep and merge nodes cannot be the same")
)

// ValidateForCreate validates a node for creation.
func (n *Node) ValidateForCreate() error {
	if n.Title == "" {
		return ErrEmptyTitle
	}
	return nil
}

// HasContributor reports whether the user already appears in the node's
// contributor list.
func (n *Node) HasContributor(userID string) bool {
	for _, c := range n.Contributors {
		if c.ID == userID {
			return true
		}
	}
	return false
}
