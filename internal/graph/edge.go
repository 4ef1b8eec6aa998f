package graph

import "errors"

// Edge represents a labeled, optionally directed relationship between two
// nodes in the same room.
type Edge struct {
	ID        string `json:"id"`
	RoomID    string `json:"room_id,omitempty"`
	SourceID  string `json:"source_id"`
	TargetID  string `json:"target_id"`
	Label     string `json:"label"`
	Directed  bool   `json:"directed"`
	CreatedBy string `json:"created_by"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Validation errors.
var (
	ErrEmptySourceID = errors.New("source_id is required")
	ErrEmptyTargetID = errors.New("target_id is required")
	ErrSelfEdge      = errors.New("source_id and target_id cannot be the same")
	ErrDuplicateEdge = errors.New("an edge already connects these nodes")
	ErrEdgeNotFound  = errors.New("edge not found")
)

// ValidateForCreate validates an edge for creation. Duplicate-pair checking
// happens in the store, atomically with the insert.
func (e *Edge) ValidateForCreate() error {
	if e.SourceID == "" {
		return ErrEmptySourceID
	}
	if e.TargetID == "" {
		return ErrEmptyTargetID
	}
	if e.SourceID == e.TargetID {
		return ErrSelfEdge
	}
	return nil
}

// Touches reports whether the edge has the given node as either endpoint.
func (e *Edge) Touches(nodeID string) bool {
	return e.SourceID == nodeID || e.TargetID == nodeID
}

// Other returns the endpoint opposite the given node, or "" if the edge does
// not touch it.
func (e *Edge) Other(nodeID string) string {
	switch nodeID {
	case e.SourceID:
		return e.TargetID
	case e.TargetID:
		return e.SourceID
	}
	return ""
}

// PairKey returns a key identifying the unordered endpoint pair, used to
// detect duplicate connections regardless of direction.
func (e *Edge) PairKey() PairKey {
	return NewPairKey(e.SourceID, e.TargetID)
}

// PairKey is an order-independent identity for a pair of node IDs.
type PairKey struct {
	A, B string
}

// NewPairKey builds a PairKey with a canonical ordering.
func NewPairKey(a, b string) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}
