package store

import "github.com/nickelm/tapestry/internal/graph"

// Snapshot is the full room state served to a client on join. Mirrors are
// seeded from a snapshot and kept current by the event stream.
type Snapshot struct {
	Room     Room         `json:"room"`
	Nodes    []graph.Node `json:"nodes"`
	Edges    []graph.Edge `json:"edges"`
	Upvotes  []Upvote     `json:"upvotes"`
	Activity []Activity   `json:"activity"`
}

// RoomSnapshot assembles the current state of a room. The individual reads
// share the single store connection, so the snapshot is consistent with
// respect to any one mutation.
func (d *DB) RoomSnapshot(roomID string) (*Snapshot, error) {
	room, err := d.GetRoom(roomID)
	if err != nil {
		return nil, err
	}
	nodes, err := d.ListNodes(roomID)
	if err != nil {
		return nil, err
	}
	edges, err := d.ListEdges(roomID)
	if err != nil {
		return nil, err
	}
	upvotes, err := d.ListUpvotes(roomID)
	if err != nil {
		return nil, err
	}
	activity, err := d.RecentActivity(roomID)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Room:     *room,
		Nodes:    nodes,
		Edges:    edges,
		Upvotes:  upvotes,
		Activity: activity,
	}, nil
}
