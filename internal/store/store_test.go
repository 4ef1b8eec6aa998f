package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/nickelm/tapestry/internal/graph"
)

// setupTestDB creates a database with one room and two users.
func setupTestDB(t *testing.T) (*DB, *Room) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.sqlite3")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	room, err := db.CreateRoom("Test Room")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	for _, u := range [][3]string{
		{"alice", "Alice", "#ef4444"},
		{"bob", "Bob", "#3b82f6"},
	} {
		if err := db.CreateUser(u[0], u[1], u[2], room.ID); err != nil {
			t.Fatalf("CreateUser(%s): %v", u[0], err)
		}
	}
	return db, room
}

func mustCreateNode(t *testing.T, db *DB, roomID, title, creator string) *graph.Node {
	t.Helper()
	node, err := db.CreateNode(roomID, title, "", 10, 20, creator)
	if err != nil {
		t.Fatalf("CreateNode(%s): %v", title, err)
	}
	return node
}

func TestCreateRoomValidation(t *testing.T) {
	db, _ := setupTestDB(t)

	if _, err := db.CreateRoom(""); !errors.Is(err, graph.ErrEmptyRoomName) {
		t.Errorf("CreateRoom(\"\") error = %v, want ErrEmptyRoomName", err)
	}
	if _, err := db.GetRoom("nope"); !errors.Is(err, graph.ErrRoomNotFound) {
		t.Errorf("GetRoom(nope) error = %v, want ErrRoomNotFound", err)
	}
}

func TestCreateNodeRecordsContributor(t *testing.T) {
	db, room := setupTestDB(t)

	node := mustCreateNode(t, db, room.ID, "Photosynthesis", "alice")
	got, err := db.GetNode(node.ID)
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if got.Title != "Photosynthesis" {
		t.Errorf("Title = %q, want %q", got.Title, "Photosynthesis")
	}
	if len(got.Contributors) != 1 || got.Contributors[0].ID != "alice" {
		t.Errorf("Contributors = %+v, want [alice]", got.Contributors)
	}
	if got.MergedCount != 1 {
		t.Errorf("MergedCount = %d, want 1", got.MergedCount)
	}

	if _, err := db.CreateNode(room.ID, "", "", 0, 0, "alice"); !errors.Is(err, graph.ErrEmptyTitle) {
		t.Errorf("empty title error = %v, want ErrEmptyTitle", err)
	}
}

func TestUpdateNodePartial(t *testing.T) {
	db, room := setupTestDB(t)
	node := mustCreateNode(t, db, room.ID, "Old", "alice")

	desc := "new description"
	got, err := db.UpdateNode(node.ID, nil, &desc)
	if err != nil {
		t.Fatalf("UpdateNode: %v", err)
	}
	if got.Title != "Old" {
		t.Errorf("Title changed to %q on description-only update", got.Title)
	}
	if got.Description != desc {
		t.Errorf("Description = %q, want %q", got.Description, desc)
	}

	title := "New"
	if _, err := db.UpdateNode(node.ID, &title, nil); err != nil {
		t.Fatalf("UpdateNode title: %v", err)
	}
	got, _ = db.GetNode(node.ID)
	if got.Title != "New" || got.Description != desc {
		t.Errorf("after both updates: title=%q desc=%q", got.Title, got.Description)
	}
}

func TestToggleUpvoteRestoresCount(t *testing.T) {
	db, room := setupTestDB(t)
	node := mustCreateNode(t, db, room.ID, "Upvotable", "alice")

	count, err := db.ToggleUpvote(node.ID, "bob")
	if err != nil {
		t.Fatalf("ToggleUpvote: %v", err)
	}
	if count != 1 {
		t.Errorf("first toggle count = %d, want 1", count)
	}

	count, err = db.ToggleUpvote(node.ID, "bob")
	if err != nil {
		t.Fatalf("ToggleUpvote (second): %v", err)
	}
	if count != 0 {
		t.Errorf("second toggle count = %d, want 0", count)
	}

	// Distinct users accumulate independently.
	db.ToggleUpvote(node.ID, "alice")
	count, _ = db.ToggleUpvote(node.ID, "bob")
	if count != 2 {
		t.Errorf("count after two users = %d, want 2", count)
	}
}

func TestCreateEdgeDuplicateEitherDirection(t *testing.T) {
	db, room := setupTestDB(t)
	a := mustCreateNode(t, db, room.ID, "A", "alice")
	b := mustCreateNode(t, db, room.ID, "B", "alice")

	if _, err := db.CreateEdge(room.ID, a.ID, b.ID, "relates to", false, "alice"); err != nil {
		t.Fatalf("CreateEdge: %v", err)
	}
	if _, err := db.CreateEdge(room.ID, a.ID, b.ID, "again", false, "bob"); !errors.Is(err, graph.ErrDuplicateEdge) {
		t.Errorf("same direction duplicate error = %v, want ErrDuplicateEdge", err)
	}
	if _, err := db.CreateEdge(room.ID, b.ID, a.ID, "reverse", true, "bob"); !errors.Is(err, graph.ErrDuplicateEdge) {
		t.Errorf("reverse direction duplicate error = %v, want ErrDuplicateEdge", err)
	}

	if _, err := db.CreateEdge(room.ID, a.ID, a.ID, "self", false, "alice"); !errors.Is(err, graph.ErrSelfEdge) {
		t.Errorf("self edge error = %v, want ErrSelfEdge", err)
	}
	if _, err := db.CreateEdge(room.ID, a.ID, "ghost", "x", false, "alice"); !errors.Is(err, graph.ErrNodeNotFound) {
		t.Errorf("missing endpoint error = %v, want ErrNodeNotFound", err)
	}
}

func TestDeleteNodeCascadesEdges(t *testing.T) {
	db, room := setupTestDB(t)
	a := mustCreateNode(t, db, room.ID, "A", "alice")
	b := mustCreateNode(t, db, room.ID, "B", "alice")
	c := mustCreateNode(t, db, room.ID, "C", "alice")
	db.CreateEdge(room.ID, a.ID, b.ID, "x", false, "alice")
	db.CreateEdge(room.ID, b.ID, c.ID, "y", false, "alice")

	if err := db.DeleteNode(b.ID); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	edges, err := db.ListEdges(room.ID)
	if err != nil {
		t.Fatalf("ListEdges: %v", err)
	}
	if len(edges) != 0 {
		t.Errorf("edges after deleting shared endpoint = %d, want 0", len(edges))
	}
	if _, err := db.GetNode(b.ID); !errors.Is(err, graph.ErrNodeNotFound) {
		t.Errorf("GetNode(deleted) error = %v, want ErrNodeNotFound", err)
	}
	if err := db.DeleteNode(b.ID); !errors.Is(err, graph.ErrNodeNotFound) {
		t.Errorf("DeleteNode(deleted) error = %v, want ErrNodeNotFound", err)
	}
}

func TestMergeNodes(t *testing.T) {
	db, room := setupTestDB(t)
	keep := mustCreateNode(t, db, room.ID, "Solar power", "alice")
	merge, err := db.CreateNode(room.ID, "Solar energy", "", 0, 0, "bob")
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	other := mustCreateNode(t, db, room.ID, "Grid storage", "alice")

	// keep-merge becomes a self loop after reparenting; merge-other survives.
	if _, err := db.CreateEdge(room.ID, keep.ID, merge.ID, "same as", false, "alice"); err != nil {
		t.Fatalf("CreateEdge: %v", err)
	}
	if _, err := db.CreateEdge(room.ID, merge.ID, other.ID, "feeds", true, "bob"); err != nil {
		t.Fatalf("CreateEdge: %v", err)
	}

	result, err := db.MergeNodes(keep.ID, merge.ID, "Solar power", "Combined description", "alice")
	if err != nil {
		t.Fatalf("MergeNodes: %v", err)
	}
	if result.KeepID != keep.ID || result.MergeID != merge.ID {
		t.Errorf("result ids = %s/%s, want %s/%s", result.KeepID, result.MergeID, keep.ID, merge.ID)
	}
	if result.MergedCount != 2 {
		t.Errorf("MergedCount = %d, want 2", result.MergedCount)
	}
	if len(result.RemovedEdges) != 1 {
		t.Errorf("RemovedEdges = %v, want one self-loop", result.RemovedEdges)
	}
	if len(result.Contributors) != 2 {
		t.Errorf("Contributors = %+v, want union of alice and bob", result.Contributors)
	}

	if _, err := db.GetNode(merge.ID); !errors.Is(err, graph.ErrNodeNotFound) {
		t.Errorf("merged-away node still present: %v", err)
	}
	edges, _ := db.ListEdges(room.ID)
	if len(edges) != 1 {
		t.Fatalf("edges after merge = %d, want 1", len(edges))
	}
	if edges[0].SourceID != keep.ID || edges[0].TargetID != other.ID {
		t.Errorf("surviving edge = %s->%s, want %s->%s", edges[0].SourceID, edges[0].TargetID, keep.ID, other.ID)
	}

	// Merging the same pair again must fail: the merged node is gone.
	if _, err := db.MergeNodes(keep.ID, merge.ID, "x", "y", "alice"); !errors.Is(err, graph.ErrNodeNotFound) {
		t.Errorf("repeat merge error = %v, want ErrNodeNotFound", err)
	}
	if _, err := db.MergeNodes(keep.ID, keep.ID, "x", "y", "alice"); !errors.Is(err, graph.ErrSameNodeMerge) {
		t.Errorf("self merge error = %v, want ErrSameNodeMerge", err)
	}
}

func TestMergeCollapsesParallelEdges(t *testing.T) {
	db, room := setupTestDB(t)
	keep := mustCreateNode(t, db, room.ID, "A", "alice")
	merge := mustCreateNode(t, db, room.ID, "B", "alice")
	c := mustCreateNode(t, db, room.ID, "C", "alice")

	// Both A and B connect to C; after the merge only one A-C edge may remain.
	db.CreateEdge(room.ID, keep.ID, c.ID, "x", false, "alice")
	db.CreateEdge(room.ID, merge.ID, c.ID, "y", false, "alice")

	result, err := db.MergeNodes(keep.ID, merge.ID, "AB", "", "alice")
	if err != nil {
		t.Fatalf("MergeNodes: %v", err)
	}
	edges, _ := db.ListEdges(room.ID)
	if len(edges) != 1 {
		t.Errorf("edges after merge = %d, want 1 (parallel edge collapsed)", len(edges))
	}
	if len(result.RemovedEdges) != 1 {
		t.Errorf("RemovedEdges = %v, want the collapsed duplicate", result.RemovedEdges)
	}
}

func TestMoveNodePersistsPin(t *testing.T) {
	db, room := setupTestDB(t)
	node := mustCreateNode(t, db, room.ID, "Movable", "alice")

	if err := db.MoveNode(node.ID, -120, 45, true); err != nil {
		t.Fatalf("MoveNode: %v", err)
	}
	got, _ := db.GetNode(node.ID)
	if got.X != -120 || got.Y != 45 {
		t.Errorf("position = (%v,%v), want (-120,45)", got.X, got.Y)
	}
	if !got.Pinned {
		t.Error("Pinned = false after pinning move")
	}
	// moves race with deletion, so an unknown id is a silent no-op
	if err := db.MoveNode("ghost", 0, 0, false); err != nil {
		t.Errorf("MoveNode(ghost) error = %v, want nil", err)
	}
	got, _ = db.GetNode(node.ID)
	if got.X != -120 || got.Y != 45 || !got.Pinned {
		t.Errorf("ghost move disturbed existing node: (%v,%v) pinned=%v", got.X, got.Y, got.Pinned)
	}
}

func TestRoomSnapshot(t *testing.T) {
	db, room := setupTestDB(t)
	a := mustCreateNode(t, db, room.ID, "A", "alice")
	b := mustCreateNode(t, db, room.ID, "B", "bob")
	db.CreateEdge(room.ID, a.ID, b.ID, "links", false, "alice")
	db.ToggleUpvote(a.ID, "bob")
	db.AppendActivity(Activity{
		RoomID: room.ID, UserID: "alice", UserName: "Alice",
		Action: "harvested", TargetType: "node", TargetID: a.ID, Details: "A",
	})

	snap, err := db.RoomSnapshot(room.ID)
	if err != nil {
		t.Fatalf("RoomSnapshot: %v", err)
	}
	if snap.Room.ID != room.ID {
		t.Errorf("snapshot room = %s, want %s", snap.Room.ID, room.ID)
	}
	if len(snap.Nodes) != 2 || len(snap.Edges) != 1 {
		t.Errorf("snapshot has %d nodes, %d edges; want 2, 1", len(snap.Nodes), len(snap.Edges))
	}
	if len(snap.Upvotes) != 1 || snap.Upvotes[0].NodeID != a.ID {
		t.Errorf("snapshot upvotes = %+v", snap.Upvotes)
	}
	if len(snap.Activity) == 0 {
		t.Error("snapshot activity empty")
	}

	if _, err := db.RoomSnapshot("ghost"); !errors.Is(err, graph.ErrRoomNotFound) {
		t.Errorf("RoomSnapshot(ghost) error = %v, want ErrRoomNotFound", err)
	}
}
