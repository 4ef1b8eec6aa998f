package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/nickelm/tapestry/internal/graph"
)

const selectEdgeFields = `id, room_id, source_id, target_id, label, directed, created_by, created_at`

// CreateEdge inserts a new edge after verifying, in the same transaction,
// that both endpoints exist and that no edge already connects the unordered
// pair in this room. Combining the duplicate check with the insert closes the
// window where two near-simultaneous connect intents could both pass an
// optimistic check.
func (d *DB) CreateEdge(roomID, sourceID, targetID, label string, directed bool, creatorID string) (*graph.Edge, error) {
	e := &graph.Edge{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		SourceID:  sourceID,
		TargetID:  targetID,
		Label:     label,
		Directed:  directed,
		CreatedBy: creatorID,
	}
	if err := e.ValidateForCreate(); err != nil {
		return nil, err
	}

	tx, err := d.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var endpoints int
	err = tx.QueryRow(`
		SELECT COUNT(*) FROM nodes WHERE room_id = ? AND id IN (?, ?)
	`, roomID, sourceID, targetID).Scan(&endpoints)
	if err != nil {
		return nil, fmt.Errorf("checking endpoints: %w", err)
	}
	if endpoints != 2 {
		return nil, graph.ErrNodeNotFound
	}

	var duplicates int
	err = tx.QueryRow(`
		SELECT COUNT(*) FROM edges
		WHERE room_id = ?
		  AND ((source_id = ? AND target_id = ?) OR (source_id = ? AND target_id = ?))
	`, roomID, sourceID, targetID, targetID, sourceID).Scan(&duplicates)
	if err != nil {
		return nil, fmt.Errorf("checking duplicate edge: %w", err)
	}
	if duplicates > 0 {
		return nil, graph.ErrDuplicateEdge
	}

	_, err = tx.Exec(`
		INSERT INTO edges (id, room_id, source_id, target_id, label, directed, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, roomID, sourceID, targetID, label, boolToInt(directed), creatorID)
	if err != nil {
		return nil, fmt.Errorf("inserting edge: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing edge: %w", err)
	}
	return d.GetEdge(e.ID)
}

// GetEdge retrieves an edge by ID. Returns graph.ErrEdgeNotFound if unknown.
func (d *DB) GetEdge(id string) (*graph.Edge, error) {
	row := d.db.QueryRow(`SELECT `+selectEdgeFields+` FROM edges WHERE id = ?`, id)
	e, err := scanEdge(row)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, graph.ErrEdgeNotFound
	}
	return e, nil
}

// ListEdges returns all edges in a room.
func (d *DB) ListEdges(roomID string) ([]graph.Edge, error) {
	rows, err := d.db.Query(`
		SELECT `+selectEdgeFields+` FROM edges WHERE room_id = ? ORDER BY created_at, id
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("listing edges: %w", err)
	}
	defer rows.Close()

	var edges []graph.Edge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, *e)
	}
	return edges, rows.Err()
}

// UpdateEdgeLabel replaces an edge's label.
func (d *DB) UpdateEdgeLabel(id, label string) error {
	return d.updateEdge(`UPDATE edges SET label = ? WHERE id = ?`, label, id)
}

// UpdateEdgeDirected toggles whether an edge renders as directed.
func (d *DB) UpdateEdgeDirected(id string, directed bool) error {
	return d.updateEdge(`UPDATE edges SET directed = ? WHERE id = ?`, boolToInt(directed), id)
}

// FlipEdge swaps an edge's endpoints, reversing its direction.
func (d *DB) FlipEdge(id string) (*graph.Edge, error) {
	if err := d.updateEdge(`
		UPDATE edges SET source_id = target_id, target_id = source_id WHERE id = ?
	`, id); err != nil {
		return nil, err
	}
	return d.GetEdge(id)
}

// DeleteEdge removes an edge. Returns graph.ErrEdgeNotFound for an unknown
// id so the router reports it to the caller instead of broadcasting a
// removal that never happened.
func (d *DB) DeleteEdge(id string) error {
	return d.updateEdge(`DELETE FROM edges WHERE id = ?`, id)
}

func (d *DB) updateEdge(query string, args ...interface{}) error {
	res, err := d.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("updating edge: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return graph.ErrEdgeNotFound
	}
	return nil
}

func scanEdge(s scanner) (*graph.Edge, error) {
	var e graph.Edge
	var directed int
	err := s.Scan(&e.ID, &e.RoomID, &e.SourceID, &e.TargetID, &e.Label, &directed, &e.CreatedBy, &e.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	e.Directed = directed != 0
	return &e, nil
}
