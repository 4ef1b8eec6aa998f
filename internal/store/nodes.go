package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/nickelm/tapestry/internal/graph"
)

// selectNodeFields is the standard field list for node SELECT queries.
const selectNodeFields = `id, room_id, title, description, x, y,
	pinned, hidden, upvotes, merged_count, created_by, created_at`

// CreateNode inserts a new node with a fresh ID and records its creator as
// the first contributor.
func (d *DB) CreateNode(roomID, title, description string, x, y float64, creatorID string) (*graph.Node, error) {
	n := &graph.Node{
		ID:          uuid.NewString(),
		RoomID:      roomID,
		Title:       title,
		Description: description,
		X:           x,
		Y:           y,
		CreatedBy:   creatorID,
	}
	if err := n.ValidateForCreate(); err != nil {
		return nil, err
	}

	tx, err := d.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO nodes (id, room_id, title, description, x, y, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, n.ID, roomID, title, description, x, y, creatorID)
	if err != nil {
		return nil, fmt.Errorf("inserting node: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO node_contributors (node_id, user_id) VALUES (?, ?)
	`, n.ID, creatorID)
	if err != nil {
		return nil, fmt.Errorf("inserting contributor: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing node: %w", err)
	}

	return d.GetNode(n.ID)
}

// GetNode retrieves a node with its contributor list. Returns
// graph.ErrNodeNotFound if the ID is unknown.
func (d *DB) GetNode(id string) (*graph.Node, error) {
	row := d.db.QueryRow(`SELECT `+selectNodeFields+` FROM nodes WHERE id = ?`, id)
	n, err := scanNode(row)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, graph.ErrNodeNotFound
	}
	n.Contributors, err = d.NodeContributors(id)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// ListNodes returns all nodes in a room with their contributor lists.
func (d *DB) ListNodes(roomID string) ([]graph.Node, error) {
	rows, err := d.db.Query(`
		SELECT `+selectNodeFields+` FROM nodes WHERE room_id = ? ORDER BY created_at, id
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}
	defer rows.Close()

	var nodes []graph.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range nodes {
		nodes[i].Contributors, err = d.NodeContributors(nodes[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return nodes, nil
}

// UpdateNode applies partial title/description edits. Nil pointers leave the
// field untouched. Returns the updated node.
func (d *DB) UpdateNode(id string, title, description *string) (*graph.Node, error) {
	if title == nil && description == nil {
		return d.GetNode(id)
	}

	query := "UPDATE nodes SET "
	var args []interface{}
	if title != nil {
		if *title == "" {
			return nil, graph.ErrEmptyTitle
		}
		query += "title = ?"
		args = append(args, *title)
	}
	if description != nil {
		if title != nil {
			query += ", "
		}
		query += "description = ?"
		args = append(args, *description)
	}
	query += " WHERE id = ?"
	args = append(args, id)

	res, err := d.db.Exec(query, args...)
	if err != nil {
		return nil, fmt.Errorf("updating node: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, graph.ErrNodeNotFound
	}
	return d.GetNode(id)
}

// MoveNode is a best-effort position update; an unknown ID is a silent no-op
// since moves race with deletion under normal use.
func (d *DB) MoveNode(id string, x, y float64, pinned bool) error {
	_, err := d.db.Exec(`
		UPDATE nodes SET x = ?, y = ?, pinned = ? WHERE id = ?
	`, x, y, boolToInt(pinned), id)
	if err != nil {
		return fmt.Errorf("moving node: %w", err)
	}
	return nil
}

// SetNodeDescription replaces only the description (used by elaborate).
func (d *DB) SetNodeDescription(id, description string) error {
	res, err := d.db.Exec(`UPDATE nodes SET description = ? WHERE id = ?`, description, id)
	if err != nil {
		return fmt.Errorf("updating description: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return graph.ErrNodeNotFound
	}
	return nil
}

// DeleteNode removes a node and cascades to its edges, contributor rows,
// upvote rows, and merge provenance.
func (d *DB) DeleteNode(id string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM nodes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting node: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return graph.ErrNodeNotFound
	}

	if _, err := tx.Exec(`DELETE FROM edges WHERE source_id = ? OR target_id = ?`, id, id); err != nil {
		return fmt.Errorf("deleting edges: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM node_contributors WHERE node_id = ?`, id); err != nil {
		return fmt.Errorf("deleting contributors: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM node_upvotes WHERE node_id = ?`, id); err != nil {
		return fmt.Errorf("deleting upvotes: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM merged_nodes WHERE parent_id = ?`, id); err != nil {
		return fmt.Errorf("deleting merge provenance: %w", err)
	}

	return tx.Commit()
}

// ToggleUpvote flips the (node, user) upvote row and returns the new count.
// Calling it twice returns the count to its original value.
func (d *DB) ToggleUpvote(nodeID, userID string) (int, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow(`
		SELECT COUNT(*) FROM node_upvotes WHERE node_id = ? AND user_id = ?
	`, nodeID, userID).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("checking upvote: %w", err)
	}

	if exists > 0 {
		if _, err := tx.Exec(`DELETE FROM node_upvotes WHERE node_id = ? AND user_id = ?`, nodeID, userID); err != nil {
			return 0, fmt.Errorf("removing upvote: %w", err)
		}
	} else {
		if _, err := tx.Exec(`INSERT INTO node_upvotes (node_id, user_id) VALUES (?, ?)`, nodeID, userID); err != nil {
			return 0, fmt.Errorf("adding upvote: %w", err)
		}
	}

	// Derive the stored count from the upvote rows so it can never drift.
	res, err := tx.Exec(`
		UPDATE nodes SET upvotes = (SELECT COUNT(*) FROM node_upvotes WHERE node_id = ?)
		WHERE id = ?
	`, nodeID, nodeID)
	if err != nil {
		return 0, fmt.Errorf("updating upvote count: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return 0, graph.ErrNodeNotFound
	}

	var count int
	if err := tx.QueryRow(`SELECT upvotes FROM nodes WHERE id = ?`, nodeID).Scan(&count); err != nil {
		return 0, fmt.Errorf("reading upvote count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

// NodeContributors returns the contributor list for a node, joined against
// the users table for display names and colors.
func (d *DB) NodeContributors(nodeID string) ([]graph.Contributor, error) {
	rows, err := d.db.Query(`
		SELECT u.id, u.name, u.color
		FROM node_contributors nc JOIN users u ON nc.user_id = u.id
		WHERE nc.node_id = ?
		ORDER BY nc.contributed_at, u.id
	`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("listing contributors: %w", err)
	}
	defer rows.Close()

	var contributors []graph.Contributor
	for rows.Next() {
		var c graph.Contributor
		if err := rows.Scan(&c.ID, &c.Name, &c.Color); err != nil {
			return nil, err
		}
		contributors = append(contributors, c)
	}
	return contributors, rows.Err()
}

// Upvote is an existence record: the user has upvoted the node.
type Upvote struct {
	NodeID string `json:"node_id"`
	UserID string `json:"user_id"`
}

// ListUpvotes returns all upvote rows for nodes in a room.
func (d *DB) ListUpvotes(roomID string) ([]Upvote, error) {
	rows, err := d.db.Query(`
		SELECT nu.node_id, nu.user_id
		FROM node_upvotes nu JOIN nodes n ON nu.node_id = n.id
		WHERE n.room_id = ?
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("listing upvotes: %w", err)
	}
	defer rows.Close()

	var upvotes []Upvote
	for rows.Next() {
		var u Upvote
		if err := rows.Scan(&u.NodeID, &u.UserID); err != nil {
			return nil, err
		}
		upvotes = append(upvotes, u)
	}
	return upvotes, rows.Err()
}

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanNode(s scanner) (*graph.Node, error) {
	var n graph.Node
	var pinned, hidden int
	err := s.Scan(
		&n.ID, &n.RoomID, &n.Title, &n.Description, &n.X, &n.Y,
		&pinned, &hidden, &n.Upvotes, &n.MergedCount, &n.CreatedBy, &n.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	n.Pinned = pinned != 0
	n.Hidden = hidden != 0
	return &n, nil
}
