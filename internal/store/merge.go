package store

import (
	"database/sql"
	"fmt"

	"github.com/nickelm/tapestry/internal/graph"
)

// MergeResult is the committed outcome of collapsing two nodes, broadcast
// once to all room members.
type MergeResult struct {
	KeepID       string              `json:"keepId"`
	MergeID      string              `json:"mergeId"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	MergedCount  int                 `json:"merged_count"`
	Contributors []graph.Contributor `json:"contributors"`
	RemovedEdges []string            `json:"removed_edges,omitempty"`
}

// MergeNodes collapses merge into keep in a single transaction: provenance is
// recorded, keep takes the merged title/description, edges are reparented,
// self-loops produced by reparenting are deleted, contributor sets are
// unioned, and the merged-away node and its rows are removed.
//
// The merged title/description come from the concept service; the store
// treats them as opaque. Merging the same pair twice fails with
// graph.ErrNodeNotFound because the merged-away node no longer exists.
func (d *DB) MergeNodes(keepID, mergeID, mergedTitle, mergedDescription, actorID string) (*MergeResult, error) {
	if keepID == mergeID {
		return nil, graph.ErrSameNodeMerge
	}

	tx, err := d.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var mergeTitle, mergeDescription string
	err = tx.QueryRow(`SELECT title, description FROM nodes WHERE id = ?`, mergeID).
		Scan(&mergeTitle, &mergeDescription)
	if err != nil {
		return nil, graph.ErrNodeNotFound
	}
	var keepExists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM nodes WHERE id = ?`, keepID).Scan(&keepExists); err != nil {
		return nil, fmt.Errorf("checking keep node: %w", err)
	}
	if keepExists == 0 {
		return nil, graph.ErrNodeNotFound
	}

	// Provenance: remember what the merged-away node said.
	_, err = tx.Exec(`
		INSERT INTO merged_nodes (parent_id, original_title, original_description, merged_by)
		VALUES (?, ?, ?, ?)
	`, keepID, mergeTitle, mergeDescription, actorID)
	if err != nil {
		return nil, fmt.Errorf("recording provenance: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE nodes SET title = ?, description = ?,
			merged_count = merged_count + (SELECT merged_count FROM nodes WHERE id = ?)
		WHERE id = ?
	`, mergedTitle, mergedDescription, mergeID, keepID)
	if err != nil {
		return nil, fmt.Errorf("updating kept node: %w", err)
	}

	// Reparent edges from the merged-away node.
	if _, err := tx.Exec(`UPDATE edges SET source_id = ? WHERE source_id = ?`, keepID, mergeID); err != nil {
		return nil, fmt.Errorf("reparenting edge sources: %w", err)
	}
	if _, err := tx.Exec(`UPDATE edges SET target_id = ? WHERE target_id = ?`, keepID, mergeID); err != nil {
		return nil, fmt.Errorf("reparenting edge targets: %w", err)
	}

	// Reparenting creates a self-loop when keep and merge were directly
	// connected; self-loops are meaningless and must never survive.
	removed, err := collectSelfLoops(tx)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(`DELETE FROM edges WHERE source_id = target_id`); err != nil {
		return nil, fmt.Errorf("deleting self-loops: %w", err)
	}

	// Reparenting can also leave two edges on the same unordered pair when
	// keep and merge shared a neighbor. Keep the older edge, drop the rest.
	duplicates, err := collectDuplicatePairs(tx)
	if err != nil {
		return nil, err
	}
	for _, id := range duplicates {
		if _, err := tx.Exec(`DELETE FROM edges WHERE id = ?`, id); err != nil {
			return nil, fmt.Errorf("deleting duplicate edge: %w", err)
		}
	}
	removed = append(removed, duplicates...)

	// Union contributor sets without duplicating rows.
	_, err = tx.Exec(`
		INSERT OR IGNORE INTO node_contributors (node_id, user_id)
		SELECT ?, user_id FROM node_contributors WHERE node_id = ?
	`, keepID, mergeID)
	if err != nil {
		return nil, fmt.Errorf("merging contributors: %w", err)
	}

	for _, stmt := range []string{
		`DELETE FROM node_upvotes WHERE node_id = ?`,
		`DELETE FROM node_contributors WHERE node_id = ?`,
		`DELETE FROM nodes WHERE id = ?`,
	} {
		if _, err := tx.Exec(stmt, mergeID); err != nil {
			return nil, fmt.Errorf("removing merged node: %w", err)
		}
	}

	var mergedCount int
	if err := tx.QueryRow(`SELECT merged_count FROM nodes WHERE id = ?`, keepID).Scan(&mergedCount); err != nil {
		return nil, fmt.Errorf("reading merged count: %w", err)
	}

	contributors, err := contributorsTx(tx, keepID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing merge: %w", err)
	}

	return &MergeResult{
		KeepID:       keepID,
		MergeID:      mergeID,
		Title:        mergedTitle,
		Description:  mergedDescription,
		MergedCount:  mergedCount,
		Contributors: contributors,
		RemovedEdges: removed,
	}, nil
}

// collectSelfLoops returns the IDs of edges currently satisfying
// source_id == target_id, so the router can broadcast their removal.
func collectSelfLoops(tx *sql.Tx) ([]string, error) {
	rows, err := tx.Query(`SELECT id FROM edges WHERE source_id = target_id`)
	if err != nil {
		return nil, fmt.Errorf("finding self-loops: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// collectDuplicatePairs returns the IDs of every edge whose unordered
// endpoint pair is already covered by an earlier edge.
func collectDuplicatePairs(tx *sql.Tx) ([]string, error) {
	rows, err := tx.Query(`
		SELECT e.id FROM edges e WHERE EXISTS (
			SELECT 1 FROM edges o
			WHERE o.rowid < e.rowid AND o.room_id = e.room_id
			AND ((o.source_id = e.source_id AND o.target_id = e.target_id)
			  OR (o.source_id = e.target_id AND o.target_id = e.source_id))
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("finding duplicate edges: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// contributorsTx reads a node's contributor list inside a transaction.
func contributorsTx(tx *sql.Tx, nodeID string) ([]graph.Contributor, error) {
	rows, err := tx.Query(`
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
