// Package store implements the durable per-room graph state on SQLite.
//
// The store is the single source of truth for nodes, edges, contributors and
// upvotes. Every operation is atomic: the connection pool is limited to one
// connection and multi-statement operations run inside transactions, so
// check-then-act sequences (duplicate-edge check, merge preconditions) cannot
// interleave with other writers.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// Open opens or creates a SQLite database at the given path.
// Use ":memory:" for an ephemeral database in tests.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS rooms (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
		);

		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			color TEXT NOT NULL,
			room_id TEXT NOT NULL,
			connected_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
		);

		CREATE TABLE IF NOT EXISTS nodes (
			id TEXT PRIMARY KEY,
			room_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			x REAL NOT NULL DEFAULT 0,
			y REAL NOT NULL DEFAULT 0,
			pinned INTEGER NOT NULL DEFAULT 0,
			hidden INTEGER NOT NULL DEFAULT 0,
			upvotes INTEGER NOT NULL DEFAULT 0,
			merged_count INTEGER NOT NULL DEFAULT 1,
			created_by TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
		);

		CREATE INDEX IF NOT EXISTS idx_nodes_room ON nodes(room_id);

		CREATE TABLE IF NOT EXISTS node_contributors (
			node_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			contributed_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
			PRIMARY KEY (node_id, user_id)
		);

		CREATE TABLE IF NOT EXISTS node_upvotes (
			node_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			PRIMARY KEY (node_id, user_id)
		);

		CREATE TABLE IF NOT EXISTS edges (
			id TEXT PRIMARY KEY,
			room_id TEXT NOT NULL,
			source_id TEXT NOT NULL,
			target_id TEXT NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			directed INTEGER NOT NULL DEFAULT 1,
			created_by TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
		);

		CREATE INDEX IF NOT EXISTS idx_edges_room ON edges(room_id);
		CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id);
		CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id);

		-- Provenance for merged-away nodes, keyed to the surviving node.
		CREATE TABLE IF NOT EXISTS merged_nodes (
			parent_id TEXT NOT NULL,
			original_title TEXT NOT NULL,
			original_description TEXT NOT NULL DEFAULT '',
			merged_by TEXT NOT NULL,
			merged_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
		);

		CREATE TABLE IF NOT EXISTS activity_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id TEXT NOT NULL,
			user_id TEXT,
			user_name TEXT,
			action TEXT NOT NULL,
			target_type TEXT,
			target_id TEXT,
			details TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
		);

		CREATE INDEX IF NOT EXISTS idx_activity_room ON activity_log(room_id);
	`

	_, err := db.Exec(schema)
	return err
}

// boolToInt converts a bool to the 0/1 representation stored in SQLite.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
