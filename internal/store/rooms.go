package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/nickelm/tapestry/internal/graph"
)

// Room is a named collaborative space holding one shared graph.
type Room struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// CreateRoom creates a new room with a fresh ID.
func (d *DB) CreateRoom(name string) (*Room, error) {
	if name == "" {
		return nil, graph.ErrEmptyRoomName
	}

	id := uuid.NewString()
	if _, err := d.db.Exec(`INSERT INTO rooms (id, name) VALUES (?, ?)`, id, name); err != nil {
		return nil, fmt.Errorf("inserting room: %w", err)
	}
	return d.GetRoom(id)
}

// GetRoom retrieves a room by ID. Returns graph.ErrRoomNotFound if the ID is
// unknown.
func (d *DB) GetRoom(id string) (*Room, error) {
	var r Room
	err := d.db.QueryRow(`
		SELECT id, name, created_at FROM rooms WHERE id = ?
	`, id).Scan(&r.ID, &r.Name, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, graph.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying room: %w", err)
	}
	return &r, nil
}

// ListRooms returns all rooms, newest first.
func (d *DB) ListRooms() ([]Room, error) {
	rows, err := d.db.Query(`
		SELECT id, name, created_at FROM rooms ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing rooms: %w", err)
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var r Room
		if err := rows.Scan(&r.ID, &r.Name, &r.CreatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

// CreateUser records a connected participant. Users are scoped to the room
// they joined; the ID is fresh per connection, matching the session model.
func (d *DB) CreateUser(id, name, color, roomID string) error {
	_, err := d.db.Exec(`
		INSERT OR REPLACE INTO users (id, name, color, room_id) VALUES (?, ?, ?, ?)
	`, id, name, color, roomID)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// GetUser retrieves a user as a contributor record.
func (d *DB) GetUser(id string) (*graph.Contributor, error) {
	var c graph.Contributor
	err := d.db.QueryRow(`
		SELECT id, name, color FROM users WHERE id = ?
	`, id).Scan(&c.ID, &c.Name, &c.Color)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &c, nil
}
