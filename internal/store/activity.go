package store

import "fmt"

// Activity is one row of a room's action feed.
type Activity struct {
	RoomID     string `json:"room_id,omitempty"`
	UserID     string `json:"user_id,omitempty"`
	UserName   string `json:"user_name"`
	Action     string `json:"action"`
	TargetType string `json:"target_type,omitempty"`
	TargetID   string `json:"target_id,omitempty"`
	Details    string `json:"details,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// RecentActivityLimit bounds how much history the room snapshot carries.
const RecentActivityLimit = 100

// AppendActivity records one action in the room's feed.
func (d *DB) AppendActivity(a Activity) error {
	_, err := d.db.Exec(`
		INSERT INTO activity_log (room_id, user_id, user_name, action, target_type, target_id, details)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.RoomID, a.UserID, a.UserName, a.Action, a.TargetType, a.TargetID, a.Details)
	if err != nil {
		return fmt.Errorf("appending activity: %w", err)
	}
	return nil
}

// RecentActivity returns the most recent rows for a room, newest first,
// capped at RecentActivityLimit.
func (d *DB) RecentActivity(roomID string) ([]Activity, error) {
	rows, err := d.db.Query(`
		SELECT room_id, COALESCE(user_id, ''), COALESCE(user_name, ''),
		       action, COALESCE(target_type, ''), COALESCE(target_id, ''),
		       COALESCE(details, ''), created_at
		FROM activity_log
		WHERE room_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, roomID, RecentActivityLimit)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	defer rows.Close()

	var items []Activity
	for rows.Next() {
		var a Activity
		err := rows.Scan(&a.RoomID, &a.UserID, &a.UserName, &a.Action,
			&a.TargetType, &a.TargetID, &a.Details, &a.CreatedAt)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
