package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roomledger/roomledger/internal/ledger"
	"github.com/roomledger/roomledger/internal/models"
)

// CreateRoom persists a new room and its initial member list.
func (s *SQLiteStore) CreateRoom(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.New().String()
	}
	if room.CreatedAt == 0 {
		room.CreatedAt = time.Now().Unix()
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO rooms (id, name, created_at) VALUES (?, ?, ?)",
		room.ID, room.Name, room.CreatedAt,
	)
	if err != nil {
		return wrapErr("insert room", err)
	}

	for _, userID := range room.Members {
		_, err = tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO room_members (room_id, user_id) VALUES (?, ?)",
			room.ID, userID,
		)
		if err != nil {
			return wrapErr("insert room member", err)
		}
	}

	return commit(tx)
}

// GetRoom retrieves a room with its member list.
func (s *SQLiteStore) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	room := &models.Room{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM rooms WHERE id = ?",
		roomID,
	).Scan(&room.ID, &room.Name, &room.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: room %s", ledger.ErrNotFound, roomID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id FROM room_members WHERE room_id = ? ORDER BY user_id",
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get room members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan room member: %w", err)
		}
		room.Members = append(room.Members, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate room members: %w", err)
	}

	return room, nil
}

// AddRoomMembers adds users to a room; already-present members are ignored.
func (s *SQLiteStore) AddRoomMembers(ctx context.Context, roomID string, userIDs []string) error {
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return err
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, userID := range userIDs {
		_, err = tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO room_members (room_id, user_id) VALUES (?, ?)",
			roomID, userID,
		)
		if err != nil {
			return wrapErr("insert room member", err)
		}
	}

	return commit(tx)
}

// IsRoomMember reports whether the user belongs to the room.
func (s *SQLiteStore) IsRoomMember(ctx context.Context, roomID, userID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM room_members WHERE room_id = ? AND user_id = ?",
		roomID, userID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check room membership: %w", err)
	}
	return true, nil
}
