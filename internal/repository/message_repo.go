package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// SaveMessage persists one chat message and returns the generated id and
// timestamp for the broadcast payload.
func (r *MessageRepository) SaveMessage(ctx context.Context, content string, roomID int, playerID uuid.UUID) (int64, time.Time, error) {
	var id int64
	var createdOn time.Time
	err := r.db.QueryRow(ctx,
		`INSERT INTO messages (content, room_id, player_id)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_on`,
		content, roomID, playerID,
	).Scan(&id, &createdOn)
	if err != nil {
		return 0, time.Time{}, err
	}
	return id, createdOn, nil
}
