package repository

import (
	"context"
	"encoding/json"
	"time"

	"wordchain/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type GameRepository struct {
	db *pgxpool.Pool
}

func NewGameRepository(db *pgxpool.Pool) *GameRepository {
	return &GameRepository{db: db}
}

// CreateStarted mints the game row when the owner starts the game, so the
// in-memory engine gets its id before the first turn. The player links are
// written in the same transaction.
func (r *GameRepository) CreateStarted(ctx context.Context, roomID int, rules domain.DeathmatchRules, playerIDs []uuid.UUID) (int, error) {
	rulesJSON, err := json.Marshal(rules)
	if err != nil {
		return 0, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var gameID int
	err = tx.QueryRow(ctx,
		`INSERT INTO games (status, rules, room_id)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		domain.GameStarted, rulesJSON, roomID,
	).Scan(&gameID)
	if err != nil {
		return 0, err
	}

	batch := &pgx.Batch{}
	for _, playerID := range playerIDs {
		batch.Queue(
			`INSERT INTO players_games (player_id, game_id) VALUES ($1, $2)`,
			playerID, gameID,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, err
	}

	return gameID, tx.Commit(ctx)
}

// Finish seals the game row and bulk-inserts its turns. A timed-out turn
// keeps word and is_correct NULL together, matching the table check.
func (r *GameRepository) Finish(ctx context.Context, gameID int, endedOn time.Time, turns []*domain.Turn) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE games SET status = $2, ended_on = $3 WHERE id = $1`,
		gameID, domain.GameEnded, endedOn,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return translate(pgx.ErrNoRows, "game not found", "")
	}

	batch := &pgx.Batch{}
	for _, turn := range turns {
		var word *string
		var isCorrect *bool
		if turn.Word != nil {
			word = &turn.Word.Content
			isCorrect = &turn.Word.IsCorrect
		}
		batch.Queue(
			`INSERT INTO turns (word, is_correct, started_on, ended_on, game_id, player_id)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			word, isCorrect, turn.StartedOn, turn.EndedOn, gameID, turn.PlayerID,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
