package repository

import (
	"context"

	"wordchain/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type StatsRepository struct {
	db *pgxpool.Pool
}

func NewStatsRepository(db *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{db: db}
}

// AllTimeStats are the public aggregates over every finished game.
type AllTimeStats struct {
	LongestChain    int `json:"longestChain"`
	LongestGameTime int `json:"longestGameTime"`
	TotalGames      int `json:"totalGames"`
}

func (r *StatsRepository) AllTime(ctx context.Context) (AllTimeStats, error) {
	var stats AllTimeStats
	err := r.db.QueryRow(ctx,
		`SELECT
			COALESCE((
				SELECT MAX(chain) FROM (
					SELECT COUNT(*) AS chain
					FROM turns
					WHERE is_correct
					GROUP BY game_id
				) chains
			), 0),
			COALESCE((
				SELECT MAX(EXTRACT(EPOCH FROM ended_on - created_on))::int
				FROM games
				WHERE status = $1 AND ended_on IS NOT NULL
			), 0),
			(SELECT COUNT(*) FROM games WHERE status = $1)`,
		domain.GameEnded,
	).Scan(&stats.LongestChain, &stats.LongestGameTime, &stats.TotalGames)
	return stats, err
}
