package repository

import (
	"context"

	"wordchain/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PlayerRepository struct {
	db *pgxpool.Pool
}

func NewPlayerRepository(db *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// Create registers a new player. The name carries a unique constraint, so a
// duplicate comes back as a Conflict.
func (r *PlayerRepository) Create(ctx context.Context, name string) (*domain.Player, error) {
	p := &domain.Player{Name: name}
	err := r.db.QueryRow(ctx,
		`INSERT INTO players (id, name)
		 VALUES (gen_random_uuid(), $1)
		 RETURNING id, created_on`,
		name,
	).Scan(&p.ID, &p.CreatedOn)
	if err != nil {
		return nil, translate(err, "player not found", "player with name "+name+" already exists")
	}
	return p, nil
}

func (r *PlayerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Player, error) {
	p := &domain.Player{}
	err := r.db.QueryRow(ctx,
		`SELECT id, name, created_on FROM players WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.CreatedOn)
	if err != nil {
		return nil, translate(err, "player "+id.String()+" not found", "")
	}
	return p, nil
}

// EnsureRoot upserts the system pseudo-player row at startup.
func (r *PlayerRepository) EnsureRoot(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO players (id, name)
		 VALUES ($1, $2)
		 ON CONFLICT (id) DO NOTHING`,
		id, domain.RootName,
	)
	return err
}
