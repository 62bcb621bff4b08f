package repository

import (
	"context"
	"time"

	"wordchain/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type RoomRepository struct {
	db *pgxpool.Pool
}

func NewRoomRepository(db *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create mints a new room row and returns its id. The room name is unique
// across live and expired rooms alike.
func (r *RoomRepository) Create(ctx context.Context, name string) (int, time.Time, error) {
	var id int
	var createdOn time.Time
	err := r.db.QueryRow(ctx,
		`INSERT INTO rooms (name)
		 VALUES ($1)
		 RETURNING id, created_on`,
		name,
	).Scan(&id, &createdOn)
	if err != nil {
		return 0, time.Time{}, translate(err, "room not found", "room with name "+name+" already exists")
	}
	return id, createdOn, nil
}

// EnsureLobby upserts the lobby row under its fixed id at startup and bumps
// the id sequence past it so generated ids never collide.
func (r *RoomRepository) EnsureLobby(ctx context.Context, id int) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO rooms (id, name)
		 VALUES ($1, $2)
		 ON CONFLICT (id) DO NOTHING`,
		id, domain.LobbyName,
	)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`SELECT setval(pg_get_serial_sequence('rooms', 'id'),
		               GREATEST((SELECT MAX(id) FROM rooms), $1))`,
		id,
	)
	return err
}

func (r *RoomRepository) Touch(ctx context.Context, id int, lastActiveOn time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE rooms SET last_active_on = $2 WHERE id = $1`,
		id, lastActiveOn,
	)
	return err
}

// MarkEnded seals the room row; the reaper calls it when the room leaves
// the pool or turns out to be lost to a crash.
func (r *RoomRepository) MarkEnded(ctx context.Context, id int, endedOn time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE rooms SET ended_on = $2 WHERE id = $1 AND ended_on IS NULL`,
		id, endedOn,
	)
	return err
}

// UnendedIDs lists every room the database still considers alive, the lobby
// excluded.
func (r *RoomRepository) UnendedIDs(ctx context.Context, lobbyID int) ([]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id FROM rooms WHERE ended_on IS NULL AND id <> $1`,
		lobbyID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
