package domain

import (
	"time"

	"github.com/google/uuid"
)

// RootName is the name of the pseudo-player that authors system chat.
const RootName = "root"

// Player is a registered account. Accounts are never deleted.
type Player struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedOn time.Time `json:"createdOn"`
}

// NewRoot builds the process-wide system player from the configured id.
func NewRoot(id uuid.UUID) *Player {
	return &Player{
		ID:        id,
		Name:      RootName,
		CreatedOn: time.Now().UTC(),
	}
}

// Session is the in-memory record of a connected player. It lives in the
// PlayerRoomPool from connect to disconnect and carries the per-room flags.
type Session struct {
	PlayerID uuid.UUID
	Name     string
	RoomID   int
	Ready    bool
	InGame   bool
}

func NewSession(player *Player, roomID int) *Session {
	return &Session{
		PlayerID: player.ID,
		Name:     player.Name,
		RoomID:   roomID,
	}
}
