package domain

import (
	"time"

	"github.com/google/uuid"
)

// LobbyName is the name of the distinguished room every player lands in.
const LobbyName = "lobby"

type RoomStatus string

const (
	RoomOpen       RoomStatus = "Open"
	RoomClosed     RoomStatus = "Closed"
	RoomInProgress RoomStatus = "In progress"
	RoomExpired    RoomStatus = "Expired"
)

// Room groups connected players. The pool is the sole lifetime authority;
// everything else refers to rooms by id.
type Room struct {
	ID           int
	Name         string
	Status       RoomStatus
	Capacity     int
	CreatedOn    time.Time
	LastActiveOn time.Time
	OwnerID      uuid.UUID
	OwnerName    string
	Rules        DeathmatchRules

	Players map[uuid.UUID]*Session
	Input   *WordInputBuffer
}

func NewRoom(id int, name string, capacity int, rules DeathmatchRules, owner *Player) *Room {
	now := time.Now().UTC()
	return &Room{
		ID:           id,
		Name:         name,
		Status:       RoomOpen,
		Capacity:     capacity,
		CreatedOn:    now,
		LastActiveOn: now,
		OwnerID:      owner.ID,
		OwnerName:    owner.Name,
		Rules:        rules,
		Players:      make(map[uuid.UUID]*Session),
		Input:        NewWordInputBuffer(),
	}
}

// NewLobby builds the special lobby room. Capacity is ignored for the lobby
// and it is never reaped.
func NewLobby(id int, root *Player) *Room {
	lobby := NewRoom(id, LobbyName, 0, DeathmatchRules{Type: DeathmatchType}, root)
	return lobby
}

// Touch records room activity for the reaper's idle check.
func (r *Room) Touch() {
	r.LastActiveOn = time.Now().UTC()
}

func (r *Room) IsFull() bool {
	return len(r.Players) >= r.Capacity
}
