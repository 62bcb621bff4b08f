// Package pool holds the single authoritative in-memory registry of
// connected players and live rooms. Every index mutation happens under one
// mutex; all other components refer to players and rooms by id and go
// through the pool for lookups.
package pool

import (
	"sync"
	"time"

	"wordchain/internal/apperr"
	"wordchain/internal/domain"

	"github.com/google/uuid"
)

type PlayerRoomPool struct {
	mu      sync.Mutex
	lobbyID int
	rooms   map[int]*domain.Room
	players map[uuid.UUID]*domain.Session
}

// New seeds the pool with the lobby, which is never removed.
func New(lobby *domain.Room) *PlayerRoomPool {
	return &PlayerRoomPool{
		lobbyID: lobby.ID,
		rooms:   map[int]*domain.Room{lobby.ID: lobby},
		players: make(map[uuid.UUID]*domain.Session),
	}
}

func (p *PlayerRoomPool) LobbyID() int {
	return p.lobbyID
}

func (p *PlayerRoomPool) ActivePlayers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.players)
}

// ActiveRooms excludes the lobby.
func (p *PlayerRoomPool) ActiveRooms() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.rooms) - 1
}

// AddPlayer inserts the session into the player index and the target room.
func (p *PlayerRoomPool) AddPlayer(session *domain.Session, roomID int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.players[session.PlayerID]; ok {
		return apperr.Newf(apperr.KindConflict, "player %s is already in the pool", session.PlayerID)
	}
	room, ok := p.rooms[roomID]
	if !ok {
		return apperr.Newf(apperr.KindNotFound, "room %d does not exist", roomID)
	}

	session.RoomID = roomID
	room.Players[session.PlayerID] = session
	room.Touch()
	p.players[session.PlayerID] = session
	return nil
}

// RemovePlayer drops the session from both indices and returns it.
func (p *PlayerRoomPool) RemovePlayer(playerID uuid.UUID) (*domain.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	session, ok := p.players[playerID]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "player %s is not in the pool", playerID)
	}

	delete(p.players, playerID)
	if room, ok := p.rooms[session.RoomID]; ok {
		delete(room.Players, playerID)
		room.Touch()
	}
	return session, nil
}

func (p *PlayerRoomPool) GetPlayer(playerID uuid.UUID) (*domain.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	session, ok := p.players[playerID]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "player %s is not in the pool", playerID)
	}
	return session, nil
}

func (p *PlayerRoomPool) GetRoom(roomID int) (*domain.Room, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.getRoomLocked(roomID)
}

// GetRoomByPlayer resolves the room the player currently sits in.
func (p *PlayerRoomPool) GetRoomByPlayer(playerID uuid.UUID) (*domain.Room, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	session, ok := p.players[playerID]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "player %s is not in the pool", playerID)
	}
	return p.getRoomLocked(session.RoomID)
}

func (p *PlayerRoomPool) getRoomLocked(roomID int) (*domain.Room, error) {
	room, ok := p.rooms[roomID]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "room %d does not exist", roomID)
	}
	return room, nil
}

// GetRoomPlayers returns a snapshot of the room's members in no particular
// order.
func (p *PlayerRoomPool) GetRoomPlayers(roomID int) ([]*domain.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	room, err := p.getRoomLocked(roomID)
	if err != nil {
		return nil, err
	}

	players := make([]*domain.Session, 0, len(room.Players))
	for _, session := range room.Players {
		players = append(players, session)
	}
	return players, nil
}

func (p *PlayerRoomPool) CreateRoom(room *domain.Room) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.rooms[room.ID]; ok {
		return apperr.Newf(apperr.KindConflict, "room %d already exists", room.ID)
	}
	p.rooms[room.ID] = room
	return nil
}

// RemoveRoom drops an empty room. Removing a room that still has members
// is a bug in the caller.
func (p *PlayerRoomPool) RemoveRoom(roomID int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	room, ok := p.rooms[roomID]
	if !ok {
		return apperr.Newf(apperr.KindNotFound, "room %d does not exist", roomID)
	}
	if len(room.Players) > 0 {
		return apperr.Newf(apperr.KindBadState, "room %d still has %d players", roomID, len(room.Players))
	}
	delete(p.rooms, roomID)
	return nil
}

// Rooms returns a snapshot of every room except the lobby.
func (p *PlayerRoomPool) Rooms() []*domain.Room {
	p.mu.Lock()
	defer p.mu.Unlock()

	rooms := make([]*domain.Room, 0, len(p.rooms)-1)
	for id, room := range p.rooms {
		if id == p.lobbyID {
			continue
		}
		rooms = append(rooms, room)
	}
	return rooms
}

// WithRoom runs fn on the room under the pool lock. Shared room state is
// read and mutated only through this method.
func (p *PlayerRoomPool) WithRoom(roomID int, fn func(*domain.Room) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	room, err := p.getRoomLocked(roomID)
	if err != nil {
		return err
	}
	return fn(room)
}

// View runs fn under the pool lock with the lobby, every other room and the
// connected player count. fn must not retain the room pointers.
func (p *PlayerRoomPool) View(fn func(lobby *domain.Room, rooms []*domain.Room, activePlayers int)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rooms := make([]*domain.Room, 0, len(p.rooms)-1)
	for id, room := range p.rooms {
		if id == p.lobbyID {
			continue
		}
		rooms = append(rooms, room)
	}
	fn(p.rooms[p.lobbyID], rooms, len(p.players))
}

// RemoveIfIdle removes the room when it has no players and has not been
// active since cutoff. The lobby is never removed.
func (p *PlayerRoomPool) RemoveIfIdle(roomID int, cutoff time.Time) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	room, err := p.getRoomLocked(roomID)
	if err != nil {
		return false, err
	}
	if roomID == p.lobbyID || len(room.Players) > 0 || room.LastActiveOn.After(cutoff) {
		return false, nil
	}
	delete(p.rooms, roomID)
	return true, nil
}

// MovePlayer reassigns the player between rooms and clears the per-room
// flags. Both indices are updated under one lock acquisition.
func (p *PlayerRoomPool) MovePlayer(playerID uuid.UUID, fromRoomID, toRoomID int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	session, ok := p.players[playerID]
	if !ok || session.RoomID != fromRoomID {
		return apperr.Newf(apperr.KindBadState, "player %s is not in room %d", playerID, fromRoomID)
	}
	from, ok := p.rooms[fromRoomID]
	if !ok {
		return apperr.Newf(apperr.KindNotFound, "room %d does not exist", fromRoomID)
	}
	to, ok := p.rooms[toRoomID]
	if !ok {
		return apperr.Newf(apperr.KindNotFound, "room %d does not exist", toRoomID)
	}

	delete(from.Players, playerID)
	session.RoomID = toRoomID
	session.Ready = false
	session.InGame = false
	to.Players[playerID] = session

	from.Touch()
	to.Touch()
	return nil
}
