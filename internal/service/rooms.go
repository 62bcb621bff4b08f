package service

import (
	"context"
	"fmt"
	"time"

	"wordchain/internal/apperr"
	"wordchain/internal/domain"
	"wordchain/internal/game"
	"wordchain/internal/logger"
	"wordchain/internal/pool"
	"wordchain/internal/ws"

	"github.com/google/uuid"
)

// RoomConnections is the slice of the connection manager the room
// lifecycle needs.
type RoomConnections interface {
	BroadcastRoomState(roomID int, state ws.RoomState) error
	BroadcastLobbyState(delta ws.LobbyState) error
	SendAction(action string, playerID uuid.UUID) error
	MovePlayer(playerID uuid.UUID, fromRoomID, toRoomID int) error
}

// RoomRecords mints and touches room rows.
type RoomRecords interface {
	Create(ctx context.Context, name string) (int, time.Time, error)
	Touch(ctx context.Context, id int, lastActiveOn time.Time) error
}

// GameRecords mints the game row at start so the engine gets its id.
type GameRecords interface {
	CreateStarted(ctx context.Context, roomID int, rules domain.DeathmatchRules, playerIDs []uuid.UUID) (int, error)
}

const maxRoomNameLength = 30

// RoomService implements the room lifecycle: create, modify, join, leave,
// status and ready toggles, kick and game start, each with the resulting
// room and lobby broadcasts.
type RoomService struct {
	pool    *pool.PlayerRoomPool
	manager RoomConnections
	chat    SystemChat
	rooms   RoomRecords
	gameRec GameRecords
	games   *game.Manager
	checker game.WordChecker

	// turnDeviation bounds how far a timed-out turn may be sealed past
	// its round-time deadline.
	turnDeviation time.Duration

	// spawn starts the detached game loop; replaced in tests.
	spawn func(g *game.Deathmatch, input *domain.WordInputBuffer)
}

func NewRoomService(
	p *pool.PlayerRoomPool,
	manager RoomConnections,
	chat SystemChat,
	rooms RoomRecords,
	gameRec GameRecords,
	games *game.Manager,
	checker game.WordChecker,
	turnDeviation time.Duration,
	runner *GameRunner,
	rootCtx context.Context,
) *RoomService {
	return &RoomService{
		pool:          p,
		manager:       manager,
		chat:          chat,
		rooms:         rooms,
		gameRec:       gameRec,
		games:         games,
		checker:       checker,
		turnDeviation: turnDeviation,
		spawn: func(g *game.Deathmatch, input *domain.WordInputBuffer) {
			go runner.Run(rootCtx, g, input)
		},
	}
}

// Create registers a new room owned by the caller and announces it in the
// lobby. The caller stays in the lobby until they join.
func (s *RoomService) Create(ctx context.Context, owner domain.Player, name string, capacity int, rules domain.DeathmatchRules) (*ws.RoomOut, error) {
	if name == "" || len(name) > maxRoomNameLength {
		return nil, apperr.Validation("name", fmt.Sprintf("must be between 1 and %d characters", maxRoomNameLength))
	}
	if capacity < 1 || capacity > 10 {
		return nil, apperr.Validation("capacity", "must be between 1 and 10")
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	id, _, err := s.rooms.Create(ctx, name)
	if err != nil {
		return nil, err
	}

	room := domain.NewRoom(id, name, capacity, rules, &owner)
	if err := s.pool.CreateRoom(room); err != nil {
		return nil, err
	}

	out := ws.NewRoomOut(room)
	delta := ws.NewLobbyState()
	delta.Rooms = map[int]*ws.RoomOut{id: out}
	if err := s.manager.BroadcastLobbyState(delta); err != nil {
		logger.Warn("room create broadcast failed", "room_id", id, "error", err)
	}
	return out, nil
}

// Modify changes capacity and rules of an open room. Readiness of every
// member resets so players re-confirm under the new settings.
func (s *RoomService) Modify(ctx context.Context, roomID, capacity int, rules domain.DeathmatchRules) (ws.RoomState, error) {
	if capacity < 1 || capacity > 10 {
		return ws.RoomState{}, apperr.Validation("capacity", "must be between 1 and 10")
	}
	if err := rules.Validate(); err != nil {
		return ws.RoomState{}, err
	}

	var state ws.RoomState
	var out *ws.RoomOut
	err := s.pool.WithRoom(roomID, func(room *domain.Room) error {
		if capacity < len(room.Players) {
			return apperr.Newf(apperr.KindBadState, "capacity %d is below the current %d members", capacity, len(room.Players))
		}
		room.Capacity = capacity
		room.Rules = rules
		for _, session := range room.Players {
			session.Ready = false
		}
		room.Touch()
		state = ws.NewRoomState(room)
		out = ws.NewRoomOut(room)
		return nil
	})
	if err != nil {
		return ws.RoomState{}, err
	}

	if err := s.chat.System(ctx, "Game settings have been changed", roomID); err != nil {
		logger.Warn("settings chat failed", "room_id", roomID, "error", err)
	}
	if err := s.manager.BroadcastRoomState(roomID, state); err != nil {
		logger.Warn("room modify broadcast failed", "room_id", roomID, "error", err)
	}
	delta := ws.NewLobbyState()
	delta.Rooms = map[int]*ws.RoomOut{roomID: out}
	if err := s.manager.BroadcastLobbyState(delta); err != nil {
		logger.Warn("lobby modify broadcast failed", "room_id", roomID, "error", err)
	}
	return state, nil
}

// Join moves the caller from their current room into the target room.
// Joining the room you are already in is a no-op that returns the full
// state.
func (s *RoomService) Join(ctx context.Context, player domain.Player, roomID int) (ws.RoomState, error) {
	session, err := s.pool.GetPlayer(player.ID)
	if err != nil {
		return ws.RoomState{}, apperr.Wrap(apperr.KindBadState, "player is not connected", err)
	}
	fromRoomID := session.RoomID

	if fromRoomID == roomID {
		var state ws.RoomState
		err := s.pool.WithRoom(roomID, func(room *domain.Room) error {
			state = ws.NewRoomState(room)
			return nil
		})
		return state, err
	}

	err = s.pool.WithRoom(roomID, func(room *domain.Room) error {
		if room.Status != domain.RoomOpen {
			return apperr.New(apperr.KindBadState, "room is not open")
		}
		if room.IsFull() {
			return apperr.New(apperr.KindBadState, "room is full")
		}
		return nil
	})
	if err != nil {
		return ws.RoomState{}, err
	}

	if err := s.manager.MovePlayer(player.ID, fromRoomID, roomID); err != nil {
		return ws.RoomState{}, err
	}

	var state ws.RoomState
	var out *ws.RoomOut
	err = s.pool.WithRoom(roomID, func(room *domain.Room) error {
		// The owner joining their own room is ready by definition.
		if member, ok := room.Players[player.ID]; ok && player.ID == room.OwnerID {
			member.Ready = true
		}
		state = ws.NewRoomState(room)
		out = ws.NewRoomOut(room)
		return nil
	})
	if err != nil {
		return ws.RoomState{}, err
	}
	s.touch(ctx, roomID)

	if err := s.chat.System(ctx, fmt.Sprintf("%s joined the room", player.Name), roomID); err != nil {
		logger.Warn("join chat failed", "room_id", roomID, "error", err)
	}
	if err := s.manager.BroadcastRoomState(roomID, state); err != nil {
		logger.Warn("room join broadcast failed", "room_id", roomID, "error", err)
	}
	delta := ws.NewLobbyState()
	delta.Rooms = map[int]*ws.RoomOut{roomID: out}
	delta.Players = map[string]*ws.LobbyPlayerOut{player.Name: nil}
	if err := s.manager.BroadcastLobbyState(delta); err != nil {
		logger.Warn("lobby join broadcast failed", "room_id", roomID, "error", err)
	}
	return state, nil
}

// Leave returns the caller to the lobby. An owner leaving a closed room
// reopens it first, so the room never becomes unreachable.
func (s *RoomService) Leave(ctx context.Context, player domain.Player, roomID int) (ws.LobbyState, error) {
	session, err := s.pool.GetPlayer(player.ID)
	if err != nil || session.RoomID != roomID {
		return ws.LobbyState{}, apperr.New(apperr.KindBadState, "player is not in the room")
	}

	if err := s.manager.MovePlayer(player.ID, roomID, s.pool.LobbyID()); err != nil {
		return ws.LobbyState{}, err
	}

	var roomState ws.RoomState
	var out *ws.RoomOut
	err = s.pool.WithRoom(roomID, func(room *domain.Room) error {
		if room.OwnerID == player.ID && room.Status == domain.RoomClosed {
			room.Status = domain.RoomOpen
		}
		room.Touch()
		roomState = ws.NewRoomStateDelta(room, map[string]*ws.RoomPlayerOut{player.Name: nil})
		out = ws.NewRoomOut(room)
		return nil
	})
	if err != nil {
		return ws.LobbyState{}, err
	}
	s.touch(ctx, roomID)

	if err := s.chat.System(ctx, fmt.Sprintf("%s left the room", player.Name), roomID); err != nil {
		logger.Warn("leave chat failed", "room_id", roomID, "error", err)
	}
	if err := s.manager.BroadcastRoomState(roomID, roomState); err != nil {
		logger.Warn("room leave broadcast failed", "room_id", roomID, "error", err)
	}

	lobbySession, err := s.pool.GetPlayer(player.ID)
	if err != nil {
		return ws.LobbyState{}, err
	}
	delta := ws.NewLobbyState()
	delta.Rooms = map[int]*ws.RoomOut{roomID: out}
	delta.Players = map[string]*ws.LobbyPlayerOut{player.Name: ws.NewLobbyPlayerOut(lobbySession)}
	if err := s.manager.BroadcastLobbyState(delta); err != nil {
		logger.Warn("lobby leave broadcast failed", "room_id", roomID, "error", err)
	}
	return delta, nil
}

// ToggleStatus flips the room between Open and Closed. Owner only.
func (s *RoomService) ToggleStatus(ctx context.Context, player domain.Player, roomID int) (ws.RoomState, error) {
	var state ws.RoomState
	var out *ws.RoomOut
	err := s.pool.WithRoom(roomID, func(room *domain.Room) error {
		if room.OwnerID != player.ID {
			return apperr.New(apperr.KindForbidden, "player is not the owner")
		}
		switch room.Status {
		case domain.RoomOpen:
			room.Status = domain.RoomClosed
		case domain.RoomClosed:
			room.Status = domain.RoomOpen
		default:
			return apperr.Newf(apperr.KindBadState, "room status %s cannot be toggled", room.Status)
		}
		room.Touch()
		state = ws.NewRoomStateDelta(room, nil)
		out = ws.NewRoomOut(room)
		return nil
	})
	if err != nil {
		return ws.RoomState{}, err
	}

	if err := s.manager.BroadcastRoomState(roomID, state); err != nil {
		logger.Warn("room status broadcast failed", "room_id", roomID, "error", err)
	}
	delta := ws.NewLobbyState()
	delta.Rooms = map[int]*ws.RoomOut{roomID: out}
	if err := s.manager.BroadcastLobbyState(delta); err != nil {
		logger.Warn("lobby status broadcast failed", "room_id", roomID, "error", err)
	}
	return state, nil
}

// ToggleReady flips the caller's ready flag.
func (s *RoomService) ToggleReady(ctx context.Context, player domain.Player, roomID int) (ws.RoomState, error) {
	var state ws.RoomState
	err := s.pool.WithRoom(roomID, func(room *domain.Room) error {
		session, ok := room.Players[player.ID]
		if !ok {
			return apperr.New(apperr.KindBadState, "player is not in the room")
		}
		session.Ready = !session.Ready
		state = ws.NewRoomStateDelta(room, map[string]*ws.RoomPlayerOut{
			player.Name: ws.NewRoomPlayerOut(session),
		})
		return nil
	})
	if err != nil {
		return ws.RoomState{}, err
	}

	if err := s.manager.BroadcastRoomState(roomID, state); err != nil {
		logger.Warn("ready broadcast failed", "room_id", roomID, "error", err)
	}
	return state, nil
}

// ReturnFromGame clears the caller's in-game flag once they leave the
// post-game screen.
func (s *RoomService) ReturnFromGame(ctx context.Context, player domain.Player, roomID int) error {
	var state ws.RoomState
	err := s.pool.WithRoom(roomID, func(room *domain.Room) error {
		session, ok := room.Players[player.ID]
		if !ok {
			return apperr.New(apperr.KindBadState, "player is not in the room")
		}
		session.InGame = false
		state = ws.NewRoomStateDelta(room, map[string]*ws.RoomPlayerOut{
			player.Name: ws.NewRoomPlayerOut(session),
		})
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.manager.BroadcastRoomState(roomID, state); err != nil {
		logger.Warn("return broadcast failed", "room_id", roomID, "error", err)
	}
	return nil
}

// Kick sends the target the kick action, then moves them to the lobby.
// Owner only; the owner cannot kick themselves.
func (s *RoomService) Kick(ctx context.Context, owner domain.Player, roomID int, targetName string) error {
	var target *domain.Session
	err := s.pool.WithRoom(roomID, func(room *domain.Room) error {
		if room.OwnerID != owner.ID {
			return apperr.New(apperr.KindForbidden, "player is not the owner")
		}
		for _, session := range room.Players {
			if session.Name == targetName {
				target = session
				return nil
			}
		}
		return apperr.Newf(apperr.KindNotFound, "player %s is not in the room", targetName)
	})
	if err != nil {
		return err
	}
	if target.PlayerID == owner.ID {
		return apperr.New(apperr.KindBadState, "owner cannot kick themselves")
	}

	if err := s.manager.SendAction(ws.ActionKickPlayer, target.PlayerID); err != nil {
		logger.Warn("kick action send failed", "room_id", roomID, "error", err)
	}
	if err := s.manager.MovePlayer(target.PlayerID, roomID, s.pool.LobbyID()); err != nil {
		return err
	}

	var roomState ws.RoomState
	var out *ws.RoomOut
	err = s.pool.WithRoom(roomID, func(room *domain.Room) error {
		room.Touch()
		roomState = ws.NewRoomStateDelta(room, map[string]*ws.RoomPlayerOut{targetName: nil})
		out = ws.NewRoomOut(room)
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.chat.System(ctx, fmt.Sprintf("%s was kicked from the room", targetName), roomID); err != nil {
		logger.Warn("kick chat failed", "room_id", roomID, "error", err)
	}
	if err := s.manager.BroadcastRoomState(roomID, roomState); err != nil {
		logger.Warn("room kick broadcast failed", "room_id", roomID, "error", err)
	}

	kicked, err := s.pool.GetPlayer(target.PlayerID)
	if err != nil {
		return err
	}
	delta := ws.NewLobbyState()
	delta.Rooms = map[int]*ws.RoomOut{roomID: out}
	delta.Players = map[string]*ws.LobbyPlayerOut{targetName: ws.NewLobbyPlayerOut(kicked)}
	if err := s.manager.BroadcastLobbyState(delta); err != nil {
		logger.Warn("lobby kick broadcast failed", "room_id", roomID, "error", err)
	}
	return nil
}

// Start creates the game record and engine and spawns the detached game
// loop. Owner only; every member must be ready.
func (s *RoomService) Start(ctx context.Context, player domain.Player, roomID int) (int, error) {
	var members []*domain.Session
	var rules domain.DeathmatchRules
	err := s.pool.WithRoom(roomID, func(room *domain.Room) error {
		if room.OwnerID != player.ID {
			return apperr.New(apperr.KindBadState, "player is not the owner")
		}
		if room.Status != domain.RoomOpen && room.Status != domain.RoomClosed {
			return apperr.Newf(apperr.KindBadState, "room is %s", room.Status)
		}
		if len(room.Players) == 0 {
			return apperr.New(apperr.KindBadState, "room is empty")
		}
		for _, session := range room.Players {
			if !session.Ready {
				return apperr.New(apperr.KindBadState, "not all players are ready")
			}
		}
		for _, session := range room.Players {
			members = append(members, session)
		}
		rules = room.Rules
		return nil
	})
	if err != nil {
		return 0, err
	}

	memberIDs := make([]uuid.UUID, 0, len(members))
	for _, member := range members {
		memberIDs = append(memberIDs, member.PlayerID)
	}
	gameID, err := s.gameRec.CreateStarted(ctx, roomID, rules, memberIDs)
	if err != nil {
		return 0, err
	}

	var state ws.RoomState
	var out *ws.RoomOut
	var input *domain.WordInputBuffer
	err = s.pool.WithRoom(roomID, func(room *domain.Room) error {
		room.Status = domain.RoomInProgress
		room.Touch()
		for _, session := range room.Players {
			session.Ready = false
			session.InGame = true
		}
		state = ws.NewRoomState(room)
		out = ws.NewRoomOut(room)
		input = room.Input
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.touch(ctx, roomID)

	g := game.NewDeathmatch(gameID, roomID, members, rules, s.checker)
	g.SetTurnTimeDeviation(s.turnDeviation)
	s.games.Add(g)

	if err := s.manager.BroadcastRoomState(roomID, state); err != nil {
		logger.Warn("room start broadcast failed", "room_id", roomID, "error", err)
	}
	delta := ws.NewLobbyState()
	delta.Rooms = map[int]*ws.RoomOut{roomID: out}
	if err := s.manager.BroadcastLobbyState(delta); err != nil {
		logger.Warn("lobby start broadcast failed", "room_id", roomID, "error", err)
	}

	s.spawn(g, input)
	return gameID, nil
}

// Rooms snapshots every non-lobby room for the HTTP listing.
func (s *RoomService) Rooms() []*ws.RoomOut {
	var outs []*ws.RoomOut
	s.pool.View(func(_ *domain.Room, rooms []*domain.Room, _ int) {
		outs = make([]*ws.RoomOut, 0, len(rooms))
		for _, room := range rooms {
			outs = append(outs, ws.NewRoomOut(room))
		}
	})
	return outs
}

// touch mirrors in-memory room activity onto the room row, best effort.
func (s *RoomService) touch(ctx context.Context, roomID int) {
	if err := s.rooms.Touch(ctx, roomID, time.Now().UTC()); err != nil {
		logger.Debug("room touch failed", "room_id", roomID, "error", err)
	}
}
