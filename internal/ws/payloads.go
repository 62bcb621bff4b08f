package ws

import (
	"encoding/json"
	"time"

	"wordchain/internal/apperr"
	"wordchain/internal/domain"
	"wordchain/internal/game"
	"wordchain/internal/pool"
)

// Message type discriminators carried in the payload's "type" field.
const (
	TypeChat            = "chat"
	TypeLobbyState      = "lobby_state"
	TypeRoomState       = "room_state"
	TypeGameState       = "game_state"
	TypeConnectionState = "connection_state"
	TypeGameInput       = "game_input"
	TypeAction          = "action"
)

const (
	// CloseCodeMultipleClients closes a second channel opened for a player
	// who is already connected.
	CloseCodeMultipleClients = 4001

	InputTypeWord    = "word_input"
	ActionKickPlayer = "KICK_PLAYER"
)

// Envelope wraps every message in both directions.
type Envelope struct {
	Payload json.RawMessage `json:"payload"`
}

// Encode marshals the payload and wraps it in the envelope.
func Encode(payload any) ([]byte, error) {
	inner, err := json.Marshal(payload)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "encode ws payload", err)
	}
	return json.Marshal(Envelope{Payload: inner})
}

// DecodeInbound unwraps an inbound frame and returns the payload's type
// discriminator alongside the raw payload bytes.
func DecodeInbound(raw []byte) (string, json.RawMessage, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", nil, apperr.Wrap(apperr.KindTransport, "decode ws envelope", err)
	}
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(env.Payload, &probe); err != nil {
		return "", nil, apperr.Wrap(apperr.KindTransport, "decode ws payload type", err)
	}
	return probe.Type, env.Payload, nil
}

type ChatMessage struct {
	Type       string     `json:"type"`
	ID         *int64     `json:"id,omitempty"`
	CreatedOn  *time.Time `json:"createdOn,omitempty"`
	Content    string     `json:"content"`
	PlayerName string     `json:"playerName"`
	RoomID     int        `json:"roomId"`
}

func NewChatMessage(content, playerName string, roomID int) ChatMessage {
	return ChatMessage{
		Type:       TypeChat,
		Content:    content,
		PlayerName: playerName,
		RoomID:     roomID,
	}
}

type CurrentStats struct {
	ActivePlayers int `json:"activePlayers"`
	ActiveRooms   int `json:"activeRooms"`
}

// LobbyPlayerOut is the player projection shown in the lobby list.
type LobbyPlayerOut struct {
	Name string `json:"name"`
}

// RoomPlayerOut is the player projection shown inside a room.
type RoomPlayerOut struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	InGame bool   `json:"inGame"`
}

// RoomOut is the room projection shown in the lobby list.
type RoomOut struct {
	ID        int                    `json:"id"`
	Name      string                 `json:"name"`
	PlayersNo int                    `json:"playersNo"`
	Capacity  int                    `json:"capacity"`
	Status    domain.RoomStatus      `json:"status"`
	Rules     domain.DeathmatchRules `json:"rules"`
	OwnerName string                 `json:"ownerName"`
}

// LobbyState carries partial updates. A key mapped to null removes the
// entry, an absent key means no change.
type LobbyState struct {
	Type    string                     `json:"type"`
	Rooms   map[int]*RoomOut           `json:"rooms,omitempty"`
	Players map[string]*LobbyPlayerOut `json:"players,omitempty"`
	Stats   *CurrentStats              `json:"stats,omitempty"`
}

func NewLobbyState() LobbyState {
	return LobbyState{Type: TypeLobbyState}
}

// RoomState always carries the room scalars; the players map is a partial
// update with the same null-removal convention as LobbyState.
type RoomState struct {
	Type      string                    `json:"type"`
	ID        int                       `json:"id"`
	Name      string                    `json:"name"`
	Capacity  int                       `json:"capacity"`
	Status    domain.RoomStatus         `json:"status"`
	Rules     domain.DeathmatchRules    `json:"rules"`
	OwnerName string                    `json:"ownerName"`
	Players   map[string]*RoomPlayerOut `json:"players,omitempty"`
}

type ConnectionState struct {
	Type   string `json:"type"`
	Code   int    `json:"code"`
	Reason string `json:"reason"`
}

func NewConnectionState(code int, reason string) ConnectionState {
	return ConnectionState{Type: TypeConnectionState, Code: code, Reason: reason}
}

// Action is a one-shot server instruction to a single client.
type Action struct {
	Type   string `json:"type"`
	Action string `json:"action"`
}

// GameInput is the only client-to-server game message.
type GameInput struct {
	Type      string `json:"type"`
	InputType string `json:"inputType"`
	GameID    int    `json:"gameId"`
	Word      string `json:"word"`
}

// TurnOut exposes a turn with the acting player identified by list index.
type TurnOut struct {
	domain.Turn
	PlayerIdx int `json:"playerIdx"`
}

// Game state variants, tagged by the inner state field.

type GameStateStarted struct {
	Type    string                 `json:"type"`
	State   domain.GameState       `json:"state"`
	ID      int                    `json:"id"`
	Status  string                 `json:"status"`
	Players []*domain.GamePlayer   `json:"players"`
	Rules   domain.DeathmatchRules `json:"rules"`
}

type GameStateEnded struct {
	Type   string           `json:"type"`
	State  domain.GameState `json:"state"`
	Status string           `json:"status"`
}

type GameStateWaiting struct {
	Type  string           `json:"type"`
	State domain.GameState `json:"state"`
}

type GameStateStartedTurn struct {
	Type        string           `json:"type"`
	State       domain.GameState `json:"state"`
	CurrentTurn TurnOut          `json:"currentTurn"`
}

type GameStateEndedTurn struct {
	Type        string               `json:"type"`
	State       domain.GameState     `json:"state"`
	Players     []*domain.GamePlayer `json:"players"`
	CurrentTurn TurnOut              `json:"currentTurn"`
}

func NewGameStateStarted(g *game.Deathmatch) GameStateStarted {
	return GameStateStarted{
		Type:    TypeGameState,
		State:   domain.GameStarted,
		ID:      g.ID(),
		Status:  string(domain.GameStarted),
		Players: g.Players().List(),
		Rules:   g.Rules(),
	}
}

func NewGameStateEnded() GameStateEnded {
	return GameStateEnded{
		Type:   TypeGameState,
		State:  domain.GameEnded,
		Status: string(domain.GameEnded),
	}
}

func NewGameStateWaiting() GameStateWaiting {
	return GameStateWaiting{Type: TypeGameState, State: domain.GameWaiting}
}

func NewGameStateStartedTurn(g *game.Deathmatch) GameStateStartedTurn {
	return GameStateStartedTurn{
		Type:        TypeGameState,
		State:       domain.GameStartedTurn,
		CurrentTurn: TurnOut{Turn: *g.CurrentTurn(), PlayerIdx: g.Players().CurrentIdx()},
	}
}

func NewGameStateEndedTurn(g *game.Deathmatch) GameStateEndedTurn {
	return GameStateEndedTurn{
		Type:        TypeGameState,
		State:       domain.GameEndedTurn,
		Players:     g.Players().List(),
		CurrentTurn: TurnOut{Turn: *g.CurrentTurn(), PlayerIdx: g.Players().CurrentIdx()},
	}
}

// Call the projection builders while holding the pool lock, through WithRoom
// or View, so member maps are not read mid-update.

func NewLobbyPlayerOut(s *domain.Session) *LobbyPlayerOut {
	return &LobbyPlayerOut{Name: s.Name}
}

func NewRoomPlayerOut(s *domain.Session) *RoomPlayerOut {
	return &RoomPlayerOut{Name: s.Name, Ready: s.Ready, InGame: s.InGame}
}

func NewRoomOut(r *domain.Room) *RoomOut {
	return &RoomOut{
		ID:        r.ID,
		Name:      r.Name,
		PlayersNo: len(r.Players),
		Capacity:  r.Capacity,
		Status:    r.Status,
		Rules:     r.Rules,
		OwnerName: r.OwnerName,
	}
}

// NewRoomStateDelta projects the room scalars with an explicit players
// delta instead of the full member map.
func NewRoomStateDelta(r *domain.Room, players map[string]*RoomPlayerOut) RoomState {
	state := NewRoomState(r)
	state.Players = players
	return state
}

// NewRoomState projects the full room, members included.
func NewRoomState(r *domain.Room) RoomState {
	players := make(map[string]*RoomPlayerOut, len(r.Players))
	for _, session := range r.Players {
		players[session.Name] = NewRoomPlayerOut(session)
	}
	return RoomState{
		Type:      TypeRoomState,
		ID:        r.ID,
		Name:      r.Name,
		Capacity:  r.Capacity,
		Status:    r.Status,
		Rules:     r.Rules,
		OwnerName: r.OwnerName,
		Players:   players,
	}
}

// BuildLobbyState snapshots the whole lobby: every open room, every player
// sitting in the lobby and the live counters.
func BuildLobbyState(p *pool.PlayerRoomPool) LobbyState {
	state := NewLobbyState()
	p.View(func(lobby *domain.Room, rooms []*domain.Room, activePlayers int) {
		state.Rooms = make(map[int]*RoomOut, len(rooms))
		for _, room := range rooms {
			state.Rooms[room.ID] = NewRoomOut(room)
		}
		state.Players = make(map[string]*LobbyPlayerOut, len(lobby.Players))
		for _, session := range lobby.Players {
			state.Players[session.Name] = NewLobbyPlayerOut(session)
		}
		state.Stats = &CurrentStats{ActivePlayers: activePlayers, ActiveRooms: len(rooms)}
	})
	return state
}
