package ws

import (
	"context"
	"encoding/json"
	"time"

	"wordchain/internal/apperr"
	"wordchain/internal/domain"
	"wordchain/internal/game"
	"wordchain/internal/logger"
	"wordchain/internal/pool"

	"github.com/google/uuid"
)

// ChatStore persists chat messages before they are broadcast.
type ChatStore interface {
	SaveMessage(ctx context.Context, content string, roomID int, playerID uuid.UUID) (int64, time.Time, error)
}

// Router dispatches inbound frames from a player's channel. Chat messages
// are persisted then broadcast; word inputs are forwarded to the room's
// input buffer after the game and turn ownership checks; everything else
// is ignored.
type Router struct {
	pool  *pool.PlayerRoomPool
	games *game.Manager
	chat  *Chat
}

func NewRouter(p *pool.PlayerRoomPool, games *game.Manager, chat *Chat) *Router {
	return &Router{pool: p, games: games, chat: chat}
}

// Handle processes one frame. Errors are logged and swallowed so a bad
// frame never terminates the player's listen loop.
func (r *Router) Handle(ctx context.Context, player domain.Player, raw []byte) {
	msgType, payload, err := DecodeInbound(raw)
	if err != nil {
		logger.Warn("dropping malformed ws message", "player", player.Name, "error", err)
		return
	}

	switch msgType {
	case TypeChat:
		if err := r.handleChat(ctx, player, payload); err != nil {
			logger.Error("chat message failed", "player", player.Name, "error", err)
		}
	case TypeGameInput:
		r.handleGameInput(player, payload)
	default:
		logger.Debug("ignoring ws message", "type", msgType, "player", player.Name)
	}
}

func (r *Router) handleChat(ctx context.Context, player domain.Player, payload json.RawMessage) error {
	var msg ChatMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return apperr.Wrap(apperr.KindTransport, "decode chat message", err)
	}
	return r.chat.FromPlayer(ctx, player, msg.Content, msg.RoomID)
}

// handleGameInput drops anything that does not come from the player whose
// turn is in flight in the live game of their own room.
func (r *Router) handleGameInput(player domain.Player, payload json.RawMessage) {
	var input GameInput
	if err := json.Unmarshal(payload, &input); err != nil {
		logger.Warn("dropping malformed game input", "player", player.Name, "error", err)
		return
	}
	if input.InputType != InputTypeWord {
		return
	}

	room, err := r.pool.GetRoomByPlayer(player.ID)
	if err != nil {
		logger.Debug("dropping word input from unknown player", "player", player.Name)
		return
	}
	g, ok := r.games.Get(room.ID)
	if !ok || g.ID() != input.GameID || g.CurrentPlayerID() != player.ID {
		logger.Debug("dropping word input", "player", player.Name, "game_id", input.GameID)
		return
	}
	room.Input.Put(input.Word)
}
