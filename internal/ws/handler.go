package ws

import (
	"context"
	"fmt"
	"net/http"

	"wordchain/internal/domain"
	"wordchain/internal/logger"
	"wordchain/internal/pool"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// PlayerKey is the gin context key under which the auth middleware stores
// the authenticated player.
const PlayerKey = "player"

// ConnectHandler upgrades /connect requests and runs the whole life of a
// player's channel: registration, initial lobby snapshot, the listen loop
// and the disconnect sequence.
type ConnectHandler struct {
	Manager *ConnectionManager
	Router  *Router
	Pool    *pool.PlayerRoomPool
	Chat    *Chat
	Origins []string
}

func (h *ConnectHandler) Handle() gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(h.Origins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range h.Origins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}

	return func(c *gin.Context) {
		player := c.MustGet(PlayerKey).(domain.Player)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade failed", "player", player.Name, "error", err)
			return
		}

		client := NewClient(player.ID, conn)
		if _, err := h.Manager.Connect(player, client, h.Pool.LobbyID()); err != nil {
			// The pump has not started, so the refusal can be written
			// synchronously before the socket closes.
			h.refuseDuplicate(c.Request.Context(), player, client, err)
			return
		}
		go client.WritePump()

		ctx := c.Request.Context()
		if err := h.Chat.System(ctx, fmt.Sprintf("%s joined the room", player.Name), h.Pool.LobbyID()); err != nil {
			logger.Error("join chat failed", "player", player.Name, "error", err)
		}
		if err := h.Manager.BroadcastLobbyState(BuildLobbyState(h.Pool)); err != nil {
			logger.Error("lobby state broadcast failed", "error", err)
		}

		client.ReadPump(func(raw []byte) {
			h.Router.Handle(ctx, player, raw)
		})

		// The request context dies with the connection; the disconnect
		// sequence still has to persist and broadcast.
		h.handleDisconnect(context.Background(), player)
	}
}

// refuseDuplicate tells the second client it is being refused, warns the
// already connected one over system chat, and closes the new channel.
func (h *ConnectHandler) refuseDuplicate(ctx context.Context, player domain.Player, client *Client, err error) {
	reason := "Player is already connected with another client."
	logger.Info("refusing duplicate connection", "player", player.Name, "error", err)

	if err := h.Manager.SendConnectionState(CloseCodeMultipleClients, reason, client); err != nil {
		logger.Warn("connection state send failed", "player", player.Name, "error", err)
	}

	if room, err := h.Pool.GetRoomByPlayer(player.ID); err == nil {
		warning := "Someone tried to log into your account from another device. " +
			"If it was not you, please regenerate your account code."
		if err := h.Chat.System(ctx, warning, room.ID); err != nil {
			logger.Error("duplicate connection warning failed", "player", player.Name, "error", err)
		}
	}

	client.Close(CloseCodeMultipleClients, reason)
}

// handleDisconnect removes the player from the pool and tells whoever
// shared a room with them. A live game keeps running; the absent player
// simply times their turns out.
func (h *ConnectHandler) handleDisconnect(ctx context.Context, player domain.Player) {
	session, err := h.Manager.Disconnect(player.ID)
	if err != nil {
		logger.Debug("disconnect for player not in pool", "player", player.Name)
		return
	}

	roomID := session.RoomID
	if roomID == h.Pool.LobbyID() {
		delta := NewLobbyState()
		delta.Players = map[string]*LobbyPlayerOut{player.Name: nil}
		h.Pool.View(func(_ *domain.Room, rooms []*domain.Room, activePlayers int) {
			delta.Stats = &CurrentStats{ActivePlayers: activePlayers, ActiveRooms: len(rooms)}
		})
		if err := h.Manager.BroadcastLobbyState(delta); err != nil {
			logger.Error("lobby disconnect broadcast failed", "player", player.Name, "error", err)
		}
		if err := h.Chat.System(ctx, fmt.Sprintf("%s disconnected...", player.Name), roomID); err != nil {
			logger.Error("disconnect chat failed", "player", player.Name, "error", err)
		}
		return
	}

	var roomDelta RoomState
	var lobbyDelta LobbyState
	err = h.Pool.WithRoom(roomID, func(room *domain.Room) error {
		roomDelta = NewRoomStateDelta(room, map[string]*RoomPlayerOut{player.Name: nil})
		lobbyDelta = NewLobbyState()
		lobbyDelta.Rooms = map[int]*RoomOut{room.ID: NewRoomOut(room)}
		return nil
	})
	if err != nil {
		logger.Warn("disconnect from missing room", "player", player.Name, "room_id", roomID)
		return
	}
	h.Pool.View(func(_ *domain.Room, rooms []*domain.Room, activePlayers int) {
		lobbyDelta.Stats = &CurrentStats{ActivePlayers: activePlayers, ActiveRooms: len(rooms)}
	})

	if err := h.Manager.BroadcastRoomState(roomID, roomDelta); err != nil {
		logger.Error("room disconnect broadcast failed", "player", player.Name, "error", err)
	}
	if err := h.Manager.BroadcastLobbyState(lobbyDelta); err != nil {
		logger.Error("lobby disconnect broadcast failed", "player", player.Name, "error", err)
	}
	if err := h.Chat.System(ctx, fmt.Sprintf("%s disconnected...", player.Name), roomID); err != nil {
		logger.Error("disconnect chat failed", "player", player.Name, "error", err)
	}
}
