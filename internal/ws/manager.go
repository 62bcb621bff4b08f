package ws

import (
	"sync"

	"wordchain/internal/apperr"
	"wordchain/internal/domain"
	"wordchain/internal/logger"
	"wordchain/internal/pool"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ConnectionManager owns the outbound channel of every connected player.
// Membership itself lives in the pool; the manager keeps the two in sync
// under its own mutex.
type ConnectionManager struct {
	pool *pool.PlayerRoomPool

	mu      sync.Mutex
	clients map[uuid.UUID]*Client
}

func NewConnectionManager(p *pool.PlayerRoomPool) *ConnectionManager {
	return &ConnectionManager{
		pool:    p,
		clients: make(map[uuid.UUID]*Client),
	}
}

// Connect registers the channel and adds the player to the pool, starting
// in the given room. A player may hold at most one live channel.
func (m *ConnectionManager) Connect(player domain.Player, client *Client, roomID int) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clients[player.ID]; ok {
		return nil, apperr.Newf(apperr.KindAlreadyConnected, "player %s is already connected with another client", player.Name)
	}

	session := domain.NewSession(&player, roomID)
	if err := m.pool.AddPlayer(session, roomID); err != nil {
		if apperr.KindOf(err) == apperr.KindConflict {
			return nil, apperr.Newf(apperr.KindAlreadyConnected, "player %s is already connected with another client", player.Name)
		}
		return nil, err
	}
	m.clients[player.ID] = client
	return session, nil
}

// Disconnect drops the channel and removes the player from the pool,
// returning the session they held.
func (m *ConnectionManager) Disconnect(playerID uuid.UUID) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.clients, playerID)
	return m.pool.RemovePlayer(playerID)
}

// MovePlayer reassigns the player between rooms through the pool.
func (m *ConnectionManager) MovePlayer(playerID uuid.UUID, fromRoomID, toRoomID int) error {
	return m.pool.MovePlayer(playerID, fromRoomID, toRoomID)
}

func (m *ConnectionManager) clientOf(playerID uuid.UUID) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clients[playerID]
}

// dispatch hands the serialized frame to the player's per-connection
// writer. A full queue means the client cannot keep up; the connection is
// dropped rather than stalling everyone else.
func (m *ConnectionManager) dispatch(playerID uuid.UUID, data []byte) {
	client := m.clientOf(playerID)
	if client == nil {
		return
	}
	if !client.TrySend(data) {
		logger.Warn("outbound queue overflow, dropping connection", "player_id", playerID.String())
		client.Close(websocket.CloseTryAgainLater, "outbound queue overflow")
	}
}

// broadcastToRoom serializes the payload once and fans it out to every
// member's writer. A failing recipient never aborts the rest.
func (m *ConnectionManager) broadcastToRoom(roomID int, payload any) error {
	data, err := Encode(payload)
	if err != nil {
		return err
	}
	members, err := m.pool.GetRoomPlayers(roomID)
	if err != nil {
		return err
	}
	for _, member := range members {
		m.dispatch(member.PlayerID, data)
	}
	return nil
}

func (m *ConnectionManager) sendToPlayer(playerID uuid.UUID, payload any) error {
	data, err := Encode(payload)
	if err != nil {
		return err
	}
	m.dispatch(playerID, data)
	return nil
}

func (m *ConnectionManager) BroadcastChat(msg ChatMessage) error {
	return m.broadcastToRoom(msg.RoomID, msg)
}

func (m *ConnectionManager) BroadcastLobbyState(delta LobbyState) error {
	return m.broadcastToRoom(m.pool.LobbyID(), delta)
}

func (m *ConnectionManager) BroadcastRoomState(roomID int, state RoomState) error {
	return m.broadcastToRoom(roomID, state)
}

func (m *ConnectionManager) BroadcastGameState(roomID int, state any) error {
	return m.broadcastToRoom(roomID, state)
}

func (m *ConnectionManager) SendChat(msg ChatMessage, playerID uuid.UUID) error {
	return m.sendToPlayer(playerID, msg)
}

func (m *ConnectionManager) SendLobbyState(state LobbyState, playerID uuid.UUID) error {
	return m.sendToPlayer(playerID, state)
}

func (m *ConnectionManager) SendAction(action string, playerID uuid.UUID) error {
	return m.sendToPlayer(playerID, Action{Type: TypeAction, Action: action})
}

// SendConnectionState writes straight to a connection that was never
// registered, which is how a duplicate client learns it is being refused.
// The client's WritePump must not be running yet.
func (m *ConnectionManager) SendConnectionState(code int, reason string, client *Client) error {
	data, err := Encode(NewConnectionState(code, reason))
	if err != nil {
		return err
	}
	if err := client.WriteNow(data); err != nil {
		return apperr.Wrap(apperr.KindTransport, "connection state write failed", err)
	}
	return nil
}
