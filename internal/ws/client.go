package ws

import (
	"sync"
	"time"

	"wordchain/internal/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second

	maxMessageSize = 4096
	sendQueueSize  = 1024
)

// Client owns one websocket connection. All writes go through the send
// queue and are drained by a single WritePump goroutine.
type Client struct {
	PlayerID uuid.UUID

	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

func NewClient(playerID uuid.UUID, conn *websocket.Conn) *Client {
	return &Client{
		PlayerID: playerID,
		conn:     conn,
		send:     make(chan []byte, sendQueueSize),
	}
}

// TrySend queues msg without blocking. False means the queue is full and
// the caller should treat the connection as too slow to keep.
func (c *Client) TrySend(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// WriteNow writes msg straight to the connection. Only safe while no
// WritePump is draining this client.
func (c *Client) WriteNow(msg []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// WritePump drains the send queue and keeps the connection alive with
// pings. It exits when the connection closes.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("ws write failed", "player_id", c.PlayerID.String(), "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump delivers inbound frames to handle until the connection drops.
// It blocks, so the caller decides which goroutine pays for it.
func (c *Client) ReadPump(handle func(raw []byte)) {
	defer func() {
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws read failed", "player_id", c.PlayerID.String(), "error", err)
			}
			return
		}
		handle(msg)
	}
}

// Close sends a close frame with the given code and shuts the socket down.
// Safe to call from any goroutine and more than once.
func (c *Client) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		deadline := time.Now().Add(writeWait)
		_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		_ = c.conn.Close()
	})
}
