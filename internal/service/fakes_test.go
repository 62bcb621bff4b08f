package service

import (
	"context"
	"sync"
	"time"

	"wordchain/internal/domain"
	"wordchain/internal/pool"
	"wordchain/internal/ws"

	"github.com/google/uuid"
)

// recordingManager satisfies every connection-manager slice the services
// need and records what was pushed out. With a pool attached, MovePlayer
// delegates so the pool stays consistent.
type recordingManager struct {
	mu          sync.Mutex
	gameStates  []any
	roomStates  []ws.RoomState
	lobbyStates []ws.LobbyState
	actions     []string

	pool        *pool.PlayerRoomPool
	onGameState func(state any)
}

func (m *recordingManager) BroadcastGameState(roomID int, state any) error {
	m.mu.Lock()
	m.gameStates = append(m.gameStates, state)
	hook := m.onGameState
	m.mu.Unlock()
	if hook != nil {
		hook(state)
	}
	return nil
}

func (m *recordingManager) BroadcastRoomState(roomID int, state ws.RoomState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roomStates = append(m.roomStates, state)
	return nil
}

func (m *recordingManager) BroadcastLobbyState(delta ws.LobbyState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lobbyStates = append(m.lobbyStates, delta)
	return nil
}

func (m *recordingManager) SendAction(action string, playerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, action)
	return nil
}

func (m *recordingManager) MovePlayer(playerID uuid.UUID, fromRoomID, toRoomID int) error {
	if m.pool != nil {
		return m.pool.MovePlayer(playerID, fromRoomID, toRoomID)
	}
	return nil
}

func (m *recordingManager) lastLobbyState() (ws.LobbyState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.lobbyStates) == 0 {
		return ws.LobbyState{}, false
	}
	return m.lobbyStates[len(m.lobbyStates)-1], true
}

type recordingChat struct {
	mu       sync.Mutex
	messages []string
}

func (c *recordingChat) System(ctx context.Context, content string, roomID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, content)
	return nil
}

func (c *recordingChat) contains(content string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, msg := range c.messages {
		if msg == content {
			return true
		}
	}
	return false
}

type recordingGameStore struct {
	mu       sync.Mutex
	finished bool
	gameID   int
	turns    []*domain.Turn
}

func (s *recordingGameStore) Finish(ctx context.Context, gameID int, endedOn time.Time, turns []*domain.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = true
	s.gameID = gameID
	s.turns = turns
	return nil
}

// setChecker accepts exactly the words in its set.
type setChecker struct {
	correct map[string]bool
}

func (c setChecker) Check(ctx context.Context, word string) (domain.Word, error) {
	return domain.Word{Content: word, IsCorrect: c.correct[word]}, nil
}

type fakeRoomRecords struct {
	mu     sync.Mutex
	nextID int
}

func (f *fakeRoomRecords) Create(ctx context.Context, name string) (int, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return 100 + f.nextID, time.Now().UTC(), nil
}

func (f *fakeRoomRecords) Touch(ctx context.Context, id int, lastActiveOn time.Time) error {
	return nil
}

type fakeGameRecords struct {
	mu      sync.Mutex
	created int
}

func (f *fakeGameRecords) CreateStarted(ctx context.Context, roomID int, rules domain.DeathmatchRules, playerIDs []uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	return 900 + f.created, nil
}

type fakeRoomStore struct {
	mu    sync.Mutex
	ids   []int
	ended map[int]bool
}

func (f *fakeRoomStore) UnendedIDs(ctx context.Context, lobbyID int) ([]int, error) {
	return f.ids, nil
}

func (f *fakeRoomStore) MarkEnded(ctx context.Context, id int, endedOn time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ended == nil {
		f.ended = make(map[int]bool)
	}
	f.ended[id] = true
	return nil
}
