package game

import "sync"

// Manager indexes the active game of each room. A room has at most one
// game running at a time.
type Manager struct {
	mu    sync.Mutex
	games map[int]*Deathmatch
}

func NewManager() *Manager {
	return &Manager{games: make(map[int]*Deathmatch)}
}

func (m *Manager) Add(g *Deathmatch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[g.RoomID()] = g
}

// Get returns the active game of the room, if any.
func (m *Manager) Get(roomID int) (*Deathmatch, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[roomID]
	return g, ok
}

func (m *Manager) Remove(roomID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, roomID)
}
