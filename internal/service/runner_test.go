package service

import (
	"context"
	"testing"
	"time"

	"wordchain/internal/domain"
	"wordchain/internal/game"
	"wordchain/internal/pool"
	"wordchain/internal/ws"

	"github.com/google/uuid"
)

func testRules() domain.DeathmatchRules {
	return domain.DeathmatchRules{
		Type:       domain.DeathmatchType,
		RoundTime:  5,
		StartScore: 5,
		Penalty:    -5,
		Reward:     2,
	}
}

func newTestPoolWithRoom(t *testing.T, roomID int, players ...*domain.Player) (*pool.PlayerRoomPool, []*domain.Session) {
	t.Helper()
	p := pool.New(domain.NewLobby(1, domain.NewRoot(uuid.New())))
	room := domain.NewRoom(roomID, "den", len(players), testRules(), players[0])
	if err := p.CreateRoom(room); err != nil {
		t.Fatalf("create room: %v", err)
	}

	sessions := make([]*domain.Session, 0, len(players))
	for _, player := range players {
		session := domain.NewSession(player, roomID)
		if err := p.AddPlayer(session, roomID); err != nil {
			t.Fatalf("add player: %v", err)
		}
		sessions = append(sessions, session)
	}
	return p, sessions
}

func newTestRunner(manager *recordingManager, store *recordingGameStore, chat *recordingChat, games *game.Manager, p *pool.PlayerRoomPool) *GameRunner {
	r := NewGameRunner(manager, chat, games, store, p, 0, 0)
	r.sleep = func(ctx context.Context, d time.Duration) {}
	return r
}

func TestRunnerSoloGameEndsAfterElimination(t *testing.T) {
	alice := &domain.Player{ID: uuid.New(), Name: "alice"}
	p, sessions := newTestPoolWithRoom(t, 7, alice)

	manager := &recordingManager{}
	chat := &recordingChat{}
	store := &recordingGameStore{}
	games := game.NewManager()
	g := game.NewDeathmatch(42, 7, sessions, testRules(), setChecker{})
	games.Add(g)
	input := domain.NewWordInputBuffer()

	manager.onGameState = func(state any) {
		if _, ok := state.(ws.GameStateStartedTurn); ok {
			input.Put("zebra")
		}
	}

	r := newTestRunner(manager, store, chat, games, p)
	r.Run(context.Background(), g, input)

	if !store.finished {
		t.Fatal("game was not persisted")
	}
	if store.gameID != 42 {
		t.Errorf("persisted game id = %d, want 42", store.gameID)
	}
	if len(store.turns) != 1 {
		t.Fatalf("persisted %d turns, want 1", len(store.turns))
	}
	turn := store.turns[0]
	if turn.Word == nil || turn.Word.IsCorrect {
		t.Errorf("expected an incorrect word turn, got %+v", turn.Word)
	}

	if !chat.contains("The game has finished with a word chain of 0!") {
		t.Errorf("missing finish announcement, got %v", chat.messages)
	}

	err := p.WithRoom(7, func(room *domain.Room) error {
		if room.Status != domain.RoomOpen {
			t.Errorf("room status = %s, want Open", room.Status)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("room vanished: %v", err)
	}
	if _, ok := games.Get(7); ok {
		t.Error("finished game still registered")
	}
}

func TestRunnerDuelCrownsWinner(t *testing.T) {
	alice := &domain.Player{ID: uuid.New(), Name: "alice"}
	bob := &domain.Player{ID: uuid.New(), Name: "bob"}
	p, sessions := newTestPoolWithRoom(t, 8, alice, bob)

	manager := &recordingManager{}
	chat := &recordingChat{}
	store := &recordingGameStore{}
	games := game.NewManager()
	g := game.NewDeathmatch(43, 8, sessions, testRules(), setChecker{correct: map[string]bool{"aaa": true}})
	games.Add(g)
	input := domain.NewWordInputBuffer()

	// Bob always fumbles, alice always chains; turn order is shuffled so
	// the hook answers for whoever is up.
	manager.onGameState = func(state any) {
		if _, ok := state.(ws.GameStateStartedTurn); !ok {
			return
		}
		if g.Players().Current().Name == "bob" {
			input.Put("zz")
		} else {
			input.Put("aaa")
		}
	}

	r := newTestRunner(manager, store, chat, games, p)
	r.Run(context.Background(), g, input)

	if !store.finished {
		t.Fatal("game was not persisted")
	}
	if !chat.contains("bob is out of the game!") {
		t.Errorf("missing elimination announcement, got %v", chat.messages)
	}
	if !chat.contains("alice won the game!") {
		t.Errorf("missing winner announcement, got %v", chat.messages)
	}

	for _, player := range g.Players().List() {
		switch player.Name {
		case "alice":
			if !player.InGame {
				t.Error("winner was eliminated")
			}
		case "bob":
			if player.InGame {
				t.Error("loser still in game")
			}
			if player.Score != 0 {
				t.Errorf("bob score = %d, want 0", player.Score)
			}
		}
	}
}

func TestRunnerCancellationSkipsPersistence(t *testing.T) {
	alice := &domain.Player{ID: uuid.New(), Name: "alice"}
	p, sessions := newTestPoolWithRoom(t, 9, alice)

	manager := &recordingManager{}
	chat := &recordingChat{}
	store := &recordingGameStore{}
	games := game.NewManager()
	g := game.NewDeathmatch(44, 9, sessions, testRules(), setChecker{})
	games.Add(g)
	input := domain.NewWordInputBuffer()

	ctx, cancel := context.WithCancel(context.Background())
	manager.onGameState = func(state any) {
		if _, ok := state.(ws.GameStateStartedTurn); ok {
			cancel()
		}
	}

	r := newTestRunner(manager, store, chat, games, p)
	r.Run(ctx, g, input)

	if store.finished {
		t.Error("cancelled game must not be persisted")
	}
	if _, ok := games.Get(9); ok {
		t.Error("cancelled game still registered")
	}
}
