package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"wordchain/internal/apperr"
	"wordchain/internal/domain"

	"github.com/google/uuid"
)

// fakeChecker accepts every word unless it is listed in missing, and fails
// outright when err is set.
type fakeChecker struct {
	missing map[string]bool
	err     error
	calls   int
}

func (f *fakeChecker) Check(_ context.Context, word string) (domain.Word, error) {
	f.calls++
	if f.err != nil {
		return domain.Word{Content: word}, f.err
	}
	return domain.Word{Content: word, IsCorrect: !f.missing[word]}, nil
}

// newTestGame builds a game and pins the shuffled turn order back to the
// given name order so traces are deterministic.
func newTestGame(rules domain.DeathmatchRules, checker WordChecker, names ...string) *Deathmatch {
	sessions := make([]*domain.Session, 0, len(names))
	for _, name := range names {
		sessions = append(sessions, &domain.Session{PlayerID: uuid.New(), Name: name})
	}

	g := NewDeathmatch(1, 42, sessions, rules, checker)

	byName := make(map[string]*domain.GamePlayer, len(names))
	for _, p := range g.players.list {
		byName[p.Name] = p
	}
	for i, name := range names {
		g.players.list[i] = byName[name]
	}
	g.players.currentIdx = 0
	return g
}

func mustStartTurn(t *testing.T, g *Deathmatch) *domain.Turn {
	t.Helper()
	if err := g.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	turn, err := g.StartTurn()
	if err != nil {
		t.Fatalf("StartTurn: %v", err)
	}
	return turn
}

func submit(t *testing.T, g *Deathmatch, word string) *domain.Turn {
	t.Helper()
	mustStartTurn(t, g)
	turn, err := g.EndTurnInTime(context.Background(), word)
	if err != nil {
		t.Fatalf("EndTurnInTime(%q): %v", word, err)
	}
	return turn
}

func timeOut(t *testing.T, g *Deathmatch) *domain.Turn {
	t.Helper()
	mustStartTurn(t, g)
	turn, err := g.EndTurnTimedOut()
	if err != nil {
		t.Fatalf("EndTurnTimedOut: %v", err)
	}
	return turn
}

func TestDeathmatchIllegalTransitions(t *testing.T) {
	rules := domain.DefaultDeathmatchRules()

	tests := []struct {
		name string
		run  func(g *Deathmatch) error
	}{
		{"start twice", func(g *Deathmatch) error {
			if err := g.Start(); err != nil {
				return err
			}
			return g.Start()
		}},
		{"start turn before wait", func(g *Deathmatch) error {
			if err := g.Start(); err != nil {
				return err
			}
			_, err := g.StartTurn()
			return err
		}},
		{"end turn before start turn", func(g *Deathmatch) error {
			if err := g.Start(); err != nil {
				return err
			}
			if err := g.Wait(); err != nil {
				return err
			}
			_, err := g.EndTurnInTime(context.Background(), "apple")
			return err
		}},
		{"end before ended turn", func(g *Deathmatch) error {
			if err := g.Start(); err != nil {
				return err
			}
			return g.End()
		}},
		{"wait before start", func(g *Deathmatch) error {
			return g.Wait()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGame(rules, &fakeChecker{}, "alice", "bob")
			err := tt.run(g)
			if err == nil {
				t.Fatal("expected an error, got none")
			}
			if !apperr.Is(err, apperr.KindIllegalState) {
				t.Errorf("error kind = %v, want illegal_state", apperr.KindOf(err))
			}
		})
	}
}

func TestDeathmatchTwoPlayerTrace(t *testing.T) {
	rules := domain.DeathmatchRules{
		Type:       domain.DeathmatchType,
		RoundTime:  10,
		StartScore: 5,
		Penalty:    -5,
		Reward:     2,
	}
	checker := &fakeChecker{}
	g := newTestGame(rules, checker, "alice", "bob")

	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	alice := g.players.list[0]
	bob := g.players.list[1]

	steps := []struct {
		word      string
		wantInfo  string
		wantScore map[string]int
	}{
		{"apple", "Word is correct", map[string]int{"alice": 7, "bob": 5}},
		{"elephant", "Word is correct", map[string]int{"alice": 7, "bob": 7}},
		{"tiger", "Word is correct", map[string]int{"alice": 9, "bob": 7}},
		{"rabbit", "Word is correct", map[string]int{"alice": 9, "bob": 9}},
	}
	for _, step := range steps {
		turn := submit(t, g, step.word)
		if turn.Info != step.wantInfo {
			t.Fatalf("turn %q info = %q, want %q", step.word, turn.Info, step.wantInfo)
		}
		if alice.Score != step.wantScore["alice"] || bob.Score != step.wantScore["bob"] {
			t.Fatalf("after %q scores = alice %d, bob %d; want %d, %d",
				step.word, alice.Score, bob.Score, step.wantScore["alice"], step.wantScore["bob"])
		}
		if events := g.TakeEvents(); len(events) != 0 {
			t.Fatalf("after %q unexpected events: %v", step.word, events)
		}
		if g.IsFinished() {
			t.Fatalf("game finished too early after %q", step.word)
		}
	}

	// Three consecutive timeouts: alice 9->4, bob 9->4, alice 4->-1.
	timeOut(t, g)
	if alice.Score != 4 || alice.Mistakes != 1 {
		t.Fatalf("after first timeout alice score=%d mistakes=%d, want 4, 1", alice.Score, alice.Mistakes)
	}
	timeOut(t, g)
	if bob.Score != 4 || bob.Mistakes != 1 {
		t.Fatalf("after second timeout bob score=%d mistakes=%d, want 4, 1", bob.Score, bob.Mistakes)
	}
	turn := timeOut(t, g)
	if turn.Word != nil || turn.Info != "Turn time exceeded" {
		t.Fatalf("timed out turn = %+v, want no word and timeout info", turn)
	}
	if alice.Score != -1 || alice.InGame {
		t.Fatalf("alice should be eliminated at score -1, got score=%d inGame=%v", alice.Score, alice.InGame)
	}
	if alice.Place != 2 {
		t.Errorf("alice place = %d, want 2", alice.Place)
	}

	events := g.TakeEvents()
	if len(events) != 1 {
		t.Fatalf("events after elimination = %v, want exactly PlayerLost", events)
	}
	if lost, ok := events[0].(domain.PlayerLostEvent); !ok || lost.PlayerName != "alice" {
		t.Errorf("event = %+v, want PlayerLost{alice}", events[0])
	}

	if !g.IsFinished() {
		t.Fatal("game should be finished with one player left")
	}
	if err := g.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if g.State() != domain.GameEnded {
		t.Errorf("state = %s, want ENDED", g.State())
	}

	events = g.TakeEvents()
	if len(events) != 2 {
		t.Fatalf("end events = %v, want PlayerWon then GameFinished", events)
	}
	if won, ok := events[0].(domain.PlayerWonEvent); !ok || won.PlayerName != "bob" {
		t.Errorf("first end event = %+v, want PlayerWon{bob}", events[0])
	}
	finished, ok := events[1].(domain.GameFinishedEvent)
	if !ok || finished.ChainLength != 4 {
		t.Errorf("second end event = %+v, want GameFinished{4}", events[1])
	}
	if finished.ChainLength != g.ChainLength() {
		t.Errorf("event chain length %d != game chain length %d", finished.ChainLength, g.ChainLength())
	}

	if bob.Place != 1 {
		t.Errorf("winner place = %d, want 1", bob.Place)
	}
	if len(g.Turns()) != 7 {
		t.Errorf("turn count = %d, want 7", len(g.Turns()))
	}

	accepted := 0
	for _, turn := range g.Turns() {
		if turn.Word != nil && turn.Word.IsCorrect {
			accepted++
		}
	}
	if accepted != g.ChainLength() {
		t.Errorf("accepted turns %d != used word count %d", accepted, g.ChainLength())
	}
}

func TestDeathmatchDuplicateWordRejected(t *testing.T) {
	rules := domain.DeathmatchRules{Type: domain.DeathmatchType, RoundTime: 10, StartScore: 5, Penalty: -5, Reward: 2}
	checker := &fakeChecker{}
	g := newTestGame(rules, checker, "alice", "bob")
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	submit(t, g, "apple")
	submit(t, g, "eagle")

	turn := submit(t, g, "eagle")
	if turn.Info != "Word has already been used" {
		t.Errorf("info = %q, want duplicate rejection", turn.Info)
	}
	if turn.Word == nil || turn.Word.IsCorrect {
		t.Error("duplicate word should be recorded as incorrect")
	}

	alice := g.players.list[0]
	if alice.Score != 2 || alice.Mistakes != 1 {
		t.Errorf("alice score=%d mistakes=%d, want 2, 1", alice.Score, alice.Mistakes)
	}
	if g.ChainLength() != 2 {
		t.Errorf("used word count = %d, want unchanged 2", g.ChainLength())
	}
}

func TestDeathmatchChainLetterRejected(t *testing.T) {
	rules := domain.DeathmatchRules{Type: domain.DeathmatchType, RoundTime: 10, StartScore: 5, Penalty: -5, Reward: 2}
	checker := &fakeChecker{}
	g := newTestGame(rules, checker, "alice", "bob")
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	submit(t, g, "apple")
	callsBefore := checker.calls

	turn := submit(t, g, "banana")
	if turn.Info != "Word does not start with the last letter of the previous word" {
		t.Errorf("info = %q, want chain rejection", turn.Info)
	}
	if checker.calls != callsBefore {
		t.Error("chain rejection should not reach the dictionary")
	}

	// The rejected word must not become the chain target.
	turn = submit(t, g, "egg")
	if turn.Info != "Word is correct" {
		t.Errorf("info = %q, want acceptance against %q", turn.Info, "apple")
	}
}

func TestDeathmatchWordNotInDictionary(t *testing.T) {
	rules := domain.DeathmatchRules{Type: domain.DeathmatchType, RoundTime: 10, StartScore: 5, Penalty: -5, Reward: 2}
	checker := &fakeChecker{missing: map[string]bool{"zzzzz": true}}
	g := newTestGame(rules, checker, "alice", "bob")
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	turn := submit(t, g, "zzzzz")
	if turn.Info != "Word does not exist" {
		t.Errorf("info = %q, want dictionary rejection", turn.Info)
	}
	if g.players.list[0].Score != 0 {
		t.Errorf("score = %d, want 0 after penalty", g.players.list[0].Score)
	}
}

func TestDeathmatchDictionaryUnavailable(t *testing.T) {
	rules := domain.DeathmatchRules{Type: domain.DeathmatchType, RoundTime: 10, StartScore: 5, Penalty: -5, Reward: 2}
	checker := &fakeChecker{err: errors.New("upstream 503")}
	g := newTestGame(rules, checker, "alice", "bob")
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	turn := submit(t, g, "apple")
	if turn.Info != "Word could not be verified" {
		t.Errorf("info = %q, want unverified rejection", turn.Info)
	}
	if turn.Word.IsCorrect {
		t.Error("unverifiable word must count as incorrect")
	}
	alice := g.players.list[0]
	if alice.Score != 0 || alice.Mistakes != 1 {
		t.Errorf("alice score=%d mistakes=%d, want penalty applied", alice.Score, alice.Mistakes)
	}
}

func TestDeathmatchSoloGame(t *testing.T) {
	rules := domain.DeathmatchRules{Type: domain.DeathmatchType, RoundTime: 5, StartScore: 2, Penalty: -5, Reward: 2}
	g := newTestGame(rules, &fakeChecker{}, "alice")
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	timeOut(t, g)

	alice := g.players.list[0]
	if alice.InGame {
		t.Fatal("sole player should be eliminated at score -3")
	}
	if alice.Place != 1 {
		t.Errorf("place = %d, want 1", alice.Place)
	}
	if events := g.TakeEvents(); len(events) != 0 {
		t.Errorf("solo elimination should not emit PlayerLost, got %v", events)
	}
	if !g.IsFinished() {
		t.Fatal("solo game should be finished once its player is out")
	}
	if err := g.End(); err != nil {
		t.Fatalf("End: %v", err)
	}

	events := g.TakeEvents()
	if len(events) != 1 {
		t.Fatalf("end events = %v, want only GameFinished", events)
	}
	if finished, ok := events[0].(domain.GameFinishedEvent); !ok || finished.ChainLength != 0 {
		t.Errorf("event = %+v, want GameFinished{0}", events[0])
	}
}

func TestDeathmatchFirstTurnKeepsFirstPlayer(t *testing.T) {
	rules := domain.DefaultDeathmatchRules()
	g := newTestGame(rules, &fakeChecker{}, "alice", "bob", "carol")
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	turn := mustStartTurn(t, g)
	if turn.PlayerID != g.players.list[0].ID {
		t.Error("first turn should belong to the first player in order")
	}
	if _, err := g.EndTurnTimedOut(); err != nil {
		t.Fatalf("EndTurnTimedOut: %v", err)
	}

	turn = mustStartTurn(t, g)
	if turn.PlayerID != g.players.list[1].ID {
		t.Error("second turn should advance to the next player")
	}
}

func TestDeathmatchTimeLeftInTurn(t *testing.T) {
	rules := domain.DeathmatchRules{Type: domain.DeathmatchType, RoundTime: 10, StartScore: 5, Penalty: -5, Reward: 2}
	g := newTestGame(rules, &fakeChecker{}, "alice", "bob")

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return base }

	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	mustStartTurn(t, g)

	g.now = func() time.Time { return base.Add(3 * time.Second) }
	if left := g.TimeLeftInTurn(); left != 7*time.Second {
		t.Errorf("TimeLeftInTurn = %v, want 7s", left)
	}

	g.now = func() time.Time { return base.Add(11 * time.Second) }
	if left := g.TimeLeftInTurn(); left >= 0 {
		t.Errorf("TimeLeftInTurn past deadline = %v, want negative", left)
	}
}

func TestDeathmatchTimedOutTurnBoundsOvershoot(t *testing.T) {
	rules := domain.DeathmatchRules{Type: domain.DeathmatchType, RoundTime: 10, StartScore: 5, Penalty: -5, Reward: 2}
	g := newTestGame(rules, &fakeChecker{}, "alice", "bob")
	g.SetTurnTimeDeviation(2 * time.Second)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return base }

	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	mustStartTurn(t, g)

	// The loop woke up 7s past the deadline; the sealed turn must not
	// drift further than round_time + deviation from its start.
	g.now = func() time.Time { return base.Add(17 * time.Second) }
	turn, err := g.EndTurnTimedOut()
	if err != nil {
		t.Fatalf("EndTurnTimedOut: %v", err)
	}
	if turn.EndedOn == nil {
		t.Fatal("timed-out turn has no end timestamp")
	}
	if got, want := turn.EndedOn.Sub(turn.StartedOn), 12*time.Second; got != want {
		t.Errorf("turn duration = %v, want clamped to %v", got, want)
	}

	// A timely seal keeps its real timestamp.
	mustStartTurn(t, g)
	g.now = func() time.Time { return base.Add(17*time.Second + 4*time.Second) }
	turn, err = g.EndTurnTimedOut()
	if err != nil {
		t.Fatalf("EndTurnTimedOut: %v", err)
	}
	if got := turn.EndedOn.Sub(turn.StartedOn); got != 4*time.Second {
		t.Errorf("turn duration = %v, want the real 4s", got)
	}
}

func TestOrderedPlayersRotation(t *testing.T) {
	players := []*domain.GamePlayer{
		domain.NewGamePlayer(uuid.New(), "a", 1),
		domain.NewGamePlayer(uuid.New(), "b", 1),
		domain.NewGamePlayer(uuid.New(), "c", 1),
	}
	order := &OrderedPlayers{list: players, currentIdx: 0, currentPlace: 3}

	if err := order.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if order.Current().Name != "b" {
		t.Errorf("current = %s, want b", order.Current().Name)
	}

	// Eliminate b; the index stays on b until the next advance.
	order.RemoveCurrent()
	if order.Current().Name != "b" || order.Current().InGame {
		t.Error("RemoveCurrent should keep the index and clear the flag")
	}
	if order.Current().Place != 3 {
		t.Errorf("place = %d, want 3", order.Current().Place)
	}

	if err := order.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if order.Current().Name != "c" {
		t.Errorf("current = %s, want c", order.Current().Name)
	}

	// Wrap around, skipping the eliminated player.
	if err := order.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if order.Current().Name != "a" {
		t.Errorf("current = %s, want a", order.Current().Name)
	}

	order.RemoveCurrent()
	if order.Current().Place != 2 {
		t.Errorf("second elimination place = %d, want 2", order.Current().Place)
	}

	if err := order.Next(); err != nil {
		t.Fatalf("Next to last player: %v", err)
	}
	if order.Current().Name != "c" {
		t.Errorf("current = %s, want c", order.Current().Name)
	}

	// Eliminating the last player leaves nobody to advance to.
	order.RemoveCurrent()
	if order.Current().Place != 1 {
		t.Errorf("final elimination place = %d, want 1", order.Current().Place)
	}
	if err := order.Next(); err == nil {
		t.Error("Next with every player out should fail")
	}
}

func TestManager(t *testing.T) {
	m := NewManager()
	g := newTestGame(domain.DefaultDeathmatchRules(), &fakeChecker{}, "alice", "bob")
	m.Add(g)

	got, ok := m.Get(g.RoomID())
	if !ok || got != g {
		t.Fatal("Get should return the added game")
	}

	m.Remove(g.RoomID())
	if _, ok := m.Get(g.RoomID()); ok {
		t.Error("Get after Remove should miss")
	}
}
