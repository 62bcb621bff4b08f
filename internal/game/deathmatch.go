package game

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"wordchain/internal/apperr"
	"wordchain/internal/domain"
	"wordchain/internal/logger"

	"github.com/google/uuid"
)

// WordChecker resolves a word against the external dictionary.
type WordChecker interface {
	Check(ctx context.Context, word string) (domain.Word, error)
}

// Deathmatch is the turn state machine for one game. It is mutated only by
// the game loop that owns it. The sole piece readable from other
// goroutines is the in-flight turn, which the message router consults to
// drop inputs from players who are not on turn.
type Deathmatch struct {
	id     int
	roomID int
	rules  domain.DeathmatchRules
	state  domain.GameState

	players *OrderedPlayers
	turns   []*domain.Turn

	curMu   sync.RWMutex
	current *domain.Turn

	words  map[string]struct{}
	events []domain.GameEvent

	checker      WordChecker
	maxDeviation time.Duration
	now          func() time.Time
}

func NewDeathmatch(id, roomID int, players []*domain.Session, rules domain.DeathmatchRules, checker WordChecker) *Deathmatch {
	gamePlayers := make([]*domain.GamePlayer, 0, len(players))
	for _, p := range players {
		gamePlayers = append(gamePlayers, domain.NewGamePlayer(p.PlayerID, p.Name, rules.StartScore))
	}

	return &Deathmatch{
		id:           id,
		roomID:       roomID,
		rules:        rules,
		state:        domain.GameCreating,
		players:      newOrderedPlayers(gamePlayers),
		words:        make(map[string]struct{}),
		checker:      checker,
		maxDeviation: time.Second,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SetTurnTimeDeviation overrides the allowed overshoot of a timed-out turn
// past its round-time deadline.
func (g *Deathmatch) SetTurnTimeDeviation(d time.Duration) {
	if d > 0 {
		g.maxDeviation = d
	}
}

func (g *Deathmatch) ID() int                       { return g.id }
func (g *Deathmatch) RoomID() int                   { return g.roomID }
func (g *Deathmatch) Rules() domain.DeathmatchRules { return g.rules }
func (g *Deathmatch) State() domain.GameState       { return g.state }
func (g *Deathmatch) Players() *OrderedPlayers      { return g.players }
func (g *Deathmatch) Turns() []*domain.Turn         { return g.turns }

func (g *Deathmatch) CurrentTurn() *domain.Turn {
	g.curMu.RLock()
	defer g.curMu.RUnlock()
	return g.current
}

// ChainLength is the number of accepted words so far.
func (g *Deathmatch) ChainLength() int { return len(g.words) }

// TimeLeftInTurn is the remaining budget of the in-flight turn. Negative
// once the deadline has passed.
func (g *Deathmatch) TimeLeftInTurn() time.Duration {
	elapsed := g.now().Sub(g.current.StartedOn)
	return time.Duration(g.rules.RoundTime)*time.Second - elapsed
}

// TakeEvents returns the events emitted since the last call and clears the
// buffer.
func (g *Deathmatch) TakeEvents() []domain.GameEvent {
	events := g.events
	g.events = nil
	return events
}

func (g *Deathmatch) illegalTransition(op string) error {
	return apperr.Newf(apperr.KindIllegalState, "%s is not legal in the %s game state", op, g.state)
}

func (g *Deathmatch) Start() error {
	if g.state != domain.GameCreating {
		return g.illegalTransition("start")
	}
	g.state = domain.GameStarted
	return nil
}

func (g *Deathmatch) Wait() error {
	if g.state != domain.GameStarted && g.state != domain.GameEndedTurn {
		return g.illegalTransition("wait")
	}
	g.state = domain.GameWaiting
	return nil
}

// StartTurn opens a turn for the next player. The first turn keeps the
// initial player; later turns advance the circular order.
func (g *Deathmatch) StartTurn() (*domain.Turn, error) {
	if g.state != domain.GameWaiting {
		return nil, g.illegalTransition("start turn")
	}
	g.state = domain.GameStartedTurn

	if len(g.turns) > 0 {
		if err := g.players.Next(); err != nil {
			return nil, err
		}
	}

	turn := &domain.Turn{
		StartedOn: g.now(),
		PlayerID:  g.players.Current().ID,
	}
	g.curMu.Lock()
	g.current = turn
	g.curMu.Unlock()
	return turn, nil
}

// EndTurnInTime seals the turn with a submitted word.
func (g *Deathmatch) EndTurnInTime(ctx context.Context, word string) (*domain.Turn, error) {
	if g.state != domain.GameStartedTurn {
		return nil, g.illegalTransition("end turn")
	}
	g.state = domain.GameEndedTurn

	endedOn := g.now()
	g.current.EndedOn = &endedOn
	validated, info := g.validateWord(ctx, word)
	g.current.Word = &validated
	g.current.Info = info

	g.evaluateTurn()
	g.turns = append(g.turns, g.current)
	return g.current, nil
}

// EndTurnTimedOut seals the turn without a word. The recorded end never
// drifts further than the allowed deviation past the round-time deadline,
// however late the loop woke up.
func (g *Deathmatch) EndTurnTimedOut() (*domain.Turn, error) {
	if g.state != domain.GameStartedTurn {
		return nil, g.illegalTransition("end turn")
	}
	g.state = domain.GameEndedTurn

	endedOn := g.now()
	deadline := g.current.StartedOn.Add(time.Duration(g.rules.RoundTime)*time.Second + g.maxDeviation)
	if endedOn.After(deadline) {
		logger.Warn("turn sealed past its deadline",
			"game_id", g.id, "overshoot", endedOn.Sub(deadline).String())
		endedOn = deadline
	}
	g.current.EndedOn = &endedOn
	g.current.Word = nil
	g.current.Info = "Turn time exceeded"

	g.evaluateTurn()
	g.turns = append(g.turns, g.current)
	return g.current, nil
}

// End finishes the game and emits the closing events. A solo game gets only
// GameFinished; a multiplayer game also announces the winner.
func (g *Deathmatch) End() error {
	if g.state != domain.GameEndedTurn {
		return g.illegalTransition("end")
	}
	g.state = domain.GameEnded

	if g.players.Len() > 1 {
		for _, player := range g.players.List() {
			if player.InGame {
				player.Place = g.players.currentPlace
				g.events = append(g.events, domain.PlayerWonEvent{PlayerName: player.Name})
				break
			}
		}
	}
	g.events = append(g.events, domain.GameFinishedEvent{ChainLength: len(g.words)})
	return nil
}

func (g *Deathmatch) IsFinished() bool {
	if g.players.Len() == 1 {
		return !g.players.Current().InGame
	}
	return g.players.InGameCount() == 1
}

// validateWord runs the ordered validation chain; the first failure wins.
func (g *Deathmatch) validateWord(ctx context.Context, word string) (domain.Word, string) {
	word = strings.ToLower(word)

	if !g.chainsWithPreviousWord(word) {
		return domain.Word{Content: word}, "Word does not start with the last letter of the previous word"
	}

	checked, err := g.checker.Check(ctx, word)
	if err != nil {
		logger.Warn("dictionary lookup failed", "word", word, "game_id", g.id, "error", err)
		return domain.Word{Content: word}, "Word could not be verified"
	}
	if !checked.IsCorrect {
		return checked, "Word does not exist"
	}

	if _, used := g.words[word]; used {
		return domain.Word{Content: word}, "Word has already been used"
	}

	g.words[word] = struct{}{}
	return checked, "Word is correct"
}

// chainsWithPreviousWord checks the input against the most recent accepted
// word; the first word of a game always chains.
func (g *Deathmatch) chainsWithPreviousWord(word string) bool {
	for i := len(g.turns) - 1; i >= 0; i-- {
		turn := g.turns[i]
		if turn.Word == nil || !turn.Word.IsCorrect {
			continue
		}

		last, _ := utf8.DecodeLastRuneInString(turn.Word.Content)
		first, _ := utf8.DecodeRuneInString(word)
		return first == last && first != utf8.RuneError
	}
	return true
}

// evaluateTurn applies score accounting to the current player and handles
// elimination.
func (g *Deathmatch) evaluateTurn() {
	player := g.players.Current()

	if g.current.Word == nil || !g.current.Word.IsCorrect {
		player.Mistakes++
		player.Score += g.rules.Penalty
	} else {
		player.Score += g.rules.Reward
	}

	if player.Score <= 0 {
		g.players.RemoveCurrent()

		if g.players.Len() != 1 {
			g.events = append(g.events, domain.PlayerLostEvent{PlayerName: player.Name})
		}
	}
}

// CurrentPlayerID is the id of the player whose turn is in flight, or the
// zero UUID before the first turn opens. Safe to call from any goroutine.
func (g *Deathmatch) CurrentPlayerID() uuid.UUID {
	g.curMu.RLock()
	defer g.curMu.RUnlock()
	if g.current == nil {
		return uuid.Nil
	}
	return g.current.PlayerID
}
