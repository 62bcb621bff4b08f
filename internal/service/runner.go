package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"wordchain/internal/domain"
	"wordchain/internal/game"
	"wordchain/internal/logger"
	"wordchain/internal/pool"
	"wordchain/internal/ws"
)

// GameBroadcaster is the slice of the connection manager the game loop
// needs.
type GameBroadcaster interface {
	BroadcastGameState(roomID int, state any) error
	BroadcastRoomState(roomID int, state ws.RoomState) error
	BroadcastLobbyState(delta ws.LobbyState) error
}

// SystemChat relays game events to the room as root-authored messages.
type SystemChat interface {
	System(ctx context.Context, content string, roomID int) error
}

// GameStore persists a finished game.
type GameStore interface {
	Finish(ctx context.Context, gameID int, endedOn time.Time, turns []*domain.Turn) error
}

// GameRunner drives one game per room through its phases: it broadcasts
// state transitions, waits on the room's input buffer bounded by the turn
// deadline, relays engine events as system chat and persists the finished
// game. Run is the only goroutine that mutates the engine.
type GameRunner struct {
	manager GameBroadcaster
	chat    SystemChat
	games   *game.Manager
	store   GameStore
	pool    *pool.PlayerRoomPool

	gameStartDelay time.Duration
	turnStartDelay time.Duration

	sleep func(ctx context.Context, d time.Duration)
}

func NewGameRunner(
	manager GameBroadcaster,
	chat SystemChat,
	games *game.Manager,
	store GameStore,
	p *pool.PlayerRoomPool,
	gameStartDelay, turnStartDelay time.Duration,
) *GameRunner {
	return &GameRunner{
		manager:        manager,
		chat:           chat,
		games:          games,
		store:          store,
		pool:           p,
		gameStartDelay: gameStartDelay,
		turnStartDelay: turnStartDelay,
		sleep:          ctxSleep,
	}
}

func ctxSleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Run drives the game to completion. On context cancellation the loop stops
// between phases and the game is dropped unpersisted.
func (r *GameRunner) Run(ctx context.Context, g *game.Deathmatch, input *domain.WordInputBuffer) {
	log := logger.With("game_id", g.ID(), "room_id", g.RoomID())

	if err := r.run(ctx, g, input, log); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("game loop cancelled, game not persisted")
		} else {
			log.Error("game loop failed", "error", err)
		}
	}
	r.games.Remove(g.RoomID())
}

func (r *GameRunner) run(ctx context.Context, g *game.Deathmatch, input *domain.WordInputBuffer, log *slog.Logger) error {
	roomID := g.RoomID()

	if err := g.Start(); err != nil {
		return err
	}
	gamesStarted.Inc()
	r.broadcast(roomID, ws.NewGameStateStarted(g))

	if err := g.Wait(); err != nil {
		return err
	}
	r.broadcast(roomID, ws.NewGameStateWaiting())
	r.sleep(ctx, r.gameStartDelay)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	for {
		// Stale input from the previous turn must not satisfy this one.
		input.TryTake()

		if _, err := g.StartTurn(); err != nil {
			return err
		}
		r.broadcast(roomID, ws.NewGameStateStartedTurn(g))

		if err := r.awaitTurn(ctx, g, input); err != nil {
			return err
		}
		r.broadcast(roomID, ws.NewGameStateEndedTurn(g))
		r.relayEvents(ctx, g, roomID, log)

		if g.IsFinished() {
			break
		}

		if err := g.Wait(); err != nil {
			return err
		}
		r.broadcast(roomID, ws.NewGameStateWaiting())
		r.sleep(ctx, r.turnStartDelay)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if err := g.End(); err != nil {
		return err
	}
	r.relayEvents(ctx, g, roomID, log)
	r.broadcast(roomID, ws.NewGameStateEnded())

	r.reopenRoom(roomID)

	if err := r.store.Finish(ctx, g.ID(), time.Now().UTC(), g.Turns()); err != nil {
		return fmt.Errorf("persist game %d: %w", g.ID(), err)
	}
	gamesFinished.Inc()
	return nil
}

// awaitTurn blocks on the input buffer bounded by the turn's remaining time
// and seals the turn either way. Parent cancellation aborts the game.
func (r *GameRunner) awaitTurn(ctx context.Context, g *game.Deathmatch, input *domain.WordInputBuffer) error {
	turnCtx, cancel := context.WithTimeout(ctx, g.TimeLeftInTurn())
	defer cancel()

	word, err := input.Get(turnCtx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := g.EndTurnTimedOut(); err != nil {
			return err
		}
		turnsTotal.WithLabelValues("timeout").Inc()
		return nil
	}

	turn, err := g.EndTurnInTime(ctx, word)
	if err != nil {
		return err
	}
	if turn.Word != nil && turn.Word.IsCorrect {
		turnsTotal.WithLabelValues("correct").Inc()
	} else {
		turnsTotal.WithLabelValues("incorrect").Inc()
	}
	return nil
}

// relayEvents turns engine events into system chat messages, after the turn
// broadcast they belong to.
func (r *GameRunner) relayEvents(ctx context.Context, g *game.Deathmatch, roomID int, log *slog.Logger) {
	for _, event := range g.TakeEvents() {
		var content string
		switch e := event.(type) {
		case domain.PlayerLostEvent:
			content = fmt.Sprintf("%s is out of the game!", e.PlayerName)
		case domain.PlayerWonEvent:
			content = fmt.Sprintf("%s won the game!", e.PlayerName)
		case domain.GameFinishedEvent:
			content = fmt.Sprintf("The game has finished with a word chain of %d!", e.ChainLength)
		default:
			continue
		}
		if err := r.chat.System(ctx, content, roomID); err != nil {
			log.Warn("game event chat failed", "error", err)
		}
	}
}

// reopenRoom flips the room back to Open once the game is over and updates
// the room and lobby views.
func (r *GameRunner) reopenRoom(roomID int) {
	var roomState ws.RoomState
	var roomOut *ws.RoomOut
	err := r.pool.WithRoom(roomID, func(room *domain.Room) error {
		room.Status = domain.RoomOpen
		room.Touch()
		roomState = ws.NewRoomState(room)
		roomOut = ws.NewRoomOut(room)
		return nil
	})
	if err != nil {
		logger.Warn("room vanished before game end", "room_id", roomID, "error", err)
		return
	}

	if err := r.manager.BroadcastRoomState(roomID, roomState); err != nil {
		logger.Warn("room reopen broadcast failed", "room_id", roomID, "error", err)
	}
	delta := ws.NewLobbyState()
	delta.Rooms = map[int]*ws.RoomOut{roomID: roomOut}
	if err := r.manager.BroadcastLobbyState(delta); err != nil {
		logger.Warn("lobby reopen broadcast failed", "room_id", roomID, "error", err)
	}
}

func (r *GameRunner) broadcast(roomID int, state any) {
	if err := r.manager.BroadcastGameState(roomID, state); err != nil {
		logger.Warn("game state broadcast failed", "room_id", roomID, "error", err)
	}
}
