package service

import (
	"context"
	"time"

	"wordchain/internal/apperr"
	"wordchain/internal/logger"
	"wordchain/internal/pool"
	"wordchain/internal/ws"
)

// RoomStore is the slice of the room repository the reaper needs.
type RoomStore interface {
	UnendedIDs(ctx context.Context, lobbyID int) ([]int, error)
	MarkEnded(ctx context.Context, id int, endedOn time.Time) error
}

// LobbyBroadcaster pushes the post-pass lobby snapshot out.
type LobbyBroadcaster interface {
	BroadcastLobbyState(delta ws.LobbyState) error
}

// fireTolerance bounds how late a pass may still fire. A wakeup further
// past the boundary than this skips to the next one instead of catching up
// in a burst.
const fireTolerance = time.Second

// RoomReaper periodically expires rooms that sit empty past the configured
// delay and reconciles the room table with the pool. It is the only
// long-running task outside the per-room game loops.
type RoomReaper struct {
	pool    *pool.PlayerRoomPool
	rooms   RoomStore
	manager LobbyBroadcaster

	interval time.Duration
	delay    time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

func NewRoomReaper(p *pool.PlayerRoomPool, rooms RoomStore, manager LobbyBroadcaster, interval, delay time.Duration) *RoomReaper {
	return &RoomReaper{
		pool:     p,
		rooms:    rooms,
		manager:  manager,
		interval: interval,
		delay:    delay,
		now:      func() time.Time { return time.Now().UTC() },
		sleep:    ctxSleep,
	}
}

// Run fires a pass on every interval boundary counted from a whole-minute
// start, until the context is cancelled. Boundaries are absolute, so a slow
// pass does not drift the schedule.
func (r *RoomReaper) Run(ctx context.Context) {
	startedOn := r.now().Truncate(time.Minute)
	logger.Info("room reaper started", "interval", r.interval.String(), "delay", r.delay.String())

	for {
		target := nextBoundary(startedOn, r.interval, r.now())
		r.sleep(ctx, target.Sub(r.now()))
		if ctx.Err() != nil {
			logger.Info("room reaper stopped")
			return
		}
		if !shouldFire(target, r.now()) {
			// Woke up too far past the boundary; realign instead of
			// firing a burst of make-up passes.
			continue
		}
		r.pass(ctx)
	}
}

// nextBoundary is the earliest multiple-of-interval instant after now.
func nextBoundary(startedOn time.Time, interval time.Duration, now time.Time) time.Time {
	if !now.After(startedOn) {
		return startedOn
	}
	elapsed := now.Sub(startedOn)
	n := elapsed/interval + 1
	return startedOn.Add(n * interval)
}

func shouldFire(target, now time.Time) bool {
	late := now.Sub(target)
	return late >= 0 && late <= fireTolerance
}

// pass expires idle rooms and reconciles persistence: a room row with no
// end timestamp that is gone from the pool was lost to a crash and is
// sealed; a room that sits empty past the delay is removed and sealed.
func (r *RoomReaper) pass(ctx context.Context) {
	ids, err := r.rooms.UnendedIDs(ctx, r.pool.LobbyID())
	if err != nil {
		logger.Error("reaper could not list rooms", "error", err)
		return
	}

	now := r.now()
	cutoff := now.Add(-r.delay)
	var removed []int
	for _, id := range ids {
		wasRemoved, err := r.pool.RemoveIfIdle(id, cutoff)
		if apperr.Is(err, apperr.KindNotFound) {
			if err := r.rooms.MarkEnded(ctx, id, now); err != nil {
				logger.Error("reaper could not seal lost room", "room_id", id, "error", err)
			}
			continue
		}
		if err != nil {
			logger.Error("reaper pool check failed", "room_id", id, "error", err)
			continue
		}
		if !wasRemoved {
			continue
		}

		if err := r.rooms.MarkEnded(ctx, id, now); err != nil {
			logger.Error("reaper could not seal room", "room_id", id, "error", err)
		}
		removed = append(removed, id)
		roomsReaped.Inc()
		logger.Info("expired idle room", "room_id", id)
	}

	if len(removed) == 0 {
		return
	}

	state := ws.BuildLobbyState(r.pool)
	for _, id := range removed {
		state.Rooms[id] = nil
	}
	if err := r.manager.BroadcastLobbyState(state); err != nil {
		logger.Error("reaper lobby broadcast failed", "error", err)
	}
}
