package game

import (
	"math/rand"

	"wordchain/internal/apperr"
	"wordchain/internal/domain"
)

// OrderedPlayers is the randomized circular turn order of a single game.
// The order is shuffled once at construction; eliminated players stay in
// the list with InGame=false so client-side indices remain stable.
type OrderedPlayers struct {
	list         []*domain.GamePlayer
	currentIdx   int
	currentPlace int
}

func newOrderedPlayers(players []*domain.GamePlayer) *OrderedPlayers {
	rand.Shuffle(len(players), func(i, j int) {
		players[i], players[j] = players[j], players[i]
	})

	currentIdx := 0
	if len(players) == 0 {
		currentIdx = -1
	}

	return &OrderedPlayers{
		list:       players,
		currentIdx: currentIdx,
		// Place the remaining players are currently competing for.
		currentPlace: len(players),
	}
}

func (p *OrderedPlayers) Len() int {
	return len(p.list)
}

// List returns the players in turn order. Callers must not mutate it.
func (p *OrderedPlayers) List() []*domain.GamePlayer {
	return p.list
}

func (p *OrderedPlayers) Current() *domain.GamePlayer {
	return p.list[p.currentIdx]
}

func (p *OrderedPlayers) CurrentIdx() int {
	return p.currentIdx
}

// Next advances to the next player still in the game, wrapping circularly.
// The caller must check for a finished game first; finding no candidate is
// an illegal state.
func (p *OrderedPlayers) Next() error {
	if len(p.list) == 0 {
		return apperr.New(apperr.KindIllegalState, "cannot advance turn order of an empty player list")
	}

	start := p.currentIdx
	for {
		p.currentIdx = (p.currentIdx + 1) % len(p.list)

		if len(p.list) != 1 && p.currentIdx == start {
			return apperr.New(apperr.KindIllegalState, "all but one player are out of the game")
		}
		if p.Current().InGame {
			return nil
		}
		if p.InGameCount() == 0 {
			return apperr.New(apperr.KindIllegalState, "all players are out of the game")
		}
	}
}

// RemoveCurrent eliminates the current player and assigns their final place.
// The current index stays put; Next skips eliminated players.
func (p *OrderedPlayers) RemoveCurrent() {
	current := p.Current()
	current.InGame = false
	current.Place = p.currentPlace
	p.currentPlace--
}

func (p *OrderedPlayers) InGameCount() int {
	n := 0
	for _, player := range p.list {
		if player.InGame {
			n++
		}
	}
	return n
}
