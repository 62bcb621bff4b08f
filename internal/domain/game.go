package domain

import (
	"time"

	"github.com/google/uuid"
)

type GameState string

const (
	GameCreating    GameState = "CREATING"
	GameStarted     GameState = "STARTED"
	GameEnded       GameState = "ENDED"
	GameWaiting     GameState = "WAITING"
	GameStartedTurn GameState = "STARTED_TURN"
	GameEndedTurn   GameState = "ENDED_TURN"
)

// GamePlayer is a player's standing within a single game. Clients address
// players by list index, so the id stays off the wire.
type GamePlayer struct {
	ID       uuid.UUID `json:"-"`
	Name     string    `json:"name"`
	InGame   bool      `json:"inGame"`
	Place    int       `json:"place,omitempty"`
	Score    int       `json:"score"`
	Mistakes int       `json:"mistakes"`
}

func NewGamePlayer(id uuid.UUID, name string, startScore int) *GamePlayer {
	return &GamePlayer{
		ID:     id,
		Name:   name,
		InGame: true,
		Score:  startScore,
	}
}

// WordDefinition is one part-of-speech entry retained from the dictionary.
type WordDefinition struct {
	PartOfSpeech string   `json:"partOfSpeech"`
	Definitions  []string `json:"definitions"`
}

// Word is a single submission, lowercased before any comparison.
type Word struct {
	Content     string           `json:"content"`
	IsCorrect   bool             `json:"isCorrect"`
	Definitions []WordDefinition `json:"definitions,omitempty"`
}

// Turn is one scheduled opportunity to submit a word. A timed-out turn has
// no word.
type Turn struct {
	Word      *Word      `json:"word"`
	StartedOn time.Time  `json:"startedOn"`
	EndedOn   *time.Time `json:"endedOn"`
	Info      string     `json:"info"`
	PlayerID  uuid.UUID  `json:"-"`
}
