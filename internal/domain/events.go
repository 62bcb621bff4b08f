package domain

// GameEvent is emitted by the engine and consumed by the game loop, which
// relays each one as a system chat message.
type GameEvent interface {
	gameEvent()
}

type PlayerLostEvent struct {
	PlayerName string
}

type PlayerWonEvent struct {
	PlayerName string
}

type GameFinishedEvent struct {
	ChainLength int
}

func (PlayerLostEvent) gameEvent()   {}
func (PlayerWonEvent) gameEvent()    {}
func (GameFinishedEvent) gameEvent() {}
