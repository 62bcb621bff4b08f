package domain

import (
	"context"
	"sync"
)

// WordInputBuffer is the single-slot rendezvous between the message router
// and a room's game loop. Put never blocks and overwrites an un-consumed
// value; only the latest input matters for the current turn. Get blocks
// until a value is present, then takes and clears the slot. The game loop
// is the only consumer.
type WordInputBuffer struct {
	mu   sync.Mutex
	word *string
	sig  chan struct{}
}

func NewWordInputBuffer() *WordInputBuffer {
	return &WordInputBuffer{sig: make(chan struct{}, 1)}
}

func (b *WordInputBuffer) Put(word string) {
	b.mu.Lock()
	b.word = &word
	b.mu.Unlock()

	select {
	case b.sig <- struct{}{}:
	default:
	}
}

// TryTake removes and returns the buffered word without blocking. The game
// loop uses it to discard stale input left over from a previous turn.
func (b *WordInputBuffer) TryTake() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.word == nil {
		return "", false
	}
	word := *b.word
	b.word = nil
	return word, true
}

func (b *WordInputBuffer) Get(ctx context.Context) (string, error) {
	for {
		b.mu.Lock()
		if b.word != nil {
			word := *b.word
			b.word = nil
			b.mu.Unlock()
			return word, nil
		}
		b.mu.Unlock()

		select {
		case <-b.sig:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}
