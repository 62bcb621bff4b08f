package ws

import (
	"context"

	"wordchain/internal/domain"
)

// Chat persists messages and broadcasts them to their room. System
// messages are authored by the root pseudo-user.
type Chat struct {
	store   ChatStore
	manager *ConnectionManager
	root    domain.Player
}

func NewChat(store ChatStore, manager *ConnectionManager, root domain.Player) *Chat {
	return &Chat{store: store, manager: manager, root: root}
}

func (c *Chat) FromPlayer(ctx context.Context, player domain.Player, content string, roomID int) error {
	return c.deliver(ctx, player, content, roomID)
}

func (c *Chat) System(ctx context.Context, content string, roomID int) error {
	return c.deliver(ctx, c.root, content, roomID)
}

func (c *Chat) deliver(ctx context.Context, author domain.Player, content string, roomID int) error {
	id, createdOn, err := c.store.SaveMessage(ctx, content, roomID, author.ID)
	if err != nil {
		return err
	}
	msg := NewChatMessage(content, author.Name, roomID)
	msg.ID = &id
	msg.CreatedOn = &createdOn
	return c.manager.BroadcastChat(msg)
}
