package notify

import (
	"context"

	"github.com/radieske/parimutuel-settlement/pkg/contracts/events"
)

// ChannelSubscriber expõe as notificações como um canal Go, opcionalmente filtrado por tipo.
type ChannelSubscriber struct {
	name  string
	types map[string]bool
	C     chan events.Notification
}

func NewChannelSubscriber(name string, buffer int, types ...string) *ChannelSubscriber {
	allowed := make(map[string]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}
	return &ChannelSubscriber{name: name, types: allowed, C: make(chan events.Notification, buffer)}
}

func (c *ChannelSubscriber) Name() string { return c.name }

func (c *ChannelSubscriber) Notify(ctx context.Context, n events.Notification) error {
	if len(c.types) > 0 && !c.types[n.Type] {
		return nil
	}
	select {
	case c.C <- n:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
