package producer

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/parimutuel-settlement/pkg/contracts/events"
)

// RedisBroadcaster publica as notificações no canal Pub/Sub lido pelos hubs WS
type RedisBroadcaster struct {
	Client  *redis.Client
	Channel string
}

func NewRedisBroadcaster(c *redis.Client, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{Client: c, Channel: channel}
}

func (p *RedisBroadcaster) Name() string { return "redis" }

func (p *RedisBroadcaster) Notify(ctx context.Context, n events.Notification) error {
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return p.Client.Publish(ctx, p.Channel, b).Err()
}
