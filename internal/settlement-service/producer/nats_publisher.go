package producer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/radieske/parimutuel-settlement/pkg/contracts/events"
)

// NatsPublisher publica em <prefix>.<tipo>, com .<eventId> quando houver evento
type NatsPublisher struct {
	Conn   *nats.Conn
	Prefix string
}

func NewNatsPublisher(nc *nats.Conn, prefix string) *NatsPublisher {
	return &NatsPublisher{Conn: nc, Prefix: prefix}
}

func (p *NatsPublisher) Name() string { return "nats" }

// Subject monta o subject de uma notificação
func (p *NatsPublisher) Subject(n events.Notification) string {
	subject := fmt.Sprintf("%s.%s", p.Prefix, n.Type)
	if n.EventID != nil {
		subject = fmt.Sprintf("%s.%d", subject, *n.EventID)
	}
	return subject
}

func (p *NatsPublisher) Notify(_ context.Context, n events.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return p.Conn.Publish(p.Subject(n), data)
}
