package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/radieske/parimutuel-settlement/pkg/contracts/events"
)

// LogSubscriber registra cada notificação no log estruturado.
type LogSubscriber struct{ Log *zap.Logger }

func (l LogSubscriber) Name() string { return "log" }

func (l LogSubscriber) Notify(_ context.Context, n events.Notification) error {
	fields := []zap.Field{
		zap.String("type", n.Type),
		zap.Uint64("seq", n.Seq),
		zap.String("id", n.ID),
		zap.Any("payload", n.Payload),
	}
	if n.EventID != nil {
		fields = append(fields, zap.Uint64("eventId", *n.EventID))
	}
	l.Log.Info("notification", fields...)
	return nil
}
