package producer

import (
	"context"
	"encoding/json"

	"github.com/radieske/parimutuel-settlement/internal/shared/kafka"
	"github.com/radieske/parimutuel-settlement/pkg/contracts/events"
)

// KafkaPublisher publica cada notificação no tópico do seu tipo,
// particionada pelo evento para manter a ordem por evento
type KafkaPublisher struct {
	Writer kafka.MessageWriter
	Topic  func(notificationType string) string
}

func NewKafkaPublisher(w kafka.MessageWriter, topic func(string) string) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, Topic: topic}
}

func (p *KafkaPublisher) Name() string { return "kafka" }

func (p *KafkaPublisher) Notify(ctx context.Context, n events.Notification) error {
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return kafka.WriteJSON(ctx, p.Writer, p.Topic(n.Type), n.Key(), b)
}
