package events

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Notification é o envelope entregue aos assinantes depois do commit de uma chamada.
// Type coincide com o tópico (ver pkg/contracts/topics).
type Notification struct {
	ID      string    `json:"id"`
	Seq     uint64    `json:"seq"` // sequência da chamada que gerou a notificação
	Type    string    `json:"type"`
	EventID *uint64   `json:"eventId,omitempty"`
	Ts      time.Time `json:"ts"`
	Payload any       `json:"payload"`
}

// New cria uma notificação ainda sem Seq/Ts (preenchidos no commit).
func New(typ string, payload any) Notification {
	return Notification{ID: uuid.NewString(), Type: typ, Payload: payload}
}

// ForEvent associa a notificação a um evento, usado para roteamento no WS.
func (n Notification) ForEvent(eventID uint64) Notification {
	n.EventID = &eventID
	return n
}

// Key é a chave de partição usada pelos produtores.
func (n Notification) Key() string {
	if n.EventID != nil {
		return "event:" + strconv.FormatUint(*n.EventID, 10)
	}
	return n.Type
}

// Raw é a forma desserializada de uma notificação vinda de Redis/Kafka.
type Raw struct {
	ID      string          `json:"id"`
	Seq     uint64          `json:"seq"`
	Type    string          `json:"type"`
	EventID *uint64         `json:"eventId,omitempty"`
	Ts      time.Time       `json:"ts"`
	Payload json.RawMessage `json:"payload"`
}
