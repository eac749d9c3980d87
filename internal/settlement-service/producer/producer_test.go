package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/radieske/parimutuel-settlement/internal/shared/kafka"
	"github.com/radieske/parimutuel-settlement/pkg/contracts/events"
	"github.com/radieske/parimutuel-settlement/pkg/contracts/topics"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func betPlaced() events.Notification {
	bettor := common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906")
	return events.New(topics.BetPlaced, events.BetPlaced{
		EventID: 7,
		Bettor:  bettor,
		Amount:  uint256.NewInt(1000),
		Outcome: 2,
	}).ForEvent(7)
}

func TestKafkaPublisherTopicAndKey(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w, func(typ string) string { return "settlement." + typ })

	if err := p.Notify(context.Background(), betPlaced()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d", len(w.msgs))
	}
	m := w.msgs[0]
	if m.Topic != "settlement.bet_placed" || string(m.Key) != "event:7" {
		t.Fatalf("topic=%s key=%s", m.Topic, m.Key)
	}

	var raw events.Raw
	if err := json.Unmarshal(m.Value, &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var payload events.BetPlaced
	if err := json.Unmarshal(raw.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Amount.Uint64() != 1000 || raw.EventID == nil || *raw.EventID != 7 {
		t.Fatalf("unexpected message: %+v %+v", raw, payload)
	}
}

func TestKafkaPublisherKeyWithoutEvent(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w, func(typ string) string { return typ })
	n := events.New(topics.Deposited, events.Deposited{Amount: uint256.NewInt(1)})
	if err := p.Notify(context.Background(), n); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if string(w.msgs[0].Key) != topics.Deposited {
		t.Fatalf("key = %s", w.msgs[0].Key)
	}
}

func TestKafkaPublisherWrapsWriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewKafkaPublisher(&fakeWriter{err: boom}, func(typ string) string { return typ })
	if err := p.Notify(context.Background(), betPlaced()); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestNatsSubject(t *testing.T) {
	p := NewNatsPublisher(nil, "settlement")
	if got := p.Subject(betPlaced()); got != "settlement.bet_placed.7" {
		t.Fatalf("subject = %s", got)
	}
	n := events.New(topics.Withdrawn, events.Withdrawn{})
	if got := p.Subject(n); got != "settlement.withdrawn" {
		t.Fatalf("subject = %s", got)
	}
}
