package feed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/radieske/parimutuel-settlement/internal/chain"
	"github.com/radieske/parimutuel-settlement/internal/domain"
	"github.com/radieske/parimutuel-settlement/internal/shared/kafka"
)

var operator = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

// fakeReader entrega as mensagens em ordem e cancela o contexto ao esgotar
type fakeReader struct {
	msgs      []kafka.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

type setCall struct {
	caller  common.Address
	eventID domain.EventID
	outcome domain.Outcome
}

// fakeSetter devolve os erros programados, na ordem, e depois nil
type fakeSetter struct {
	errs  []error
	calls []setCall
}

func (s *fakeSetter) SetResult(_ context.Context, caller common.Address, eventID domain.EventID, outcome domain.Outcome) (*chain.Receipt, error) {
	s.calls = append(s.calls, setCall{caller, eventID, outcome})
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &chain.Receipt{Seq: uint64(len(s.calls))}, nil
}

func msg(offset int64, body string) kafka.Message {
	return kafka.Message{Offset: offset, Value: []byte(body)}
}

func run(t *testing.T, r *fakeReader, s *fakeSetter) map[string]int {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.cancel = cancel

	stages := map[string]int{}
	c := &Consumer{
		Log:      zap.NewNop(),
		Reader:   r,
		Setter:   s,
		Operator: operator,
		Backoff:  time.Millisecond,
		OnStage:  func(st string) { stages[st]++ },
	}
	if err := c.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("run: %v", err)
	}
	return stages
}

func TestConsumerAppliesResults(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{
		msg(1, `{"eventId":7,"outcome":2,"source":"supplier"}`),
		msg(2, `{"eventId":8,"outcome":0}`),
	}}
	s := &fakeSetter{}
	stages := run(t, r, s)

	if len(s.calls) != 2 || stages["applied"] != 2 {
		t.Fatalf("calls=%d stages=%v", len(s.calls), stages)
	}
	if s.calls[0] != (setCall{operator, 7, domain.OutcomeAway}) {
		t.Fatalf("first call = %+v", s.calls[0])
	}
	if len(r.committed) != 2 {
		t.Fatalf("committed = %v", r.committed)
	}
}

func TestConsumerSkipsDuplicatesAndRejections(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{
		msg(1, `{"eventId":7,"outcome":1}`),
		msg(2, `{"eventId":7,"outcome":5}`),
		msg(3, `not json`),
	}}
	s := &fakeSetter{errs: []error{
		fmt.Errorf("set: %w", domain.ErrAlreadySet),
		fmt.Errorf("set: %w", domain.ErrInvalidOutcome),
	}}
	stages := run(t, r, s)

	if stages["duplicate"] != 1 || stages["rejected"] != 1 || stages["decode_error"] != 1 {
		t.Fatalf("stages = %v", stages)
	}
	if len(s.calls) != 2 {
		t.Fatalf("setter called %d times", len(s.calls))
	}
	if len(r.committed) != 3 {
		t.Fatalf("every message must be committed, got %v", r.committed)
	}
}

func TestConsumerRetriesInternalErrors(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{msg(1, `{"eventId":9,"outcome":0}`)}}
	s := &fakeSetter{errs: []error{errors.New("journal down"), errors.New("journal down")}}
	stages := run(t, r, s)

	if len(s.calls) != 3 || stages["retry"] != 2 || stages["applied"] != 1 {
		t.Fatalf("calls=%d stages=%v", len(s.calls), stages)
	}
	if len(r.committed) != 1 {
		t.Fatalf("committed = %v", r.committed)
	}
}
