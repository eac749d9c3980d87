// Package oracle guarda o resultado de cada evento, gravado uma única vez pelo operador.
package oracle

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/radieske/parimutuel-settlement/internal/chain"
	"github.com/radieske/parimutuel-settlement/internal/domain"
	"github.com/radieske/parimutuel-settlement/pkg/contracts/events"
	"github.com/radieske/parimutuel-settlement/pkg/contracts/topics"
)

type Feed struct {
	log      *zap.Logger
	owner    common.Address
	operator common.Address
	results  map[domain.EventID]domain.Outcome
}

// New cria o feed com o owner também como operador.
func New(log *zap.Logger, owner common.Address) *Feed {
	return &Feed{
		log:      log,
		owner:    owner,
		operator: owner,
		results:  make(map[domain.EventID]domain.Outcome),
	}
}

// SetOperator troca o operador confiável. Só o owner.
func (f *Feed) SetOperator(tx *chain.Tx, addr common.Address) error {
	if tx.Caller() != f.owner {
		return fmt.Errorf("%w: only owner can set operator", domain.ErrUnauthorized)
	}
	prev := f.operator
	f.operator = addr
	tx.OnRollback(func() { f.operator = prev })
	return nil
}

// SetResult grava o resultado; imutável depois de gravado.
func (f *Feed) SetResult(tx *chain.Tx, eventID domain.EventID, outcome domain.Outcome) error {
	if tx.Caller() != f.operator {
		return fmt.Errorf("%w: only operator can set results", domain.ErrUnauthorized)
	}
	if !outcome.Valid() {
		return fmt.Errorf("%w: %d", domain.ErrInvalidOutcome, outcome)
	}
	if prev, ok := f.results[eventID]; ok {
		return fmt.Errorf("%w: event %s already %s", domain.ErrAlreadySet, eventID, prev)
	}

	f.results[eventID] = outcome
	tx.OnRollback(func() { delete(f.results, eventID) })

	tx.Emit(events.New(topics.ResultUpdated, events.ResultUpdated{
		EventID: uint64(eventID),
		Outcome: uint8(outcome),
	}).ForEvent(uint64(eventID)))
	f.log.Debug("result staged", zap.Stringer("event", eventID), zap.Stringer("outcome", outcome))
	return nil
}

func (f *Feed) Result(eventID domain.EventID) (domain.Outcome, error) {
	o, ok := f.results[eventID]
	if !ok {
		return 0, fmt.Errorf("%w: event %s", domain.ErrNotSet, eventID)
	}
	return o, nil
}

func (f *Feed) IsSet(eventID domain.EventID) bool {
	_, ok := f.results[eventID]
	return ok
}

func (f *Feed) Owner() common.Address    { return f.owner }
func (f *Feed) Operator() common.Address { return f.operator }
