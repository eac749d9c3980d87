// Package engine monta reserva, feed de resultados e liquidação sobre o chain,
// em endereços fixos, e expõe as operações externas com o chamador explícito.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/radieske/parimutuel-settlement/internal/chain"
	"github.com/radieske/parimutuel-settlement/internal/domain"
	"github.com/radieske/parimutuel-settlement/internal/oracle"
	"github.com/radieske/parimutuel-settlement/internal/reserve"
	"github.com/radieske/parimutuel-settlement/internal/settlement"
	"github.com/radieske/parimutuel-settlement/internal/shared/metrics"
	"github.com/radieske/parimutuel-settlement/internal/shared/units"
)

// Addresses são as identidades dos componentes implantados.
type Addresses struct {
	Reserve    common.Address `json:"reserve"`
	Settlement common.Address `json:"settlement"`
	Oracle     common.Address `json:"oracle"`
}

// DeriveAddresses calcula os endereços como um deploy do owner com nonces 0, 1 e 2.
func DeriveAddresses(owner common.Address) Addresses {
	return Addresses{
		Reserve:    crypto.CreateAddress(owner, 0),
		Settlement: crypto.CreateAddress(owner, 1),
		Oracle:     crypto.CreateAddress(owner, 2),
	}
}

type Options struct {
	Journal   chain.Journal
	Publisher chain.Publisher
	Metrics   *metrics.Settlement
	Faucet    bool
	Clock     func() time.Time
}

type Engine struct {
	log   *zap.Logger
	owner common.Address
	addrs Addresses

	chain      *chain.Chain
	reserve    *reserve.Reserve
	oracle     *oracle.Feed
	settlement *settlement.Settlement

	metrics *metrics.Settlement
	faucet  bool
}

func New(log *zap.Logger, owner common.Address, opts Options) *Engine {
	var copts []chain.Option
	if opts.Journal != nil {
		copts = append(copts, chain.WithJournal(opts.Journal))
	}
	if opts.Publisher != nil {
		copts = append(copts, chain.WithPublisher(opts.Publisher))
	}
	if opts.Clock != nil {
		copts = append(copts, chain.WithClock(opts.Clock))
	}

	addrs := DeriveAddresses(owner)
	e := &Engine{
		log:     log,
		owner:   owner,
		addrs:   addrs,
		chain:   chain.New(log.Named("chain"), copts...),
		reserve: reserve.New(log.Named("reserve"), owner),
		oracle:  oracle.New(log.Named("oracle"), owner),
		metrics: opts.Metrics,
		faucet:  opts.Faucet,
	}
	e.settlement = settlement.New(log.Named("settlement"), owner, addrs.Reserve, e.reserve, e.lookupOracle)
	return e
}

func (e *Engine) lookupOracle(addr common.Address) (settlement.Oracle, bool) {
	if addr == e.addrs.Oracle {
		return e.oracle, true
	}
	return nil, false
}

// Bootstrap reaplica o journal e faz os vínculos iniciais que ainda faltam:
// reserva -> liquidação, liquidação -> feed e o operador do feed.
func (e *Engine) Bootstrap(ctx context.Context, receipts []chain.Receipt, operator common.Address) error {
	if err := e.chain.Replay(ctx, receipts, e.dispatch); err != nil {
		return err
	}

	var settlementBound, oracleBound bool
	var currentOperator common.Address
	e.chain.View(func(chain.Reader) {
		settlementBound = e.reserve.Settlement() == e.addrs.Settlement
		oracleBound = e.settlement.Oracle() == e.addrs.Oracle
		currentOperator = e.oracle.Operator()
	})

	if !settlementBound {
		if _, err := e.setSettlement(ctx, e.owner, e.addrs.Settlement); err != nil {
			return fmt.Errorf("bind settlement: %w", err)
		}
	}
	if !oracleBound {
		if _, err := e.setOracle(ctx, e.owner, e.addrs.Oracle); err != nil {
			return fmt.Errorf("bind oracle: %w", err)
		}
	}
	if operator != (common.Address{}) && operator != currentOperator {
		if _, err := e.setOperator(ctx, e.owner, operator); err != nil {
			return fmt.Errorf("set operator: %w", err)
		}
	}
	e.refreshGauges()
	e.log.Info("engine ready",
		zap.String("owner", e.owner.Hex()),
		zap.String("reserve", e.addrs.Reserve.Hex()),
		zap.String("settlement", e.addrs.Settlement.Hex()),
		zap.String("oracle", e.addrs.Oracle.Hex()),
		zap.Uint64("seq", e.chain.Sequence()),
	)
	return nil
}

// checkCaller barra identidades que não podem originar chamadas externas.
func (e *Engine) checkCaller(caller common.Address) error {
	switch caller {
	case common.Address{}:
		return fmt.Errorf("%w: missing caller", domain.ErrUnauthorized)
	case e.addrs.Reserve, e.addrs.Settlement, e.addrs.Oracle:
		return fmt.Errorf("%w: component address %s cannot originate calls", domain.ErrUnauthorized, caller.Hex())
	}
	return nil
}

// observe registra métricas de uma operação externa.
func (e *Engine) observe(op string, start time.Time, err error) {
	if e.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = errorKind(err)
	}
	e.metrics.Calls.WithLabelValues(op, result).Inc()
	e.metrics.CallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err == nil {
		e.refreshGauges()
	}
}

func (e *Engine) refreshGauges() {
	if e.metrics == nil {
		return
	}
	st := e.ReserveState()
	e.metrics.Liquidity.Set(units.WeiFloat(st.Liquidity))
	e.metrics.Escrow.Set(units.WeiFloat(st.Escrow))
	e.metrics.Sequence.Set(float64(e.chain.Sequence()))
}

// errorKind reduz o erro a um rótulo de baixa cardinalidade.
func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrInsufficientPoolLiquidity),
		errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient"
	case errors.Is(err, domain.ErrInvalidOutcome), errors.Is(err, domain.ErrInvalidAmount):
		return "invalid"
	case errors.Is(err, domain.ErrEventAlreadyResolved), errors.Is(err, domain.ErrAlreadySet):
		return "conflict"
	case errors.Is(err, domain.ErrResultNotAvailable), errors.Is(err, domain.ErrNotSet):
		return "not_available"
	default:
		return "error"
	}
}

func encodeArgs(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		// args são structs internas com tipos serializáveis
		panic(fmt.Sprintf("engine: encode args: %v", err))
	}
	return b
}

func (e *Engine) Addresses() Addresses    { return e.addrs }
func (e *Engine) Owner() common.Address   { return e.owner }
func (e *Engine) FaucetEnabled() bool     { return e.faucet }
func (e *Engine) Sequence() uint64        { return e.chain.Sequence() }
