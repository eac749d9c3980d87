package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/radieske/parimutuel-settlement/internal/chain"
	"github.com/radieske/parimutuel-settlement/internal/domain"
	"github.com/radieske/parimutuel-settlement/internal/settlement"
	"github.com/radieske/parimutuel-settlement/internal/shared/units"
)

// Métodos gravados no journal.
const (
	MethodDeposit         = "reserve.deposit"
	MethodWithdraw        = "reserve.withdraw"
	MethodPayout          = "reserve.payout"
	MethodSetSettlement   = "reserve.setSettlement"
	MethodReleaseRetained = "reserve.releaseRetained"
	MethodPlaceBet        = "settlement.placeBet"
	MethodResolveEvent    = "settlement.resolveEvent"
	MethodSetOracle       = "settlement.setOracle"
	MethodSetResult       = "oracle.setResult"
	MethodSetOperator     = "oracle.setOperator"
	MethodFund            = "faucet.fund"
)

type amountArgs struct {
	Amount *uint256.Int `json:"amount"`
}

type payoutArgs struct {
	Recipient common.Address `json:"recipient"`
	Amount    *uint256.Int   `json:"amount"`
}

type betArgs struct {
	EventID uint64       `json:"eventId"`
	Outcome uint8        `json:"outcome"`
	Stake   *uint256.Int `json:"stake"`
}

type eventArgs struct {
	EventID uint64 `json:"eventId"`
}

type resultArgs struct {
	EventID uint64 `json:"eventId"`
	Outcome uint8  `json:"outcome"`
}

type addressArgs struct {
	Address common.Address `json:"address"`
}

type fundArgs struct {
	To     common.Address `json:"to"`
	Amount *uint256.Int   `json:"amount"`
}

// ---- operações externas ----

func (e *Engine) Deposit(ctx context.Context, caller common.Address, amount *uint256.Int) (rc *chain.Receipt, err error) {
	defer func(start time.Time) { e.observe("deposit", start, err) }(time.Now())
	if err = e.checkCaller(caller); err != nil {
		return nil, err
	}
	return e.deposit(ctx, caller, amount)
}

func (e *Engine) Withdraw(ctx context.Context, caller common.Address, amount *uint256.Int) (rc *chain.Receipt, err error) {
	defer func(start time.Time) { e.observe("withdraw", start, err) }(time.Now())
	if err = e.checkCaller(caller); err != nil {
		return nil, err
	}
	return e.withdraw(ctx, caller, amount)
}

// Payout exposto externamente: a reserva só aceita a liquidação, então qualquer
// chamador externo recebe Unauthorized.
func (e *Engine) Payout(ctx context.Context, caller, recipient common.Address, amount *uint256.Int) (rc *chain.Receipt, err error) {
	defer func(start time.Time) { e.observe("payout", start, err) }(time.Now())
	if err = e.checkCaller(caller); err != nil {
		return nil, err
	}
	return e.payout(ctx, caller, recipient, amount)
}

func (e *Engine) PlaceBet(ctx context.Context, caller common.Address, eventID domain.EventID, outcome domain.Outcome, stake *uint256.Int) (rc *chain.Receipt, err error) {
	defer func(start time.Time) { e.observe("place_bet", start, err) }(time.Now())
	if err = e.checkCaller(caller); err != nil {
		return nil, err
	}
	return e.placeBet(ctx, caller, eventID, outcome, stake)
}

// ResolveEvent pode ser chamado por qualquer um depois que o feed tem o resultado.
func (e *Engine) ResolveEvent(ctx context.Context, caller common.Address, eventID domain.EventID) (res *settlement.Resolution, rc *chain.Receipt, err error) {
	defer func(start time.Time) { e.observe("resolve_event", start, err) }(time.Now())
	if err = e.checkCaller(caller); err != nil {
		return nil, nil, err
	}
	res, rc, err = e.resolveEvent(ctx, caller, eventID)
	if err != nil {
		return nil, nil, err
	}
	if e.metrics != nil {
		kind := "winners"
		if len(res.Payouts) == 0 {
			kind = "no_winners"
		}
		e.metrics.Resolutions.WithLabelValues(kind).Inc()
		for _, p := range res.Payouts {
			e.metrics.Payouts.Inc()
			e.metrics.PayoutWei.Add(units.WeiFloat(p.Amount))
		}
	}
	e.log.Info("event resolved",
		zap.Stringer("event", eventID),
		zap.Stringer("winner", res.Winner),
		zap.Int("winners", len(res.Payouts)),
		zap.String("total_wei", res.TotalStaked.Dec()),
		zap.String("dust_wei", res.Dust.Dec()),
		zap.Uint64("seq", rc.Seq),
	)
	return res, rc, nil
}

func (e *Engine) SetResult(ctx context.Context, caller common.Address, eventID domain.EventID, outcome domain.Outcome) (rc *chain.Receipt, err error) {
	defer func(start time.Time) { e.observe("set_result", start, err) }(time.Now())
	if err = e.checkCaller(caller); err != nil {
		return nil, err
	}
	rc, err = e.setResult(ctx, caller, eventID, outcome)
	if err == nil {
		e.log.Info("result reported", zap.Stringer("event", eventID), zap.Stringer("outcome", outcome), zap.Uint64("seq", rc.Seq))
	}
	return rc, err
}

func (e *Engine) SetSettlement(ctx context.Context, caller, addr common.Address) (rc *chain.Receipt, err error) {
	defer func(start time.Time) { e.observe("set_settlement", start, err) }(time.Now())
	if err = e.checkCaller(caller); err != nil {
		return nil, err
	}
	return e.setSettlement(ctx, caller, addr)
}

func (e *Engine) SetOracle(ctx context.Context, caller, addr common.Address) (rc *chain.Receipt, err error) {
	defer func(start time.Time) { e.observe("set_oracle", start, err) }(time.Now())
	if err = e.checkCaller(caller); err != nil {
		return nil, err
	}
	return e.setOracle(ctx, caller, addr)
}

func (e *Engine) SetOperator(ctx context.Context, caller, addr common.Address) (rc *chain.Receipt, err error) {
	defer func(start time.Time) { e.observe("set_operator", start, err) }(time.Now())
	if err = e.checkCaller(caller); err != nil {
		return nil, err
	}
	return e.setOperator(ctx, caller, addr)
}

// ReleaseRetained devolve à liquidez as apostas de eventos já resolvidos. Só o owner.
func (e *Engine) ReleaseRetained(ctx context.Context, caller common.Address) (released *uint256.Int, rc *chain.Receipt, err error) {
	defer func(start time.Time) { e.observe("release_retained", start, err) }(time.Now())
	if err = e.checkCaller(caller); err != nil {
		return nil, nil, err
	}
	return e.releaseRetained(ctx, caller)
}

// Fund credita saldo nativo numa carteira. Só com o faucet habilitado.
func (e *Engine) Fund(ctx context.Context, to common.Address, amount *uint256.Int) (rc *chain.Receipt, err error) {
	defer func(start time.Time) { e.observe("faucet", start, err) }(time.Now())
	if !e.faucet {
		return nil, fmt.Errorf("%w: faucet disabled", domain.ErrUnauthorized)
	}
	if err = e.checkCaller(to); err != nil {
		return nil, err
	}
	return e.fund(ctx, to, amount)
}

// ---- execução (também usada no replay) ----

func (e *Engine) deposit(ctx context.Context, caller common.Address, amount *uint256.Int) (*chain.Receipt, error) {
	call := chain.Call{From: caller, To: e.addrs.Reserve, Value: amount, Method: MethodDeposit, Args: encodeArgs(amountArgs{amount})}
	return e.chain.Execute(ctx, call, func(tx *chain.Tx) error {
		return e.reserve.Deposit(tx, amount)
	})
}

func (e *Engine) withdraw(ctx context.Context, caller common.Address, amount *uint256.Int) (*chain.Receipt, error) {
	call := chain.Call{From: caller, To: e.addrs.Reserve, Method: MethodWithdraw, Args: encodeArgs(amountArgs{amount})}
	return e.chain.Execute(ctx, call, func(tx *chain.Tx) error {
		_, err := e.reserve.Withdraw(tx, amount)
		return err
	})
}

func (e *Engine) payout(ctx context.Context, caller, recipient common.Address, amount *uint256.Int) (*chain.Receipt, error) {
	call := chain.Call{From: caller, To: e.addrs.Reserve, Method: MethodPayout, Args: encodeArgs(payoutArgs{recipient, amount})}
	return e.chain.Execute(ctx, call, func(tx *chain.Tx) error {
		return e.reserve.Payout(tx, recipient, amount)
	})
}

func (e *Engine) placeBet(ctx context.Context, caller common.Address, eventID domain.EventID, outcome domain.Outcome, stake *uint256.Int) (*chain.Receipt, error) {
	call := chain.Call{
		From: caller, To: e.addrs.Settlement, Value: stake, Method: MethodPlaceBet,
		Args: encodeArgs(betArgs{EventID: uint64(eventID), Outcome: uint8(outcome), Stake: stake}),
	}
	return e.chain.Execute(ctx, call, func(tx *chain.Tx) error {
		return e.settlement.PlaceBet(tx, eventID, outcome, stake)
	})
}

func (e *Engine) resolveEvent(ctx context.Context, caller common.Address, eventID domain.EventID) (*settlement.Resolution, *chain.Receipt, error) {
	var res *settlement.Resolution
	call := chain.Call{From: caller, To: e.addrs.Settlement, Method: MethodResolveEvent, Args: encodeArgs(eventArgs{uint64(eventID)})}
	rc, err := e.chain.Execute(ctx, call, func(tx *chain.Tx) error {
		var err error
		res, err = e.settlement.ResolveEvent(tx, eventID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return res, rc, nil
}

func (e *Engine) setResult(ctx context.Context, caller common.Address, eventID domain.EventID, outcome domain.Outcome) (*chain.Receipt, error) {
	call := chain.Call{From: caller, To: e.addrs.Oracle, Method: MethodSetResult, Args: encodeArgs(resultArgs{uint64(eventID), uint8(outcome)})}
	return e.chain.Execute(ctx, call, func(tx *chain.Tx) error {
		return e.oracle.SetResult(tx, eventID, outcome)
	})
}

func (e *Engine) setSettlement(ctx context.Context, caller, addr common.Address) (*chain.Receipt, error) {
	call := chain.Call{From: caller, To: e.addrs.Reserve, Method: MethodSetSettlement, Args: encodeArgs(addressArgs{addr})}
	return e.chain.Execute(ctx, call, func(tx *chain.Tx) error {
		return e.reserve.SetSettlement(tx, addr)
	})
}

func (e *Engine) setOracle(ctx context.Context, caller, addr common.Address) (*chain.Receipt, error) {
	call := chain.Call{From: caller, To: e.addrs.Settlement, Method: MethodSetOracle, Args: encodeArgs(addressArgs{addr})}
	return e.chain.Execute(ctx, call, func(tx *chain.Tx) error {
		return e.settlement.SetOracle(tx, addr)
	})
}

func (e *Engine) setOperator(ctx context.Context, caller, addr common.Address) (*chain.Receipt, error) {
	call := chain.Call{From: caller, To: e.addrs.Oracle, Method: MethodSetOperator, Args: encodeArgs(addressArgs{addr})}
	return e.chain.Execute(ctx, call, func(tx *chain.Tx) error {
		return e.oracle.SetOperator(tx, addr)
	})
}

func (e *Engine) releaseRetained(ctx context.Context, caller common.Address) (*uint256.Int, *chain.Receipt, error) {
	var released *uint256.Int
	call := chain.Call{From: caller, To: e.addrs.Reserve, Method: MethodReleaseRetained}
	rc, err := e.chain.Execute(ctx, call, func(tx *chain.Tx) error {
		var err error
		released, err = e.reserve.ReleaseRetained(tx)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return released, rc, nil
}

func (e *Engine) fund(ctx context.Context, to common.Address, amount *uint256.Int) (*chain.Receipt, error) {
	if amount == nil || amount.IsZero() {
		return nil, fmt.Errorf("%w: faucet amount must be positive", domain.ErrInvalidAmount)
	}
	call := chain.Call{From: to, To: to, Method: MethodFund, Args: encodeArgs(fundArgs{to, amount})}
	return e.chain.Execute(ctx, call, func(tx *chain.Tx) error {
		return tx.Mint(to, amount)
	})
}

// dispatch reexecuta um receipt do journal com o chamador original.
func (e *Engine) dispatch(ctx context.Context, rc chain.Receipt) error {
	var err error
	switch rc.Method {
	case MethodDeposit:
		var a amountArgs
		if err = json.Unmarshal(rc.Args, &a); err == nil {
			_, err = e.deposit(ctx, rc.From, a.Amount)
		}
	case MethodWithdraw:
		var a amountArgs
		if err = json.Unmarshal(rc.Args, &a); err == nil {
			_, err = e.withdraw(ctx, rc.From, a.Amount)
		}
	case MethodPayout:
		var a payoutArgs
		if err = json.Unmarshal(rc.Args, &a); err == nil {
			_, err = e.payout(ctx, rc.From, a.Recipient, a.Amount)
		}
	case MethodPlaceBet:
		var a betArgs
		if err = json.Unmarshal(rc.Args, &a); err == nil {
			_, err = e.placeBet(ctx, rc.From, domain.EventID(a.EventID), domain.Outcome(a.Outcome), a.Stake)
		}
	case MethodResolveEvent:
		var a eventArgs
		if err = json.Unmarshal(rc.Args, &a); err == nil {
			_, _, err = e.resolveEvent(ctx, rc.From, domain.EventID(a.EventID))
		}
	case MethodSetResult:
		var a resultArgs
		if err = json.Unmarshal(rc.Args, &a); err == nil {
			_, err = e.setResult(ctx, rc.From, domain.EventID(a.EventID), domain.Outcome(a.Outcome))
		}
	case MethodSetSettlement:
		var a addressArgs
		if err = json.Unmarshal(rc.Args, &a); err == nil {
			_, err = e.setSettlement(ctx, rc.From, a.Address)
		}
	case MethodSetOracle:
		var a addressArgs
		if err = json.Unmarshal(rc.Args, &a); err == nil {
			_, err = e.setOracle(ctx, rc.From, a.Address)
		}
	case MethodSetOperator:
		var a addressArgs
		if err = json.Unmarshal(rc.Args, &a); err == nil {
			_, err = e.setOperator(ctx, rc.From, a.Address)
		}
	case MethodReleaseRetained:
		_, _, err = e.releaseRetained(ctx, rc.From)
	case MethodFund:
		var a fundArgs
		if err = json.Unmarshal(rc.Args, &a); err == nil {
			_, err = e.fund(ctx, a.To, a.Amount)
		}
	default:
		err = fmt.Errorf("unknown method %q", rc.Method)
	}
	return err
}
