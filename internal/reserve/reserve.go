// Package reserve custodia o colateral em pool: saldos por depositante, liquidez
// total, escrow das apostas por evento e o payout restrito ao componente de liquidação.
package reserve

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/radieske/parimutuel-settlement/internal/chain"
	"github.com/radieske/parimutuel-settlement/internal/domain"
	"github.com/radieske/parimutuel-settlement/pkg/contracts/events"
	"github.com/radieske/parimutuel-settlement/pkg/contracts/topics"
)

// Reserve não tem lock próprio: todo acesso passa pelo chain (Execute/View).
type Reserve struct {
	log        *zap.Logger
	owner      common.Address
	settlement common.Address

	balances  map[common.Address]uint256.Int
	liquidity uint256.Int

	escrow      map[domain.EventID]uint256.Int
	escrowTotal uint256.Int
	retained    uint256.Int
}

func New(log *zap.Logger, owner common.Address) *Reserve {
	return &Reserve{
		log:      log,
		owner:    owner,
		balances: make(map[common.Address]uint256.Int),
		escrow:   make(map[domain.EventID]uint256.Int),
	}
}

// SetSettlement vincula a identidade autorizada a chamar Payout/Escrow. Só o owner.
func (r *Reserve) SetSettlement(tx *chain.Tx, addr common.Address) error {
	if tx.Caller() != r.owner {
		return fmt.Errorf("%w: only owner can bind settlement", domain.ErrUnauthorized)
	}
	prev := r.settlement
	r.settlement = addr
	tx.OnRollback(func() { r.settlement = prev })
	r.log.Debug("settlement binding staged", zap.String("settlement", addr.Hex()))
	return nil
}

// Deposit credita saldo e liquidez. O valor anexado tem que ser exatamente amount.
func (r *Reserve) Deposit(tx *chain.Tx, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return fmt.Errorf("%w: deposit must be positive", domain.ErrInvalidAmount)
	}
	if !tx.Value().Eq(amount) {
		return fmt.Errorf("%w: attached value %s != amount %s", domain.ErrInvalidAmount, tx.Value().Dec(), amount.Dec())
	}
	account := tx.Caller()
	r.credit(tx, account, amount)
	r.addLiquidity(tx, amount)

	tx.Emit(events.New(topics.Deposited, events.Deposited{Account: account, Amount: amount.Clone()}))
	return nil
}

// Withdraw debita o estado interno antes de liberar os fundos ao chamador.
func (r *Reserve) Withdraw(tx *chain.Tx, amount *uint256.Int) (*uint256.Int, error) {
	if amount == nil || amount.IsZero() {
		return nil, fmt.Errorf("%w: withdraw must be positive", domain.ErrInvalidAmount)
	}
	account := tx.Caller()
	bal := r.balances[account]
	if bal.Lt(amount) {
		return nil, fmt.Errorf("%w: balance %s, requested %s", domain.ErrInsufficientBalance, bal.Dec(), amount.Dec())
	}
	if r.liquidity.Lt(amount) {
		return nil, fmt.Errorf("%w: pool %s, requested %s", domain.ErrInsufficientPoolLiquidity, r.liquidity.Dec(), amount.Dec())
	}

	r.debit(tx, account, amount)
	r.subLiquidity(tx, amount)

	if err := tx.Transfer(account, amount); err != nil {
		return nil, err
	}
	tx.Emit(events.New(topics.Withdrawn, events.Withdrawn{Account: account, Amount: amount.Clone()}))
	return amount.Clone(), nil
}

// Payout paga recipient a partir do pool. O saldo registrado do recipient não muda.
func (r *Reserve) Payout(tx *chain.Tx, recipient common.Address, amount *uint256.Int) error {
	if err := r.onlySettlement(tx, "payout"); err != nil {
		return err
	}
	if amount == nil {
		amount = new(uint256.Int)
	}
	if r.liquidity.Lt(amount) {
		return fmt.Errorf("%w: pool %s, payout %s", domain.ErrInsufficientPoolLiquidity, r.liquidity.Dec(), amount.Dec())
	}
	r.subLiquidity(tx, amount)
	return tx.Transfer(recipient, amount)
}

// Escrow guarda a aposta de um evento sob custódia da reserva, fora da liquidez.
func (r *Reserve) Escrow(tx *chain.Tx, eventID domain.EventID, amount *uint256.Int) error {
	if err := r.onlySettlement(tx, "escrow"); err != nil {
		return err
	}
	if amount == nil || amount.IsZero() {
		return fmt.Errorf("%w: escrow must be positive", domain.ErrInvalidAmount)
	}
	if !tx.Value().Eq(amount) {
		return fmt.Errorf("%w: attached value %s != escrow %s", domain.ErrInvalidAmount, tx.Value().Dec(), amount.Dec())
	}

	prev := r.escrow[eventID]
	prevTotal := r.escrowTotal
	r.escrow[eventID] = *new(uint256.Int).Add(&prev, amount)
	r.escrowTotal.Add(&r.escrowTotal, amount)
	tx.OnRollback(func() {
		r.escrow[eventID] = prev
		r.escrowTotal = prevTotal
	})
	return nil
}

// SettleEscrow move o escrow de um evento resolvido para as apostas retidas.
func (r *Reserve) SettleEscrow(tx *chain.Tx, eventID domain.EventID) (*uint256.Int, error) {
	if err := r.onlySettlement(tx, "settle escrow"); err != nil {
		return nil, err
	}
	amt, ok := r.escrow[eventID]
	prevTotal, prevRetained := r.escrowTotal, r.retained

	delete(r.escrow, eventID)
	r.escrowTotal.Sub(&r.escrowTotal, &amt)
	r.retained.Add(&r.retained, &amt)
	tx.OnRollback(func() {
		if ok {
			r.escrow[eventID] = amt
		}
		r.escrowTotal = prevTotal
		r.retained = prevRetained
	})
	return amt.Clone(), nil
}

// ReleaseRetained devolve as apostas retidas ao pool, creditando a conta do owner.
func (r *Reserve) ReleaseRetained(tx *chain.Tx) (*uint256.Int, error) {
	if tx.Caller() != r.owner {
		return nil, fmt.Errorf("%w: only owner can release retained stakes", domain.ErrUnauthorized)
	}
	amt := r.retained
	if amt.IsZero() {
		return new(uint256.Int), nil
	}
	r.retained.Clear()
	tx.OnRollback(func() { r.retained = amt })

	r.credit(tx, r.owner, &amt)
	r.addLiquidity(tx, &amt)
	tx.Emit(events.New(topics.RetainedReleased, events.RetainedReleased{Owner: r.owner, Amount: amt.Clone()}))
	return amt.Clone(), nil
}

func (r *Reserve) Balance(addr common.Address) *uint256.Int {
	b := r.balances[addr]
	return b.Clone()
}

func (r *Reserve) TotalLiquidity() *uint256.Int { return r.liquidity.Clone() }
func (r *Reserve) TotalEscrow() *uint256.Int    { return r.escrowTotal.Clone() }
func (r *Reserve) Retained() *uint256.Int       { return r.retained.Clone() }

func (r *Reserve) EscrowOf(eventID domain.EventID) *uint256.Int {
	e := r.escrow[eventID]
	return e.Clone()
}

// Holdings é tudo que a reserva custodia; deve bater com o saldo nativo dela.
func (r *Reserve) Holdings() *uint256.Int {
	h := new(uint256.Int).Add(&r.liquidity, &r.escrowTotal)
	return h.Add(h, &r.retained)
}

func (r *Reserve) Owner() common.Address      { return r.owner }
func (r *Reserve) Settlement() common.Address { return r.settlement }

func (r *Reserve) onlySettlement(tx *chain.Tx, op string) error {
	if r.settlement == (common.Address{}) || tx.Caller() != r.settlement {
		return fmt.Errorf("%w: only settlement can %s", domain.ErrUnauthorized, op)
	}
	return nil
}

func (r *Reserve) credit(tx *chain.Tx, account common.Address, amount *uint256.Int) {
	prev, had := r.balances[account]
	r.balances[account] = *new(uint256.Int).Add(&prev, amount)
	tx.OnRollback(func() {
		if had {
			r.balances[account] = prev
		} else {
			delete(r.balances, account)
		}
	})
}

func (r *Reserve) debit(tx *chain.Tx, account common.Address, amount *uint256.Int) {
	prev := r.balances[account]
	r.balances[account] = *new(uint256.Int).Sub(&prev, amount)
	tx.OnRollback(func() { r.balances[account] = prev })
}

func (r *Reserve) addLiquidity(tx *chain.Tx, amount *uint256.Int) {
	prev := r.liquidity
	r.liquidity.Add(&r.liquidity, amount)
	tx.OnRollback(func() { r.liquidity = prev })
}

func (r *Reserve) subLiquidity(tx *chain.Tx, amount *uint256.Int) {
	prev := r.liquidity
	r.liquidity.Sub(&r.liquidity, amount)
	tx.OnRollback(func() { r.liquidity = prev })
}
