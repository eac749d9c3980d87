package engine

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/radieske/parimutuel-settlement/internal/chain"
	"github.com/radieske/parimutuel-settlement/internal/domain"
	"github.com/radieske/parimutuel-settlement/internal/settlement"
)

// ReserveState é a foto da custódia da reserva.
type ReserveState struct {
	Liquidity  *uint256.Int
	Escrow     *uint256.Int
	Retained   *uint256.Int
	Holdings   *uint256.Int
	Wallet     *uint256.Int // saldo nativo do endereço da reserva
	Owner      common.Address
	Settlement common.Address
}

func (e *Engine) ReserveState() ReserveState {
	var st ReserveState
	e.chain.View(func(r chain.Reader) {
		st = ReserveState{
			Liquidity:  e.reserve.TotalLiquidity(),
			Escrow:     e.reserve.TotalEscrow(),
			Retained:   e.reserve.Retained(),
			Holdings:   e.reserve.Holdings(),
			Owner:      e.reserve.Owner(),
			Settlement: e.reserve.Settlement(),
			Wallet:     r.Wallet(e.addrs.Reserve),
		}
	})
	return st
}

func (e *Engine) Balance(account common.Address) *uint256.Int {
	var b *uint256.Int
	e.chain.View(func(chain.Reader) { b = e.reserve.Balance(account) })
	return b
}

func (e *Engine) TotalLiquidity() *uint256.Int {
	var l *uint256.Int
	e.chain.View(func(chain.Reader) { l = e.reserve.TotalLiquidity() })
	return l
}

func (e *Engine) WalletBalance(addr common.Address) *uint256.Int {
	return e.chain.WalletBalance(addr)
}

// Result lê o feed; ErrNotSet quando o evento ainda não tem resultado.
func (e *Engine) Result(eventID domain.EventID) (domain.Outcome, error) {
	var (
		o   domain.Outcome
		err error
	)
	e.chain.View(func(chain.Reader) { o, err = e.oracle.Result(eventID) })
	return o, err
}

// Operator devolve o operador atual do feed.
func (e *Engine) Operator() common.Address {
	var op common.Address
	e.chain.View(func(chain.Reader) { op = e.oracle.Operator() })
	return op
}

func (e *Engine) EventSummary(eventID domain.EventID) settlement.EventSummary {
	var sum settlement.EventSummary
	e.chain.View(func(chain.Reader) { sum = e.settlement.Summary(eventID) })
	return sum
}

func (e *Engine) StakeOf(eventID domain.EventID, outcome domain.Outcome, bettor common.Address) *uint256.Int {
	var st *uint256.Int
	e.chain.View(func(chain.Reader) { st = e.settlement.StakeOf(eventID, outcome, bettor) })
	return st
}

// PotentialPrize é a projeção de exibição stake*outcomeCount.
func (e *Engine) PotentialPrize(stake *uint256.Int, outcomeCount uint8) (*uint256.Int, error) {
	return settlement.CalculatePotentialPrize(stake, outcomeCount)
}

// CheckConservation confere que nenhum wei foi criado ou destruído dentro da reserva:
// o saldo nativo dela cobre exatamente liquidez + escrow + retido.
func (e *Engine) CheckConservation() error {
	st := e.ReserveState()
	if !st.Wallet.Eq(st.Holdings) {
		return fmt.Errorf("reserve wallet %s != holdings %s (liquidity %s, escrow %s, retained %s)",
			st.Wallet.Dec(), st.Holdings.Dec(), st.Liquidity.Dec(), st.Escrow.Dec(), st.Retained.Dec())
	}
	return nil
}
