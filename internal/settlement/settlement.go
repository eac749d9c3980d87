// Package settlement registra as apostas por evento/resultado e executa a
// resolução: lê o feed, calcula a parte de cada vencedor e paga pela reserva.
package settlement

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/radieske/parimutuel-settlement/internal/chain"
	"github.com/radieske/parimutuel-settlement/internal/domain"
	"github.com/radieske/parimutuel-settlement/pkg/contracts/events"
	"github.com/radieske/parimutuel-settlement/pkg/contracts/topics"
)

// Reserve é a parte da reserva que a liquidação usa. As chamadas chegam via tx.Call,
// então a reserva enxerga a identidade da liquidação como chamador.
type Reserve interface {
	Escrow(tx *chain.Tx, eventID domain.EventID, amount *uint256.Int) error
	SettleEscrow(tx *chain.Tx, eventID domain.EventID) (*uint256.Int, error)
	Payout(tx *chain.Tx, recipient common.Address, amount *uint256.Int) error
}

// Oracle é a leitura do feed de resultados.
type Oracle interface {
	Result(eventID domain.EventID) (domain.Outcome, error)
	IsSet(eventID domain.EventID) bool
}

// OracleDirectory resolve o endereço de um feed implantado.
type OracleDirectory func(addr common.Address) (Oracle, bool)

type Settlement struct {
	log   *zap.Logger
	owner common.Address

	reserveAddr common.Address
	reserve     Reserve

	oracles    OracleDirectory
	oracleAddr common.Address
	oracle     Oracle

	books map[domain.EventID]*book
}

// book é o livro de apostas de um evento.
type book struct {
	totals [domain.OutcomeCount]uint256.Int
	total  uint256.Int
	stakes [domain.OutcomeCount]map[common.Address]uint256.Int
	// ordem da primeira aposta de cada apostador, por resultado
	order [domain.OutcomeCount][]common.Address

	resolved bool
	winner   domain.Outcome
}

func newBook() *book {
	b := &book{}
	for i := range b.stakes {
		b.stakes[i] = make(map[common.Address]uint256.Int)
	}
	return b
}

// New cria a liquidação já vinculada à reserva; o feed é vinculado depois via SetOracle.
func New(log *zap.Logger, owner, reserveAddr common.Address, reserve Reserve, oracles OracleDirectory) *Settlement {
	return &Settlement{
		log:         log,
		owner:       owner,
		reserveAddr: reserveAddr,
		reserve:     reserve,
		oracles:     oracles,
		books:       make(map[domain.EventID]*book),
	}
}

// SetOracle vincula o feed de resultados. Só o owner.
func (s *Settlement) SetOracle(tx *chain.Tx, addr common.Address) error {
	if tx.Caller() != s.owner {
		return fmt.Errorf("%w: only owner can set oracle", domain.ErrUnauthorized)
	}
	o, ok := s.oracles(addr)
	if !ok {
		return fmt.Errorf("%w: no outcome feed at %s", domain.ErrNotBound, addr.Hex())
	}
	prevAddr, prev := s.oracleAddr, s.oracle
	s.oracleAddr, s.oracle = addr, o
	tx.OnRollback(func() { s.oracleAddr, s.oracle = prevAddr, prev })
	return nil
}

// PlaceBet registra a aposta do chamador e envia o valor para o escrow da reserva.
func (s *Settlement) PlaceBet(tx *chain.Tx, eventID domain.EventID, outcome domain.Outcome, stake *uint256.Int) error {
	b := s.books[eventID]
	if b != nil && b.resolved {
		return fmt.Errorf("%w: event %s", domain.ErrEventAlreadyResolved, eventID)
	}
	if !outcome.Valid() {
		return fmt.Errorf("%w: %d", domain.ErrInvalidOutcome, outcome)
	}
	if stake == nil || stake.IsZero() {
		return fmt.Errorf("%w: stake must be positive", domain.ErrInvalidAmount)
	}
	if !tx.Value().Eq(stake) {
		return fmt.Errorf("%w: attached value %s != stake %s", domain.ErrInvalidAmount, tx.Value().Dec(), stake.Dec())
	}
	if s.oracle == nil {
		return fmt.Errorf("%w: outcome feed", domain.ErrNotBound)
	}
	if s.oracle.IsSet(eventID) {
		return fmt.Errorf("%w: event %s", domain.ErrBettingClosed, eventID)
	}

	if err := tx.Call(s.reserveAddr, stake, func(sub *chain.Tx) error {
		return s.reserve.Escrow(sub, eventID, stake)
	}); err != nil {
		return fmt.Errorf("escrow stake: %w", err)
	}

	if b == nil {
		b = newBook()
		s.books[eventID] = b
		tx.OnRollback(func() { delete(s.books, eventID) })
	}
	s.record(tx, b, outcome, tx.Caller(), stake)

	tx.Emit(events.New(topics.BetPlaced, events.BetPlaced{
		EventID: uint64(eventID),
		Bettor:  tx.Caller(),
		Amount:  stake.Clone(),
		Outcome: uint8(outcome),
	}).ForEvent(uint64(eventID)))
	return nil
}

func (s *Settlement) record(tx *chain.Tx, b *book, outcome domain.Outcome, bettor common.Address, stake *uint256.Int) {
	prevStake, had := b.stakes[outcome][bettor]
	prevOutcomeTotal, prevTotal := b.totals[outcome], b.total
	prevOrder := b.order[outcome]

	b.stakes[outcome][bettor] = *new(uint256.Int).Add(&prevStake, stake)
	b.totals[outcome].Add(&b.totals[outcome], stake)
	b.total.Add(&b.total, stake)
	if !had {
		b.order[outcome] = append(b.order[outcome], bettor)
	}

	tx.OnRollback(func() {
		if had {
			b.stakes[outcome][bettor] = prevStake
		} else {
			delete(b.stakes[outcome], bettor)
		}
		b.totals[outcome] = prevOutcomeTotal
		b.total = prevTotal
		b.order[outcome] = prevOrder
	})
}

// Resolution é o resultado de ResolveEvent.
type Resolution struct {
	EventID      domain.EventID
	Winner       domain.Outcome
	TotalStaked  *uint256.Int
	WinningStake *uint256.Int
	Payouts      []Payout
	Paid         *uint256.Int
	Dust         *uint256.Int
}

type Payout struct {
	Bettor common.Address
	Amount *uint256.Int
}

// ResolveEvent marca o evento como resolvido antes de qualquer transferência e
// paga cada vencedor stake*T/W (arredondado para baixo). Sem vencedores, nada é pago.
// Qualquer falha desfaz a resolução inteira junto com a tx.
func (s *Settlement) ResolveEvent(tx *chain.Tx, eventID domain.EventID) (*Resolution, error) {
	b := s.books[eventID]
	if b != nil && b.resolved {
		return nil, fmt.Errorf("%w: event %s", domain.ErrEventAlreadyResolved, eventID)
	}
	if s.oracle == nil {
		return nil, fmt.Errorf("%w: outcome feed", domain.ErrNotBound)
	}
	winner, err := s.oracle.Result(eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotSet) {
			return nil, fmt.Errorf("%w: event %s", domain.ErrResultNotAvailable, eventID)
		}
		return nil, err
	}

	if b == nil {
		b = newBook()
		s.books[eventID] = b
		tx.OnRollback(func() { delete(s.books, eventID) })
	}
	b.resolved, b.winner = true, winner
	tx.OnRollback(func() { b.resolved, b.winner = false, 0 })

	res := &Resolution{
		EventID:      eventID,
		Winner:       winner,
		TotalStaked:  b.total.Clone(),
		WinningStake: b.totals[winner].Clone(),
		Paid:         new(uint256.Int),
	}

	payouts, err := computePayouts(b, winner)
	if err != nil {
		return nil, err
	}
	for _, p := range payouts {
		if err := tx.Call(s.reserveAddr, nil, func(sub *chain.Tx) error {
			return s.reserve.Payout(sub, p.Bettor, p.Amount)
		}); err != nil {
			return nil, fmt.Errorf("payout %s: %w", p.Bettor.Hex(), err)
		}
		res.Paid.Add(res.Paid, p.Amount)
		tx.Emit(events.New(topics.Payout, events.Payout{
			EventID: uint64(eventID),
			Bettor:  p.Bettor,
			Amount:  p.Amount.Clone(),
		}).ForEvent(uint64(eventID)))
	}
	res.Payouts = payouts
	res.Dust = new(uint256.Int).Sub(res.TotalStaked, res.Paid)
	s.log.Debug("resolution staged",
		zap.Stringer("event", eventID),
		zap.Stringer("winner", winner),
		zap.Int("winners", len(payouts)),
		zap.String("paid", res.Paid.Dec()),
	)

	if err := tx.Call(s.reserveAddr, nil, func(sub *chain.Tx) error {
		_, err := s.reserve.SettleEscrow(sub, eventID)
		return err
	}); err != nil {
		return nil, fmt.Errorf("settle escrow: %w", err)
	}

	tx.Emit(events.New(topics.EventResolved, events.EventResolved{
		EventID:      uint64(eventID),
		Outcome:      uint8(winner),
		TotalStaked:  res.TotalStaked.Clone(),
		WinningStake: res.WinningStake.Clone(),
		Winners:      len(payouts),
		Paid:         res.Paid.Clone(),
		Dust:         res.Dust.Clone(),
	}).ForEvent(uint64(eventID)))
	return res, nil
}

// computePayouts calcula stake*T/W por vencedor na ordem da primeira aposta.
func computePayouts(b *book, winner domain.Outcome) ([]Payout, error) {
	w := &b.totals[winner]
	if w.IsZero() {
		return nil, nil
	}
	out := make([]Payout, 0, len(b.order[winner]))
	paid := new(uint256.Int)
	for _, bettor := range b.order[winner] {
		stake := b.stakes[winner][bettor]
		share, overflow := new(uint256.Int).MulDivOverflow(&stake, &b.total, w)
		if overflow {
			return nil, fmt.Errorf("%w: payout overflow for %s", domain.ErrInvalidAmount, bettor.Hex())
		}
		paid.Add(paid, share)
		out = append(out, Payout{Bettor: bettor, Amount: share})
	}
	if paid.Gt(&b.total) {
		return nil, fmt.Errorf("payouts %s exceed pool %s", paid.Dec(), b.total.Dec())
	}
	return out, nil
}

// CalculatePotentialPrize projeta o prêmio supondo divisão igual entre outcomeCount
// resultados. Só para exibição: os totais reais podem mudar até a resolução.
func CalculatePotentialPrize(stake *uint256.Int, outcomeCount uint8) (*uint256.Int, error) {
	if outcomeCount == 0 || outcomeCount > domain.OutcomeCount {
		return nil, fmt.Errorf("%w: outcome count %d", domain.ErrInvalidOutcome, outcomeCount)
	}
	if stake == nil {
		return new(uint256.Int), nil
	}
	prize, overflow := new(uint256.Int).MulOverflow(stake, uint256.NewInt(uint64(outcomeCount)))
	if overflow {
		return nil, fmt.Errorf("%w: prize overflow", domain.ErrInvalidAmount)
	}
	return prize, nil
}

// EventSummary é a visão de leitura do livro de um evento.
type EventSummary struct {
	EventID  domain.EventID
	Totals   []*uint256.Int
	Total    *uint256.Int
	Bettors  int
	Resolved bool
	Winner   *domain.Outcome
}

func (s *Settlement) Summary(eventID domain.EventID) EventSummary {
	sum := EventSummary{EventID: eventID, Total: new(uint256.Int), Totals: make([]*uint256.Int, domain.OutcomeCount)}
	b := s.books[eventID]
	if b == nil {
		for i := range sum.Totals {
			sum.Totals[i] = new(uint256.Int)
		}
		return sum
	}
	seen := make(map[common.Address]struct{})
	for i := range b.totals {
		sum.Totals[i] = b.totals[i].Clone()
		for _, a := range b.order[i] {
			seen[a] = struct{}{}
		}
	}
	sum.Total = b.total.Clone()
	sum.Bettors = len(seen)
	sum.Resolved = b.resolved
	if b.resolved {
		w := b.winner
		sum.Winner = &w
	}
	return sum
}

func (s *Settlement) StakeOf(eventID domain.EventID, outcome domain.Outcome, bettor common.Address) *uint256.Int {
	b := s.books[eventID]
	if b == nil || !outcome.Valid() {
		return new(uint256.Int)
	}
	st := b.stakes[outcome][bettor]
	return st.Clone()
}

func (s *Settlement) IsResolved(eventID domain.EventID) bool {
	b := s.books[eventID]
	return b != nil && b.resolved
}

func (s *Settlement) Owner() common.Address  { return s.owner }
func (s *Settlement) Oracle() common.Address { return s.oracleAddr }
