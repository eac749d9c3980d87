// Package chain emula o substrato de execução: carteiras nativas por endereço,
// execução serializada de chamadas e commit/rollback atômico de cada chamada.
package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/radieske/parimutuel-settlement/internal/domain"
	"github.com/radieske/parimutuel-settlement/pkg/contracts/events"
)

// Call descreve uma chamada externa: quem chama, qual componente, valor anexado.
// Method/Args vão para o journal e permitem o replay.
type Call struct {
	From   common.Address
	To     common.Address
	Value  *uint256.Int
	Method string
	Args   json.RawMessage
}

// Receipt é o registro de uma chamada confirmada.
type Receipt struct {
	Seq           uint64                `json:"seq"`
	From          common.Address        `json:"from"`
	To            common.Address        `json:"to"`
	Value         *uint256.Int          `json:"value"`
	Method        string                `json:"method"`
	Args          json.RawMessage       `json:"args,omitempty"`
	Notifications []events.Notification `json:"notifications,omitempty"`
	CommittedAt   time.Time             `json:"committedAt"`
}

// Journal persiste receipts. Uma falha no Append desfaz a chamada inteira.
type Journal interface {
	Append(ctx context.Context, rc Receipt) error
}

// Publisher recebe as notificações de uma chamada depois do commit.
type Publisher interface {
	Publish(ctx context.Context, batch []events.Notification)
}

type Option func(*Chain)

func WithJournal(j Journal) Option     { return func(c *Chain) { c.journal = j } }
func WithPublisher(p Publisher) Option { return func(c *Chain) { c.pub = p } }
func WithClock(now func() time.Time) Option {
	return func(c *Chain) { c.now = now }
}

// Chain serializa todas as chamadas que alteram estado com um único mutex.
type Chain struct {
	mu      sync.Mutex
	wallets map[common.Address]uint256.Int
	seq     uint64

	journal   Journal
	pub       Publisher
	now       func() time.Time
	log       *zap.Logger
	replaying atomic.Bool
}

func New(log *zap.Logger, opts ...Option) *Chain {
	c := &Chain{
		wallets: make(map[common.Address]uint256.Int),
		now:     time.Now,
		log:     log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Execute roda fn dentro de uma transação. Em erro tudo é desfeito e nenhuma
// notificação sai; em sucesso o receipt vai para o journal e depois para o publisher.
func (c *Chain) Execute(ctx context.Context, call Call, fn func(tx *Tx) error) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	st := &txState{}
	tx := &Tx{chain: c, st: st, caller: call.From, self: call.To, value: amountOrZero(call.Value)}

	// panic antes do commit também desfaz tudo; o panic segue adiante
	committed := false
	defer func() {
		if committed {
			return
		}
		if r := recover(); r != nil {
			st.rollbackTo(0, 0)
			panic(r)
		}
	}()

	if err := c.move(st, call.From, call.To, tx.value); err != nil {
		return nil, err
	}
	if err := fn(tx); err != nil {
		st.rollbackTo(0, 0)
		return nil, err
	}

	now := c.now().UTC()
	rc := Receipt{
		Seq:           c.seq + 1,
		From:          call.From,
		To:            call.To,
		Value:         tx.value.Clone(),
		Method:        call.Method,
		Args:          call.Args,
		Notifications: st.notes,
		CommittedAt:   now,
	}
	for i := range rc.Notifications {
		rc.Notifications[i].Seq = rc.Seq
		rc.Notifications[i].Ts = now
	}

	replaying := c.replaying.Load()
	if c.journal != nil && !replaying {
		if err := c.journal.Append(ctx, rc); err != nil {
			st.rollbackTo(0, 0)
			return nil, fmt.Errorf("journal append: %w", err)
		}
	}
	c.seq = rc.Seq
	committed = true

	if c.pub != nil && !replaying && len(rc.Notifications) > 0 {
		c.pub.Publish(ctx, rc.Notifications)
	}
	return &rc, nil
}

// Reader lê as carteiras de dentro de View, sem retomar o lock.
type Reader struct{ c *Chain }

func (r Reader) Wallet(addr common.Address) *uint256.Int {
	b := r.c.wallets[addr]
	return b.Clone()
}

// View executa leituras sob o mesmo lock das escritas.
func (c *Chain) View(fn func(r Reader)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(Reader{c: c})
}

// Replay reaplica receipts do journal na inicialização, sem journal nem publish.
// dispatch deve reexecutar a chamada original (via Execute).
func (c *Chain) Replay(ctx context.Context, receipts []Receipt, dispatch func(ctx context.Context, rc Receipt) error) error {
	c.replaying.Store(true)
	defer c.replaying.Store(false)

	for _, rc := range receipts {
		if err := dispatch(ctx, rc); err != nil {
			return fmt.Errorf("replay seq %d (%s): %w", rc.Seq, rc.Method, err)
		}
		if seq := c.Sequence(); seq != rc.Seq {
			return fmt.Errorf("replay seq mismatch: journal=%d chain=%d", rc.Seq, seq)
		}
	}
	if len(receipts) > 0 {
		c.log.Info("journal replayed", zap.Int("receipts", len(receipts)), zap.Uint64("seq", c.Sequence()))
	}
	return nil
}

// Sequence retorna o número de chamadas confirmadas.
func (c *Chain) Sequence() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// WalletBalance retorna o saldo nativo (fora dos componentes) de um endereço.
func (c *Chain) WalletBalance(addr common.Address) *uint256.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := c.wallets[addr]
	return b.Clone()
}

// move transfere saldo nativo registrando o undo. Deve rodar com o lock.
func (c *Chain) move(st *txState, from, to common.Address, amount *uint256.Int) error {
	if amount.IsZero() || from == to {
		return nil
	}
	fromBal := c.wallets[from]
	if fromBal.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", domain.ErrInsufficientFunds, from.Hex(), fromBal.Dec(), amount.Dec())
	}
	toBal := c.wallets[to]

	newFrom := new(uint256.Int).Sub(&fromBal, amount)
	newTo, overflow := new(uint256.Int).AddOverflow(&toBal, amount)
	if overflow {
		return fmt.Errorf("%w: wallet overflow", domain.ErrInvalidAmount)
	}
	c.wallets[from] = *newFrom
	c.wallets[to] = *newTo
	st.onRollback(func() {
		c.wallets[from] = fromBal
		c.wallets[to] = toBal
	})
	return nil
}

func (c *Chain) mint(st *txState, to common.Address, amount *uint256.Int) error {
	bal := c.wallets[to]
	next, overflow := new(uint256.Int).AddOverflow(&bal, amount)
	if overflow {
		return fmt.Errorf("%w: wallet overflow", domain.ErrInvalidAmount)
	}
	c.wallets[to] = *next
	st.onRollback(func() { c.wallets[to] = bal })
	return nil
}

func amountOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v.Clone()
}
