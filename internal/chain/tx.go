package chain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/radieske/parimutuel-settlement/pkg/contracts/events"
)

// txState é o log de undo e o buffer de notificações, compartilhado pelas chamadas aninhadas.
type txState struct {
	undo  []func()
	notes []events.Notification
}

func (st *txState) onRollback(fn func()) { st.undo = append(st.undo, fn) }

// rollbackTo desfaz em ordem reversa até o savepoint (undo, notes).
func (st *txState) rollbackTo(undoMark, noteMark int) {
	for i := len(st.undo) - 1; i >= undoMark; i-- {
		st.undo[i]()
	}
	st.undo = st.undo[:undoMark]
	st.notes = st.notes[:noteMark]
}

// Tx é a visão de uma chamada em execução. Caller é quem invocou o componente Self.
type Tx struct {
	chain  *Chain
	st     *txState
	caller common.Address
	self   common.Address
	value  *uint256.Int
}

func (tx *Tx) Caller() common.Address { return tx.caller }
func (tx *Tx) Self() common.Address   { return tx.self }

// Value é o valor nativo anexado à chamada (já creditado em Self).
func (tx *Tx) Value() *uint256.Int { return tx.value.Clone() }

// OnRollback registra a reversão de uma mutação de estado do componente.
func (tx *Tx) OnRollback(fn func()) { tx.st.onRollback(fn) }

// Emit enfileira uma notificação; só é entregue se a chamada inteira confirmar.
func (tx *Tx) Emit(n events.Notification) { tx.st.notes = append(tx.st.notes, n) }

// Transfer envia saldo nativo de Self para to.
func (tx *Tx) Transfer(to common.Address, amount *uint256.Int) error {
	return tx.chain.move(tx.st, tx.self, to, amount)
}

// Mint credita saldo nativo do nada. Reservado ao faucet de desenvolvimento.
func (tx *Tx) Mint(to common.Address, amount *uint256.Int) error {
	return tx.chain.mint(tx.st, to, amount)
}

// Call invoca outro componente. O chamado enxerga Caller() == Self() desta tx.
// Se fn falhar, os efeitos da chamada aninhada são desfeitos antes de devolver o erro.
func (tx *Tx) Call(to common.Address, value *uint256.Int, fn func(sub *Tx) error) error {
	undoMark, noteMark := len(tx.st.undo), len(tx.st.notes)
	v := amountOrZero(value)
	if err := tx.chain.move(tx.st, tx.self, to, v); err != nil {
		return err
	}
	sub := &Tx{chain: tx.chain, st: tx.st, caller: tx.self, self: to, value: v}
	if err := fn(sub); err != nil {
		tx.st.rollbackTo(undoMark, noteMark)
		return err
	}
	return nil
}
