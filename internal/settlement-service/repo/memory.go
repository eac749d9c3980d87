package repo

import (
	"context"
	"fmt"
	"sync"

	"github.com/radieske/parimutuel-settlement/internal/chain"
)

// Memory é o journal em memória (STORE_DRIVER=memory e testes)
type Memory struct {
	mu       sync.Mutex
	receipts []chain.Receipt

	// FailNext força erro no próximo Append (testes de rollback)
	FailNext error
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Append(_ context.Context, rc chain.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNext != nil {
		err := m.FailNext
		m.FailNext = nil
		return err
	}
	if n := len(m.receipts); n > 0 && m.receipts[n-1].Seq >= rc.Seq {
		return fmt.Errorf("memory: out of order receipt %d after %d", rc.Seq, m.receipts[n-1].Seq)
	}
	m.receipts = append(m.receipts, rc)
	return nil
}

func (m *Memory) Load(_ context.Context) ([]chain.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]chain.Receipt, len(m.receipts))
	copy(out, m.receipts)
	return out, nil
}

func (m *Memory) Ping(context.Context) error { return nil }
