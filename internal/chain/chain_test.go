package chain_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/radieske/parimutuel-settlement/internal/chain"
	"github.com/radieske/parimutuel-settlement/internal/domain"
	"github.com/radieske/parimutuel-settlement/pkg/contracts/events"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	comp  = common.HexToAddress("0x000000000000000000000000000000000000c0de")
	other = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

type recordingJournal struct {
	receipts []chain.Receipt
	fail     error
}

func (j *recordingJournal) Append(_ context.Context, rc chain.Receipt) error {
	if j.fail != nil {
		return j.fail
	}
	j.receipts = append(j.receipts, rc)
	return nil
}

type recordingPublisher struct{ batches [][]events.Notification }

func (p *recordingPublisher) Publish(_ context.Context, batch []events.Notification) {
	p.batches = append(p.batches, batch)
}

func fund(t *testing.T, c *chain.Chain, to common.Address, wei uint64) {
	t.Helper()
	_, err := c.Execute(context.Background(), chain.Call{From: to, To: to, Method: "fund"}, func(tx *chain.Tx) error {
		return tx.Mint(to, uint256.NewInt(wei))
	})
	if err != nil {
		t.Fatalf("fund: %v", err)
	}
}

func TestExecuteMovesValueAndCommits(t *testing.T) {
	j := &recordingJournal{}
	p := &recordingPublisher{}
	c := chain.New(zap.NewNop(), chain.WithJournal(j), chain.WithPublisher(p))
	fund(t, c, alice, 10)

	rc, err := c.Execute(context.Background(), chain.Call{From: alice, To: comp, Value: uint256.NewInt(4), Method: "pay"}, func(tx *chain.Tx) error {
		if tx.Caller() != alice || tx.Self() != comp {
			t.Fatalf("unexpected identities caller=%s self=%s", tx.Caller().Hex(), tx.Self().Hex())
		}
		if tx.Value().Uint64() != 4 {
			t.Fatalf("value = %s", tx.Value().Dec())
		}
		tx.Emit(events.New("paid", nil))
		return nil
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if rc.Seq != 2 || c.Sequence() != 2 {
		t.Fatalf("seq = %d / %d, want 2", rc.Seq, c.Sequence())
	}
	if got := c.WalletBalance(alice).Uint64(); got != 6 {
		t.Fatalf("alice wallet = %d, want 6", got)
	}
	if got := c.WalletBalance(comp).Uint64(); got != 4 {
		t.Fatalf("component wallet = %d, want 4", got)
	}
	if len(j.receipts) != 2 {
		t.Fatalf("journal has %d receipts, want 2", len(j.receipts))
	}
	if len(p.batches) != 1 || len(p.batches[0]) != 1 || p.batches[0][0].Seq != 2 {
		t.Fatalf("unexpected published batches: %+v", p.batches)
	}
}

func TestExecuteRollsBackEverythingOnError(t *testing.T) {
	p := &recordingPublisher{}
	c := chain.New(zap.NewNop(), chain.WithPublisher(p))
	fund(t, c, alice, 10)

	state := 0
	boom := errors.New("boom")
	_, err := c.Execute(context.Background(), chain.Call{From: alice, To: comp, Value: uint256.NewInt(3)}, func(tx *chain.Tx) error {
		state = 1
		tx.OnRollback(func() { state = 0 })
		tx.Emit(events.New("never", nil))
		if err := tx.Transfer(other, uint256.NewInt(2)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if state != 0 {
		t.Fatal("component state not rolled back")
	}
	if c.WalletBalance(alice).Uint64() != 10 || !c.WalletBalance(comp).IsZero() || !c.WalletBalance(other).IsZero() {
		t.Fatal("wallets not rolled back")
	}
	if c.Sequence() != 1 {
		t.Fatalf("seq = %d, want 1", c.Sequence())
	}
	if len(p.batches) != 0 {
		t.Fatal("notifications published for failed call")
	}
}

func TestExecuteInsufficientFunds(t *testing.T) {
	c := chain.New(zap.NewNop())
	_, err := c.Execute(context.Background(), chain.Call{From: alice, To: comp, Value: uint256.NewInt(1)}, func(*chain.Tx) error {
		t.Fatal("fn must not run")
		return nil
	})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
}

func TestNestedCallSeesComponentAsCaller(t *testing.T) {
	c := chain.New(zap.NewNop())
	fund(t, c, alice, 5)

	_, err := c.Execute(context.Background(), chain.Call{From: alice, To: comp, Value: uint256.NewInt(5)}, func(tx *chain.Tx) error {
		return tx.Call(other, uint256.NewInt(2), func(sub *chain.Tx) error {
			if sub.Caller() != comp {
				t.Fatalf("nested caller = %s, want %s", sub.Caller().Hex(), comp.Hex())
			}
			if sub.Self() != other || sub.Value().Uint64() != 2 {
				t.Fatalf("unexpected nested self/value")
			}
			return nil
		})
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if c.WalletBalance(comp).Uint64() != 3 || c.WalletBalance(other).Uint64() != 2 {
		t.Fatalf("unexpected wallets comp=%s other=%s", c.WalletBalance(comp).Dec(), c.WalletBalance(other).Dec())
	}
}

func TestNestedCallFailureRollsBackToSavepoint(t *testing.T) {
	c := chain.New(zap.NewNop())
	fund(t, c, alice, 5)

	rc, err := c.Execute(context.Background(), chain.Call{From: alice, To: comp, Value: uint256.NewInt(5)}, func(tx *chain.Tx) error {
		tx.Emit(events.New("outer", nil))
		nestedErr := tx.Call(other, uint256.NewInt(2), func(sub *chain.Tx) error {
			sub.Emit(events.New("inner", nil))
			return errors.New("nested failure")
		})
		if nestedErr == nil {
			t.Fatal("expected nested error")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(rc.Notifications) != 1 || rc.Notifications[0].Type != "outer" {
		t.Fatalf("notifications = %+v, want only outer", rc.Notifications)
	}
	if c.WalletBalance(comp).Uint64() != 5 || !c.WalletBalance(other).IsZero() {
		t.Fatal("nested transfer not rolled back")
	}
}

func TestJournalFailureRollsBack(t *testing.T) {
	j := &recordingJournal{}
	p := &recordingPublisher{}
	c := chain.New(zap.NewNop(), chain.WithJournal(j), chain.WithPublisher(p))
	fund(t, c, alice, 5)

	j.fail = errors.New("disk full")
	_, err := c.Execute(context.Background(), chain.Call{From: alice, To: comp, Value: uint256.NewInt(5)}, func(tx *chain.Tx) error {
		tx.Emit(events.New("x", nil))
		return nil
	})
	if err == nil {
		t.Fatal("expected journal error")
	}
	if c.WalletBalance(alice).Uint64() != 5 || c.Sequence() != 1 || len(p.batches) != 0 {
		t.Fatal("call not rolled back after journal failure")
	}
}

func TestReplaySkipsJournalAndPublisher(t *testing.T) {
	src := &recordingJournal{}
	c1 := chain.New(zap.NewNop(), chain.WithJournal(src))
	fund(t, c1, alice, 7)
	fund(t, c1, other, 3)

	j := &recordingJournal{}
	p := &recordingPublisher{}
	c2 := chain.New(zap.NewNop(), chain.WithJournal(j), chain.WithPublisher(p))
	err := c2.Replay(context.Background(), src.receipts, func(ctx context.Context, rc chain.Receipt) error {
		fund(t, c2, rc.From, map[common.Address]uint64{alice: 7, other: 3}[rc.From])
		return nil
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if c2.Sequence() != 2 || c2.WalletBalance(alice).Uint64() != 7 {
		t.Fatal("state not rebuilt")
	}
	if len(j.receipts) != 0 || len(p.batches) != 0 {
		t.Fatal("replay must not journal or publish")
	}
}

func TestExecuteRollsBackOnPanic(t *testing.T) {
	j := &recordingJournal{}
	c := chain.New(zap.NewNop(), chain.WithJournal(j))
	fund(t, c, alice, 10)
	seq := c.Sequence()

	func() {
		defer func() {
			if r := recover(); r != "boom" {
				t.Fatalf("recovered %v, want boom", r)
			}
		}()
		_, _ = c.Execute(context.Background(), chain.Call{From: alice, To: comp, Value: uint256.NewInt(4), Method: "pay"}, func(tx *chain.Tx) error {
			if err := tx.Mint(comp, uint256.NewInt(100)); err != nil {
				return err
			}
			panic("boom")
		})
	}()

	if got := c.WalletBalance(alice).Uint64(); got != 10 {
		t.Fatalf("alice = %d, want 10", got)
	}
	if got := c.WalletBalance(comp).Uint64(); got != 0 {
		t.Fatalf("comp = %d, want 0", got)
	}
	if c.Sequence() != seq || len(j.receipts) != int(seq) {
		t.Fatalf("seq = %d receipts = %d, want %d", c.Sequence(), len(j.receipts), seq)
	}

	// lock liberado: a próxima chamada segue normalmente
	fund(t, c, other, 1)
	if c.Sequence() != seq+1 {
		t.Fatalf("seq after panic = %d", c.Sequence())
	}
}
