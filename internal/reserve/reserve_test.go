package reserve_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/radieske/parimutuel-settlement/internal/chain"
	"github.com/radieske/parimutuel-settlement/internal/domain"
	"github.com/radieske/parimutuel-settlement/internal/reserve"
	"github.com/radieske/parimutuel-settlement/internal/shared/units"
)

var (
	owner       = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	reserveAddr = common.HexToAddress("0x0000000000000000000000000000000000000001")
	settleAddr  = common.HexToAddress("0x0000000000000000000000000000000000000002")
	alice       = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob         = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

type harness struct {
	t *testing.T
	c *chain.Chain
	r *reserve.Reserve
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t, c: chain.New(zap.NewNop()), r: reserve.New(zap.NewNop(), owner)}
	for _, a := range []common.Address{alice, bob, settleAddr} {
		h.mint(a, "100")
	}
	if err := h.call(owner, nil, func(tx *chain.Tx) error { return h.r.SetSettlement(tx, settleAddr) }); err != nil {
		t.Fatalf("bind settlement: %v", err)
	}
	return h
}

func (h *harness) mint(to common.Address, ether string) {
	h.t.Helper()
	_, err := h.c.Execute(context.Background(), chain.Call{From: to, To: to}, func(tx *chain.Tx) error {
		return tx.Mint(to, units.MustEther(ether))
	})
	if err != nil {
		h.t.Fatalf("mint: %v", err)
	}
}

func (h *harness) call(from common.Address, value *uint256.Int, fn func(tx *chain.Tx) error) error {
	_, err := h.c.Execute(context.Background(), chain.Call{From: from, To: reserveAddr, Value: value}, fn)
	return err
}

func (h *harness) deposit(from common.Address, ether string) error {
	amt := units.MustEther(ether)
	return h.call(from, amt, func(tx *chain.Tx) error { return h.r.Deposit(tx, amt) })
}

func (h *harness) withdraw(from common.Address, ether string) error {
	amt := units.MustEther(ether)
	return h.call(from, nil, func(tx *chain.Tx) error {
		_, err := h.r.Withdraw(tx, amt)
		return err
	})
}

func (h *harness) assertEther(name string, got *uint256.Int, want string) {
	h.t.Helper()
	if !got.Eq(units.MustEther(want)) {
		h.t.Fatalf("%s = %s ether, want %s", name, units.FormatEther(got), want)
	}
}

func (h *harness) assertConserved() {
	h.t.Helper()
	wallet := h.c.WalletBalance(reserveAddr)
	if !wallet.Eq(h.r.Holdings()) {
		h.t.Fatalf("reserve wallet %s != holdings %s", wallet.Dec(), h.r.Holdings().Dec())
	}
}

func TestDepositThenWithdraw(t *testing.T) {
	h := newHarness(t)

	if err := h.deposit(alice, "5"); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	h.assertEther("balance", h.r.Balance(alice), "5")
	h.assertEther("liquidity", h.r.TotalLiquidity(), "5")

	if err := h.withdraw(alice, "2"); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	h.assertEther("balance", h.r.Balance(alice), "3")
	h.assertEther("liquidity", h.r.TotalLiquidity(), "3")
	h.assertEther("alice wallet", h.c.WalletBalance(alice), "97")
	h.assertConserved()
}

func TestWithdrawMoreThanBalance(t *testing.T) {
	h := newHarness(t)
	if err := h.deposit(alice, "1"); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	err := h.withdraw(alice, "1.5")
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	h.assertEther("balance", h.r.Balance(alice), "1")
	h.assertEther("liquidity", h.r.TotalLiquidity(), "1")
}

func TestDepositValueMismatch(t *testing.T) {
	h := newHarness(t)
	amt := units.MustEther("2")
	err := h.call(alice, units.MustEther("1"), func(tx *chain.Tx) error { return h.r.Deposit(tx, amt) })
	if !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("err = %v, want ErrInvalidAmount", err)
	}
	h.assertEther("alice wallet", h.c.WalletBalance(alice), "100")
	if !h.r.Balance(alice).IsZero() {
		t.Fatal("balance credited on failed deposit")
	}
}

func TestZeroAmountsRejected(t *testing.T) {
	h := newHarness(t)
	zero := new(uint256.Int)
	if err := h.call(alice, nil, func(tx *chain.Tx) error { return h.r.Deposit(tx, zero) }); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("deposit 0: err = %v", err)
	}
	err := h.call(alice, nil, func(tx *chain.Tx) error {
		_, err := h.r.Withdraw(tx, zero)
		return err
	})
	if !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("withdraw 0: err = %v", err)
	}
}

func TestPayoutOnlySettlement(t *testing.T) {
	h := newHarness(t)
	if err := h.deposit(alice, "5"); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	amt := units.MustEther("1")
	for _, caller := range []common.Address{alice, owner, bob} {
		err := h.call(caller, nil, func(tx *chain.Tx) error { return h.r.Payout(tx, caller, amt) })
		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("payout by %s: err = %v, want ErrUnauthorized", caller.Hex(), err)
		}
	}
	h.assertEther("liquidity", h.r.TotalLiquidity(), "5")

	if err := h.call(settleAddr, nil, func(tx *chain.Tx) error { return h.r.Payout(tx, bob, amt) }); err != nil {
		t.Fatalf("payout by settlement: %v", err)
	}
	h.assertEther("liquidity", h.r.TotalLiquidity(), "4")
	h.assertEther("bob wallet", h.c.WalletBalance(bob), "101")
	h.assertEther("alice balance", h.r.Balance(alice), "5")
	h.assertConserved()
}

func TestPayoutInsufficientLiquidity(t *testing.T) {
	h := newHarness(t)
	if err := h.deposit(alice, "1"); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	err := h.call(settleAddr, nil, func(tx *chain.Tx) error { return h.r.Payout(tx, bob, units.MustEther("2")) })
	if !errors.Is(err, domain.ErrInsufficientPoolLiquidity) {
		t.Fatalf("err = %v, want ErrInsufficientPoolLiquidity", err)
	}
	h.assertEther("bob wallet", h.c.WalletBalance(bob), "100")
}

func TestWithdrawBlockedWhenPoolDrained(t *testing.T) {
	h := newHarness(t)
	if err := h.deposit(alice, "2"); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := h.call(settleAddr, nil, func(tx *chain.Tx) error { return h.r.Payout(tx, bob, units.MustEther("1.5")) }); err != nil {
		t.Fatalf("payout: %v", err)
	}
	err := h.withdraw(alice, "1")
	if !errors.Is(err, domain.ErrInsufficientPoolLiquidity) {
		t.Fatalf("err = %v, want ErrInsufficientPoolLiquidity", err)
	}
}

func TestSetSettlementOnlyOwner(t *testing.T) {
	h := newHarness(t)
	err := h.call(alice, nil, func(tx *chain.Tx) error { return h.r.SetSettlement(tx, alice) })
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if h.r.Settlement() != settleAddr {
		t.Fatal("binding changed by non-owner")
	}
}

func TestEscrowSettleAndRelease(t *testing.T) {
	h := newHarness(t)
	ev := domain.EventID(9)
	stake := units.MustEther("3")

	if err := h.call(alice, stake, func(tx *chain.Tx) error { return h.r.Escrow(tx, ev, stake) }); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("escrow by bettor: err = %v, want ErrUnauthorized", err)
	}
	if err := h.call(settleAddr, stake, func(tx *chain.Tx) error { return h.r.Escrow(tx, ev, stake) }); err != nil {
		t.Fatalf("escrow: %v", err)
	}
	h.assertEther("escrow", h.r.EscrowOf(ev), "3")
	if !h.r.TotalLiquidity().IsZero() {
		t.Fatal("escrow must not count as liquidity")
	}
	h.assertConserved()

	err := h.call(settleAddr, nil, func(tx *chain.Tx) error {
		_, err := h.r.SettleEscrow(tx, ev)
		return err
	})
	if err != nil {
		t.Fatalf("settle escrow: %v", err)
	}
	h.assertEther("retained", h.r.Retained(), "3")
	if !h.r.EscrowOf(ev).IsZero() {
		t.Fatal("escrow not cleared")
	}

	err = h.call(alice, nil, func(tx *chain.Tx) error {
		_, err := h.r.ReleaseRetained(tx)
		return err
	})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("release by non-owner: err = %v", err)
	}
	err = h.call(owner, nil, func(tx *chain.Tx) error {
		_, err := h.r.ReleaseRetained(tx)
		return err
	})
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	h.assertEther("liquidity", h.r.TotalLiquidity(), "3")
	h.assertEther("owner balance", h.r.Balance(owner), "3")
	h.assertConserved()
}
