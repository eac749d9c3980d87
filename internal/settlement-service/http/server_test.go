package httpapi_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/radieske/parimutuel-settlement/internal/domain"
	"github.com/radieske/parimutuel-settlement/internal/settlement-service/client"
	"github.com/radieske/parimutuel-settlement/internal/settlement-service/engine"
	httpapi "github.com/radieske/parimutuel-settlement/internal/settlement-service/http"
	"github.com/radieske/parimutuel-settlement/internal/settlement-service/repo"
)

var (
	owner    = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	operator = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	lp       = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	alice    = common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906")
	bob      = common.HexToAddress("0x15d34AAf54267DB7D7c367839AAf71A00a2C6A65")
)

func newAPI(t *testing.T, faucet bool) (*client.Client, *engine.Engine) {
	t.Helper()
	e := engine.New(zap.NewNop(), owner, engine.Options{Journal: repo.NewMemory(), Faucet: faucet})
	if err := e.Bootstrap(context.Background(), nil, operator); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	srv := httptest.NewServer(httpapi.NewServer(zap.NewNop(), e, nil).Router())
	t.Cleanup(srv.Close)
	return client.New(srv.URL), e
}

func fund(t *testing.T, c *client.Client, addrs ...common.Address) {
	t.Helper()
	for _, a := range addrs {
		if _, err := c.Faucet(context.Background(), a, client.Ether("10")); err != nil {
			t.Fatalf("faucet %s: %v", a.Hex(), err)
		}
	}
}

func wantAPIError(t *testing.T, err error, status int, target error) {
	t.Helper()
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != status {
		t.Fatalf("status = %d, want %d (%s)", apiErr.Status, status, apiErr.Message)
	}
	if target != nil && !errors.Is(err, target) {
		t.Fatalf("err = %v, want %v", err, target)
	}
}

func TestScenarioOverHTTP(t *testing.T) {
	ctx := context.Background()
	c, _ := newAPI(t, true)
	fund(t, c, lp, alice, bob)

	if _, err := c.As(lp).Deposit(ctx, client.Ether("5")); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := c.As(alice).PlaceBet(ctx, 7, "home", client.Ether("1")); err != nil {
		t.Fatalf("alice bet: %v", err)
	}
	if _, err := c.As(bob).PlaceBet(ctx, 7, "away", client.Ether("1")); err != nil {
		t.Fatalf("bob bet: %v", err)
	}
	if _, err := c.As(operator).SetResult(ctx, 7, "home"); err != nil {
		t.Fatalf("set result: %v", err)
	}

	res, err := c.As(bob).ResolveEvent(ctx, 7)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Winner != "home" || res.PaidWei != "2000000000000000000" || len(res.Payouts) != 1 {
		t.Fatalf("unexpected resolution: %+v", res)
	}
	if res.Payouts[0].Bettor != alice.Hex() {
		t.Fatalf("payout to %s", res.Payouts[0].Bettor)
	}

	rsv, err := c.Reserve(ctx)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if rsv.Liquidity != "3" {
		t.Fatalf("liquidity = %s, want 3", rsv.Liquidity)
	}

	w, err := c.Wallet(ctx, alice)
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if w.Balance != "11" {
		t.Fatalf("alice wallet = %s, want 11", w.Balance)
	}

	ev, err := c.Event(ctx, 7)
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	if !ev.Resolved || ev.Winner == nil || *ev.Winner != "home" || ev.Bettors != 2 {
		t.Fatalf("unexpected event: %+v", ev)
	}

	_, err = c.As(alice).ResolveEvent(ctx, 7)
	wantAPIError(t, err, http.StatusConflict, domain.ErrEventAlreadyResolved)
}

func TestErrorStatusMapping(t *testing.T) {
	ctx := context.Background()
	c, e := newAPI(t, true)
	fund(t, c, alice)

	_, err := c.As(alice).Payout(ctx, alice, client.Ether("1"))
	wantAPIError(t, err, http.StatusForbidden, domain.ErrUnauthorized)

	_, err = c.As(alice).SetResult(ctx, 1, "home")
	wantAPIError(t, err, http.StatusForbidden, domain.ErrUnauthorized)

	_, err = c.As(alice).Withdraw(ctx, client.Ether("1"))
	wantAPIError(t, err, http.StatusUnprocessableEntity, domain.ErrInsufficientBalance)

	_, err = c.As(alice).PlaceBet(ctx, 1, "sideways", client.Ether("1"))
	wantAPIError(t, err, http.StatusBadRequest, domain.ErrInvalidOutcome)

	_, err = c.As(alice).Deposit(ctx, client.Ether("0"))
	wantAPIError(t, err, http.StatusBadRequest, domain.ErrInvalidAmount)

	_, err = c.Result(ctx, 99)
	wantAPIError(t, err, http.StatusNotFound, domain.ErrNotSet)

	_, err = c.As(alice).ResolveEvent(ctx, 99)
	wantAPIError(t, err, http.StatusNotFound, domain.ErrResultNotAvailable)

	if _, err := c.As(operator).SetResult(ctx, 2, "draw"); err != nil {
		t.Fatalf("set result: %v", err)
	}
	_, err = c.As(operator).SetResult(ctx, 2, "away")
	wantAPIError(t, err, http.StatusConflict, domain.ErrAlreadySet)

	_, err = c.As(alice).PlaceBet(ctx, 2, "draw", client.Ether("1"))
	wantAPIError(t, err, http.StatusConflict, domain.ErrBettingClosed)

	_, err = c.As(alice).PlaceBet(ctx, 3, "home", client.Ether("100"))
	wantAPIError(t, err, http.StatusUnprocessableEntity, domain.ErrInsufficientFunds)

	if err := e.CheckConservation(); err != nil {
		t.Fatalf("conservation: %v", err)
	}
}

func TestMissingCallerIsForbidden(t *testing.T) {
	c, _ := newAPI(t, true)
	_, err := c.Deposit(context.Background(), client.Ether("1"))
	wantAPIError(t, err, http.StatusForbidden, domain.ErrUnauthorized)
}

func TestComponentAddressCannotBeImpersonated(t *testing.T) {
	c, e := newAPI(t, true)
	settle := e.Addresses().Settlement
	_, err := c.As(settle).Payout(context.Background(), alice, client.Wei("1"))
	wantAPIError(t, err, http.StatusForbidden, domain.ErrUnauthorized)
}

func TestMalformedRequests(t *testing.T) {
	c, _ := newAPI(t, true)

	res, err := http.Post(c.BaseURL+"/v1/events/1/bets", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad json status = %d", res.StatusCode)
	}

	res, err = http.Get(c.BaseURL + "/v1/reserve/balances/not-an-address")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad address status = %d", res.StatusCode)
	}
}

func TestFaucetRouteOnlyWhenEnabled(t *testing.T) {
	c, _ := newAPI(t, false)
	_, err := c.Faucet(context.Background(), alice, client.Ether("1"))
	wantAPIError(t, err, http.StatusNotFound, nil)
}

func TestPotentialPrize(t *testing.T) {
	c, _ := newAPI(t, false)
	p, err := c.PotentialPrize(context.Background(), client.Ether("1"), 3)
	if err != nil {
		t.Fatalf("prize: %v", err)
	}
	if p.Prize != "3" {
		t.Fatalf("prize = %s", p.Prize)
	}
	_, err = c.PotentialPrize(context.Background(), client.Ether("1"), 4)
	wantAPIError(t, err, http.StatusBadRequest, domain.ErrInvalidOutcome)
}

func TestInfo(t *testing.T) {
	c, e := newAPI(t, true)
	info, err := c.Info(context.Background())
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.Settlement != e.Addresses().Settlement.Hex() || info.Operator != operator.Hex() || !info.Faucet {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.Seq != 3 {
		t.Fatalf("seq = %d", info.Seq)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", domain.ErrUnauthorized), http.StatusForbidden},
		{domain.ErrBettingClosed, http.StatusConflict},
		{domain.ErrInsufficientPoolLiquidity, http.StatusUnprocessableEntity},
		{domain.ErrNotSet, http.StatusNotFound},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := httpapi.StatusFor(tc.err); got != tc.want {
			t.Fatalf("StatusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
