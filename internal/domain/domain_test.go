package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/radieske/parimutuel-settlement/internal/domain"
)

func TestParseOutcome(t *testing.T) {
	cases := map[string]domain.Outcome{
		"home": domain.OutcomeHome,
		"Draw": domain.OutcomeDraw,
		" away": domain.OutcomeAway,
		"0":    domain.OutcomeHome,
		"1":    domain.OutcomeDraw,
		"2":    domain.OutcomeAway,
	}
	for in, want := range cases {
		got, err := domain.ParseOutcome(in)
		if err != nil || got != want {
			t.Fatalf("ParseOutcome(%q) = %v, %v", in, got, err)
		}
	}
	for _, in := range []string{"3", "-1", "win", "", "256"} {
		if _, err := domain.ParseOutcome(in); !errors.Is(err, domain.ErrInvalidOutcome) {
			t.Fatalf("ParseOutcome(%q): err = %v", in, err)
		}
	}
}

func TestCodeRoundTrip(t *testing.T) {
	wrapped := fmt.Errorf("payout: %w", domain.ErrInsufficientPoolLiquidity)
	if got := domain.Code(wrapped); got != "insufficient_pool_liquidity" {
		t.Fatalf("code = %s", got)
	}
	if got := domain.Code(domain.ErrBettingClosed); got != "betting_closed" {
		t.Fatalf("betting closed code = %s", got)
	}
	if got := domain.Code(errors.New("x")); got != "internal" {
		t.Fatalf("unknown code = %s", got)
	}
	if !errors.Is(domain.ErrorForCode("already_set"), domain.ErrAlreadySet) {
		t.Fatal("ErrorForCode(already_set)")
	}
	if domain.ErrorForCode("internal") != nil {
		t.Fatal("internal has no sentinel")
	}
}
