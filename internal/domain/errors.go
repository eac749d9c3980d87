package domain

import (
	"errors"
	"fmt"
)

// Taxonomia de erros do núcleo de liquidação.
// Toda operação rejeitada devolve um destes (embrulhado com %w) sem efeito parcial.
var (
	ErrUnauthorized              = errors.New("unauthorized")
	ErrInsufficientBalance       = errors.New("insufficient balance")
	ErrInsufficientPoolLiquidity = errors.New("insufficient pool liquidity")
	ErrInvalidOutcome            = errors.New("invalid outcome")
	ErrEventAlreadyResolved      = errors.New("event already resolved")
	ErrResultNotAvailable        = errors.New("result not available")
	ErrAlreadySet                = errors.New("result already set")
	ErrNotSet                    = errors.New("result not set")
	ErrInvalidAmount             = errors.New("invalid amount")
	ErrInsufficientFunds         = errors.New("insufficient wallet funds")
	ErrNotBound                  = errors.New("component not bound")

	// ErrBettingClosed: o feed já tem resultado mas o evento ainda não foi resolvido.
	ErrBettingClosed = fmt.Errorf("%w: betting closed, result already reported", ErrEventAlreadyResolved)
)
