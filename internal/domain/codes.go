package domain

import "errors"

// códigos estáveis expostos na API, do mais específico para o mais genérico
var codes = []struct {
	code string
	err  error
}{
	{"betting_closed", ErrBettingClosed},
	{"unauthorized", ErrUnauthorized},
	{"insufficient_balance", ErrInsufficientBalance},
	{"insufficient_pool_liquidity", ErrInsufficientPoolLiquidity},
	{"insufficient_funds", ErrInsufficientFunds},
	{"invalid_outcome", ErrInvalidOutcome},
	{"invalid_amount", ErrInvalidAmount},
	{"event_already_resolved", ErrEventAlreadyResolved},
	{"result_not_available", ErrResultNotAvailable},
	{"already_set", ErrAlreadySet},
	{"not_set", ErrNotSet},
	{"not_bound", ErrNotBound},
}

// Code devolve o código do erro de domínio, ou "internal".
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}

// ErrorForCode faz o caminho inverso de Code; nil para códigos desconhecidos.
func ErrorForCode(code string) error {
	for _, c := range codes {
		if c.code == code {
			return c.err
		}
	}
	return nil
}
