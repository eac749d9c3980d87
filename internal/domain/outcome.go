package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// EventID identifica uma partida/evento externo.
type EventID uint64

func (id EventID) String() string { return strconv.FormatUint(uint64(id), 10) }

// ParseEventID converte o id vindo de path/payload.
func ParseEventID(s string) (EventID, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse event id %q: %w", s, err)
	}
	return EventID(n), nil
}

// Outcome é o resultado 1x2 de uma partida.
type Outcome uint8

const (
	OutcomeHome Outcome = 0
	OutcomeDraw Outcome = 1
	OutcomeAway Outcome = 2

	// OutcomeCount é o tamanho da enumeração fixa.
	OutcomeCount = 3
)

func (o Outcome) Valid() bool { return o < OutcomeCount }

func (o Outcome) String() string {
	switch o {
	case OutcomeHome:
		return "home"
	case OutcomeDraw:
		return "draw"
	case OutcomeAway:
		return "away"
	default:
		return "outcome(" + strconv.Itoa(int(o)) + ")"
	}
}

// ParseOutcome aceita o código numérico ("0") ou o nome ("home", "draw", "away").
func ParseOutcome(s string) (Outcome, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "home":
		return OutcomeHome, nil
	case "draw":
		return OutcomeDraw, nil
	case "away":
		return OutcomeAway, nil
	}
	n, err := strconv.ParseUint(v, 10, 8)
	if err != nil || !Outcome(n).Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
	}
	return Outcome(n), nil
}
