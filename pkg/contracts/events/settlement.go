package events

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type BetPlaced struct {
	EventID uint64         `json:"eventId"`
	Bettor  common.Address `json:"bettor"`
	Amount  *uint256.Int   `json:"amount"`
	Outcome uint8          `json:"outcome"`
}

type ResultUpdated struct {
	EventID uint64 `json:"eventId"`
	Outcome uint8  `json:"outcome"`
}

// EventResolved resume a resolução: T, W, total pago e o resíduo de arredondamento.
type EventResolved struct {
	EventID      uint64       `json:"eventId"`
	Outcome      uint8        `json:"outcome"`
	TotalStaked  *uint256.Int `json:"totalStaked"`
	WinningStake *uint256.Int `json:"winningStake"`
	Winners      int          `json:"winners"`
	Paid         *uint256.Int `json:"paid"`
	Dust         *uint256.Int `json:"dust"`
}

// MatchResult é a mensagem do pipeline de resultados consumida do Kafka.
type MatchResult struct {
	EventID uint64 `json:"eventId"`
	Outcome uint8  `json:"outcome"`
	Source  string `json:"source,omitempty"`
}
