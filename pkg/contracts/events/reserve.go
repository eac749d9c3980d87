package events

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type Deposited struct {
	Account common.Address `json:"account"`
	Amount  *uint256.Int   `json:"amount"`
}

type Withdrawn struct {
	Account common.Address `json:"account"`
	Amount  *uint256.Int   `json:"amount"`
}

// Payout é emitido uma vez por vencedor durante a resolução.
type Payout struct {
	EventID uint64         `json:"eventId"`
	Bettor  common.Address `json:"bettor"`
	Amount  *uint256.Int   `json:"amount"`
}

type RetainedReleased struct {
	Owner  common.Address `json:"owner"`
	Amount *uint256.Int   `json:"amount"`
}
