package dto

import "time"

// TxResponse identifica a chamada confirmada.
type TxResponse struct {
	Seq         uint64    `json:"seq"`
	Method      string    `json:"method"`
	CommittedAt time.Time `json:"committed_at"`
}

type BalanceResponse struct {
	Address    string `json:"address"`
	BalanceWei string `json:"balance_wei"`
	Balance    string `json:"balance"`
}

// AccountTxResponse é a chamada confirmada mais o saldo resultante.
type AccountTxResponse struct {
	Tx TxResponse `json:"tx"`
	BalanceResponse
}

type ReserveResponse struct {
	Owner        string `json:"owner"`
	Settlement   string `json:"settlement"`
	LiquidityWei string `json:"liquidity_wei"`
	Liquidity    string `json:"liquidity"`
	EscrowWei    string `json:"escrow_wei"`
	RetainedWei  string `json:"retained_wei"`
	HoldingsWei  string `json:"holdings_wei"`
}

type BetResponse struct {
	Tx       TxResponse `json:"tx"`
	EventID  uint64     `json:"event_id"`
	Outcome  string     `json:"outcome"`
	StakeWei string     `json:"stake_wei"`
}

type PayoutItem struct {
	Bettor    string `json:"bettor"`
	AmountWei string `json:"amount_wei"`
}

type ResolutionResponse struct {
	Tx              TxResponse   `json:"tx"`
	EventID         uint64       `json:"event_id"`
	Winner          string       `json:"winner"`
	TotalStakedWei  string       `json:"total_staked_wei"`
	WinningStakeWei string       `json:"winning_stake_wei"`
	PaidWei         string       `json:"paid_wei"`
	DustWei         string       `json:"dust_wei"`
	Payouts         []PayoutItem `json:"payouts"`
}

type EventResponse struct {
	EventID   uint64            `json:"event_id"`
	TotalsWei map[string]string `json:"totals_wei"`
	TotalWei  string            `json:"total_wei"`
	Bettors   int               `json:"bettors"`
	Resolved  bool              `json:"resolved"`
	Winner    *string           `json:"winner,omitempty"`
	Result    *string           `json:"result,omitempty"` // resultado reportado, mesmo antes da resolução
}

type ResultResponse struct {
	EventID uint64      `json:"event_id"`
	Outcome string      `json:"outcome"`
	Tx      *TxResponse `json:"tx,omitempty"`
}

type PrizeResponse struct {
	StakeWei     string `json:"stake_wei"`
	OutcomeCount uint8  `json:"outcome_count"`
	PrizeWei     string `json:"prize_wei"`
	Prize        string `json:"prize"`
}

type ReleaseResponse struct {
	Tx          TxResponse `json:"tx"`
	ReleasedWei string     `json:"released_wei"`
}

type InfoResponse struct {
	Owner      string `json:"owner"`
	Reserve    string `json:"reserve"`
	Settlement string `json:"settlement"`
	Oracle     string `json:"oracle"`
	Operator   string `json:"operator"`
	Seq        uint64 `json:"seq"`
	Faucet     bool   `json:"faucet"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
