package dto

// AmountRequest aceita ether decimal ("1.5") ou wei (decimal ou 0x). Wei tem prioridade.
type AmountRequest struct {
	Amount    string `json:"amount,omitempty"`
	AmountWei string `json:"amount_wei,omitempty"`
}

type BetRequest struct {
	AmountRequest
	Outcome string `json:"outcome"` // home | draw | away ou 0..2
}

type ResultRequest struct {
	Outcome string `json:"outcome"`
}

// AddressRequest serve para os vínculos (settlement, oracle, operator).
type AddressRequest struct {
	Address string `json:"address"`
}

type PayoutRequest struct {
	AmountRequest
	Recipient string `json:"recipient"`
}

type FaucetRequest struct {
	AmountRequest
	Address string `json:"address"`
}
