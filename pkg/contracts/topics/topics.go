package topics

const (
	// Reserve
	Deposited        = "deposited"
	Withdrawn        = "withdrawn"
	Payout           = "payout"
	RetainedReleased = "retained_released"

	// Settlement
	BetPlaced     = "bet_placed"
	EventResolved = "event_resolved"

	// Outcome feed
	ResultUpdated = "result_updated"

	// Entrada do feed de resultados (pipeline externo)
	MatchResults = "match_results"
)

// All lista os tópicos de notificação publicados pelo serviço.
var All = []string{Deposited, Withdrawn, Payout, RetainedReleased, BetPlaced, EventResolved, ResultUpdated}
