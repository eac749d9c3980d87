package ws

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// EventID: obrigatório para subscribe/unsubscribe; "*" assina tudo
type ClientMsg struct {
	Type    string `json:"type"`
	EventID string `json:"eventId"`
}

// AllEvents assina todas as notificações, inclusive as sem evento (depósitos, saques).
const AllEvents = "*"
