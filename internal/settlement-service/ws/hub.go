package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/parimutuel-settlement/pkg/contracts/events"
)

const writeWait = 5 * time.Second

// client serializa as escritas de uma conexão (gorilla aceita um escritor por vez)
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Hub gerencia conexões WebSocket e assinaturas por evento
// subs: mapeia eventID para o conjunto de clientes inscritos
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	subs     map[string]map[*client]struct{}
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*client]struct{}),
	}
}

// ServeHTTP gerencia o ciclo de vida de uma conexão WebSocket
// Cada cliente pode se inscrever em múltiplos eventIDs
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	c := &client{conn: conn}

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			h.mu.Lock()
			if _, ok := h.subs[msg.EventID]; !ok {
				h.subs[msg.EventID] = make(map[*client]struct{})
			}
			h.subs[msg.EventID][c] = struct{}{}
			h.mu.Unlock()
		case "unsubscribe":
			h.remove(msg.EventID, c)
		case "ping":
			b, _ := json.Marshal(map[string]string{"type": "pong"})
			_ = c.write(b)
		}
	}
	// remove a conexão de todas as assinaturas ao desconectar
	h.mu.Lock()
	for id, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, id)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) remove(eventID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.subs[eventID]; ok {
		delete(m, c)
		if len(m) == 0 {
			delete(h.subs, eventID)
		}
	}
}

// Subscribers conta os clientes inscritos num eventID
func (h *Hub) Subscribers(eventID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[eventID])
}

// Broadcast envia a mensagem já serializada aos inscritos no evento e em "*"
func (h *Hub) Broadcast(eventID *uint64, b []byte) {
	h.mu.RLock()
	targets := make([]*client, 0)
	for c := range h.subs[AllEvents] {
		targets = append(targets, c)
	}
	if eventID != nil {
		for c := range h.subs[strconv.FormatUint(*eventID, 10)] {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	seen := make(map[*client]struct{}, len(targets))
	for _, c := range targets {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		if err := c.write(b); err != nil {
			h.log.Debug("ws write failed", zap.Error(err))
		}
	}
}

// Name e Notify fazem do hub um assinante direto do bus (sem Redis)
func (h *Hub) Name() string { return "ws-hub" }

func (h *Hub) Notify(_ context.Context, n events.Notification) error {
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	h.Broadcast(n.EventID, b)
	return nil
}
