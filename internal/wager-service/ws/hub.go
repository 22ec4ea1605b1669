package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/radieske/betting-game/pkg/contracts/events"
)

// allAccounts é a chave de assinatura "todas as contas"
const allAccounts int64 = 0

// defaultWriteWait limita cada escrita; cliente lento não segura o feed
const defaultWriteWait = 2 * time.Second

// client serializa as escritas numa conexão (gorilla aceita um único writer por vez)
type client struct {
	conn      *websocket.Conn
	mu        sync.Mutex
	writeWait time.Duration
}

func (c *client) write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

func (c *client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
	return c.conn.WriteJSON(v)
}

// Hub gerencia conexões WebSocket e assinaturas do feed de vitórias
// subs: mapeia accountID (0 = todas) para o conjunto de clientes inscritos
type Hub struct {
	upgrader  websocket.Upgrader
	mu        sync.RWMutex
	subs      map[int64]map[*client]struct{}
	writeWait time.Duration
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader:  websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:      make(map[int64]map[*client]struct{}),
		writeWait: defaultWriteWait,
	}
}

// ServeHTTP gerencia o ciclo de vida de uma conexão WebSocket
// Permite subscribe/unsubscribe por conta e responde a pings
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	c := &client{conn: conn, writeWait: h.writeWait}

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			h.subscribe(msg.AccountID, c)
			_ = c.writeJSON(map[string]any{"type": "subscribed", "accountId": msg.AccountID})
		case "unsubscribe":
			h.unsubscribe(msg.AccountID, c)
		case "ping":
			_ = c.writeJSON(map[string]string{"type": "pong"})
		}
	}

	// Remove a conexão de todas as assinaturas ao desconectar
	h.mu.Lock()
	for id, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, id)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) subscribe(accountID int64, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[accountID]; !ok {
		h.subs[accountID] = make(map[*client]struct{})
	}
	h.subs[accountID][c] = struct{}{}
}

func (h *Hub) unsubscribe(accountID int64, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.subs[accountID]; ok {
		delete(m, c)
		if len(m) == 0 {
			delete(h.subs, accountID)
		}
	}
}

// Subscribers conta clientes inscritos na conta (ou em todas, com 0)
func (h *Hub) Subscribers(accountID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[accountID])
}

// Broadcast envia a vitória para quem assina a conta e para quem assina todas
func (h *Hub) Broadcast(e events.WagerSettled) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.subs[e.AccountID])+len(h.subs[allAccounts]))
	seen := make(map[*client]struct{})
	for _, key := range []int64{e.AccountID, allAccounts} {
		for c := range h.subs[key] {
			if _, dup := seen[c]; !dup {
				seen[c] = struct{}{}
				targets = append(targets, c)
			}
		}
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	b, _ := json.Marshal(WinUpdate{Type: "win", Payload: e})
	for _, c := range targets {
		if err := c.write(b); err != nil {
			// conexão quebrada após timeout; o loop de leitura remove as assinaturas
			_ = c.conn.Close()
		}
	}
}
