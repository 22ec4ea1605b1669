package ws

import "github.com/radieske/betting-game/pkg/contracts/events"

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// AccountID: 0 = todas as contas
type ClientMsg struct {
	Type      string `json:"type"`
	AccountID int64  `json:"accountId"`
}

// WinUpdate é o payload enviado aos clientes a cada vitória liquidada
type WinUpdate struct {
	Type    string              `json:"type"` // "win"
	Payload events.WagerSettled `json:"payload"`
}
