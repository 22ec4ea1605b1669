package events

import "time"

// Evento publicado no tópico "wager_settled" após o commit de uma aposta.
// Valores monetários trafegam como string com 2 casas decimais.
type WagerSettled struct {
	EventID        string    `json:"event_id"`
	WagerID        int64     `json:"wager_id"`
	AccountID      int64     `json:"account_id"`
	Stake          string    `json:"stake"`
	WinProbability string    `json:"win_probability"`
	Payout         string    `json:"payout"`
	Won            bool      `json:"won"`
	Balance        string    `json:"balance"` // saldo da conta após o commit
	SettledAt      time.Time `json:"settled_at"`
}
