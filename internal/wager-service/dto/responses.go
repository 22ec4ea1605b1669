package dto

import (
	"time"

	"github.com/radieske/betting-game/internal/wager-service/repo"
)

type AccountResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Balance string `json:"balance"`
}

type WagerResponse struct {
	ID             int64     `json:"id"`
	AccountID      int64     `json:"accountId"`
	Stake          string    `json:"stake"`
	WinProbability string    `json:"winProbability"`
	Payout         string    `json:"payout"`
	Won            bool      `json:"won"`
	CreatedAt      time.Time `json:"createdAt"`
}

type RejectionResponse struct {
	Reason string `json:"reason"`
}

func Account(a repo.Account) AccountResponse {
	return AccountResponse{ID: a.ID, Name: a.Name, Balance: a.Balance.StringFixed(2)}
}

func Accounts(as []repo.Account) []AccountResponse {
	out := make([]AccountResponse, 0, len(as))
	for _, a := range as {
		out = append(out, Account(a))
	}
	return out
}

func Wager(w repo.Wager) WagerResponse {
	return WagerResponse{
		ID:             w.ID,
		AccountID:      w.AccountID,
		Stake:          w.Stake.StringFixed(2),
		WinProbability: w.WinProbability.String(),
		Payout:         w.Payout.StringFixed(2),
		Won:            w.Won,
		CreatedAt:      w.CreatedAt,
	}
}

// Wagers preserva nil (renderizado como null) para distinguir de lista vazia
func Wagers(ws []repo.Wager) []WagerResponse {
	if ws == nil {
		return nil
	}
	out := make([]WagerResponse, 0, len(ws))
	for _, w := range ws {
		out = append(out, Wager(w))
	}
	return out
}
