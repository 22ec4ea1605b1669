package dto

import "github.com/shopspring/decimal"

// PlaceBetRequest aceita números ou strings decimais ("100", "100.00", 100)
type PlaceBetRequest struct {
	AccountID      int64           `json:"accountId"`
	Stake          decimal.Decimal `json:"stake"`
	WinProbability decimal.Decimal `json:"winProbability"`
}
