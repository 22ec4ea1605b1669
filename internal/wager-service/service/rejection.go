package service

import "fmt"

// Reason é o motivo (público) de uma aposta recusada
type Reason string

const (
	ReasonInvalidStake       Reason = "INVALID_STAKE"
	ReasonInvalidProbability Reason = "INVALID_PROBABILITY"
	ReasonAccountNotFound    Reason = "ACCOUNT_NOT_FOUND"
	ReasonInsufficientFunds  Reason = "INSUFFICIENT_FUNDS"
	ReasonConflict           Reason = "CONFLICT"
	ReasonInternal           Reason = "INTERNAL"
)

// Rejection é o único tipo de erro devolvido por PlaceBet.
// Não carrega detalhes internos; esses vão só para o log.
type Rejection struct {
	Reason Reason
}

func (r *Rejection) Error() string { return fmt.Sprintf("wager rejected: %s", r.Reason) }

func reject(reason Reason) *Rejection { return &Rejection{Reason: reason} }
