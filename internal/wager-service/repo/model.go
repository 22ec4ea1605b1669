package repo

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account é a conta de saldo de um jogador. Saldo com 2 casas decimais, nunca negativo.
type Account struct {
	ID        int64
	Name      string
	Balance   decimal.Decimal
	CreatedAt time.Time
}

// Wager é uma aposta já liquidada. Criada uma única vez junto com o ajuste de saldo
// e nunca alterada depois.
type Wager struct {
	ID             int64
	AccountID      int64
	Stake          decimal.Decimal
	WinProbability decimal.Decimal
	Payout         decimal.Decimal
	Won            bool
	CreatedAt      time.Time
}

// Settlement é o resultado calculado dentro da transação: novo saldo da conta
// e a aposta a ser inserida (sem ID).
type Settlement struct {
	Balance decimal.Decimal
	Wager   Wager
}

// SettleFunc recebe a conta lida (e bloqueada) dentro da transação.
// Qualquer erro retornado aborta a transação sem escrita.
type SettleFunc func(acc Account) (Settlement, error)
