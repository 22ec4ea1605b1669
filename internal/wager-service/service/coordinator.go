package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/betting-game/internal/wager-service/payout"
	"github.com/radieske/betting-game/internal/wager-service/repo"
	"github.com/radieske/betting-game/pkg/contracts/events"
)

// Ledger define as operações do store usadas pelo coordenador
type Ledger interface {
	GetAccount(ctx context.Context, id int64) (repo.Account, error)
	ListAccounts(ctx context.Context) ([]repo.Account, error)
	GetWager(ctx context.Context, id int64) (repo.Wager, error)
	Settle(ctx context.Context, accountID int64, fn repo.SettleFunc) (repo.Wager, error)
}

// Invalidator descarta o leaderboard em cache; só vitórias mudam o leaderboard
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Publisher publica o evento de aposta liquidada (após o commit)
type Publisher interface {
	PublishWagerSettled(ctx context.Context, e events.WagerSettled) error
}

var errInsufficientFunds = errors.New("insufficient funds")

const (
	// publishTimeout limita quanto a resposta espera pelo Kafka depois do commit
	publishTimeout    = 2 * time.Second
	invalidateTimeout = 500 * time.Millisecond
)

// Coordinator orquestra a colocação de uma aposta: validação, checagem de saldo,
// cálculo do payout e gravação atômica de saldo + aposta.
type Coordinator struct {
	Log     *zap.Logger
	Ledger  Ledger
	Calc    *payout.Calculator
	Rand    payout.RandomSource
	Publ    Publisher     // opcional
	Board   Invalidator   // opcional: cache do leaderboard
	Timeout time.Duration // 0 = usa só o contexto do chamador

	OnSettled     func(won bool)      // métricas
	OnRejected    func(reason Reason) // métricas
	OnInvalidated func()              // métricas
}

// NewCoordinator usa CryptoSource quando src é nil
func NewCoordinator(log *zap.Logger, l Ledger, calc *payout.Calculator, src payout.RandomSource) *Coordinator {
	if src == nil {
		src = payout.CryptoSource{}
	}
	return &Coordinator{Log: log, Ledger: l, Calc: calc, Rand: src}
}

// PlaceBet liquida uma aposta. Quando err != nil ele é sempre *Rejection.
func (c *Coordinator) PlaceBet(ctx context.Context, accountID int64, stake, winProbability decimal.Decimal) (repo.Wager, error) {
	log := c.Log.With(zap.Int64("accountId", accountID), zap.String("stake", stake.String()), zap.String("winProbability", winProbability.String()))

	// validação local, antes de abrir qualquer transação
	if !stake.IsPositive() || !stake.Equal(stake.Round(2)) {
		return repo.Wager{}, c.rejected(log, ReasonInvalidStake, nil)
	}
	if !winProbability.IsPositive() || winProbability.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return repo.Wager{}, c.rejected(log, ReasonInvalidProbability, nil)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var balance decimal.Decimal
	w, err := c.Ledger.Settle(ctx, accountID, func(acc repo.Account) (repo.Settlement, error) {
		if acc.Balance.LessThan(stake) {
			return repo.Settlement{}, errInsufficientFunds
		}

		q := c.Calc.Quote(stake, winProbability)
		won := c.Calc.Roll(c.Rand, winProbability)

		if won {
			balance = acc.Balance.Add(q.Payout).Round(2)
		} else {
			balance = acc.Balance.Sub(stake).Round(2)
		}
		if balance.IsNegative() {
			return repo.Settlement{}, errors.New("computed balance is negative")
		}

		return repo.Settlement{
			Balance: balance,
			Wager: repo.Wager{
				AccountID:      acc.ID,
				Stake:          stake,
				WinProbability: winProbability,
				Payout:         q.Payout,
				Won:            won,
			},
		}, nil
	})
	if err != nil {
		return repo.Wager{}, c.rejected(log, classify(err), err)
	}

	log.Info("wager settled", zap.Int64("wagerId", w.ID), zap.Bool("won", w.Won), zap.String("payout", w.Payout.StringFixed(2)))
	if c.OnSettled != nil {
		c.OnSettled(w.Won)
	}
	if w.Won {
		c.invalidate(ctx, log)
	}
	c.publish(ctx, log, w, balance)
	return w, nil
}

func (c *Coordinator) GetAccount(ctx context.Context, id int64) (repo.Account, error) {
	return c.Ledger.GetAccount(ctx, id)
}

func (c *Coordinator) ListAccounts(ctx context.Context) ([]repo.Account, error) {
	return c.Ledger.ListAccounts(ctx)
}

func (c *Coordinator) GetWager(ctx context.Context, id int64) (repo.Wager, error) {
	return c.Ledger.GetWager(ctx, id)
}

// classify mapeia erros da transação para o motivo público
func classify(err error) Reason {
	switch {
	case errors.Is(err, repo.ErrAccountNotFound):
		return ReasonAccountNotFound
	case errors.Is(err, errInsufficientFunds):
		return ReasonInsufficientFunds
	case errors.Is(err, repo.ErrConflict),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return ReasonConflict
	default:
		return ReasonInternal
	}
}

func (c *Coordinator) rejected(log *zap.Logger, reason Reason, cause error) *Rejection {
	if c.OnRejected != nil {
		c.OnRejected(reason)
	}
	switch reason {
	case ReasonInternal:
		log.Error("wager aborted", zap.String("reason", string(reason)), zap.Error(cause))
	case ReasonConflict:
		log.Warn("wager aborted", zap.String("reason", string(reason)), zap.Error(cause))
	default:
		log.Info("wager rejected", zap.String("reason", string(reason)))
	}
	return reject(reason)
}

// invalidate roda antes da resposta, então quem lê o leaderboard depois da
// própria vitória já a enxerga. Falha só é logada; o TTL limita a defasagem.
func (c *Coordinator) invalidate(ctx context.Context, log *zap.Logger) {
	if c.Board == nil {
		return
	}
	ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), invalidateTimeout)
	defer cancel()
	if err := c.Board.Invalidate(ictx); err != nil {
		log.Warn("leaderboard invalidate failed", zap.Error(err))
		return
	}
	if c.OnInvalidated != nil {
		c.OnInvalidated()
	}
}

// publish é best effort: a aposta já está commitada
func (c *Coordinator) publish(ctx context.Context, log *zap.Logger, w repo.Wager, balance decimal.Decimal) {
	if c.Publ == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	err := c.Publ.PublishWagerSettled(pctx, events.WagerSettled{
		EventID:        uuid.NewString(),
		WagerID:        w.ID,
		AccountID:      w.AccountID,
		Stake:          w.Stake.StringFixed(2),
		WinProbability: w.WinProbability.String(),
		Payout:         w.Payout.StringFixed(2),
		Won:            w.Won,
		Balance:        balance.StringFixed(2),
		SettledAt:      w.CreatedAt,
	})
	if err != nil {
		log.Warn("publish wager_settled failed", zap.Int64("wagerId", w.ID), zap.Error(err))
	}
}
