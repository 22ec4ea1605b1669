package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/betting-game/internal/shared/db"
)

func TestMapTxErr(t *testing.T) {
	ctx := context.Background()

	err := mapTxErr(ctx, &pq.Error{Code: "40001", Message: "could not serialize access"})
	assert.ErrorIs(t, err, ErrConflict)

	err = mapTxErr(ctx, fmt.Errorf("exec: %w", &pq.Error{Code: "40P01", Message: "deadlock detected"}))
	assert.ErrorIs(t, err, ErrConflict)

	other := &pq.Error{Code: "23514", Message: "check violation"}
	assert.Equal(t, error(other), mapTxErr(ctx, other))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	err = mapTxErr(canceled, errors.New("driver: bad connection"))
	assert.ErrorIs(t, err, context.Canceled)
}

// newTestPostgres abre o banco de integração; sem POSTGRES_TEST_DSN o teste é pulado
func newTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	conn, err := db.ConnectPostgres(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx, conn))
	_, err = conn.ExecContext(ctx, `TRUNCATE wagers, accounts RESTART IDENTITY`)
	require.NoError(t, err)
	_, err = db.Seed(ctx, conn, []db.SeedAccount{{Name: "Adam", Balance: "100.00"}, {Name: "Victor", Balance: "50.00"}})
	require.NoError(t, err)

	return NewPostgres(conn)
}

func TestPostgresSettleAndLeaderboard(t *testing.T) {
	p := newTestPostgres(t)
	ctx := context.Background()

	win := func(payout string) SettleFunc {
		return func(acc Account) (Settlement, error) {
			v := dec(payout)
			return Settlement{
				Balance: acc.Balance.Add(v),
				Wager:   Wager{Stake: dec("1.00"), WinProbability: dec("0.5"), Payout: v, Won: true},
			}, nil
		}
	}

	for _, step := range []struct {
		account int64
		payout  string
	}{{1, "5.00"}, {1, "9.00"}, {2, "7.00"}, {1, "9.00"}} {
		_, err := p.Settle(ctx, step.account, win(step.payout))
		require.NoError(t, err)
	}

	acc, err := p.GetAccount(ctx, 1)
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(dec("123.00")))

	best, err := p.BestWagerPerAccount(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids(best))

	_, err = p.GetAccount(ctx, 99)
	assert.ErrorIs(t, err, ErrAccountNotFound)
	_, err = p.GetWager(ctx, 99)
	assert.ErrorIs(t, err, ErrWagerNotFound)
}

func TestPostgresConcurrentSettleNeverOverdraws(t *testing.T) {
	p := newTestPostgres(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Settle(ctx, 2, func(acc Account) (Settlement, error) {
				stake := dec("20.00")
				if acc.Balance.LessThan(stake) {
					return Settlement{}, errors.New("insufficient")
				}
				return Settlement{
					Balance: acc.Balance.Sub(stake),
					Wager:   Wager{Stake: stake, WinProbability: dec("0.5"), Payout: stake, Won: false},
				}, nil
			})
			if err != nil && !errors.Is(err, ErrConflict) && err.Error() != "insufficient" {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	acc, err := p.GetAccount(ctx, 2)
	require.NoError(t, err)
	assert.False(t, acc.Balance.IsNegative())
}
