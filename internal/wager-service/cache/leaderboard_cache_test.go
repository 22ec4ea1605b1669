package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/betting-game/internal/wager-service/repo"
)

func newTestCache(t *testing.T) (*LeaderboardCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewLeaderboardCache(rdb, 30*time.Second), mr
}

func sample() []repo.Wager {
	return []repo.Wager{{
		ID:             3,
		AccountID:      1,
		Stake:          decimal.RequireFromString("100.00"),
		WinProbability: decimal.RequireFromString("0.5"),
		Payout:         decimal.RequireFromString("85.00"),
		Won:            true,
		CreatedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}}
}

func TestLeaderboardCacheRoundTrip(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, gen, ok, err := c.Lookup(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(0), gen)

	require.NoError(t, c.Store(ctx, gen, 5, sample()))

	got, _, ok, err := c.Lookup(ctx, 5)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].ID)
	assert.True(t, got[0].Payout.Equal(decimal.RequireFromString("85")))
	assert.True(t, got[0].CreatedAt.Equal(sample()[0].CreatedAt))

	// outro limit é outro campo
	_, _, ok, err = c.Lookup(ctx, 6)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, mr.TTL(key(0)) > 0)
}

func TestLeaderboardCacheEmptyResultIsAHit(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, 0, 1, []repo.Wager{}))
	got, _, ok, err := c.Lookup(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLeaderboardCacheInvalidate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	_, gen, _, err := c.Lookup(ctx, 5)
	require.NoError(t, err)

	// invalidação entre a consulta e o Store: o resultado antigo não pode ser servido
	require.NoError(t, c.Invalidate(ctx))
	require.NoError(t, c.Store(ctx, gen, 5, sample()))

	_, newGen, ok, err := c.Lookup(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, gen+1, newGen)
}
