package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/radieske/betting-game/internal/wager-service/repo"
)

const (
	keyGeneration = "leaderboard:gen"
	keyPrefix     = "leaderboard:best:"
)

// LeaderboardCache guarda resultados do leaderboard no Redis, um hash por geração
// (campo = limit). Invalidar = incrementar a geração; entradas antigas expiram pelo TTL.
// Um resultado calculado antes de uma invalidação é gravado na geração antiga e nunca lido.
type LeaderboardCache struct {
	R   *redis.Client
	TTL time.Duration
}

func NewLeaderboardCache(r *redis.Client, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{R: r, TTL: ttl}
}

type cachedWager struct {
	ID             int64           `json:"id"`
	AccountID      int64           `json:"accountId"`
	Stake          decimal.Decimal `json:"stake"`
	WinProbability decimal.Decimal `json:"winProbability"`
	Payout         decimal.Decimal `json:"payout"`
	Won            bool            `json:"won"`
	CreatedAt      time.Time       `json:"createdAt"`
}

func key(gen int64) string { return keyPrefix + strconv.FormatInt(gen, 10) }

// Generation retorna a geração corrente (0 se nunca invalidado)
func (c *LeaderboardCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.R.Get(ctx, keyGeneration).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Lookup devolve o resultado em cache e a geração lida; ok=false em cache miss
func (c *LeaderboardCache) Lookup(ctx context.Context, limit int) (ws []repo.Wager, gen int64, ok bool, err error) {
	gen, err = c.Generation(ctx)
	if err != nil {
		return nil, 0, false, err
	}

	b, err := c.R.HGet(ctx, key(gen), strconv.Itoa(limit)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, gen, false, err
	}

	var rows []cachedWager
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, gen, false, err
	}
	ws = make([]repo.Wager, 0, len(rows))
	for _, r := range rows {
		ws = append(ws, repo.Wager(r))
	}
	return ws, gen, true, nil
}

// Store grava o resultado calculado sob a geração lida no Lookup
func (c *LeaderboardCache) Store(ctx context.Context, gen int64, limit int, ws []repo.Wager) error {
	rows := make([]cachedWager, 0, len(ws))
	for _, w := range ws {
		rows = append(rows, cachedWager(w))
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return err
	}

	k := key(gen)
	_, err = c.R.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, k, strconv.Itoa(limit), b)
		p.Expire(ctx, k, c.TTL)
		return nil
	})
	return err
}

// Invalidate descarta todos os resultados em cache
func (c *LeaderboardCache) Invalidate(ctx context.Context) error {
	return c.R.Incr(ctx, keyGeneration).Err()
}
