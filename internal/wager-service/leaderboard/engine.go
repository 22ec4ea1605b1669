package leaderboard

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/radieske/betting-game/internal/wager-service/repo"
)

// Store é o caminho de leitura do ledger usado pelo leaderboard
type Store interface {
	BestWagerPerAccount(ctx context.Context, limit int) ([]repo.Wager, error)
}

// Cache é opcional; falhas de cache nunca derrubam a consulta
type Cache interface {
	Lookup(ctx context.Context, limit int) ([]repo.Wager, int64, bool, error)
	Store(ctx context.Context, gen int64, limit int, ws []repo.Wager) error
}

// Engine responde "melhor aposta vencedora por conta"
type Engine struct {
	Log   *zap.Logger
	Store Store
	Cache Cache
}

func NewEngine(log *zap.Logger, s Store, c Cache) *Engine {
	return &Engine{Log: log, Store: s, Cache: c}
}

// ParseLimit converte o parâmetro bruto; ausente ou não numérico vira 0 (inválido)
func ParseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}

// BestWagers devolve no máximo limit apostas, uma por conta.
// limit <= 0 devolve nil sem erro (o chamador renderiza null).
// Um resultado válido sem linhas é um slice vazio, não nil.
func (e *Engine) BestWagers(ctx context.Context, limit int) ([]repo.Wager, error) {
	if limit <= 0 {
		return nil, nil
	}

	var gen int64
	cacheable := false
	if e.Cache != nil {
		ws, g, ok, err := e.Cache.Lookup(ctx, limit)
		if err != nil {
			e.Log.Warn("leaderboard cache lookup failed", zap.Error(err))
		} else if ok {
			return ws, nil
		} else {
			gen, cacheable = g, true
		}
	}

	ws, err := e.Store.BestWagerPerAccount(ctx, limit)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		ws = []repo.Wager{}
	}

	if cacheable {
		if err := e.Cache.Store(ctx, gen, limit, ws); err != nil {
			e.Log.Warn("leaderboard cache store failed", zap.Error(err))
		}
	}
	return ws, nil
}
