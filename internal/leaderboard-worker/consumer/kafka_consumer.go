package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	sharedkafka "github.com/radieske/betting-game/internal/shared/kafka"
	"github.com/radieske/betting-game/pkg/contracts/events"
)

// Invalidator descarta o leaderboard em cache
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Broadcaster repassa o payload para um canal Pub/Sub
type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Processor consome wager_settled do Kafka. Só vitórias mudam o leaderboard:
// para elas o cache é invalidado e o evento é repassado ao feed de vitórias.
type Processor struct {
	Log       *zap.Logger
	Reader    *sharedkafka.Reader
	Cache     Invalidator
	Broadcast Broadcaster
	Channel   string

	OnConsumed    func()       // métricas (counter++)
	OnInvalidated func()       // métricas
	OnBroadcast   func()       // métricas
	OnError       func(string) // métricas por fase
}

// Run inicia o loop principal de consumo até o contexto ser cancelado
func (p *Processor) Run(ctx context.Context) error {
	for {
		_, value, err := sharedkafka.ReadNext(ctx, p.Reader)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if p.OnConsumed != nil {
			p.OnConsumed()
		}
		_ = p.handle(ctx, value)
	}
}

// handle processa uma mensagem; erros são logados e contados, nunca param o loop
func (p *Processor) handle(ctx context.Context, value []byte) error {
	var ev events.WagerSettled
	if err := json.Unmarshal(value, &ev); err != nil {
		p.Log.Warn("invalid message", zap.Error(err))
		p.fail("decode")
		return fmt.Errorf("decode: %w", err)
	}
	if !ev.Won {
		return nil
	}

	log := p.Log.With(zap.Int64("wagerId", ev.WagerID), zap.Int64("accountId", ev.AccountID))

	if p.Cache != nil {
		if err := p.Cache.Invalidate(ctx); err != nil {
			log.Warn("leaderboard invalidate failed", zap.Error(err))
			p.fail("invalidate")
			// segue para o broadcast mesmo assim; o TTL limita a defasagem
		} else if p.OnInvalidated != nil {
			p.OnInvalidated()
		}
	}

	if p.Broadcast == nil {
		return nil
	}
	bctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	if err := p.Broadcast.Publish(bctx, p.Channel, value); err != nil {
		log.Warn("ws broadcast publish failed", zap.Error(err))
		p.fail("broadcast")
		return fmt.Errorf("broadcast: %w", err)
	}
	if p.OnBroadcast != nil {
		p.OnBroadcast()
	}
	return nil
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
