package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/betting-game/internal/leaderboard-worker/consumer"
	"github.com/radieske/betting-game/internal/leaderboard-worker/pubsub"
	sharedcache "github.com/radieske/betting-game/internal/shared/cache"
	"github.com/radieske/betting-game/internal/shared/config"
	"github.com/radieske/betting-game/internal/shared/kafka"
	"github.com/radieske/betting-game/internal/shared/logger"
	"github.com/radieske/betting-game/internal/shared/metrics"
	"github.com/radieske/betting-game/internal/wager-service/cache"
)

func main() {
	cfg := config.LoadFor("leaderboard-worker")

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	// Redis: invalidação do cache e Pub/Sub do feed de vitórias
	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// Consumer Kafka (consumer group leaderboard-worker)
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicWagerSettled, "leaderboard-worker")
	defer reader.Close()

	// Métricas Prometheus por etapa
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "leaderboard_worker_messages_consumed_total", Help: "mensagens consumidas"})
	invalidations := prometheus.NewCounter(prometheus.CounterOpts{Name: "leaderboard_cache_invalidations_total", Help: "invalidações do cache do leaderboard"})
	broadcasts := prometheus.NewCounter(prometheus.CounterOpts{Name: "leaderboard_worker_broadcasts_total", Help: "vitórias publicadas no Pub/Sub"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "leaderboard_worker_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, invalidations, broadcasts, errorsBy)

	proc := &consumer.Processor{
		Log:           log,
		Reader:        reader,
		Cache:         cache.NewLeaderboardCache(redisClient, cfg.LeaderboardCacheTTL),
		Broadcast:     pubsub.NewRedisBroadcaster(redisClient),
		Channel:       cfg.RedisPubSubChannel,
		OnConsumed:    func() { consumed.Inc() },
		OnInvalidated: func() { invalidations.Inc() },
		OnBroadcast:   func() { broadcasts.Inc() },
		OnError:       func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("leaderboard-worker started", zap.String("topic", cfg.TopicWagerSettled))
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	_ = metricsSrv.Shutdown(context.Background())
	log.Info("leaderboard-worker stopped")
}
