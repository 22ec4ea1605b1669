package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	sharedcache "github.com/radieske/betting-game/internal/shared/cache"
	"github.com/radieske/betting-game/internal/shared/config"
	"github.com/radieske/betting-game/internal/shared/db"
	"github.com/radieske/betting-game/internal/shared/kafka"
	"github.com/radieske/betting-game/internal/shared/logger"
	"github.com/radieske/betting-game/internal/shared/metrics"
	"github.com/radieske/betting-game/internal/wager-service/cache"
	whttp "github.com/radieske/betting-game/internal/wager-service/http"
	"github.com/radieske/betting-game/internal/wager-service/leaderboard"
	"github.com/radieske/betting-game/internal/wager-service/payout"
	"github.com/radieske/betting-game/internal/wager-service/producer"
	"github.com/radieske/betting-game/internal/wager-service/repo"
	"github.com/radieske/betting-game/internal/wager-service/service"
	"github.com/radieske/betting-game/internal/wager-service/ws"
)

// store é o que o serviço precisa do ledger, seja Postgres ou memória
type store interface {
	service.Ledger
	leaderboard.Store
	Ping(ctx context.Context) error
}

func main() {
	cfg := config.LoadFor("wager-service")

	// Inicializa logger estruturado
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()
	log.Info("starting service",
		zap.String("service", cfg.ServiceName),
		zap.String("env", cfg.Env),
		zap.String("storage", cfg.StorageDriver),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ledger, closeStore := openStore(ctx, cfg, log)
	defer closeStore()

	calc, err := payout.ParseHouseEdge(cfg.HouseEdge)
	if err != nil {
		log.Fatal("invalid house edge", zap.String("houseEdge", cfg.HouseEdge), zap.Error(err))
	}

	// Redis é opcional: cache do leaderboard e feed de vitórias
	var redisClient *redis.Client
	if cfg.CacheEnabled || cfg.EventsEnabled {
		redisClient, err = sharedcache.ConnectRedis(cfg.RedisAddr)
		if err != nil {
			log.Warn("redis unavailable, cache and live feed disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Info("redis connected")
		}
	}

	var lbCache *cache.LeaderboardCache
	var engineCache leaderboard.Cache // nil interface quando desligado
	if redisClient != nil && cfg.CacheEnabled {
		lbCache = cache.NewLeaderboardCache(redisClient, cfg.LeaderboardCacheTTL)
		engineCache = lbCache
	}
	board := leaderboard.NewEngine(log, ledger, engineCache)

	// Métricas Prometheus
	settled := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "wager_settled_total", Help: "apostas liquidadas por resultado"}, []string{"outcome"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "wager_rejected_total", Help: "apostas rejeitadas por motivo"}, []string{"reason"})
	invalidations := prometheus.NewCounter(prometheus.CounterOpts{Name: "leaderboard_cache_invalidations_total", Help: "invalidações do cache do leaderboard"})
	prometheus.MustRegister(settled, rejected, invalidations)

	coord := service.NewCoordinator(log, ledger, calc, nil)
	coord.Timeout = cfg.WagerTimeout
	coord.OnRejected = func(r service.Reason) { rejected.WithLabelValues(string(r)).Inc() }
	coord.OnSettled = func(won bool) {
		if won {
			settled.WithLabelValues("won").Inc()
		} else {
			settled.WithLabelValues("lost").Inc()
		}
	}
	if lbCache != nil {
		coord.Board = lbCache
		coord.OnInvalidated = func() { invalidations.Inc() }
	}

	// Publicação de wager_settled (opcional)
	if cfg.EventsEnabled {
		if cfg.Env == "local" || cfg.Env == "dev" {
			tctx, tcancel := context.WithTimeout(ctx, 5*time.Second)
			if err := kafka.EnsureTopic(tctx, cfg.KafkaBrokers, cfg.TopicWagerSettled); err != nil {
				log.Warn("ensure topic failed", zap.String("topic", cfg.TopicWagerSettled), zap.Error(err))
			}
			tcancel()
		}
		writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicWagerSettled)
		publisher := producer.NewKafkaPublisher(writer, log)
		defer publisher.Close()
		coord.Publ = publisher
		log.Info("kafka writer ready", zap.String("topic", cfg.TopicWagerSettled))
	}

	// Feed de vitórias via WebSocket, alimentado pelo Redis Pub/Sub
	var feed http.Handler
	if redisClient != nil && cfg.EventsEnabled {
		hub := ws.NewHub(func(*http.Request) bool { return true })
		ws.StartRedisSubscriber(ctx, redisClient, cfg.RedisPubSubChannel, hub, log)
		feed = hub
	}

	// Servidor de métricas e health check
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := ledger.Ping(ctx); err != nil {
			return fmt.Errorf("store: %w", err)
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	})
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	api := whttp.NewServer(log, coord, board, feed)
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("api listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api srv", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	_ = apiSrv.Shutdown(sctx)
	_ = metricsSrv.Shutdown(sctx)
	log.Info("wager-service stopped")
}

// openStore seleciona o ledger conforme STORAGE_DRIVER e aplica o seed se habilitado
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (store, func()) {
	switch cfg.StorageDriver {
	case "memory":
		m := repo.NewMemory()
		if cfg.SeedAccounts {
			for _, a := range db.DefaultAccounts {
				m.CreateAccount(a.Name, decimal.RequireFromString(a.Balance))
			}
			log.Info("accounts seeded", zap.Int("count", len(db.DefaultAccounts)))
		}
		return m, func() {}

	case "postgres":
		pg, err := db.ConnectPostgres(cfg.PostgresDSN)
		if err != nil {
			log.Fatal("postgres connect", zap.Error(err))
		}
		log.Info("postgres connected")

		if err := db.Migrate(ctx, pg); err != nil {
			log.Fatal("postgres migrate", zap.Error(err))
		}
		if cfg.SeedAccounts {
			n, err := db.Seed(ctx, pg, db.DefaultAccounts)
			if err != nil {
				log.Fatal("postgres seed", zap.Error(err))
			}
			log.Info("accounts seeded", zap.Int("count", n))
		}
		return repo.NewPostgres(pg), func() { _ = pg.Close() }

	default:
		log.Fatal("unknown storage driver", zap.String("driver", cfg.StorageDriver))
		return nil, nil
	}
}
