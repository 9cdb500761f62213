package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	bcache "github.com/radieske/casino-platform-poc/internal/casino/cache"
	"github.com/radieske/casino-platform-poc/internal/casino/engine"
	"github.com/radieske/casino-platform-poc/internal/casino/guard"
	"github.com/radieske/casino-platform-poc/internal/casino/httpapi"
	"github.com/radieske/casino-platform-poc/internal/casino/ledger"
	"github.com/radieske/casino-platform-poc/internal/casino/oracle"
	"github.com/radieske/casino-platform-poc/internal/casino/producer"
	"github.com/radieske/casino-platform-poc/internal/casino/registry"
	"github.com/radieske/casino-platform-poc/internal/casino/settlement"
	"github.com/radieske/casino-platform-poc/internal/shared/cache"
	"github.com/radieske/casino-platform-poc/internal/shared/config"
	"github.com/radieske/casino-platform-poc/internal/shared/db"
	"github.com/radieske/casino-platform-poc/internal/shared/logger"
	"github.com/radieske/casino-platform-poc/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New("casino-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Postgres: carteiras e registro de apostas
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	// Redis: cache de resultado de apostas resolvidas
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}

	// Kafka: eventos de auditoria (depósitos, saques, apostas)
	publ := producer.NewKafkaPublisher(cfg.KafkaBrokers,
		cfg.TopicDepositMade, cfg.TopicWithdrawalMade, cfg.TopicBetPlaced, cfg.TopicBetResolved)
	defer publ.Close()

	// deps do core
	wallets := ledger.NewPostgres(pg)
	bets := registry.NewPostgres(pg)
	vrf := oracle.New(cfg.OracleURL, oracle.Config{
		KeyHash:       cfg.OracleKeyHash,
		Confirmations: cfg.OracleConfirmations,
		GasBudget:     cfg.OracleGasBudget,
		CallbackURL:   cfg.FulfillURL,
	})
	settle := settlement.New(pg, wallets, bets)
	eng := engine.New(log, wallets, bets, settle, vrf, cfg.OracleNumWords, cfg.PayoutMultiplier)

	api := httpapi.NewServer(log, eng, wallets, bets, bcache.New(rdb), publ, guard.New(cfg.OracleKey))

	// metrics/health em porta separada
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return fmt.Errorf("pg: %w", err)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	})
	log.Info("metrics/health listening", zap.String("addr", ":"+cfg.MetricsPort))

	apiSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: api.Router(),
	}

	log.Info("casino-service listening",
		zap.String("addr", apiSrv.Addr),
		zap.String("oracle", cfg.OracleURL),
		zap.Int64("payout_multiplier", cfg.PayoutMultiplier),
	)
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api srv", zap.Error(err))
	}
}
