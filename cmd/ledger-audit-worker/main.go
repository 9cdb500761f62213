package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/radieske/casino-platform-poc/internal/audit"
	"github.com/radieske/casino-platform-poc/internal/shared/config"
	"github.com/radieske/casino-platform-poc/internal/shared/kafka"
	"github.com/radieske/casino-platform-poc/internal/shared/logger"
)

const consumerGroup = "ledger-audit"

// Janela de retenção antes de aplicar cada evento: os quatro tópicos
// chegam sem ordem entre si, e a janela dá tempo do evento mais antigo
// aparecer antes do sequencer ordenar por timestamp
const reorderHold = 2 * time.Second

func main() {
	cfg := config.Load()
	log, err := logger.New("ledger-audit-worker", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	auditor := audit.New(cfg.HouseBankrollCents)
	seq := audit.NewSequencer(reorderHold, auditor.ApplyTopic)

	// Servidor HTTP para métricas Prometheus e healthcheck
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		addr := ":" + cfg.MetricsPort
		log.Info("metrics/health", zap.String("addr", addr))
		_ = http.ListenAndServe(addr, mux)
	}()

	allTopics := []string{cfg.TopicDepositMade, cfg.TopicWithdrawalMade, cfg.TopicBetPlaced, cfg.TopicBetResolved}
	log.Info("ledger-audit-worker started",
		zap.Int64("house_bankroll_cents", cfg.HouseBankrollCents),
		zap.Strings("topics", allTopics),
	)

	// aplica os eventos retidos em ordem de timestamp; violações são
	// logadas e contadas, nunca "consertadas" aqui
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for range ticker.C {
			for _, verr := range seq.Flush(time.Now()) {
				log.Error("audit violation", zap.Error(verr))
			}
		}
	}()

	// um único reader pros quatro tópicos: caminho de aplicação único,
	// sem corrida entre consumidores
	reader := kafka.NewGroupReader(cfg.KafkaBrokers, allTopics, consumerGroup)
	defer reader.Close()

	ctx := context.Background()
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		seq.Add(msg.Topic, msg.Value)
	}
}
