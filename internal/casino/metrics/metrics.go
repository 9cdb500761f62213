package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	depositsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "casino_deposits_total",
		Help: "Total de depósitos aceitos",
	})

	withdrawalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "casino_withdrawals_total",
		Help: "Total de saques aceitos",
	})

	betsPlacedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casino_bets_placed_total",
			Help: "Apostas colocadas por lado escolhido",
		},
		[]string{"choice"},
	)

	betsResolvedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casino_bets_resolved_total",
			Help: "Apostas resolvidas por resultado",
		},
		[]string{"result"},
	)

	payoutCentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "casino_payout_cents_total",
		Help: "Total pago em prêmios, em cents",
	})

	settleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "casino_settle_duration_ms",
		Help:    "Duração do settlement em milissegundos",
		Buckets: prometheus.ExponentialBuckets(5, 2, 10),
	})
)

func RecordDeposit()    { depositsTotal.Inc() }
func RecordWithdrawal() { withdrawalsTotal.Inc() }

func RecordBetPlaced(choice bool) {
	betsPlacedTotal.WithLabelValues(choiceLabel(choice)).Inc()
}

// RecordSettlement registra métricas de negócio de um settlement concluído
func RecordSettlement(won bool, payoutCents int64, started time.Time) {
	result := "loss"
	if won {
		result = "win"
		payoutCentsTotal.Add(float64(payoutCents))
	}
	betsResolvedTotal.WithLabelValues(result).Inc()
	settleDuration.Observe(float64(time.Since(started).Milliseconds()))
}

func choiceLabel(choice bool) string {
	if choice {
		return "heads"
	}
	return "tails"
}
