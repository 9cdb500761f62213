package audit

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/radieske/casino-platform-poc/pkg/contracts/events"
	"github.com/radieske/casino-platform-poc/pkg/contracts/topics"
)

var (
	liabilityGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "audit_total_liability_cents",
		Help: "Soma reconstruída dos saldos + escrows pendentes",
	})
	fundsHeldGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "audit_funds_held_cents",
		Help: "Fundos reconstruídos em posse do sistema (bankroll + depósitos - saques)",
	})
	violationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_violations_total",
		Help: "Violações de invariante detectadas na reconstrução",
	})
)

// Auditor reconstrói o estado do ledger só a partir dos eventos emitidos,
// sem ler o storage interno, e verifica a cada evento:
//   - nenhum saldo reconstruído fica negativo
//   - saldos + escrows pendentes nunca excedem os fundos em posse do sistema
//
// O bankroll inicial da casa entra nos fundos: sem ele, o primeiro
// vencedor já estoura a solvência (o payout não nasce do nada).
type Auditor struct {
	mu sync.Mutex

	balances  map[string]int64 // player -> saldo reconstruído
	escrow    map[uint64]int64 // request id -> aposta pendente
	fundsHeld int64
}

func New(houseBankrollCents int64) *Auditor {
	a := &Auditor{
		balances:  make(map[string]int64),
		escrow:    make(map[uint64]int64),
		fundsHeld: houseBankrollCents,
	}
	fundsHeldGauge.Set(float64(a.fundsHeld))
	return a
}

func (a *Auditor) ApplyDepositMade(e events.DepositMade) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balances[e.PlayerID] += e.AmountCents
	a.fundsHeld += e.AmountCents
	return a.checkLocked()
}

func (a *Auditor) ApplyWithdrawalMade(e events.WithdrawalMade) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balances[e.PlayerID] -= e.AmountCents
	a.fundsHeld -= e.AmountCents
	return a.checkLocked()
}

func (a *Auditor) ApplyBetPlaced(e events.BetPlaced) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, dup := a.escrow[e.RequestID]; dup {
		violationsTotal.Inc()
		return fmt.Errorf("duplicate bet_placed for request %d", e.RequestID)
	}
	a.balances[e.PlayerID] -= e.WagerCents
	a.escrow[e.RequestID] = e.WagerCents
	return a.checkLocked()
}

func (a *Auditor) ApplyBetResolved(e events.BetResolved) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.escrow[e.RequestID]; !ok {
		violationsTotal.Inc()
		return fmt.Errorf("bet_resolved without matching bet_placed for request %d", e.RequestID)
	}
	delete(a.escrow, e.RequestID)
	if e.Won {
		a.balances[e.PlayerID] += e.PayoutCents
	}
	// derrota: o escrow some da coluna de passivo e vira ganho da casa
	return a.checkLocked()
}

// ApplyTopic desserializa e aplica um evento cru pelo nome do tópico
func (a *Auditor) ApplyTopic(topic string, value []byte) error {
	switch topic {
	case topics.DepositMade:
		var e events.DepositMade
		if err := json.Unmarshal(value, &e); err != nil {
			return fmt.Errorf("decode %s: %w", topic, err)
		}
		return a.ApplyDepositMade(e)
	case topics.WithdrawalMade:
		var e events.WithdrawalMade
		if err := json.Unmarshal(value, &e); err != nil {
			return fmt.Errorf("decode %s: %w", topic, err)
		}
		return a.ApplyWithdrawalMade(e)
	case topics.BetPlaced:
		var e events.BetPlaced
		if err := json.Unmarshal(value, &e); err != nil {
			return fmt.Errorf("decode %s: %w", topic, err)
		}
		return a.ApplyBetPlaced(e)
	case topics.BetResolved:
		var e events.BetResolved
		if err := json.Unmarshal(value, &e); err != nil {
			return fmt.Errorf("decode %s: %w", topic, err)
		}
		return a.ApplyBetResolved(e)
	default:
		return fmt.Errorf("unknown topic %q", topic)
	}
}

// TotalLiabilityCents retorna o passivo reconstruído: saldos + escrows
func (a *Auditor) TotalLiabilityCents() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.liabilityLocked()
}

func (a *Auditor) FundsHeldCents() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fundsHeld
}

func (a *Auditor) BalanceOf(playerID string) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balances[playerID]
}

func (a *Auditor) liabilityLocked() int64 {
	var total int64
	for _, b := range a.balances {
		total += b
	}
	for _, w := range a.escrow {
		total += w
	}
	return total
}

func (a *Auditor) checkLocked() error {
	liability := a.liabilityLocked()
	liabilityGauge.Set(float64(liability))
	fundsHeldGauge.Set(float64(a.fundsHeld))

	for player, b := range a.balances {
		if b < 0 {
			violationsTotal.Inc()
			return fmt.Errorf("negative reconstructed balance for player %s: %d", player, b)
		}
	}
	if liability > a.fundsHeld {
		violationsTotal.Inc()
		return fmt.Errorf("insolvent: liability %d exceeds funds held %d", liability, a.fundsHeld)
	}
	return nil
}
