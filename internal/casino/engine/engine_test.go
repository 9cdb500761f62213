package engine

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/casino-platform-poc/internal/casino/ledger"
	"github.com/radieske/casino-platform-poc/internal/casino/registry"
)

// memLedger implementa Ledger em memória pros testes do engine
type memLedger struct {
	balances map[string]int64
}

func newMemLedger() *memLedger { return &memLedger{balances: make(map[string]int64)} }

func (m *memLedger) Credit(_ context.Context, playerID string, amount int64, _ string) (int64, error) {
	if amount <= 0 {
		return 0, ledger.ErrInvalidAmount
	}
	m.balances[playerID] += amount
	return m.balances[playerID], nil
}

func (m *memLedger) Debit(_ context.Context, playerID string, amount int64, _ string) (int64, error) {
	if amount <= 0 {
		return 0, ledger.ErrInvalidAmount
	}
	if m.balances[playerID] < amount {
		return 0, ledger.ErrInsufficientBalance
	}
	m.balances[playerID] -= amount
	return m.balances[playerID], nil
}

// memRegistry implementa Registry em memória
type memRegistry struct {
	bets map[uint64]*registry.Bet
}

func newMemRegistry() *memRegistry { return &memRegistry{bets: make(map[uint64]*registry.Bet)} }

func (m *memRegistry) Open(_ context.Context, requestID uint64, playerID string, wagerCents int64, choice bool) error {
	if _, ok := m.bets[requestID]; ok {
		return registry.ErrDuplicateRequest
	}
	m.bets[requestID] = &registry.Bet{
		RequestID:  requestID,
		PlayerID:   playerID,
		WagerCents: wagerCents,
		Choice:     choice,
		Status:     registry.StatusPending,
	}
	return nil
}

// memSettler aplica fechamento, resultado e crédito com semântica de
// transação: qualquer falha não deixa efeito nenhum e a aposta continua
// PENDING
type memSettler struct {
	led       *memLedger
	reg       *memRegistry
	creditErr error
}

func (s *memSettler) SettleBet(_ context.Context, requestID uint64, decide func(registry.Bet) (uint64, bool, int64)) (registry.Bet, int64, error) {
	b, ok := s.reg.bets[requestID]
	if !ok {
		return registry.Bet{}, 0, registry.ErrUnknownRequest
	}
	if b.Status == registry.StatusResolved {
		return registry.Bet{}, 0, registry.ErrAlreadyResolved
	}

	word, won, payout := decide(*b)

	var newBal int64
	if won {
		if s.creditErr != nil {
			return registry.Bet{}, 0, s.creditErr
		}
		s.led.balances[b.PlayerID] += payout
		newBal = s.led.balances[b.PlayerID]
	}

	b.Status = registry.StatusResolved
	b.RandomWord = sql.NullInt64{Int64: int64(word), Valid: true}
	b.Won = sql.NullBool{Bool: won, Valid: true}
	b.PayoutCents = sql.NullInt64{Int64: payout, Valid: true}
	return *b, newBal, nil
}

// fakeOracle atribui ids sequenciais; fixedID força um id repetido
type fakeOracle struct {
	nextID  uint64
	fixedID bool
	err     error
	calls   int
}

func (f *fakeOracle) Request(_ context.Context, _ int) (uint64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	if f.fixedID {
		return f.nextID, nil
	}
	f.nextID++
	return f.nextID, nil
}

func newTestEngine(led *memLedger, reg *memRegistry, orc *fakeOracle) *Engine {
	return New(zap.NewNop(), led, reg, &memSettler{led: led, reg: reg}, orc, 3, 2)
}

func TestPlaceBetEscrowsWager(t *testing.T) {
	led := newMemLedger()
	reg := newMemRegistry()
	orc := &fakeOracle{}
	eng := newTestEngine(led, reg, orc)

	_, err := eng.Deposit(context.Background(), "alice", 100)
	require.NoError(t, err)

	requestID, err := eng.PlaceBet(context.Background(), "alice", 10, true)
	require.NoError(t, err)

	assert.Equal(t, int64(90), led.balances["alice"], "aposta debitada no momento do request (escrow)")
	require.Contains(t, reg.bets, requestID)
	assert.Equal(t, registry.StatusPending, reg.bets[requestID].Status)
}

func TestPlaceBetInsufficientBalance(t *testing.T) {
	led := newMemLedger()
	reg := newMemRegistry()
	orc := &fakeOracle{}
	eng := newTestEngine(led, reg, orc)

	_, err := eng.PlaceBet(context.Background(), "broke", 10, true)
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	assert.Zero(t, orc.calls, "débito falhou: nenhuma requisição ao oráculo")
	assert.Empty(t, reg.bets, "nenhum registro PENDING órfão")
	assert.Equal(t, int64(0), led.balances["broke"])
}

func TestPlaceBetRejectsNonPositiveWager(t *testing.T) {
	eng := newTestEngine(newMemLedger(), newMemRegistry(), &fakeOracle{})

	for _, wager := range []int64{0, -5} {
		_, err := eng.PlaceBet(context.Background(), "alice", wager, true)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
}

func TestPlaceBetOracleUnavailableRevertsEscrow(t *testing.T) {
	led := newMemLedger()
	reg := newMemRegistry()
	orc := &fakeOracle{err: errors.New("subscription underfunded")}
	eng := newTestEngine(led, reg, orc)

	_, err := eng.Deposit(context.Background(), "alice", 100)
	require.NoError(t, err)

	_, err = eng.PlaceBet(context.Background(), "alice", 10, true)
	require.Error(t, err)

	assert.Equal(t, int64(100), led.balances["alice"], "escrow devolvido quando o oráculo falha")
	assert.Empty(t, reg.bets)
}

func TestPlaceBetDuplicateRequestIDRevertsEscrow(t *testing.T) {
	led := newMemLedger()
	reg := newMemRegistry()
	orc := &fakeOracle{nextID: 7, fixedID: true} // coordenador bugado: sempre o mesmo id
	eng := newTestEngine(led, reg, orc)

	_, err := eng.Deposit(context.Background(), "alice", 100)
	require.NoError(t, err)

	_, err = eng.PlaceBet(context.Background(), "alice", 10, true)
	require.NoError(t, err)

	_, err = eng.PlaceBet(context.Background(), "alice", 10, false)
	require.ErrorIs(t, err, registry.ErrDuplicateRequest)

	assert.Equal(t, int64(90), led.balances["alice"], "só o escrow da primeira aposta permanece")
}

func TestSettleWinCreditsFullPayout(t *testing.T) {
	led := newMemLedger()
	reg := newMemRegistry()
	eng := newTestEngine(led, reg, &fakeOracle{})

	// deposita 1.00, aposta 0.10 em cara
	_, err := eng.Deposit(context.Background(), "alice", 100)
	require.NoError(t, err)
	requestID, err := eng.PlaceBet(context.Background(), "alice", 10, true)
	require.NoError(t, err)
	require.Equal(t, int64(90), led.balances["alice"])

	// palavra ímpar deriva cara: vitória
	st, err := eng.Settle(context.Background(), requestID, []uint64{13, 99, 42})
	require.NoError(t, err)

	assert.True(t, st.Won)
	assert.Equal(t, int64(20), st.PayoutCents, "payout cheio: aposta de volta + prêmio")
	assert.Equal(t, int64(110), led.balances["alice"], "0.90 + 0.20")
	assert.Equal(t, registry.StatusResolved, reg.bets[requestID].Status)
}

func TestSettleLossLeavesEscrowWithHouse(t *testing.T) {
	led := newMemLedger()
	reg := newMemRegistry()
	eng := newTestEngine(led, reg, &fakeOracle{})

	_, err := eng.Deposit(context.Background(), "alice", 100)
	require.NoError(t, err)
	requestID, err := eng.PlaceBet(context.Background(), "alice", 10, true)
	require.NoError(t, err)

	// palavra par deriva coroa: derrota
	st, err := eng.Settle(context.Background(), requestID, []uint64{8})
	require.NoError(t, err)

	assert.False(t, st.Won)
	assert.Zero(t, st.PayoutCents)
	assert.Equal(t, int64(90), led.balances["alice"], "nenhum crédito na derrota")
	assert.Equal(t, registry.StatusResolved, reg.bets[requestID].Status)
}

func TestSettleIsIdempotent(t *testing.T) {
	led := newMemLedger()
	reg := newMemRegistry()
	eng := newTestEngine(led, reg, &fakeOracle{})

	_, err := eng.Deposit(context.Background(), "alice", 100)
	require.NoError(t, err)
	requestID, err := eng.PlaceBet(context.Background(), "alice", 10, true)
	require.NoError(t, err)

	_, err = eng.Settle(context.Background(), requestID, []uint64{13})
	require.NoError(t, err)
	balanceAfterFirst := led.balances["alice"]

	// entrega duplicada do mesmo request id morre no Close, sem efeito no ledger
	_, err = eng.Settle(context.Background(), requestID, []uint64{13})
	require.ErrorIs(t, err, registry.ErrAlreadyResolved)
	assert.Equal(t, balanceAfterFirst, led.balances["alice"])
}

func TestSettlePayoutCreditFailureKeepsBetPending(t *testing.T) {
	led := newMemLedger()
	reg := newMemRegistry()
	set := &memSettler{led: led, reg: reg, creditErr: errors.New("pg down")}
	eng := New(zap.NewNop(), led, reg, set, &fakeOracle{}, 3, 2)

	_, err := eng.Deposit(context.Background(), "alice", 100)
	require.NoError(t, err)
	requestID, err := eng.PlaceBet(context.Background(), "alice", 10, true)
	require.NoError(t, err)

	// crédito do payout falha no meio: a transação inteira volta, nada
	// de aposta RESOLVED sem prêmio pago
	_, err = eng.Settle(context.Background(), requestID, []uint64{13})
	require.Error(t, err)
	assert.Equal(t, registry.StatusPending, reg.bets[requestID].Status, "aposta continua pendente")
	assert.Equal(t, int64(90), led.balances["alice"], "nenhum crédito parcial")

	// a reentrega do oráculo tenta de novo e agora o payout sai
	set.creditErr = nil
	st, err := eng.Settle(context.Background(), requestID, []uint64{13})
	require.NoError(t, err)
	assert.True(t, st.Won)
	assert.Equal(t, int64(110), led.balances["alice"])
	assert.Equal(t, registry.StatusResolved, reg.bets[requestID].Status)
}

func TestSettleUnknownRequest(t *testing.T) {
	led := newMemLedger()
	eng := newTestEngine(led, newMemRegistry(), &fakeOracle{})

	_, err := eng.Settle(context.Background(), 999, []uint64{13})
	require.ErrorIs(t, err, registry.ErrUnknownRequest)
	assert.Empty(t, led.balances)
}

func TestSettleRejectsEmptyWords(t *testing.T) {
	reg := newMemRegistry()
	eng := newTestEngine(newMemLedger(), reg, &fakeOracle{})

	require.NoError(t, reg.Open(context.Background(), 1, "alice", 10, true))

	_, err := eng.Settle(context.Background(), 1, nil)
	require.ErrorIs(t, err, ErrEmptyRandomness)
	assert.Equal(t, registry.StatusPending, reg.bets[1].Status, "payload inválido não fecha o registro")
}

func TestWithdrawInsufficientBalance(t *testing.T) {
	led := newMemLedger()
	eng := newTestEngine(led, newMemRegistry(), &fakeOracle{})

	_, err := eng.Deposit(context.Background(), "alice", 50)
	require.NoError(t, err)

	_, err = eng.Withdraw(context.Background(), "alice", 60)
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	assert.Equal(t, int64(50), led.balances["alice"])
}
