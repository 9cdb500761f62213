package audit

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/casino-platform-poc/pkg/contracts/events"
	"github.com/radieske/casino-platform-poc/pkg/contracts/topics"
)

func marshalEvent(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestSequencerRestoresCrossTopicOrder(t *testing.T) {
	a := New(1000)
	seq := NewSequencer(2*time.Second, a.ApplyTopic)

	base := time.Now().Add(-time.Minute).UnixMilli()

	// chegada invertida: a aposta e a resolução aparecem antes do
	// depósito que as financia
	seq.Add(topics.BetResolved, marshalEvent(t, events.BetResolved{
		RequestID: 1, PlayerID: "alice", WagerCents: 10, Won: true, PayoutCents: 20, TsUnixMs: base + 40,
	}))
	seq.Add(topics.BetPlaced, marshalEvent(t, events.BetPlaced{
		RequestID: 1, PlayerID: "alice", WagerCents: 10, Choice: true, TsUnixMs: base + 20,
	}))
	seq.Add(topics.DepositMade, marshalEvent(t, events.DepositMade{
		PlayerID: "alice", AmountCents: 100, TsUnixMs: base,
	}))

	errs := seq.Flush(time.Now())
	assert.Empty(t, errs, "reordenado por timestamp, nenhuma violação espúria")
	assert.Equal(t, int64(110), a.BalanceOf("alice"))
}

func TestSequencerHoldsRecentEvents(t *testing.T) {
	a := New(1000)
	seq := NewSequencer(2*time.Second, a.ApplyTopic)

	now := time.Now()
	seq.Add(topics.DepositMade, marshalEvent(t, events.DepositMade{
		PlayerID: "alice", AmountCents: 100, TsUnixMs: now.UnixMilli(),
	}))

	// dentro da janela de retenção ainda pode chegar evento mais antigo
	assert.Empty(t, seq.Flush(now))
	assert.Equal(t, int64(0), a.BalanceOf("alice"))

	// passada a janela, o evento é aplicado
	assert.Empty(t, seq.Flush(now.Add(3*time.Second)))
	assert.Equal(t, int64(100), a.BalanceOf("alice"))
}

func TestSequencerSurfacesViolations(t *testing.T) {
	a := New(1000)
	seq := NewSequencer(0, a.ApplyTopic)

	base := time.Now().Add(-time.Minute).UnixMilli()

	// resolução sem aposta correspondente é violação de verdade, não
	// problema de ordem: tem que sair no Flush
	seq.Add(topics.BetResolved, marshalEvent(t, events.BetResolved{
		RequestID: 99, PlayerID: "ghost", WagerCents: 10, TsUnixMs: base,
	}))

	errs := seq.Flush(time.Now())
	require.Len(t, errs, 1)
}

func TestApplyTopicUnknownTopic(t *testing.T) {
	a := New(0)
	err := a.ApplyTopic("mystery", []byte(`{"ts_unix_ms":1}`))
	require.Error(t, err)
}
