package audit

import (
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// Sequencer reordena eventos vindos de tópicos independentes antes de
// aplicá-los. Cada tópico chega em ordem própria, mas entre tópicos a
// ordem de chegada é arbitrária: um bet_placed pode chegar antes do
// deposit_made que o financia e disparar violação espúria. Os eventos
// ficam retidos por uma janela curta e são aplicados em ordem de
// ts_unix_ms, restaurando a ordem de emissão.
type Sequencer struct {
	mu      sync.Mutex
	hold    time.Duration
	pending []rawEvent
	apply   func(topic string, value []byte) error
}

type rawEvent struct {
	topic string
	value []byte
	ts    int64
}

func NewSequencer(hold time.Duration, apply func(topic string, value []byte) error) *Sequencer {
	return &Sequencer{hold: hold, apply: apply}
}

// Add retém um evento até um Flush que o alcance
func (s *Sequencer) Add(topic string, value []byte) {
	var envelope struct {
		TsUnixMs int64 `json:"ts_unix_ms"`
	}
	_ = json.Unmarshal(value, &envelope)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, rawEvent{topic: topic, value: value, ts: envelope.TsUnixMs})
}

// Flush aplica, em ordem de timestamp, todo evento mais velho que a
// janela de retenção. Retorna os erros de aplicação (as violações).
func (s *Sequencer) Flush(now time.Time) []error {
	cutoff := now.Add(-s.hold).UnixMilli()

	s.mu.Lock()
	sort.SliceStable(s.pending, func(i, j int) bool { return s.pending[i].ts < s.pending[j].ts })

	var ready []rawEvent
	n := 0
	for _, e := range s.pending {
		if e.ts <= cutoff {
			ready = append(ready, e)
		} else {
			s.pending[n] = e
			n++
		}
	}
	s.pending = s.pending[:n]
	s.mu.Unlock()

	var errs []error
	for _, e := range ready {
		if err := s.apply(e.topic, e.value); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
