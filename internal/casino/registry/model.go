package registry

import (
	"database/sql"
	"time"
)

const (
	StatusPending  = "PENDING"
	StatusResolved = "RESOLVED"
)

// Bet é o registro persistido de uma aposta em andamento ou já resolvida.
// Chaveado pelo request_id atribuído pelo coordenador VRF; os campos do
// registro são imutáveis após a criação, só o status transiciona.
type Bet struct {
	RequestID   uint64
	PlayerID    string
	WagerCents  int64
	Choice      bool // true = cara, false = coroa
	Status      string
	RandomWord  sql.NullInt64
	Won         sql.NullBool
	PayoutCents sql.NullInt64
	CreatedAt   time.Time
	ResolvedAt  sql.NullTime
}
