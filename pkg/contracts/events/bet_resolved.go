package events

// Evento emitido pelo casino-service após processar um fulfillment do oráculo.
type BetResolved struct {
	RequestID   uint64 `json:"request_id"`
	PlayerID    string `json:"player_id"`
	WagerCents  int64  `json:"wager_cents"`
	Choice      bool   `json:"choice"`
	Outcome     bool   `json:"outcome"` // lado derivado da palavra aleatória
	Won         bool   `json:"won"`
	PayoutCents int64  `json:"payout_cents"` // 0 em caso de derrota
	RandomWord  uint64 `json:"random_word"`  // palavra usada na derivação
	TsUnixMs    int64  `json:"ts_unix_ms"`
}
