package events

type BetPlaced struct {
	RequestID  uint64 `json:"request_id"` // id atribuído pelo coordenador VRF
	PlayerID   string `json:"player_id"`
	WagerCents int64  `json:"wager_cents"`
	Choice     bool   `json:"choice"` // true = cara, false = coroa
	TsUnixMs   int64  `json:"ts_unix_ms"`
}
