package dto

type DepositRequest struct {
	PlayerID    string `json:"player_id"`
	AmountCents int64  `json:"amount_cents"`
}

type WithdrawRequest struct {
	PlayerID    string `json:"player_id"`
	AmountCents int64  `json:"amount_cents"`
}

type PlaceBetRequest struct {
	PlayerID   string `json:"player_id"`
	WagerCents int64  `json:"wager_cents"`
	Choice     bool   `json:"choice"` // true = cara, false = coroa
}

// Payload do callback do coordenador VRF
type FulfillRequest struct {
	RequestID uint64   `json:"request_id"`
	Words     []uint64 `json:"words"`
}
