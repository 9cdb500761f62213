package dto

type WalletResponse struct {
	PlayerID     string `json:"player_id"`
	WalletID     string `json:"wallet_id"`
	BalanceCents int64  `json:"balance_cents"`
}

type PlaceBetResponse struct {
	RequestID uint64 `json:"request_id"` // recibo: correlaciona com o fulfillment futuro
	Status    string `json:"status"`     // PENDING
}

type BetStatusResponse struct {
	RequestID   uint64  `json:"request_id"`
	PlayerID    string  `json:"player_id"`
	Status      string  `json:"status"` // PENDING | RESOLVED
	WagerCents  int64   `json:"wager_cents"`
	Choice      bool    `json:"choice"`
	Won         *bool   `json:"won,omitempty"`
	PayoutCents *int64  `json:"payout_cents,omitempty"`
	RandomWord  *uint64 `json:"random_word,omitempty"`
}

type FulfillResponse struct {
	RequestID   uint64 `json:"request_id"`
	Status      string `json:"status"` // RESOLVED
	Won         bool   `json:"won"`
	PayoutCents int64  `json:"payout_cents"`
}
