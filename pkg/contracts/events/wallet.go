package events

// Evento publicado no tópico "deposit_made"
type DepositMade struct {
	PlayerID        string `json:"player_id"`
	AmountCents     int64  `json:"amount_cents"`
	NewBalanceCents int64  `json:"new_balance_cents"`
	TsUnixMs        int64  `json:"ts_unix_ms"`
}

// Evento publicado no tópico "withdrawal_made"
type WithdrawalMade struct {
	PlayerID        string `json:"player_id"`
	AmountCents     int64  `json:"amount_cents"`
	NewBalanceCents int64  `json:"new_balance_cents"`
	TsUnixMs        int64  `json:"ts_unix_ms"`
}
