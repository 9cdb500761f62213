package topics

const (
	// Carteira
	DepositMade    = "deposit_made"
	WithdrawalMade = "withdrawal_made"

	// Apostas
	BetPlaced   = "bet_placed"
	BetResolved = "bet_resolved"
)
