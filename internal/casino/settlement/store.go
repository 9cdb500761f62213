package settlement

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/radieske/casino-platform-poc/internal/casino/ledger"
	"github.com/radieske/casino-platform-poc/internal/casino/registry"
	"github.com/radieske/casino-platform-poc/internal/shared/pgutils"
)

// Store aplica o fechamento de uma aposta como uma transação só: marca
// RESOLVED, grava o resultado e credita o payout no mesmo commit. Falha
// em qualquer passo desfaz tudo, a aposta continua PENDING e a reentrega
// do oráculo pode tentar de novo do zero.
type Store struct {
	db      *sql.DB
	wallets *ledger.Postgres
	bets    *registry.Postgres
}

func New(db *sql.DB, wallets *ledger.Postgres, bets *registry.Postgres) *Store {
	return &Store{db: db, wallets: wallets, bets: bets}
}

// SettleBet fecha o registro sob lock, chama decide com o registro ainda
// imutável e credita o payout quando houver vitória. Retorna o registro
// fechado e o novo saldo (zero em caso de derrota).
func (s *Store) SettleBet(ctx context.Context, requestID uint64, decide func(registry.Bet) (word uint64, won bool, payoutCents int64)) (registry.Bet, int64, error) {
	var bet registry.Bet
	var newBalance int64

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		b, cerr := s.bets.Close(ctx, tx, requestID)
		if cerr != nil {
			return cerr
		}

		word, won, payout := decide(b)
		if rerr := s.bets.RecordOutcome(ctx, tx, requestID, word, won, payout); rerr != nil {
			return fmt.Errorf("record outcome: %w", rerr)
		}

		if won {
			nb, perr := s.wallets.CreditTx(ctx, tx, b.PlayerID, payout, fmt.Sprintf("bet-payout:%d", requestID))
			if perr != nil {
				return fmt.Errorf("credit payout: %w", perr)
			}
			newBalance = nb
		}

		bet = b
		return nil
	})
	if err != nil {
		return registry.Bet{}, 0, err
	}
	return bet, newBalance, nil
}
