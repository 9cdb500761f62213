package ledger

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/radieske/casino-platform-poc/internal/shared/pgutils"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("invalid amount")
)

// Postgres implementa o ledger de saldos dos jogadores.
// Toda mutação passa por Credit/Debit: são os únicos mutadores de saldo
// e cada mutação gera uma linha de journal em wallet_ledger.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// GetOrCreate retorna o walletId e saldo de um jogador, criando a carteira
// zerada se não existir (criação implícita no primeiro acesso)
func (p *Postgres) GetOrCreate(ctx context.Context, playerID string) (walletID string, balance int64, err error) {
	err = pgutils.WithTx(ctx, p.db, func(tx *sql.Tx) error {
		qerr := tx.QueryRowContext(ctx,
			`SELECT id, balance_cents FROM wallets WHERE player_id=$1`, playerID).Scan(&walletID, &balance)
		if qerr == sql.ErrNoRows {
			walletID = uuid.NewString()
			balance = 0
			_, qerr = tx.ExecContext(ctx,
				`INSERT INTO wallets(id, player_id, balance_cents, version) VALUES($1,$2,0,1)`,
				walletID, playerID)
		}
		return qerr
	})
	if err != nil {
		return "", 0, err
	}
	return walletID, balance, nil
}

// Credit incrementa o saldo do jogador e registra a operação no journal.
// Sempre bem-sucedido para valores positivos; cria a carteira se necessário.
func (p *Postgres) Credit(ctx context.Context, playerID string, amount int64, description string) (newBalance int64, err error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	err = pgutils.WithTx(ctx, p.db, func(tx *sql.Tx) error {
		nb, cerr := p.CreditTx(ctx, tx, playerID, amount, description)
		if cerr != nil {
			return cerr
		}
		newBalance = nb
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// CreditTx é o Credit dentro de uma transação já aberta. O settlement usa
// pra creditar o payout no mesmo commit que fecha a aposta.
func (p *Postgres) CreditTx(ctx context.Context, tx *sql.Tx, playerID string, amount int64, description string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var walletID string
	qerr := tx.QueryRowContext(ctx,
		`SELECT id FROM wallets WHERE player_id=$1 FOR UPDATE`, playerID).Scan(&walletID)
	if qerr == sql.ErrNoRows {
		walletID = uuid.NewString()
		if _, qerr = tx.ExecContext(ctx,
			`INSERT INTO wallets(id, player_id, balance_cents, version) VALUES($1,$2,0,1)`,
			walletID, playerID); qerr != nil {
			return 0, qerr
		}
	} else if qerr != nil {
		return 0, qerr
	}

	if _, qerr := tx.ExecContext(ctx,
		`UPDATE wallets SET balance_cents = balance_cents + $1, version = version + 1 WHERE id=$2`,
		amount, walletID); qerr != nil {
		return 0, qerr
	}

	if _, qerr := tx.ExecContext(ctx,
		`INSERT INTO wallet_ledger(wallet_id, operation_type, amount_cents, description) VALUES($1,'CREDIT',$2,$3)`,
		walletID, amount, description); qerr != nil {
		return 0, qerr
	}

	var newBalance int64
	if qerr := tx.QueryRowContext(ctx,
		`SELECT balance_cents FROM wallets WHERE id=$1`, walletID).Scan(&newBalance); qerr != nil {
		return 0, qerr
	}
	return newBalance, nil
}

// Debit decrementa o saldo do jogador, falhando sem efeito parcial se o
// saldo for insuficiente. Lock pessimista na linha da carteira: o check de
// saldo e o débito são atômicos frente a qualquer outra operação.
func (p *Postgres) Debit(ctx context.Context, playerID string, amount int64, description string) (newBalance int64, err error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	err = pgutils.WithTx(ctx, p.db, func(tx *sql.Tx) error {
		var walletID string
		var balance int64
		qerr := tx.QueryRowContext(ctx,
			`SELECT id, balance_cents FROM wallets WHERE player_id=$1 FOR UPDATE`, playerID).Scan(&walletID, &balance)
		if qerr == sql.ErrNoRows {
			// carteira inexistente equivale a saldo zero
			return ErrInsufficientBalance
		}
		if qerr != nil {
			return qerr
		}

		if balance < amount {
			return ErrInsufficientBalance
		}

		if _, qerr := tx.ExecContext(ctx,
			`UPDATE wallets SET balance_cents = balance_cents - $1, version = version + 1 WHERE id=$2`,
			amount, walletID); qerr != nil {
			return qerr
		}

		if _, qerr := tx.ExecContext(ctx,
			`INSERT INTO wallet_ledger(wallet_id, operation_type, amount_cents, description) VALUES($1,'DEBIT',$2,$3)`,
			walletID, amount, description); qerr != nil {
			return qerr
		}

		newBalance = balance - amount
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}
