package registry

import (
	"context"
	"database/sql"
	"errors"
)

var (
	ErrDuplicateRequest = errors.New("duplicate request id")
	ErrUnknownRequest   = errors.New("unknown request id")
	ErrAlreadyResolved  = errors.New("request already resolved")
)

// Postgres guarda o ciclo de vida das apostas: PENDING -> RESOLVED, uma vez só.
// A ausência de linha para um request_id significa "nunca existiu".
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// Open insere o registro PENDING de uma aposta. Um request_id repetido
// indica bug ou replay do coordenador e é rejeitado sem efeito.
func (p *Postgres) Open(ctx context.Context, requestID uint64, playerID string, wagerCents int64, choice bool) error {
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO bets (request_id, player_id, wager_cents, choice, status)
		VALUES ($1,$2,$3,$4,'PENDING')
		ON CONFLICT (request_id) DO NOTHING`,
		int64(requestID), playerID, wagerCents, choice,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDuplicateRequest
	}
	return nil
}

// Close é o portão de idempotência de todo o settlement: marca a aposta
// como RESOLVED exatamente uma vez e devolve o registro. Qualquer segunda
// entrega do mesmo request_id para daqui sem tocar em mais nada.
// Roda dentro da transação do settlement: se o commit não acontecer, a
// transição volta junto e a aposta continua PENDING.
func (p *Postgres) Close(ctx context.Context, tx *sql.Tx, requestID uint64) (Bet, error) {
	var b Bet
	qerr := tx.QueryRowContext(ctx, `
		SELECT request_id, player_id, wager_cents, choice, status, created_at
		FROM bets WHERE request_id=$1 FOR UPDATE`, int64(requestID)).
		Scan(&b.RequestID, &b.PlayerID, &b.WagerCents, &b.Choice, &b.Status, &b.CreatedAt)
	if qerr == sql.ErrNoRows {
		return Bet{}, ErrUnknownRequest
	}
	if qerr != nil {
		return Bet{}, qerr
	}

	if b.Status == StatusResolved {
		return Bet{}, ErrAlreadyResolved
	}

	if _, qerr := tx.ExecContext(ctx,
		`UPDATE bets SET status='RESOLVED', resolved_at=NOW() WHERE request_id=$1`,
		int64(requestID)); qerr != nil {
		return Bet{}, qerr
	}

	b.Status = StatusResolved
	return b, nil
}

// RecordOutcome anota o resultado calculado, na mesma transação do Close.
func (p *Postgres) RecordOutcome(ctx context.Context, tx *sql.Tx, requestID uint64, word uint64, won bool, payoutCents int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE bets SET random_word=$1, won=$2, payout_cents=$3 WHERE request_id=$4`,
		int64(word), won, payoutCents, int64(requestID))
	return err
}

// Get retorna o registro de uma aposta pelo request_id
func (p *Postgres) Get(ctx context.Context, requestID uint64) (Bet, error) {
	var b Bet
	err := p.db.QueryRowContext(ctx, `
		SELECT request_id, player_id, wager_cents, choice, status, random_word, won, payout_cents, created_at, resolved_at
		FROM bets WHERE request_id=$1`, int64(requestID)).
		Scan(&b.RequestID, &b.PlayerID, &b.WagerCents, &b.Choice, &b.Status,
			&b.RandomWord, &b.Won, &b.PayoutCents, &b.CreatedAt, &b.ResolvedAt)
	if err == sql.ErrNoRows {
		return Bet{}, ErrUnknownRequest
	}
	if err != nil {
		return Bet{}, err
	}
	return b, nil
}
