package engine

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/radieske/casino-platform-poc/internal/casino/registry"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyRandomness = errors.New("empty randomness words")
)

// Ledger é o contrato mínimo de saldo que o engine precisa.
// Credit/Debit são os únicos mutadores; Debit falha sem efeito parcial.
type Ledger interface {
	Credit(ctx context.Context, playerID string, amount int64, description string) (int64, error)
	Debit(ctx context.Context, playerID string, amount int64, description string) (int64, error)
}

// Registry guarda o ciclo de vida das apostas chaveado por request id.
type Registry interface {
	Open(ctx context.Context, requestID uint64, playerID string, wagerCents int64, choice bool) error
}

// Settler fecha a aposta, grava o resultado e credita o payout de forma
// atômica. Falha em qualquer passo não deixa efeito nenhum: a aposta
// continua PENDING e pode ser resolvida por uma reentrega.
type Settler interface {
	SettleBet(ctx context.Context, requestID uint64, decide func(registry.Bet) (word uint64, won bool, payoutCents int64)) (registry.Bet, int64, error)
}

// RandomnessClient pede aleatoriedade ao coordenador; o callback chega
// depois, por fora, no endpoint de fulfillment.
type RandomnessClient interface {
	Request(ctx context.Context, numWords int) (uint64, error)
}

// Settlement é o resultado terminal de uma aposta resolvida.
type Settlement struct {
	RequestID       uint64
	PlayerID        string
	WagerCents      int64
	Choice          bool
	Outcome         bool
	Won             bool
	PayoutCents     int64
	RandomWord      uint64
	NewBalanceCents int64 // saldo após o crédito; igual ao anterior em caso de derrota
}

// Engine orquestra o ciclo de vida da aposta: escrow -> requisição ->
// registro pendente, e depois close -> resultado -> pagamento.
// O mutex serializa as operações públicas: dentro de uma operação a
// sequência check/debit/request/open (ou close/compute/credit) não
// intercala com nenhuma outra chamada.
type Engine struct {
	mu sync.Mutex

	log      *zap.Logger
	ledger   Ledger
	registry Registry
	settler  Settler
	oracle   RandomnessClient

	numWords   int
	multiplier int64 // payout = aposta * multiplier (aposta já debitada no escrow)
}

func New(log *zap.Logger, l Ledger, r Registry, s Settler, o RandomnessClient, numWords int, multiplier int64) *Engine {
	return &Engine{
		log:        log,
		ledger:     l,
		registry:   r,
		settler:    s,
		oracle:     o,
		numWords:   numWords,
		multiplier: multiplier,
	}
}

// Deposit credita o valor na carteira do jogador
func (e *Engine) Deposit(ctx context.Context, playerID string, amountCents int64) (int64, error) {
	if amountCents <= 0 {
		return 0, ErrInvalidAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Credit(ctx, playerID, amountCents, "deposit")
}

// Withdraw debita o valor da carteira; a liberação externa do valor
// acontece depois de todo o bookkeeping interno
func (e *Engine) Withdraw(ctx context.Context, playerID string, amountCents int64) (int64, error) {
	if amountCents <= 0 {
		return 0, ErrInvalidAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Debit(ctx, playerID, amountCents, "withdraw")
}

// PlaceBet coloca uma aposta de coin flip:
// 1. debita a aposta (escrow) — antes da requisição, pra impedir que duas
//    apostas pendentes somadas excedam o saldo
// 2. pede aleatoriedade ao coordenador
// 3. registra a aposta PENDING chaveada pelo request id retornado
// Falha em qualquer passo desfaz o escrow na mesma operação serializada:
// nenhuma falha deixa débito órfão nem registro PENDING órfão.
func (e *Engine) PlaceBet(ctx context.Context, playerID string, wagerCents int64, choice bool) (uint64, error) {
	if wagerCents <= 0 {
		return 0, ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.ledger.Debit(ctx, playerID, wagerCents, "bet-escrow"); err != nil {
		return 0, err
	}

	requestID, err := e.oracle.Request(ctx, e.numWords)
	if err != nil {
		e.revertEscrow(ctx, playerID, wagerCents, "bet-escrow-revert:oracle")
		return 0, err
	}

	if err := e.registry.Open(ctx, requestID, playerID, wagerCents, choice); err != nil {
		// request_id repetido vindo do coordenador: devolve o escrow e falha alto
		e.revertEscrow(ctx, playerID, wagerCents, "bet-escrow-revert:registry")
		return 0, err
	}

	return requestID, nil
}

// Settle resolve uma aposta pendente com as palavras entregues pelo oráculo.
// Fechamento, resultado e crédito do payout rodam numa única transação do
// settler: o Close dentro dela é o portão de idempotência (entregas
// duplicadas morrem ali sem mover fundos) e qualquer falha no meio desfaz
// tudo, deixando a aposta PENDING pra próxima entrega tentar de novo.
func (e *Engine) Settle(ctx context.Context, requestID uint64, words []uint64) (Settlement, error) {
	if len(words) == 0 {
		return Settlement{}, ErrEmptyRandomness
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	word := words[0]
	var outcome, won bool
	var payout int64

	bet, newBal, err := e.settler.SettleBet(ctx, requestID, func(b registry.Bet) (uint64, bool, int64) {
		outcome = Outcome(word)
		won = outcome == b.Choice
		if won {
			// a aposta já foi debitada no escrow, então o crédito é o payout
			// cheio (aposta de volta + prêmio), não só o lucro
			payout = b.WagerCents * e.multiplier
		}
		return word, won, payout
	})
	if err != nil {
		return Settlement{}, err
	}

	// derrota é terminal: o escrow vira ganho da casa, nada mais a fazer
	return Settlement{
		RequestID:       requestID,
		PlayerID:        bet.PlayerID,
		WagerCents:      bet.WagerCents,
		Choice:          bet.Choice,
		Outcome:         outcome,
		Won:             won,
		PayoutCents:     payout,
		RandomWord:      word,
		NewBalanceCents: newBal,
	}, nil
}

// revertEscrow devolve um escrow dentro da mesma operação serializada.
// Ninguém observa o estado intermediário; falha aqui é só logada porque
// não há caller pra propagar
func (e *Engine) revertEscrow(ctx context.Context, playerID string, amount int64, description string) {
	if _, err := e.ledger.Credit(ctx, playerID, amount, description); err != nil {
		e.log.Error("escrow revert failed",
			zap.String("player_id", playerID),
			zap.Int64("amount_cents", amount),
			zap.Error(err),
		)
	}
}
