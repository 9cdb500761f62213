package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/casino-platform-poc/internal/casino/engine"
	"github.com/radieske/casino-platform-poc/internal/casino/guard"
	"github.com/radieske/casino-platform-poc/internal/casino/httpapi/dto"
	"github.com/radieske/casino-platform-poc/internal/casino/ledger"
	"github.com/radieske/casino-platform-poc/internal/casino/metrics"
	"github.com/radieske/casino-platform-poc/internal/casino/oracle"
	"github.com/radieske/casino-platform-poc/internal/casino/registry"
	"github.com/radieske/casino-platform-poc/pkg/contracts/events"
)

// WalletReader lê (criando se necessário) a carteira de um jogador
type WalletReader interface {
	GetOrCreate(ctx context.Context, playerID string) (walletID string, balance int64, err error)
}

// BetReader lê o registro de uma aposta pelo request id
type BetReader interface {
	Get(ctx context.Context, requestID uint64) (registry.Bet, error)
}

// ResultCache é o cache de resultados de apostas resolvidas
type ResultCache interface {
	GetResult(ctx context.Context, requestID uint64, dst any) (bool, error)
	SetResult(ctx context.Context, requestID uint64, v any, ttl time.Duration) error
}

// Publisher emite os eventos de auditoria
type Publisher interface {
	PublishDepositMade(ctx context.Context, e events.DepositMade) error
	PublishWithdrawalMade(ctx context.Context, e events.WithdrawalMade) error
	PublishBetPlaced(ctx context.Context, e events.BetPlaced) error
	PublishBetResolved(ctx context.Context, e events.BetResolved) error
}

// Server expõe a API pública do casino e o endpoint de fulfillment do oráculo
type Server struct {
	log     *zap.Logger
	engine  *engine.Engine
	wallets WalletReader
	bets    BetReader
	cache   ResultCache
	publ    Publisher
	guard   *guard.Guard
}

func NewServer(log *zap.Logger, e *engine.Engine, w WalletReader, b BetReader, c ResultCache, p Publisher, g *guard.Guard) *Server {
	return &Server{log: log, engine: e, wallets: w, bets: b, cache: c, publ: p, guard: g}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/v1/wallet", s.getWallet)
	r.Post("/v1/wallet/deposit", s.deposit)
	r.Post("/v1/wallet/withdraw", s.withdraw)

	r.Post("/v1/bets", s.placeBet)
	r.Get("/v1/bets/{requestID}", s.getBet)

	// Perímetro do oráculo: o guard roda antes de qualquer leitura de estado
	r.Group(func(pr chi.Router) {
		pr.Use(s.guard.Middleware)
		pr.Post("/v1/oracle/fulfillments", s.fulfill)
	})

	return r
}

// getWallet retorna (ou cria) a carteira e saldo do jogador
func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("playerId")
	if playerID == "" {
		http.Error(w, "playerId required", http.StatusBadRequest)
		return
	}
	walletID, bal, err := s.wallets.GetOrCreate(r.Context(), playerID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, dto.WalletResponse{PlayerID: playerID, WalletID: walletID, BalanceCents: bal})
}

// deposit credita o valor na carteira do jogador
func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.PlayerID == "" || req.AmountCents <= 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	newBal, err := s.engine.Deposit(r.Context(), req.PlayerID, req.AmountCents)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	metrics.RecordDeposit()
	s.publish(r.Context(), "deposit_made", func(ctx context.Context) error {
		return s.publ.PublishDepositMade(ctx, events.DepositMade{
			PlayerID:        req.PlayerID,
			AmountCents:     req.AmountCents,
			NewBalanceCents: newBal,
		})
	})

	writeJSON(w, http.StatusOK, dto.WalletResponse{PlayerID: req.PlayerID, BalanceCents: newBal})
}

// withdraw debita o valor da carteira; a liberação externa só acontece
// depois do bookkeeping interno estar finalizado
func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	var req dto.WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.PlayerID == "" || req.AmountCents <= 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	newBal, err := s.engine.Withdraw(r.Context(), req.PlayerID, req.AmountCents)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	metrics.RecordWithdrawal()
	s.publish(r.Context(), "withdrawal_made", func(ctx context.Context) error {
		return s.publ.PublishWithdrawalMade(ctx, events.WithdrawalMade{
			PlayerID:        req.PlayerID,
			AmountCents:     req.AmountCents,
			NewBalanceCents: newBal,
		})
	})

	writeJSON(w, http.StatusOK, dto.WalletResponse{PlayerID: req.PlayerID, BalanceCents: newBal})
}

// placeBet coloca uma aposta de coin flip e devolve o request id como recibo
func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.PlayerID == "" || req.WagerCents <= 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	requestID, err := s.engine.PlaceBet(r.Context(), req.PlayerID, req.WagerCents, req.Choice)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	metrics.RecordBetPlaced(req.Choice)
	s.publish(r.Context(), "bet_placed", func(ctx context.Context) error {
		return s.publ.PublishBetPlaced(ctx, events.BetPlaced{
			RequestID:  requestID,
			PlayerID:   req.PlayerID,
			WagerCents: req.WagerCents,
			Choice:     req.Choice,
		})
	})

	writeJSON(w, http.StatusCreated, dto.PlaceBetResponse{RequestID: requestID, Status: registry.StatusPending})
}

// getBet retorna o status de uma aposta; cache primeiro, Postgres depois
func (s *Server) getBet(w http.ResponseWriter, r *http.Request) {
	requestID, err := strconv.ParseUint(chi.URLParam(r, "requestID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid request id", http.StatusBadRequest)
		return
	}

	var cached dto.BetStatusResponse
	if ok, _ := s.cache.GetResult(r.Context(), requestID, &cached); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	bet, err := s.bets.Get(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownRequest) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := betToResponse(bet)
	if bet.Status == registry.StatusResolved {
		_ = s.cache.SetResult(r.Context(), requestID, resp, 10*time.Minute)
	}
	writeJSON(w, http.StatusOK, resp)
}

// fulfill é a entrada do callback do oráculo. O guard já autenticou o
// caller; aqui o settle fecha o registro antes de mover qualquer fundo.
func (s *Server) fulfill(w http.ResponseWriter, r *http.Request) {
	var req dto.FulfillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if len(req.Words) == 0 {
		http.Error(w, "empty words", http.StatusBadRequest)
		return
	}

	started := time.Now()
	st, err := s.engine.Settle(r.Context(), req.RequestID, req.Words)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	metrics.RecordSettlement(st.Won, st.PayoutCents, started)

	won := st.Won
	payout := st.PayoutCents
	word := st.RandomWord
	_ = s.cache.SetResult(r.Context(), st.RequestID, dto.BetStatusResponse{
		RequestID:   st.RequestID,
		PlayerID:    st.PlayerID,
		Status:      registry.StatusResolved,
		WagerCents:  st.WagerCents,
		Choice:      st.Choice,
		Won:         &won,
		PayoutCents: &payout,
		RandomWord:  &word,
	}, 10*time.Minute)

	s.publish(r.Context(), "bet_resolved", func(ctx context.Context) error {
		return s.publ.PublishBetResolved(ctx, events.BetResolved{
			RequestID:   st.RequestID,
			PlayerID:    st.PlayerID,
			WagerCents:  st.WagerCents,
			Choice:      st.Choice,
			Outcome:     st.Outcome,
			Won:         st.Won,
			PayoutCents: st.PayoutCents,
			RandomWord:  st.RandomWord,
		})
	})

	s.log.Info("bet resolved",
		zap.Uint64("request_id", st.RequestID),
		zap.String("player_id", st.PlayerID),
		zap.Bool("won", st.Won),
		zap.Int64("payout_cents", st.PayoutCents),
	)

	writeJSON(w, http.StatusOK, dto.FulfillResponse{
		RequestID:   st.RequestID,
		Status:      registry.StatusResolved,
		Won:         st.Won,
		PayoutCents: st.PayoutCents,
	})
}

// writeEngineError mapeia os erros de domínio pros status HTTP
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidAmount), errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, engine.ErrEmptyRandomness):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ledger.ErrInsufficientBalance):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, registry.ErrUnknownRequest):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, registry.ErrAlreadyResolved), errors.Is(err, registry.ErrDuplicateRequest):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, oracle.ErrUnavailable):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// publish emite um evento best-effort; falha de broker não derruba a
// operação que já foi commitada
func (s *Server) publish(ctx context.Context, name string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		s.log.Warn("event publish failed", zap.String("event", name), zap.Error(err))
	}
}

func betToResponse(b registry.Bet) dto.BetStatusResponse {
	resp := dto.BetStatusResponse{
		RequestID:  b.RequestID,
		PlayerID:   b.PlayerID,
		Status:     b.Status,
		WagerCents: b.WagerCents,
		Choice:     b.Choice,
	}
	if b.Won.Valid {
		won := b.Won.Bool
		resp.Won = &won
	}
	if b.PayoutCents.Valid {
		payout := b.PayoutCents.Int64
		resp.PayoutCents = &payout
	}
	if b.RandomWord.Valid {
		word := uint64(b.RandomWord.Int64)
		resp.RandomWord = &word
	}
	return resp
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
