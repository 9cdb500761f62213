package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/radieske/casino-platform-poc/internal/casino/guard"
	"github.com/radieske/casino-platform-poc/internal/shared/config"
	"github.com/radieske/casino-platform-poc/internal/shared/logger"
)

var (
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	// Métricas Prometheus do coordenador simulado
	wsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vrf_ws_connections",
		Help: "Observadores WebSocket conectados",
	})
	requestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vrf_requests_total",
		Help: "Requisições de aleatoriedade aceitas",
	})
	requestsRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vrf_requests_rejected_total",
		Help: "Requisições rejeitadas (orçamento simulado)",
	})
	fulfillmentsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vrf_fulfillments_total",
		Help: "Callbacks de fulfillment entregues",
	})
	fulfillmentsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vrf_fulfillments_dropped_total",
		Help: "Callbacks nunca entregues (simulação de falha do oráculo)",
	})
	pendingRequests = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vrf_pending_requests",
		Help: "Requisições aguardando confirmações",
	})
)

// Representa uma conexão de observador WebSocket
type clientConn struct {
	id   string
	conn *websocket.Conn
}

// hub gerencia os observadores conectados e faz broadcast dos
// fulfillments pra qualquer auditor/teste que queira assistir o feed
type hub struct {
	mu      sync.RWMutex
	clients map[string]*clientConn
	log     *zap.Logger
}

func newHub(log *zap.Logger) *hub {
	return &hub{
		clients: make(map[string]*clientConn),
		log:     log,
	}
}

func (h *hub) add(c *clientConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
	wsConnections.Inc()
	h.log.Info("ws observer connected", zap.String("client_id", c.id))
}

func (h *hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[id]; ok {
		delete(h.clients, id)
		wsConnections.Dec()
		h.log.Info("ws observer disconnected", zap.String("client_id", id))
	}
}

func (h *hub) broadcast(v any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	msg, _ := json.Marshal(v)
	for id, c := range h.clients {
		c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Warn("ws write failed", zap.String("client_id", id), zap.Error(err))
			_ = c.conn.Close()
		}
	}
}

type requestReq struct {
	KeyHash       string `json:"key_hash"`
	NumWords      int    `json:"num_words"`
	Confirmations int    `json:"confirmations"`
	GasBudget     int    `json:"callback_gas_limit"`
	CallbackURL   string `json:"callback_url"`
}

type requestResp struct {
	RequestID uint64 `json:"request_id"`
}

type fulfillPayload struct {
	RequestID uint64   `json:"request_id"`
	Words     []uint64 `json:"words"`
}

// Notícia de fulfillment publicada no feed WS
type fulfillmentNotice struct {
	RequestID uint64    `json:"request_id"`
	Words     []uint64  `json:"words"`
	Delivered bool      `json:"delivered"`
	Ts        time.Time `json:"ts"`
}

// coordinator é o stand-in do coordenador VRF: atribui request ids
// sequenciais e entrega cada fulfillment no máximo uma vez, depois de
// N "confirmações" simuladas. Pode rejeitar requisições e descartar
// callbacks pra exercitar os paths de falha do consumidor.
type coordinator struct {
	mu     sync.Mutex
	nextID uint64

	log  *zap.Logger
	hub  *hub
	cfg  config.Config
	http *http.Client
}

func newCoordinator(log *zap.Logger, h *hub, cfg config.Config) *coordinator {
	return &coordinator{
		nextID: 1,
		log:    log,
		hub:    h,
		cfg:    cfg,
		http:   &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *coordinator) handleRequest(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req requestReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.NumWords <= 0 || req.CallbackURL == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	// simula assinatura sem orçamento
	if rand.Intn(100) < c.cfg.RequestFailRate {
		requestsRejected.Inc()
		http.Error(w, "subscription underfunded", http.StatusServiceUnavailable)
		return
	}

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.mu.Unlock()

	requestsTotal.Inc()
	pendingRequests.Inc()
	go c.fulfillLater(id, req)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(requestResp{RequestID: id})
}

// fulfillLater espera as confirmações simuladas e entrega o callback.
// Um mesmo request id nunca é entregue duas vezes.
func (c *coordinator) fulfillLater(id uint64, req requestReq) {
	defer pendingRequests.Dec()

	confirmations := req.Confirmations
	if confirmations <= 0 {
		confirmations = c.cfg.OracleConfirmations
	}
	time.Sleep(time.Duration(confirmations*c.cfg.BlockIntervalMs) * time.Millisecond)

	words := make([]uint64, req.NumWords)
	for i := range words {
		words[i] = rand.Uint64()
	}

	// simula callback perdido: a requisição fica pendente pra sempre
	if rand.Intn(100) < c.cfg.FulfillDropRate {
		fulfillmentsDropped.Inc()
		c.log.Warn("fulfillment dropped", zap.Uint64("request_id", id))
		c.hub.broadcast(fulfillmentNotice{RequestID: id, Words: words, Delivered: false, Ts: time.Now().UTC()})
		return
	}

	body, _ := json.Marshal(fulfillPayload{RequestID: id, Words: words})

	// retry simples, mas sem reentrega depois de um 2xx
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(300*attempt) * time.Millisecond)
		}
		hreq, _ := http.NewRequest(http.MethodPost, req.CallbackURL, bytes.NewReader(body))
		hreq.Header.Set("Content-Type", "application/json")
		hreq.Header.Set(guard.KeyHeader, c.cfg.OracleKey)

		resp, err := c.http.Do(hreq)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()
		if resp.StatusCode < 300 {
			fulfillmentsTotal.Inc()
			c.hub.broadcast(fulfillmentNotice{RequestID: id, Words: words, Delivered: true, Ts: time.Now().UTC()})
			c.log.Info("fulfillment delivered", zap.Uint64("request_id", id))
			return
		}
		lastErr = fmt.Errorf("callback http %d", resp.StatusCode)
	}

	fulfillmentsDropped.Inc()
	c.log.Error("fulfillment delivery failed", zap.Uint64("request_id", id), zap.Error(lastErr))
	c.hub.broadcast(fulfillmentNotice{RequestID: id, Words: words, Delivered: false, Ts: time.Now().UTC()})
}

func main() {
	cfg := config.Load()
	log, err := logger.New("vrf-simulator", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	prometheus.MustRegister(wsConnections, requestsTotal, requestsRejected,
		fulfillmentsTotal, fulfillmentsDropped, pendingRequests)

	h := newHub(log)
	coord := newCoordinator(log, h, cfg)

	// ==== MUX PÚBLICO: /vrf/requests e /ws
	appMux := http.NewServeMux()
	appMux.HandleFunc("/vrf/requests", coord.handleRequest)

	appMux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("ws upgrade failed", zap.Error(err))
			return
		}
		id := fmt.Sprintf("%d", time.Now().UnixNano())
		c := &clientConn{id: id, conn: conn}
		h.add(c)

		go func() {
			defer func() {
				h.remove(id)
				_ = conn.Close()
			}()
			_ = conn.SetReadDeadline(time.Time{})
			for {
				// lê e descarta mensagens pra manter o socket limpo
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})

	// ==== MUX DE MÉTRICAS (/healthz, /metrics)
	metricsMux := http.NewServeMux()
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metricsMux.Handle("/metrics", promhttp.Handler())

	go func() {
		metricsAddr := ":" + cfg.MetricsPort
		log.Info("vrf simulator (metrics) running",
			zap.String("addr", metricsAddr),
			zap.String("paths", "/healthz,/metrics"),
		)
		if err := http.ListenAndServe(metricsAddr, metricsMux); err != nil {
			log.Fatal("metrics server error", zap.Error(err))
		}
	}()

	publicAddr := ":" + cfg.HTTPPort
	log.Info("vrf simulator (public) running",
		zap.String("addr", publicAddr),
		zap.String("paths", "/vrf/requests,/ws"),
		zap.Int("block_interval_ms", cfg.BlockIntervalMs),
		zap.Int("fulfill_drop_rate", cfg.FulfillDropRate),
	)
	if err := http.ListenAndServe(publicAddr, appMux); err != nil {
		log.Fatal("public server error", zap.Error(err))
	}
}
