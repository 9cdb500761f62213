package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrUnavailable cobre qualquer rejeição do coordenador (ex.: assinatura
// sem orçamento) ou falha de transporte na requisição de aleatoriedade.
var ErrUnavailable = errors.New("oracle unavailable")

// Config espelha os parâmetros do coordenador VRF do contrato original:
// imutável após a construção, enviado verbatim em toda requisição.
type Config struct {
	KeyHash       string
	Confirmations int
	GasBudget     int
	CallbackURL   string
}

// Client é o RandomnessClient HTTP contra o coordenador VRF (ou simulador).
type Client struct {
	BaseURL string
	Cfg     Config
	HTTP    *http.Client
}

func New(baseURL string, cfg Config) *Client {
	return &Client{
		BaseURL: baseURL,
		Cfg:     cfg,
		HTTP:    &http.Client{Timeout: 2 * time.Second},
	}
}

type requestBody struct {
	KeyHash       string `json:"key_hash"`
	NumWords      int    `json:"num_words"`
	Confirmations int    `json:"confirmations"`
	GasBudget     int    `json:"callback_gas_limit"`
	CallbackURL   string `json:"callback_url"`
}

type requestResponse struct {
	RequestID uint64 `json:"request_id"`
}

// Request pede numWords palavras aleatórias e retorna o request id
// atribuído pelo coordenador. O fulfillment chega depois, no callback.
func (c *Client) Request(ctx context.Context, numWords int) (uint64, error) {
	body, _ := json.Marshal(requestBody{
		KeyHash:       c.Cfg.KeyHash,
		NumWords:      numWords,
		Confirmations: c.Cfg.Confirmations,
		GasBudget:     c.Cfg.GasBudget,
		CallbackURL:   c.Cfg.CallbackURL,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/vrf/requests", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return 0, fmt.Errorf("%w: coordinator http %d", ErrUnavailable, res.StatusCode)
	}

	var out requestResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return out.RequestID, nil
}
