package guard

import (
	"crypto/subtle"
	"errors"
	"net/http"
)

var ErrUnauthorized = errors.New("unauthorized caller")

// Header que identifica o coordenador nos callbacks de fulfillment.
const KeyHeader = "X-Oracle-Key"

// Guard restringe o endpoint de fulfillment ao coordenador configurado.
// É a única defesa de perímetro contra fulfillment forjado, avaliada
// antes de qualquer leitura de estado.
type Guard struct {
	key []byte
}

func New(oracleKey string) *Guard {
	return &Guard{key: []byte(oracleKey)}
}

// Allow compara a credencial apresentada em tempo constante
func (g *Guard) Allow(presented string) bool {
	return subtle.ConstantTimeCompare(g.key, []byte(presented)) == 1
}

// Middleware rejeita com 401 qualquer caller que não seja o coordenador
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Allow(r.Header.Get(KeyHeader)) {
			http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
