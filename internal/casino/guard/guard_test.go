package guard

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllow(t *testing.T) {
	g := New("coordinator-secret")

	assert.True(t, g.Allow("coordinator-secret"))
	assert.False(t, g.Allow("wrong"))
	assert.False(t, g.Allow(""))
}

func TestMiddlewareRejectsBeforeHandler(t *testing.T) {
	g := New("coordinator-secret")

	called := false
	h := g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	// sem credencial
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/oracle/fulfillments", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called, "handler não roda pra caller não autenticado")

	// credencial errada
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/oracle/fulfillments", nil)
	req.Header.Set(KeyHeader, "forged")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)

	// coordenador legítimo
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/oracle/fulfillments", nil)
	req.Header.Set(KeyHeader, "coordinator-secret")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}
