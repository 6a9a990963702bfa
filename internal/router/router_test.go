package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Totarae/shorttty/internal/auth"
	"github.com/Totarae/shorttty/internal/handlers"
	"github.com/Totarae/shorttty/internal/qr"
	"github.com/Totarae/shorttty/internal/router"
	"github.com/Totarae/shorttty/internal/service"
	"github.com/Totarae/shorttty/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newHandler(t *testing.T) *handlers.Handler {
	t.Helper()
	logger := zap.NewNop()
	store, err := storage.NewLinkStore("", logger)
	require.NoError(t, err)
	svc := service.NewShortenerService(store, service.Options{QR: qr.NewLocalRenderer(64)}, logger, "http://localhost:8080")
	return handlers.NewHandler(svc, auth.New(auth.Config{Secret: "router-secret"}, nil, logger), logger)
}

func get(h http.Handler, path string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "192.0.2.1:4000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestNewRouter_Routes(t *testing.T) {
	r := router.NewRouter(newHandler(t), zap.NewNop())

	assert.Equal(t, http.StatusOK, get(r, "/ping"))
	assert.Equal(t, http.StatusNotFound, get(r, "/unknown-code"))
	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/links"))
	assert.Equal(t, http.StatusFound, get(r, "/dashboard"))
}

func TestNewRouter_RateLimitOnRedirect(t *testing.T) {
	r := router.NewRouter(newHandler(t), zap.NewNop(), router.WithRateLimit(0.001, 1))

	assert.Equal(t, http.StatusNotFound, get(r, "/missing"))
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/missing"))
	// служебные маршруты лимит не затрагивает
	assert.Equal(t, http.StatusOK, get(r, "/ping"))
}

func TestWithRateLimit_Disabled(t *testing.T) {
	r := router.NewRouter(newHandler(t), zap.NewNop(), router.WithRateLimit(0, 1))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusNotFound, get(r, "/missing"))
	}
}

func getFrom(h http.Handler, path, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "192.0.2.1:4000"
	req.Header.Set("X-Forwarded-For", forwardedFor)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestNewRouter_IgnoresForwardedForByDefault(t *testing.T) {
	r := router.NewRouter(newHandler(t), zap.NewNop(), router.WithRateLimit(0.001, 1))

	assert.Equal(t, http.StatusNotFound, getFrom(r, "/missing", "203.0.113.1"))
	// подменённый заголовок не даёт обойти лимит
	assert.Equal(t, http.StatusTooManyRequests, getFrom(r, "/missing", "203.0.113.2"))
}

func TestNewRouter_TrustedProxyUsesForwardedFor(t *testing.T) {
	r := router.NewRouter(newHandler(t), zap.NewNop(),
		router.WithRateLimit(0.001, 1), router.WithTrustedProxy(true))

	assert.Equal(t, http.StatusNotFound, getFrom(r, "/missing", "203.0.113.1"))
	assert.Equal(t, http.StatusNotFound, getFrom(r, "/missing", "203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, getFrom(r, "/missing", "203.0.113.1"))
}
