package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fablab/backend/internal/infrastructure/auth"
	"github.com/fablab/backend/internal/infrastructure/config"
	"github.com/fablab/backend/internal/interfaces/http/handler"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.HTTP.MaxBodySize = 1 << 20

	tokens := auth.NewTokenService(config.JWTConfig{
		Secret:          "0123456789abcdef0123456789abcdef",
		TokenExpiration: time.Hour,
		Issuer:          "fablab-test",
	})

	log := zap.NewNop()
	return Setup(cfg, tokens, Handlers{
		Auth:     handler.NewAuthHandler(nil, log),
		Invoice:  handler.NewInvoiceHandler(nil, nil, log),
		Schedule: handler.NewScheduleHandler(nil, nil, nil, log),
		Webhook:  handler.NewWebhookHandler(nil, log),
		System:   handler.NewSystemHandler(db, "test", log),
	}, log)
}

func TestRouterProbes(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterAuthBoundary(t *testing.T) {
	router := newTestRouter(t)

	protected := []string{
		"/api/v1/invoices",
		"/api/v1/payment-schedules",
	}
	for _, path := range protected {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	// the webhook endpoint skips token auth; a missing signature is a 400
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
