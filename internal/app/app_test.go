package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Dhoini/billing-backoffice/internal/config"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Port = "0"
	cfg.App.Env = "test"
	cfg.Stripe.Currency = "usd"
	cfg.Auth.JWTSecret = "secret"
	return cfg
}

func TestNew_InMemory(t *testing.T) {
	gin.SetMode(gin.TestMode)

	a, err := New(context.Background(), testConfig(), logger.NewNop())
	require.NoError(t, err)
	defer a.Close()

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/customers/c1/status", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNew_WithRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)

	cfg := testConfig()
	cfg.Redis.Addr = mr.Addr()

	a, err := New(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "redis")

	require.NoError(t, a.Close())
}

func TestNew_RedisUnavailable(t *testing.T) {
	cfg := testConfig()
	cfg.Redis.Addr = "127.0.0.1:1"

	_, err := New(context.Background(), cfg, logger.NewNop())
	assert.Error(t, err)
}
