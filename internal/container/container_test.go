package container

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-hk-tourism-ai/config"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/api/session"
)

func testConfig() *config.Config {
	var cfg config.Config
	cfg.Version = "1.0.0"
	cfg.LLM.Provider = "gemini"
	cfg.Session.Store = "memory"
	cfg.RAG.TopK = 4
	cfg.RAG.HistoryWindow = 5
	cfg.RAG.ChunkSize = 1000
	cfg.RAG.ChunkOverlap = 200
	cfg.RateLimit.RequestsPerMinute = 60
	return &cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewContainerWithoutCredentials(t *testing.T) {
	c, err := NewContainer(context.Background(), testConfig(), config.Secrets{}, discardLogger())
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.Provider)
	assert.Nil(t, c.Pool)
	assert.IsType(t, &session.MemoryStore{}, c.Sessions)
	assert.Equal(t, api.ServiceStatus{User: true}, c.Status())

	// Seeding is a no-op without a vector store.
	c.SeedKnowledge(context.Background())

	h := c.Router(nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var health api.HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.False(t, health.Services.RAG)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/docs/swagger.yaml", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "HK Tourism AI API")
}

func TestSessionStoreSelection(t *testing.T) {
	t.Run("redis when reachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := testConfig()
		cfg.Session.Store = "redis"
		cfg.Repositories.Redis.Addr = mr.Addr()

		c, err := NewContainer(context.Background(), cfg, config.Secrets{}, discardLogger())
		require.NoError(t, err)
		defer c.Close()
		assert.IsType(t, &session.RedisStore{}, c.Sessions)
		assert.NotNil(t, c.Redis)
	})

	t.Run("memory when redis is down", func(t *testing.T) {
		cfg := testConfig()
		cfg.Session.Store = "redis"
		cfg.Repositories.Redis.Addr = "127.0.0.1:1"

		c, err := NewContainer(context.Background(), cfg, config.Secrets{}, discardLogger())
		require.NoError(t, err)
		defer c.Close()
		assert.IsType(t, &session.MemoryStore{}, c.Sessions)
		assert.Nil(t, c.Redis)
	})
}
