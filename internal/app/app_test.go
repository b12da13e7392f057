package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirerelay/internal/config"
	"github.com/vovakirdan/wirerelay/internal/log"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.ShutdownTimeout = time.Second
	cfg.Store.Path = filepath.Join(t.TempDir(), "blocks.db")
	return &cfg
}

func TestNewRejectsUnknownPolicy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Presence.DisconnectPolicy = "sometimes"

	_, err := New(cfg, log.Nop())
	require.Error(t, err)
}

func TestAdminBlockPersistsToStore(t *testing.T) {
	cfg := testConfig(t)

	a, err := New(cfg, log.Nop())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/block", strings.NewReader(`{"identity":"u1","blocked":true}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	a.Handler().ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	blocked, err := a.store.IsBlocked(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, blocked)

	a.cleanup()
}

func TestRunStopsOnCancel(t *testing.T) {
	a, err := New(testConfig(t), log.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
