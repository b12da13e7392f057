package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func moderationServer(t *testing.T, blocked map[string]bool) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		if blocked[r.PostForm.Get("uid")] {
			_, _ = w.Write([]byte(`{"status":"success","blocked":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"success","blocked":false}`))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestModerationClient(t *testing.T) {
	ts := moderationServer(t, map[string]bool{"u1": true})
	client := NewModerationClient(ts.URL, time.Second)

	blocked, err := client.IsBlocked(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, blocked)

	blocked, err = client.IsBlocked(context.Background(), "u2")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestModerationClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name: "error status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"status":"error","blocked":true}`))
			},
		},
		{
			name: "garbage",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`<html>`))
			},
		},
		{
			name: "slow",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(time.Second):
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			client := NewModerationClient(ts.URL, 100*time.Millisecond)
			blocked, err := client.IsBlocked(context.Background(), "u1")
			require.Error(t, err)
			assert.False(t, blocked)
		})
	}
}

func TestAccountsClient(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got = r.PostForm.Get("uid")
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}))
	defer ts.Close()

	client := NewAccountsClient(ts.URL, time.Second)
	require.NoError(t, client.NotifyLogout(context.Background(), "u1"))
	assert.Equal(t, "u1", got)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error"}`))
	}))
	defer failing.Close()

	require.Error(t, NewAccountsClient(failing.URL, time.Second).NotifyLogout(context.Background(), "u1"))
}
