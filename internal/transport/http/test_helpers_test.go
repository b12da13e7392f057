package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirerelay/internal/config"
	"github.com/vovakirdan/wirerelay/internal/core"
	"github.com/vovakirdan/wirerelay/internal/proto"
)

// frame is an outbound frame as seen by a client.
type frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	cfg.ShutdownTimeout = time.Second
	return &cfg
}

func startTestServer(t *testing.T, cfg *config.Config, opts ...core.Option) (*httptest.Server, *core.Hub) {
	t.Helper()

	logger := zerolog.Nop()
	hub := core.NewHub(opts...)
	server := NewServer(hub, cfg, &logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)
	t.Cleanup(hub.Close)

	return ts, hub
}

func dial(t *testing.T, ctx context.Context, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s: %v", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil reads frames until match accepts one.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, match func(frame) bool) frame {
	t.Helper()

	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if match(f) {
			return f
		}
	}
}

func isEvent(name string) func(frame) bool {
	return func(f frame) bool { return f.Type == proto.OutboundTypeEvent && f.Event == name }
}

func isError(f frame) bool {
	return f.Type == proto.OutboundTypeError
}

// registerAs registers identity and waits until its own online status comes back.
func registerAs(t *testing.T, ctx context.Context, conn *websocket.Conn, identity string) {
	t.Helper()

	send(t, ctx, conn, proto.InboundTypeRegister, map[string]any{"identity": identity, "displayName": identity})
	readUntil(t, ctx, conn, func(f frame) bool {
		if !isEvent(proto.NameUserStatusUpdate)(f) {
			return false
		}
		var st proto.EventUserStatus
		return json.Unmarshal(f.Data, &st) == nil && st.Identity == identity && st.Status == core.StatusOnline
	})
}

func joinRoom(t *testing.T, ctx context.Context, conn *websocket.Conn, room any) {
	t.Helper()

	send(t, ctx, conn, proto.InboundTypeJoinRoom, map[string]any{"roomKey": room})
	readUntil(t, ctx, conn, isEvent(proto.NameRoomJoined))
}
