package core_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/vovakirdan/wirerelay/internal/core"
)

func newTestHub(t *testing.T, opts ...core.Option) *core.Hub {
	t.Helper()

	hub := core.NewHub(opts...)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		hub.Close()
	})
	return hub
}

func connect(hub *core.Hub, id string) *core.Client {
	c := core.NewClient(id)
	hub.RegisterClient(c)
	return c
}

func register(t *testing.T, hub *core.Hub, c *core.Client, identity string) {
	t.Helper()

	err := hub.Register(context.Background(), c, core.Profile{
		Identity:     identity,
		DisplayName:  identity + "-name",
		ContactEmail: identity + "@example.com",
	})
	if err != nil {
		t.Fatalf("register %s: %v", identity, err)
	}
}

func mustEvent(t *testing.T, ch <-chan *core.Event, kind core.EventKind) *core.Event {
	t.Helper()
	return mustEventWhere(t, ch, func(ev *core.Event) bool { return ev.Kind == kind })
}

func mustEventWhere(t *testing.T, ch <-chan *core.Event, match func(*core.Event) bool) *core.Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if match(ev) {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event not received")
	return nil
}

// drain returns whatever is buffered for the client right now.
func drain(c *core.Client) []*core.Event {
	var out []*core.Event
	for {
		select {
		case ev := <-c.Events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func isStatus(identity, status string) func(*core.Event) bool {
	return func(ev *core.Event) bool {
		return ev.Kind == core.EventUserStatus && ev.Status != nil &&
			ev.Status.Identity == identity && ev.Status.Status == status
	}
}

func countWhere(events []*core.Event, match func(*core.Event) bool) int {
	n := 0
	for _, ev := range events {
		if match(ev) {
			n++
		}
	}
	return n
}

// rawString encodes s as a JSON string for opaque message fields.
func rawString(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}
