package sqlite

import (
	"context"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBlockList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	blocked, err := s.IsBlocked(ctx, "u1")
	if err != nil {
		t.Fatalf("is blocked: %v", err)
	}
	if blocked {
		t.Fatalf("expected u1 not blocked on empty store")
	}

	for _, subject := range []string{"u1", "42", "u1"} {
		if err := s.SetBlocked(ctx, subject, true); err != nil {
			t.Fatalf("block %s: %v", subject, err)
		}
	}

	tests := []struct {
		subject string
		want    bool
	}{
		{subject: "u1", want: true},
		{subject: "42", want: true},
		{subject: "u2", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			got, err := s.IsBlocked(ctx, tt.subject)
			if err != nil {
				t.Fatalf("is blocked: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsBlocked(%q) = %v, want %v", tt.subject, got, tt.want)
			}
		})
	}

	blocks, err := s.ListBlocked(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocked subjects, got %d", len(blocks))
	}

	if err := s.SetBlocked(ctx, "u1", false); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	blocked, err = s.IsBlocked(ctx, "u1")
	if err != nil {
		t.Fatalf("is blocked: %v", err)
	}
	if blocked {
		t.Errorf("expected u1 unblocked")
	}
}
