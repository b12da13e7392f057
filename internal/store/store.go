package store

import (
	"context"
	"time"
)

// Block is a persisted admin block decision.
type Block struct {
	Subject   string
	BlockedAt time.Time
}

// BlockStore persists the local block list. Subjects are identities or room
// keys in canonical string form.
type BlockStore interface {
	IsBlocked(ctx context.Context, subject string) (bool, error)
	SetBlocked(ctx context.Context, subject string, blocked bool) error
	ListBlocked(ctx context.Context) ([]Block, error)
	Close() error
}
