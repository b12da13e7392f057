package core

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// DefaultModerationTimeout bounds a single moderation lookup.
const DefaultModerationTimeout = 3 * time.Second

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mocks.go -package=mocks . Moderator,AccountNotifier,Blocklist

// Moderator answers whether a subject (identity or room key) is blocked.
type Moderator interface {
	IsBlocked(ctx context.Context, subject string) (bool, error)
}

// ModeratorFunc adapts a function to Moderator.
type ModeratorFunc func(ctx context.Context, subject string) (bool, error)

// IsBlocked implements Moderator.
func (f ModeratorFunc) IsBlocked(ctx context.Context, subject string) (bool, error) {
	return f(ctx, subject)
}

// AnyOf combines moderators: the subject is blocked if any of them says so.
// Errors are only reported when no moderator returned a positive answer.
func AnyOf(mods ...Moderator) Moderator {
	mods = compactModerators(mods)
	switch len(mods) {
	case 0:
		return nil
	case 1:
		return mods[0]
	}
	return ModeratorFunc(func(ctx context.Context, subject string) (bool, error) {
		var errs []error
		for _, m := range mods {
			blocked, err := m.IsBlocked(ctx, subject)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if blocked {
				return true, nil
			}
		}
		return false, errors.Join(errs...)
	})
}

func compactModerators(mods []Moderator) []Moderator {
	out := make([]Moderator, 0, len(mods))
	for _, m := range mods {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// Gate consults a Moderator with a bounded timeout. A failed lookup is
// treated as "not blocked" so an outage of the moderation backend never
// freezes registration or joins.
type Gate struct {
	mod     Moderator
	timeout time.Duration
	log     *zerolog.Logger
	metrics *Metrics
}

// NewGate builds a gate. A nil moderator lets every subject through.
func NewGate(mod Moderator, timeout time.Duration, logger *zerolog.Logger, metrics *Metrics) *Gate {
	if timeout <= 0 {
		timeout = DefaultModerationTimeout
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Gate{mod: mod, timeout: timeout, log: logger, metrics: metrics}
}

// Blocked reports whether subject is blocked. It must be called without any
// hub lock held.
func (g *Gate) Blocked(ctx context.Context, subject string) bool {
	if g == nil || g.mod == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	blocked, err := g.mod.IsBlocked(ctx, subject)
	if err != nil {
		if g.metrics != nil {
			g.metrics.ModerationErrors.Add(1)
		}
		g.log.Warn().Err(err).Str("subject", subject).Msg("moderation check failed, allowing subject")
		return false
	}
	return blocked
}
