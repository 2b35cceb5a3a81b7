// Package throttle applies a token bucket per (identity, operation) pair.
// The bucket state lives in an injected Store, so a single server can use
// in-process buckets while a multi-replica deployment shares them in Redis.
package throttle

import (
	"context"
	"time"

	apperrors "github.com/sirsanndy/room-booking-sub001/pkg/errors"
	"github.com/sirsanndy/room-booking-sub001/pkg/logger"
)

// Decision is the outcome of taking one token. RetryAfter is computed from
// the live bucket state, never a fixed constant.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

type Store interface {
	Take(ctx context.Context, key string) (Decision, error)
}

type Limiter struct {
	store Store
	log   *logger.Logger
}

func NewLimiter(store Store, log *logger.Logger) *Limiter {
	return &Limiter{
		store: store,
		log:   log,
	}
}

// Allow takes one token for the given identity and operation. A broken store
// fails open: throttling protects capacity, it must not become an outage.
func (l *Limiter) Allow(ctx context.Context, identity, operation string) error {
	decision, err := l.store.Take(ctx, identity+":"+operation)
	if err != nil {
		l.log.Warn("Throttle store unavailable, allowing request",
			"identity", identity,
			"operation", operation,
			"error", err,
		)
		return nil
	}

	if !decision.Allowed {
		l.log.Info("Request throttled",
			"identity", identity,
			"operation", operation,
			"retry_after", decision.RetryAfter,
		)
		return apperrors.RateLimited(decision.RetryAfter)
	}

	return nil
}
