package throttle

import (
	"context"
	"sync"
	"time"

	"github.com/sirsanndy/room-booking-sub001/pkg/clock"
	"golang.org/x/time/rate"
)

const (
	cleanupInterval = 5 * time.Minute
	idleEvictAfter  = 30 * time.Minute
)

// MemoryStore keeps one bucket per key in process memory. Buckets idle for
// idleEvictAfter are dropped; a re-created bucket starts full, which only
// ever errs in the caller's favor.
type MemoryStore struct {
	mu       sync.Mutex
	limiters map[string]*bucket
	capacity int
	interval time.Duration
	clk      clock.Clock
	stopCh   chan struct{}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewMemoryStore(capacity int, refillInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		limiters: make(map[string]*bucket),
		capacity: capacity,
		interval: refillInterval,
		clk:      clock.System(),
		stopCh:   make(chan struct{}),
	}

	go s.cleanup()

	return s
}

func (s *MemoryStore) Take(ctx context.Context, key string) (Decision, error) {
	now := s.clk.Now()

	s.mu.Lock()
	b, ok := s.limiters[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Every(s.interval), s.capacity)}
		s.limiters[key] = b
	}
	b.lastSeen = now
	limiter := b.limiter
	s.mu.Unlock()

	reservation := limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return Decision{Allowed: false, RetryAfter: s.interval}, nil
	}

	delay := reservation.DelayFrom(now)
	if delay > 0 {
		// The token is not available yet. Hand it back instead of holding
		// the caller's place in line; they are told when to come back.
		reservation.CancelAt(now)
		return Decision{Allowed: false, RetryAfter: delay}, nil
	}

	return Decision{Allowed: true}, nil
}

func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := s.clk.Now().Add(-idleEvictAfter)
			s.mu.Lock()
			for key, b := range s.limiters {
				if b.lastSeen.Before(cutoff) {
					delete(s.limiters, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}

func (s *MemoryStore) Stop() {
	close(s.stopCh)
}
