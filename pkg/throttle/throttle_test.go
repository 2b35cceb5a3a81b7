package throttle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirsanndy/room-booking-sub001/pkg/clock"
	apperrors "github.com/sirsanndy/room-booking-sub001/pkg/errors"
	"github.com/sirsanndy/room-booking-sub001/pkg/logger"
)

var (
	_ clock.Clock = (*manualClock)(nil)
	_ Store       = (*spyStore)(nil)
)

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestStore(capacity int, interval time.Duration, clk *manualClock) *MemoryStore {
	return &MemoryStore{
		limiters: make(map[string]*bucket),
		capacity: capacity,
		interval: interval,
		clk:      clk,
		stopCh:   make(chan struct{}),
	}
}

func TestMemoryStore_BurstUpToCapacity(t *testing.T) {
	clk := &manualClock{t: time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)}
	store := newTestStore(3, time.Second, clk)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		decision, err := store.Take(ctx, "alice:create")
		if err != nil {
			t.Fatalf("take %d failed: %v", i, err)
		}
		if !decision.Allowed {
			t.Fatalf("expected take %d to be allowed", i)
		}
	}

	decision, err := store.Take(ctx, "alice:create")
	if err != nil {
		t.Fatalf("take failed: %v", err)
	}
	if decision.Allowed {
		t.Fatal("expected fourth take to be denied")
	}
	if decision.RetryAfter <= 0 || decision.RetryAfter > time.Second {
		t.Errorf("expected retry-after in (0, 1s], got %v", decision.RetryAfter)
	}
}

func TestMemoryStore_RefillAfterInterval(t *testing.T) {
	clk := &manualClock{t: time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)}
	store := newTestStore(2, time.Second, clk)
	ctx := context.Background()

	store.Take(ctx, "alice:create")
	store.Take(ctx, "alice:create")

	if decision, _ := store.Take(ctx, "alice:create"); decision.Allowed {
		t.Fatal("expected drained bucket to deny")
	}

	clk.Advance(time.Second)

	decision, err := store.Take(ctx, "alice:create")
	if err != nil {
		t.Fatalf("take failed: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("expected one token after a full refill interval")
	}

	if decision, _ := store.Take(ctx, "alice:create"); decision.Allowed {
		t.Fatal("expected only one token to have refilled")
	}
}

func TestMemoryStore_RetryAfterTracksBucketState(t *testing.T) {
	clk := &manualClock{t: time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)}
	store := newTestStore(1, 10*time.Second, clk)
	ctx := context.Background()

	store.Take(ctx, "alice:create")

	first, _ := store.Take(ctx, "alice:create")
	if first.Allowed {
		t.Fatal("expected denial on empty bucket")
	}

	clk.Advance(4 * time.Second)

	second, _ := store.Take(ctx, "alice:create")
	if second.Allowed {
		t.Fatal("expected denial before refill completes")
	}

	// The wait shrinks as real time passes; a constant answer would mean
	// the store is not reading the bucket.
	if second.RetryAfter >= first.RetryAfter {
		t.Errorf("expected retry-after to shrink, got %v then %v", first.RetryAfter, second.RetryAfter)
	}
	if second.RetryAfter <= 0 {
		t.Errorf("expected positive retry-after, got %v", second.RetryAfter)
	}
}

func TestMemoryStore_KeysAreIndependent(t *testing.T) {
	clk := &manualClock{t: time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)}
	store := newTestStore(1, time.Second, clk)
	ctx := context.Background()

	store.Take(ctx, "alice:create")
	if decision, _ := store.Take(ctx, "alice:create"); decision.Allowed {
		t.Fatal("expected alice:create to be drained")
	}

	if decision, _ := store.Take(ctx, "alice:cancel"); !decision.Allowed {
		t.Error("expected alice:cancel to have its own bucket")
	}
	if decision, _ := store.Take(ctx, "bob:create"); !decision.Allowed {
		t.Error("expected bob:create to have its own bucket")
	}
}

func TestMemoryStore_ConcurrentTakesNeverExceedCapacity(t *testing.T) {
	const capacity = 5
	const callers = 20

	clk := &manualClock{t: time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)}
	store := newTestStore(capacity, time.Minute, clk)

	decisions := make(chan Decision, callers)
	var wg sync.WaitGroup
	wg.Add(callers)

	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			decision, err := store.Take(context.Background(), "alice:create")
			if err != nil {
				t.Errorf("take failed: %v", err)
				return
			}
			decisions <- decision
		}()
	}
	wg.Wait()
	close(decisions)

	var allowed int
	for decision := range decisions {
		if decision.Allowed {
			allowed++
			continue
		}
		if decision.RetryAfter <= 0 {
			t.Errorf("denied take carried retry-after %v", decision.RetryAfter)
		}
	}

	if allowed != capacity {
		t.Errorf("expected exactly %d grants under contention, got %d", capacity, allowed)
	}
}

type spyStore struct {
	lastKey  string
	decision Decision
	err      error
}

func (s *spyStore) Take(_ context.Context, key string) (Decision, error) {
	s.lastKey = key
	return s.decision, s.err
}

func TestLimiter_KeyCombinesIdentityAndOperation(t *testing.T) {
	store := &spyStore{decision: Decision{Allowed: true}}
	limiter := NewLimiter(store, logger.NewNop())

	if err := limiter.Allow(context.Background(), "alice", "create"); err != nil {
		t.Fatalf("expected allow, got %v", err)
	}
	if store.lastKey != "alice:create" {
		t.Errorf("expected key alice:create, got %s", store.lastKey)
	}
}

func TestLimiter_DenialBecomesRateLimited(t *testing.T) {
	store := &spyStore{decision: Decision{Allowed: false, RetryAfter: 3 * time.Second}}
	limiter := NewLimiter(store, logger.NewNop())

	err := limiter.Allow(context.Background(), "alice", "create")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !apperrors.HasCode(err, apperrors.CodeRateLimited) {
		t.Fatalf("expected RATE_LIMITED, got %v", err)
	}

	appErr := apperrors.AsAppError(err)
	if got := appErr.Details["retry_after_seconds"]; got != 3 {
		t.Errorf("expected retry_after_seconds=3, got %v", got)
	}
	if !appErr.Retryable() {
		t.Error("expected a rate limit error to be retryable")
	}
}

func TestLimiter_FailsOpenOnStoreError(t *testing.T) {
	store := &spyStore{err: errors.New("connection refused")}
	limiter := NewLimiter(store, logger.NewNop())

	if err := limiter.Allow(context.Background(), "alice", "create"); err != nil {
		t.Fatalf("expected fail-open on store error, got %v", err)
	}
}
