package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	bookingerrors "github.com/sirsanndy/room-booking-sub001/internal/booking/errors"
	"github.com/sirsanndy/room-booking-sub001/internal/booking/events"
	"github.com/sirsanndy/room-booking-sub001/internal/booking/repository"
	"github.com/sirsanndy/room-booking-sub001/internal/booking/validator"
	"github.com/sirsanndy/room-booking-sub001/pkg/cache"
	"github.com/sirsanndy/room-booking-sub001/pkg/clock"
	"github.com/sirsanndy/room-booking-sub001/pkg/config"
	mongotx "github.com/sirsanndy/room-booking-sub001/pkg/db/mongo"
	apperrors "github.com/sirsanndy/room-booking-sub001/pkg/errors"
	"github.com/sirsanndy/room-booking-sub001/pkg/interval"
	"github.com/sirsanndy/room-booking-sub001/pkg/logger"
	"github.com/sirsanndy/room-booking-sub001/pkg/model"
)

// ──────────────────────────── Test doubles ────────────────────────────

type mockBookingRepo struct {
	mu                sync.Mutex
	createCalls       int
	updateCalls       int
	findByOwnerCalls  int
	lastUpdate        *model.Booking
	lastUpdateVersion int64
	lastExcludeID     string

	CreateFunc             func(ctx context.Context, booking *model.Booking) error
	FindByIDFunc           func(ctx context.Context, id string) (*model.Booking, error)
	FindOverlappingFunc    func(ctx context.Context, roomID string, start, end time.Time, status, excludeID string) ([]*model.Booking, error)
	FindByOwnerBetweenFunc func(ctx context.Context, ownerID string, start, end time.Time, status string) ([]*model.Booking, error)
	FindByOwnerFunc        func(ctx context.Context, ownerID string, limit int, offset int64) ([]*model.Booking, error)
	CountByOwnerFunc       func(ctx context.Context, ownerID string) (int64, error)
	FindByRoomBetweenFunc  func(ctx context.Context, roomID string, start, end time.Time, status string) ([]*model.Booking, error)
	FindUpcomingFunc       func(ctx context.Context, after time.Time, limit int, offset int64) ([]*model.Booking, error)
	CountUpcomingFunc      func(ctx context.Context, after time.Time) (int64, error)
	CountByStatusFunc      func(ctx context.Context, status string) (int64, error)
	CountBetweenFunc       func(ctx context.Context, start, end time.Time, status string) (int64, error)
	UpdateWithVersionFunc  func(ctx context.Context, booking *model.Booking, expectedVersion int64) (int64, error)
	ExecuteTransactionFunc func(ctx context.Context, fn mongotx.TransactionFunc) error
}

var _ repository.BookingRepository = (*mockBookingRepo)(nil)

func (m *mockBookingRepo) Create(ctx context.Context, booking *model.Booking) error {
	m.mu.Lock()
	m.createCalls++
	m.mu.Unlock()
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, booking)
	}
	booking.ID = "507f191e810c19729de860ea"
	return nil
}

func (m *mockBookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, bookingerrors.ErrNotFound
}

func (m *mockBookingRepo) FindOverlapping(ctx context.Context, roomID string, start, end time.Time, status, excludeID string) ([]*model.Booking, error) {
	m.mu.Lock()
	m.lastExcludeID = excludeID
	m.mu.Unlock()
	if m.FindOverlappingFunc != nil {
		return m.FindOverlappingFunc(ctx, roomID, start, end, status, excludeID)
	}
	return nil, nil
}

func (m *mockBookingRepo) FindByOwnerBetween(ctx context.Context, ownerID string, start, end time.Time, status string) ([]*model.Booking, error) {
	if m.FindByOwnerBetweenFunc != nil {
		return m.FindByOwnerBetweenFunc(ctx, ownerID, start, end, status)
	}
	return nil, nil
}

func (m *mockBookingRepo) FindByOwner(ctx context.Context, ownerID string, limit int, offset int64) ([]*model.Booking, error) {
	m.mu.Lock()
	m.findByOwnerCalls++
	m.mu.Unlock()
	if m.FindByOwnerFunc != nil {
		return m.FindByOwnerFunc(ctx, ownerID, limit, offset)
	}
	return nil, nil
}

func (m *mockBookingRepo) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	if m.CountByOwnerFunc != nil {
		return m.CountByOwnerFunc(ctx, ownerID)
	}
	return 0, nil
}

func (m *mockBookingRepo) FindByRoomBetween(ctx context.Context, roomID string, start, end time.Time, status string) ([]*model.Booking, error) {
	if m.FindByRoomBetweenFunc != nil {
		return m.FindByRoomBetweenFunc(ctx, roomID, start, end, status)
	}
	return nil, nil
}

func (m *mockBookingRepo) FindUpcoming(ctx context.Context, after time.Time, limit int, offset int64) ([]*model.Booking, error) {
	if m.FindUpcomingFunc != nil {
		return m.FindUpcomingFunc(ctx, after, limit, offset)
	}
	return nil, nil
}

func (m *mockBookingRepo) CountUpcoming(ctx context.Context, after time.Time) (int64, error) {
	if m.CountUpcomingFunc != nil {
		return m.CountUpcomingFunc(ctx, after)
	}
	return 0, nil
}

func (m *mockBookingRepo) CountByStatus(ctx context.Context, status string) (int64, error) {
	if m.CountByStatusFunc != nil {
		return m.CountByStatusFunc(ctx, status)
	}
	return 0, nil
}

func (m *mockBookingRepo) CountBetween(ctx context.Context, start, end time.Time, status string) (int64, error) {
	if m.CountBetweenFunc != nil {
		return m.CountBetweenFunc(ctx, start, end, status)
	}
	return 0, nil
}

func (m *mockBookingRepo) UpdateWithVersion(ctx context.Context, booking *model.Booking, expectedVersion int64) (int64, error) {
	m.mu.Lock()
	m.updateCalls++
	snapshot := *booking
	m.lastUpdate = &snapshot
	m.lastUpdateVersion = expectedVersion
	m.mu.Unlock()
	if m.UpdateWithVersionFunc != nil {
		return m.UpdateWithVersionFunc(ctx, booking, expectedVersion)
	}
	booking.Version = expectedVersion + 1
	return 1, nil
}

func (m *mockBookingRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	if m.ExecuteTransactionFunc != nil {
		return m.ExecuteTransactionFunc(ctx, fn)
	}
	return fn(nil)
}

type mockSlotLockRepo struct {
	mu           sync.Mutex
	acquireCalls int
	releaseCalls int

	AcquireFunc  func(ctx context.Context, lock *model.SlotLock) error
	TakeOverFunc func(ctx context.Context, lock *model.SlotLock, now time.Time) error
	ReleaseFunc  func(ctx context.Context, lockID string) error
}

var _ repository.SlotLockRepository = (*mockSlotLockRepo)(nil)

func (m *mockSlotLockRepo) Acquire(ctx context.Context, lock *model.SlotLock) error {
	m.mu.Lock()
	m.acquireCalls++
	m.mu.Unlock()
	if m.AcquireFunc != nil {
		return m.AcquireFunc(ctx, lock)
	}
	return nil
}

func (m *mockSlotLockRepo) TakeOver(ctx context.Context, lock *model.SlotLock, now time.Time) error {
	if m.TakeOverFunc != nil {
		return m.TakeOverFunc(ctx, lock, now)
	}
	return bookingerrors.ErrLockHeld
}

func (m *mockSlotLockRepo) Release(ctx context.Context, lockID string) error {
	m.mu.Lock()
	m.releaseCalls++
	m.mu.Unlock()
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, lockID)
	}
	return nil
}

func (m *mockSlotLockRepo) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquireCalls, m.releaseCalls
}

type stubRooms struct {
	GetByIDFunc func(ctx context.Context, id string) (*model.Room, error)
}

func (s *stubRooms) GetByID(ctx context.Context, id string) (*model.Room, error) {
	if s.GetByIDFunc != nil {
		return s.GetByIDFunc(ctx, id)
	}
	return &model.Room{ID: id, Name: "Atlas 4.1", Capacity: 8, Available: true}, nil
}

type stubHolidays struct {
	ExistsFunc func(ctx context.Context, date string) (bool, error)
}

func (s *stubHolidays) Exists(ctx context.Context, date string) (bool, error) {
	if s.ExistsFunc != nil {
		return s.ExistsFunc(ctx, date)
	}
	return false, nil
}

type stubLimiter struct {
	AllowFunc func(ctx context.Context, identity, operation string) error
}

func (s *stubLimiter) Allow(ctx context.Context, identity, operation string) error {
	if s.AllowFunc != nil {
		return s.AllowFunc(ctx, identity, operation)
	}
	return nil
}

// fakeCache stores marshalled values and records every invalidation so
// tests can assert which views a mutation dropped.
type fakeCache struct {
	mu          sync.Mutex
	store       map[string][]byte
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: make(map[string][]byte)}
}

func (f *fakeCache) GetJSON(ctx context.Context, category, id string, target any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.store[category+":"+id]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, target) == nil
}

func (f *fakeCache) SetJSON(ctx context.Context, category, id string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store[category+":"+id] = raw
}

func (f *fakeCache) Invalidate(ctx context.Context, category string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, category)
}

func (f *fakeCache) InvalidateKey(ctx context.Context, category, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, category+":"+id)
}

func (f *fakeCache) InvalidatePrefix(ctx context.Context, category, prefix string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, category+":"+prefix+"*")
}

func (f *fakeCache) sawInvalidation(entry string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, got := range f.invalidated {
		if got == entry {
			return true
		}
	}
	return false
}

type spyPublisher struct {
	mu     sync.Mutex
	events []string
}

func (s *spyPublisher) Publish(ctx context.Context, eventType string, booking *model.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, eventType)
}

func (s *spyPublisher) published() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

// ──────────────────────────── Fixtures ────────────────────────────

var fixedNow = time.Date(2026, time.August, 28, 8, 0, 0, 0, time.UTC)

// 2026-08-31 is a Monday.
var monday = time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC)

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
}

func testConfig() *config.Config {
	return &config.Config{
		Log:                  logger.NewNop(),
		LockTTL:              time.Second,
		LockWaitTimeout:      30 * time.Millisecond,
		LockRetryInterval:    time.Millisecond,
		CacheUserBookingsTTL: time.Minute,
		CacheScheduleTTL:     time.Minute,
		CacheUpcomingTTL:     time.Minute,
		CacheDashboardTTL:    time.Minute,
		Location:             time.UTC,
	}
}

func testPolicy() validator.Policy {
	return validator.Policy{
		MinDuration:    30 * time.Minute,
		MaxDuration:    8 * time.Hour,
		DailyLimit:     9 * time.Hour,
		OpeningMinutes: 7 * 60,
		ClosingMinutes: 22 * 60,
		WorkingDays: map[time.Weekday]bool{
			time.Monday:    true,
			time.Tuesday:   true,
			time.Wednesday: true,
			time.Thursday:  true,
			time.Friday:    true,
		},
		Location: time.UTC,
	}
}

type fixture struct {
	repo      *mockBookingRepo
	locks     *mockSlotLockRepo
	rooms     *stubRooms
	holidays  *stubHolidays
	cache     *fakeCache
	limiter   *stubLimiter
	publisher *spyPublisher
	svc       *bookingService
}

func newFixture() *fixture {
	cfg := testConfig()
	f := &fixture{
		repo:      &mockBookingRepo{},
		locks:     &mockSlotLockRepo{},
		rooms:     &stubRooms{},
		holidays:  &stubHolidays{},
		cache:     newFakeCache(),
		limiter:   &stubLimiter{},
		publisher: &spyPublisher{},
	}
	f.svc = &bookingService{
		repo:      f.repo,
		lockRepo:  f.locks,
		rooms:     f.rooms,
		holidays:  f.holidays,
		validator: validator.NewBookingValidator(cfg.Log),
		policy:    testPolicy(),
		cache:     f.cache,
		limiter:   f.limiter,
		publisher: f.publisher,
		clk:       clock.Fixed(fixedNow),
		cfg:       cfg,
	}
	return f
}

func validBooking() *model.Booking {
	return &model.Booking{
		RoomID:    "507f1f77bcf86cd799439011",
		OwnerID:   "user-1",
		Title:     "Sprint planning",
		StartTime: at(monday, 9, 0),
		EndTime:   at(monday, 10, 0),
	}
}

func existingBooking() *model.Booking {
	return &model.Booking{
		ID:        "64f2a1b3c4d5e6f7a8b9c0d1",
		RoomID:    "507f1f77bcf86cd799439011",
		OwnerID:   "user-1",
		Title:     "Sprint planning",
		StartTime: at(monday, 9, 0),
		EndTime:   at(monday, 10, 0),
		Status:    model.StatusConfirmed,
		Version:   3,
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected code %s, got %v", code, err)
	}
}

// ──────────────────────────── Create ────────────────────────────

func TestCreate_PersistsThroughLockAndTransaction(t *testing.T) {
	f := newFixture()
	booking := validBooking()
	booking.Status = "cancelled" // client-supplied status must be ignored
	booking.Version = 42

	if err := f.svc.Create(context.Background(), booking); err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}

	if booking.ID == "" {
		t.Error("expected booking ID to be assigned")
	}
	if booking.Status != model.StatusConfirmed {
		t.Errorf("expected status %s, got %s", model.StatusConfirmed, booking.Status)
	}
	if booking.Version != 0 {
		t.Errorf("expected version 0, got %d", booking.Version)
	}

	acquires, releases := f.locks.counts()
	if acquires != 1 || releases != 1 {
		t.Errorf("expected 1 acquire and 1 release, got %d and %d", acquires, releases)
	}

	if got := f.publisher.published(); len(got) != 1 || got[0] != events.TypeCreated {
		t.Errorf("expected published [%s], got %v", events.TypeCreated, got)
	}

	for _, entry := range []string{
		cache.CategoryRoomSchedule + ":" + booking.RoomID + ":2026-08-31",
		cache.CategoryUserBookings + ":user-1:*",
		cache.CategoryUpcoming,
		cache.CategoryDashboard,
	} {
		if !f.cache.sawInvalidation(entry) {
			t.Errorf("expected invalidation of %q, got %v", entry, f.cache.invalidated)
		}
	}
}

func TestCreate_RuleRejectionsSkipLocking(t *testing.T) {
	saturday := time.Date(2026, time.September, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		mutate   func(b *model.Booking)
		holiday  bool
		wantCode string
	}{
		{
			name: "weekend",
			mutate: func(b *model.Booking) {
				b.StartTime = at(saturday, 9, 0)
				b.EndTime = at(saturday, 10, 0)
			},
			wantCode: apperrors.CodeWeekend,
		},
		{
			name:     "holiday",
			mutate:   func(b *model.Booking) {},
			holiday:  true,
			wantCode: apperrors.CodeHoliday,
		},
		{
			name: "past start",
			mutate: func(b *model.Booking) {
				b.StartTime = fixedNow.Add(-24 * time.Hour)
				b.EndTime = fixedNow.Add(-23 * time.Hour)
			},
			wantCode: apperrors.CodePastDate,
		},
		{
			name: "too short",
			mutate: func(b *model.Booking) {
				b.EndTime = b.StartTime.Add(15 * time.Minute)
			},
			wantCode: apperrors.CodeDurationTooShort,
		},
		{
			name: "before opening",
			mutate: func(b *model.Booking) {
				b.StartTime = at(monday, 6, 0)
				b.EndTime = at(monday, 7, 0)
			},
			wantCode: apperrors.CodeOutOfHours,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.holiday {
				f.holidays.ExistsFunc = func(ctx context.Context, date string) (bool, error) {
					return true, nil
				}
			}

			booking := validBooking()
			tt.mutate(booking)

			err := f.svc.Create(context.Background(), booking)
			assertCode(t, err, tt.wantCode)

			if acquires, _ := f.locks.counts(); acquires != 0 {
				t.Errorf("expected no lock acquisition on rule rejection, got %d", acquires)
			}
			if f.repo.createCalls != 0 {
				t.Errorf("expected no insert on rule rejection, got %d", f.repo.createCalls)
			}
		})
	}
}

func TestCreate_RoomGate(t *testing.T) {
	t.Run("unknown room", func(t *testing.T) {
		f := newFixture()
		f.rooms.GetByIDFunc = func(ctx context.Context, id string) (*model.Room, error) {
			return nil, apperrors.NotFoundWithID("Room", id)
		}

		err := f.svc.Create(context.Background(), validBooking())
		assertCode(t, err, apperrors.CodeNotFound)
	})

	t.Run("inactive room", func(t *testing.T) {
		f := newFixture()
		f.rooms.GetByIDFunc = func(ctx context.Context, id string) (*model.Room, error) {
			return &model.Room{ID: id, Name: "Atlas 4.1", Capacity: 8, Available: false}, nil
		}

		err := f.svc.Create(context.Background(), validBooking())
		assertCode(t, err, apperrors.CodeRoomUnavailable)

		if acquires, _ := f.locks.counts(); acquires != 0 {
			t.Errorf("expected no lock acquisition for unavailable room, got %d", acquires)
		}
	})
}

func TestCreate_DailyCapAtBoundary(t *testing.T) {
	eightHours := &model.Booking{
		ID:        "64f2a1b3c4d5e6f7a8b9c0ff",
		RoomID:    "507f1f77bcf86cd799439022",
		OwnerID:   "user-1",
		Title:     "Workshop",
		StartTime: at(monday, 10, 0),
		EndTime:   at(monday, 18, 0),
		Status:    model.StatusConfirmed,
	}

	t.Run("exactly at the cap passes", func(t *testing.T) {
		f := newFixture()
		f.repo.FindByOwnerBetweenFunc = func(ctx context.Context, ownerID string, start, end time.Time, status string) ([]*model.Booking, error) {
			return []*model.Booking{eightHours}, nil
		}

		booking := validBooking() // one hour, back to back with the workshop
		if err := f.svc.Create(context.Background(), booking); err != nil {
			t.Fatalf("expected exactly-at-cap booking to pass, got %v", err)
		}
	})

	t.Run("over the cap rejected", func(t *testing.T) {
		f := newFixture()
		f.repo.FindByOwnerBetweenFunc = func(ctx context.Context, ownerID string, start, end time.Time, status string) ([]*model.Booking, error) {
			return []*model.Booking{eightHours}, nil
		}

		booking := validBooking()
		booking.StartTime = at(monday, 8, 30)
		booking.EndTime = at(monday, 10, 0)

		err := f.svc.Create(context.Background(), booking)
		assertCode(t, err, apperrors.CodeDailyLimitExceeded)
	})
}

func TestCreate_ConflictInsideTransaction(t *testing.T) {
	f := newFixture()
	f.repo.FindOverlappingFunc = func(ctx context.Context, roomID string, start, end time.Time, status, excludeID string) ([]*model.Booking, error) {
		return []*model.Booking{{
			ID:        "64f2a1b3c4d5e6f7a8b9c0aa",
			RoomID:    roomID,
			OwnerID:   "user-2",
			StartTime: at(monday, 9, 30),
			EndTime:   at(monday, 10, 30),
			Status:    model.StatusConfirmed,
		}}, nil
	}

	err := f.svc.Create(context.Background(), validBooking())
	assertCode(t, err, apperrors.CodeRoomConflict)

	if f.repo.createCalls != 0 {
		t.Errorf("expected no insert after conflict, got %d", f.repo.createCalls)
	}
	if _, releases := f.locks.counts(); releases != 1 {
		t.Errorf("expected lock released after conflict, got %d releases", releases)
	}
	if got := f.publisher.published(); len(got) != 0 {
		t.Errorf("expected no events after conflict, got %v", got)
	}
}

func TestCreate_Throttled(t *testing.T) {
	f := newFixture()
	f.limiter.AllowFunc = func(ctx context.Context, identity, operation string) error {
		return apperrors.RateLimited(2 * time.Second)
	}

	err := f.svc.Create(context.Background(), validBooking())
	assertCode(t, err, apperrors.CodeRateLimited)

	if acquires, _ := f.locks.counts(); acquires != 0 {
		t.Errorf("expected throttled request to stop before locking, got %d acquires", acquires)
	}
}

func TestCreate_LockWaitTimesOut(t *testing.T) {
	f := newFixture()
	f.locks.AcquireFunc = func(ctx context.Context, lock *model.SlotLock) error {
		return bookingerrors.ErrLockHeld
	}

	err := f.svc.Create(context.Background(), validBooking())
	assertCode(t, err, apperrors.CodeLockTimeout)

	if appErr := apperrors.AsAppError(err); !appErr.Retryable() {
		t.Errorf("expected lock timeout to be retryable, got %v", err)
	}
}

func TestCreate_ExpiredLockIsTakenOver(t *testing.T) {
	f := newFixture()
	f.locks.AcquireFunc = func(ctx context.Context, lock *model.SlotLock) error {
		return bookingerrors.ErrLockHeld
	}

	var takeovers int
	var claimedID string
	f.locks.TakeOverFunc = func(ctx context.Context, lock *model.SlotLock, now time.Time) error {
		takeovers++
		claimedID = lock.ID
		return nil
	}

	if err := f.svc.Create(context.Background(), validBooking()); err != nil {
		t.Fatalf("expected create to claim the lapsed lock, got %v", err)
	}

	if takeovers != 1 {
		t.Errorf("expected exactly one takeover attempt, got %d", takeovers)
	}
	if want := "slot:507f1f77bcf86cd799439011:2026-08-31"; claimedID != want {
		t.Errorf("expected lock %s, got %s", want, claimedID)
	}
	if acquires, releases := f.locks.counts(); acquires != 1 || releases != 1 {
		t.Errorf("expected 1 acquire and 1 release, got %d acquires and %d releases", acquires, releases)
	}
}

// ──────────────────────────── Update ────────────────────────────

func TestUpdate_TitleOnlySkipsSlotLock(t *testing.T) {
	f := newFixture()
	f.repo.FindByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return existingBooking(), nil
	}

	updated, err := f.svc.Update(context.Background(), "64f2a1b3c4d5e6f7a8b9c0d1", "user-1", &model.BookingUpdate{
		Title: "Sprint retro",
	})
	if err != nil {
		t.Fatalf("expected update to succeed, got %v", err)
	}

	if updated.Title != "Sprint retro" {
		t.Errorf("expected merged title, got %q", updated.Title)
	}
	if updated.Version != 4 {
		t.Errorf("expected version advanced to 4, got %d", updated.Version)
	}
	if acquires, _ := f.locks.counts(); acquires != 0 {
		t.Errorf("expected no slot lock for a title-only update, got %d acquires", acquires)
	}
	if f.repo.lastUpdateVersion != 3 {
		t.Errorf("expected compare-and-swap against version 3, got %d", f.repo.lastUpdateVersion)
	}
	if got := f.publisher.published(); len(got) != 1 || got[0] != events.TypeUpdated {
		t.Errorf("expected published [%s], got %v", events.TypeUpdated, got)
	}
}

func TestUpdate_TimeChangeLocksAndRechecksRoom(t *testing.T) {
	f := newFixture()
	f.repo.FindByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return existingBooking(), nil
	}

	newStart := at(monday, 14, 0)
	newEnd := at(monday, 15, 0)
	updated, err := f.svc.Update(context.Background(), "64f2a1b3c4d5e6f7a8b9c0d1", "user-1", &model.BookingUpdate{
		StartTime: &newStart,
		EndTime:   &newEnd,
	})
	if err != nil {
		t.Fatalf("expected update to succeed, got %v", err)
	}

	if !updated.StartTime.Equal(newStart) || !updated.EndTime.Equal(newEnd) {
		t.Errorf("expected interval moved to %v-%v, got %v-%v", newStart, newEnd, updated.StartTime, updated.EndTime)
	}
	if acquires, releases := f.locks.counts(); acquires != 1 || releases != 1 {
		t.Errorf("expected 1 acquire and 1 release for a time change, got %d and %d", acquires, releases)
	}
	if f.repo.lastExcludeID != "64f2a1b3c4d5e6f7a8b9c0d1" {
		t.Errorf("expected overlap check to exclude the booking itself, got %q", f.repo.lastExcludeID)
	}
}

func TestUpdate_VersionMismatchFailsFast(t *testing.T) {
	f := newFixture()
	f.repo.FindByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return existingBooking(), nil
	}

	staleVersion := int64(1)
	_, err := f.svc.Update(context.Background(), "64f2a1b3c4d5e6f7a8b9c0d1", "user-1", &model.BookingUpdate{
		Title:   "Sprint retro",
		Version: &staleVersion,
	})
	assertCode(t, err, apperrors.CodeStaleVersion)

	if f.repo.updateCalls != 0 {
		t.Errorf("expected no write after a stale read, got %d", f.repo.updateCalls)
	}
}

func TestUpdate_CASMissMapsToPreciseRejection(t *testing.T) {
	tests := []struct {
		name     string
		current  func() *model.Booking
		wantCode string
	}{
		{
			name: "version raced ahead",
			current: func() *model.Booking {
				b := existingBooking()
				b.Version = 7
				return b
			},
			wantCode: apperrors.CodeStaleVersion,
		},
		{
			name: "cancelled underneath",
			current: func() *model.Booking {
				b := existingBooking()
				b.Status = model.StatusCancelled
				return b
			},
			wantCode: apperrors.CodeAlreadyCancelled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			reads := 0
			f.repo.FindByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
				reads++
				if reads == 1 {
					return existingBooking(), nil
				}
				return tt.current(), nil
			}
			f.repo.UpdateWithVersionFunc = func(ctx context.Context, booking *model.Booking, expectedVersion int64) (int64, error) {
				return 0, nil
			}

			_, err := f.svc.Update(context.Background(), "64f2a1b3c4d5e6f7a8b9c0d1", "user-1", &model.BookingUpdate{
				Title: "Sprint retro",
			})
			assertCode(t, err, tt.wantCode)
		})
	}
}

func TestUpdate_OwnershipEnforced(t *testing.T) {
	f := newFixture()
	f.repo.FindByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return existingBooking(), nil
	}

	_, err := f.svc.Update(context.Background(), "64f2a1b3c4d5e6f7a8b9c0d1", "user-2", &model.BookingUpdate{
		Title: "Hijacked",
	})
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestUpdate_CancelledBookingRejected(t *testing.T) {
	f := newFixture()
	f.repo.FindByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		b := existingBooking()
		b.Status = model.StatusCancelled
		return b, nil
	}

	_, err := f.svc.Update(context.Background(), "64f2a1b3c4d5e6f7a8b9c0d1", "user-1", &model.BookingUpdate{
		Title: "Sprint retro",
	})
	assertCode(t, err, apperrors.CodeAlreadyCancelled)
}

func TestUpdate_MoveAcrossDaysDropsBothSchedules(t *testing.T) {
	f := newFixture()
	f.repo.FindByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return existingBooking(), nil
	}

	tuesday := monday.AddDate(0, 0, 1)
	newStart := at(tuesday, 9, 0)
	newEnd := at(tuesday, 10, 0)
	_, err := f.svc.Update(context.Background(), "64f2a1b3c4d5e6f7a8b9c0d1", "user-1", &model.BookingUpdate{
		StartTime: &newStart,
		EndTime:   &newEnd,
	})
	if err != nil {
		t.Fatalf("expected update to succeed, got %v", err)
	}

	roomID := "507f1f77bcf86cd799439011"
	for _, day := range []string{"2026-08-31", "2026-09-01"} {
		entry := cache.CategoryRoomSchedule + ":" + roomID + ":" + day
		if !f.cache.sawInvalidation(entry) {
			t.Errorf("expected schedule invalidation for %s, got %v", day, f.cache.invalidated)
		}
	}
}

// ──────────────────────────── Cancel ────────────────────────────

func TestCancel_MarksCancelledWithoutLock(t *testing.T) {
	f := newFixture()
	f.repo.FindByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return existingBooking(), nil
	}

	if err := f.svc.Cancel(context.Background(), "64f2a1b3c4d5e6f7a8b9c0d1", "user-1", -1); err != nil {
		t.Fatalf("expected cancel to succeed, got %v", err)
	}

	if f.repo.lastUpdate == nil || f.repo.lastUpdate.Status != model.StatusCancelled {
		t.Errorf("expected cancelled status written, got %+v", f.repo.lastUpdate)
	}
	if f.repo.lastUpdateVersion != 3 {
		t.Errorf("expected compare-and-swap against the read version 3, got %d", f.repo.lastUpdateVersion)
	}
	if acquires, _ := f.locks.counts(); acquires != 0 {
		t.Errorf("expected no slot lock on cancel, got %d acquires", acquires)
	}
	if got := f.publisher.published(); len(got) != 1 || got[0] != events.TypeCancelled {
		t.Errorf("expected published [%s], got %v", events.TypeCancelled, got)
	}
}

func TestCancel_AlreadyCancelled(t *testing.T) {
	f := newFixture()
	f.repo.FindByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		b := existingBooking()
		b.Status = model.StatusCancelled
		return b, nil
	}

	err := f.svc.Cancel(context.Background(), "64f2a1b3c4d5e6f7a8b9c0d1", "user-1", -1)
	assertCode(t, err, apperrors.CodeAlreadyCancelled)

	if f.repo.updateCalls != 0 {
		t.Errorf("expected no write for an already cancelled booking, got %d", f.repo.updateCalls)
	}
}

func TestCancel_StaleVersion(t *testing.T) {
	f := newFixture()
	f.repo.FindByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return existingBooking(), nil
	}

	err := f.svc.Cancel(context.Background(), "64f2a1b3c4d5e6f7a8b9c0d1", "user-1", 1)
	assertCode(t, err, apperrors.CodeStaleVersion)

	if f.repo.updateCalls != 0 {
		t.Errorf("expected no write after a stale read, got %d", f.repo.updateCalls)
	}
}

// ──────────────────────────── Reads ────────────────────────────

func TestListByOwner_CachesPage(t *testing.T) {
	f := newFixture()
	f.repo.FindByOwnerFunc = func(ctx context.Context, ownerID string, limit int, offset int64) ([]*model.Booking, error) {
		return []*model.Booking{existingBooking()}, nil
	}
	f.repo.CountByOwnerFunc = func(ctx context.Context, ownerID string) (int64, error) {
		return 1, nil
	}

	bookings, total, err := f.svc.ListByOwner(context.Background(), "user-1", 20, 0)
	if err != nil {
		t.Fatalf("expected list to succeed, got %v", err)
	}
	if total != 1 || len(bookings) != 1 {
		t.Fatalf("expected 1 booking with total 1, got %d with total %d", len(bookings), total)
	}
	if f.repo.findByOwnerCalls != 1 {
		t.Fatalf("expected one repository read, got %d", f.repo.findByOwnerCalls)
	}

	// Second identical read is served from the cache.
	_, _, err = f.svc.ListByOwner(context.Background(), "user-1", 20, 0)
	if err != nil {
		t.Fatalf("expected cached list to succeed, got %v", err)
	}
	if f.repo.findByOwnerCalls != 1 {
		t.Errorf("expected cached page to skip the repository, got %d reads", f.repo.findByOwnerCalls)
	}
}

func TestListRoomSchedule_BuildsDayView(t *testing.T) {
	f := newFixture()
	f.repo.FindByRoomBetweenFunc = func(ctx context.Context, roomID string, start, end time.Time, status string) ([]*model.Booking, error) {
		if status != model.StatusConfirmed {
			t.Errorf("expected confirmed filter, got %s", status)
		}
		return []*model.Booking{existingBooking()}, nil
	}

	schedule, err := f.svc.ListRoomSchedule(context.Background(), "507f1f77bcf86cd799439011", "2026-08-31")
	if err != nil {
		t.Fatalf("expected schedule to succeed, got %v", err)
	}
	if schedule.RoomID != "507f1f77bcf86cd799439011" || schedule.Date != "2026-08-31" {
		t.Errorf("unexpected schedule header: %+v", schedule)
	}
	if len(schedule.Bookings) != 1 {
		t.Fatalf("expected 1 booking in schedule, got %d", len(schedule.Bookings))
	}
}

func TestListRoomSchedule_RejectsBadDate(t *testing.T) {
	f := newFixture()
	_, err := f.svc.ListRoomSchedule(context.Background(), "507f1f77bcf86cd799439011", "31-08-2026")
	assertCode(t, err, apperrors.CodeInvalidInput)
}

func TestDashboardSummary_AggregatesCounts(t *testing.T) {
	f := newFixture()
	f.repo.CountByStatusFunc = func(ctx context.Context, status string) (int64, error) {
		if status == model.StatusConfirmed {
			return 12, nil
		}
		return 3, nil
	}
	f.repo.CountUpcomingFunc = func(ctx context.Context, after time.Time) (int64, error) {
		return 5, nil
	}
	f.repo.CountBetweenFunc = func(ctx context.Context, start, end time.Time, status string) (int64, error) {
		return 2, nil
	}

	summary, err := f.svc.DashboardSummary(context.Background())
	if err != nil {
		t.Fatalf("expected summary to succeed, got %v", err)
	}
	if summary.ConfirmedCount != 12 || summary.CancelledCount != 3 {
		t.Errorf("unexpected status counts: %+v", summary)
	}
	if summary.UpcomingCount != 5 || summary.TodayCount != 2 {
		t.Errorf("unexpected window counts: %+v", summary)
	}
}

// ──────────────────────────── Concurrency ────────────────────────────

// memBookingRepo is a minimal in-memory store for races the func-field
// mocks cannot express.
type memBookingRepo struct {
	mu       sync.Mutex
	seq      int
	bookings map[string]*model.Booking
}

var _ repository.BookingRepository = (*memBookingRepo)(nil)

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: make(map[string]*model.Booking)}
}

func (m *memBookingRepo) Create(ctx context.Context, booking *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	booking.ID = fmt.Sprintf("%024d", m.seq)
	clone := *booking
	m.bookings[booking.ID] = &clone
	return nil
}

func (m *memBookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, bookingerrors.ErrNotFound
	}
	clone := *b
	return &clone, nil
}

func (m *memBookingRepo) FindOverlapping(ctx context.Context, roomID string, start, end time.Time, status, excludeID string) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Booking
	for _, b := range m.bookings {
		if b.RoomID != roomID || b.Status != status || b.ID == excludeID {
			continue
		}
		if b.StartTime.Before(end) && b.EndTime.After(start) {
			clone := *b
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *memBookingRepo) FindByOwnerBetween(ctx context.Context, ownerID string, start, end time.Time, status string) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Booking
	for _, b := range m.bookings {
		if b.OwnerID != ownerID || b.Status != status {
			continue
		}
		if !b.StartTime.Before(start) && b.StartTime.Before(end) {
			clone := *b
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *memBookingRepo) FindByOwner(ctx context.Context, ownerID string, limit int, offset int64) ([]*model.Booking, error) {
	return nil, nil
}

func (m *memBookingRepo) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	return 0, nil
}

func (m *memBookingRepo) FindByRoomBetween(ctx context.Context, roomID string, start, end time.Time, status string) ([]*model.Booking, error) {
	return nil, nil
}

func (m *memBookingRepo) FindUpcoming(ctx context.Context, after time.Time, limit int, offset int64) ([]*model.Booking, error) {
	return nil, nil
}

func (m *memBookingRepo) CountUpcoming(ctx context.Context, after time.Time) (int64, error) {
	return 0, nil
}

func (m *memBookingRepo) CountByStatus(ctx context.Context, status string) (int64, error) {
	return 0, nil
}

func (m *memBookingRepo) CountBetween(ctx context.Context, start, end time.Time, status string) (int64, error) {
	return 0, nil
}

func (m *memBookingRepo) UpdateWithVersion(ctx context.Context, booking *model.Booking, expectedVersion int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.bookings[booking.ID]
	if !ok || current.OwnerID != booking.OwnerID || current.Version != expectedVersion {
		return 0, nil
	}
	clone := *booking
	clone.Version = expectedVersion + 1
	m.bookings[booking.ID] = &clone
	booking.Version = clone.Version
	return 1, nil
}

func (m *memBookingRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

// memSlotLockRepo mirrors the store's insert-if-absent and
// replace-if-expired semantics in memory.
type memSlotLockRepo struct {
	mu    sync.Mutex
	locks map[string]time.Time
}

var _ repository.SlotLockRepository = (*memSlotLockRepo)(nil)

func newMemSlotLockRepo() *memSlotLockRepo {
	return &memSlotLockRepo{locks: make(map[string]time.Time)}
}

func (m *memSlotLockRepo) Acquire(ctx context.Context, lock *model.SlotLock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[lock.ID]; held {
		return bookingerrors.ErrLockHeld
	}
	m.locks[lock.ID] = lock.ExpiresAt
	return nil
}

func (m *memSlotLockRepo) TakeOver(ctx context.Context, lock *model.SlotLock, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, held := m.locks[lock.ID]
	if !held || !expiry.Before(now) {
		return bookingerrors.ErrLockHeld
	}
	m.locks[lock.ID] = lock.ExpiresAt
	return nil
}

func (m *memSlotLockRepo) Release(ctx context.Context, lockID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, lockID)
	return nil
}

func newConcurrencyService(repo repository.BookingRepository, locks repository.SlotLockRepository) *bookingService {
	cfg := testConfig()
	cfg.LockWaitTimeout = 2 * time.Second
	return &bookingService{
		repo:      repo,
		lockRepo:  locks,
		rooms:     &stubRooms{},
		holidays:  &stubHolidays{},
		validator: validator.NewBookingValidator(cfg.Log),
		policy:    testPolicy(),
		cache:     newFakeCache(),
		limiter:   &stubLimiter{},
		publisher: &spyPublisher{},
		clk:       clock.Fixed(fixedNow),
		cfg:       cfg,
	}
}

func TestCreate_ConcurrentSameSlotHasOneWinner(t *testing.T) {
	repo := newMemBookingRepo()
	locks := newMemSlotLockRepo()
	svc := newConcurrencyService(repo, locks)

	const writers = 6
	results := make(chan error, writers)
	var wg sync.WaitGroup
	wg.Add(writers)

	for i := 0; i < writers; i++ {
		go func(n int) {
			defer wg.Done()
			booking := validBooking()
			booking.OwnerID = fmt.Sprintf("user-%d", n)
			results <- svc.Create(context.Background(), booking)
		}(i)
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case apperrors.HasCode(err, apperrors.CodeRoomConflict):
			conflicts++
		default:
			t.Errorf("unexpected outcome: %v", err)
		}
	}

	if wins != 1 {
		t.Errorf("expected exactly 1 winner, got %d", wins)
	}
	if conflicts != writers-1 {
		t.Errorf("expected %d conflicts, got %d", writers-1, conflicts)
	}
	if len(repo.bookings) != 1 {
		t.Errorf("expected a single stored booking, got %d", len(repo.bookings))
	}
}

func TestCreate_BackToBackBookingsBothSucceed(t *testing.T) {
	repo := newMemBookingRepo()
	locks := newMemSlotLockRepo()
	svc := newConcurrencyService(repo, locks)

	first := validBooking()
	if err := svc.Create(context.Background(), first); err != nil {
		t.Fatalf("expected first booking to succeed, got %v", err)
	}

	second := validBooking()
	second.OwnerID = "user-2"
	second.StartTime = at(monday, 10, 0)
	second.EndTime = at(monday, 11, 0)
	if err := svc.Create(context.Background(), second); err != nil {
		t.Fatalf("expected a booking starting at the previous end to succeed, got %v", err)
	}

	if len(repo.bookings) != 2 {
		t.Errorf("expected 2 stored bookings, got %d", len(repo.bookings))
	}
}

func TestCreate_RandomizedScheduleStaysNonOverlapping(t *testing.T) {
	repo := newMemBookingRepo()
	locks := newMemSlotLockRepo()
	svc := newConcurrencyService(repo, locks)

	const attempts = 24
	rng := rand.New(rand.NewSource(42))

	type slot struct{ start, end time.Time }
	slots := make([]slot, attempts)
	for i := range slots {
		start := monday.Add(time.Duration(7*60+15*rng.Intn(40)) * time.Minute)
		slots[i] = slot{start: start, end: start.Add(time.Duration(30+15*rng.Intn(7)) * time.Minute)}
	}

	results := make(chan error, attempts)
	var wg sync.WaitGroup
	wg.Add(attempts)

	for i := 0; i < attempts; i++ {
		go func(n int) {
			defer wg.Done()
			booking := validBooking()
			booking.OwnerID = fmt.Sprintf("user-%d", n)
			booking.StartTime = slots[n].start
			booking.EndTime = slots[n].end
			results <- svc.Create(context.Background(), booking)
		}(i)
	}
	wg.Wait()
	close(results)

	var wins int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case apperrors.HasCode(err, apperrors.CodeRoomConflict):
		default:
			t.Errorf("unexpected outcome: %v", err)
		}
	}

	if wins == 0 {
		t.Fatal("expected at least one booking to be accepted")
	}
	if wins != len(repo.bookings) {
		t.Errorf("expected %d stored bookings, got %d", wins, len(repo.bookings))
	}

	stored := make([]*model.Booking, 0, len(repo.bookings))
	for _, b := range repo.bookings {
		stored = append(stored, b)
	}
	for i := 0; i < len(stored); i++ {
		for j := i + 1; j < len(stored); j++ {
			if interval.Overlaps(stored[i].StartTime, stored[i].EndTime, stored[j].StartTime, stored[j].EndTime) {
				t.Errorf("confirmed bookings overlap: [%v, %v) and [%v, %v)",
					stored[i].StartTime, stored[i].EndTime, stored[j].StartTime, stored[j].EndTime)
			}
		}
	}
}
