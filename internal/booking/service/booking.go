package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bookingerrors "github.com/sirsanndy/room-booking-sub001/internal/booking/errors"
	"github.com/sirsanndy/room-booking-sub001/internal/booking/events"
	"github.com/sirsanndy/room-booking-sub001/internal/booking/repository"
	"github.com/sirsanndy/room-booking-sub001/internal/booking/validator"
	"github.com/sirsanndy/room-booking-sub001/pkg/cache"
	"github.com/sirsanndy/room-booking-sub001/pkg/clock"
	"github.com/sirsanndy/room-booking-sub001/pkg/config"
	apperrors "github.com/sirsanndy/room-booking-sub001/pkg/errors"
	"github.com/sirsanndy/room-booking-sub001/pkg/interval"
	"github.com/sirsanndy/room-booking-sub001/pkg/model"
	"github.com/sirsanndy/room-booking-sub001/pkg/sanitizer"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	opCreate = "create"
	opUpdate = "update"
	opCancel = "cancel"
)

type BookingService interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	Update(ctx context.Context, id, ownerID string, updates *model.BookingUpdate) (*model.Booking, error)
	Cancel(ctx context.Context, id, ownerID string, expectedVersion int64) error
	ListByOwner(ctx context.Context, ownerID string, limit int, offset int64) ([]*model.Booking, int64, error)
	ListRoomSchedule(ctx context.Context, roomID, date string) (*model.RoomSchedule, error)
	ListUpcoming(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error)
	DashboardSummary(ctx context.Context) (*model.DashboardSummary, error)
}

// RoomFinder supplies room existence and availability facts for the create
// path. The room service satisfies it.
type RoomFinder interface {
	GetByID(ctx context.Context, id string) (*model.Room, error)
}

// HolidayChecker reports whether a YYYY-MM-DD day is a holiday. The holiday
// repository satisfies it; rule evaluation always asks the store, never the
// cache.
type HolidayChecker interface {
	Exists(ctx context.Context, date string) (bool, error)
}

// BookingCache is the slice of pkg/cache the service needs. Reads degrade
// to misses; the conflict path never touches it.
type BookingCache interface {
	GetJSON(ctx context.Context, category, id string, target any) bool
	SetJSON(ctx context.Context, category, id string, value any, ttl time.Duration)
	Invalidate(ctx context.Context, category string)
	InvalidateKey(ctx context.Context, category, id string)
	InvalidatePrefix(ctx context.Context, category, prefix string)
}

// RequestLimiter throttles mutations per identity and operation.
type RequestLimiter interface {
	Allow(ctx context.Context, identity, operation string) error
}

type bookingService struct {
	repo      repository.BookingRepository
	lockRepo  repository.SlotLockRepository
	rooms     RoomFinder
	holidays  HolidayChecker
	validator *validator.BookingValidator
	policy    validator.Policy
	cache     BookingCache
	limiter   RequestLimiter
	publisher events.Publisher
	clk       clock.Clock
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	lockRepo repository.SlotLockRepository,
	rooms RoomFinder,
	holidays HolidayChecker,
	bookingValidator *validator.BookingValidator,
	bookingCache BookingCache,
	limiter RequestLimiter,
	publisher events.Publisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		lockRepo:  lockRepo,
		rooms:     rooms,
		holidays:  holidays,
		validator: bookingValidator,
		policy:    validator.PolicyFromConfig(cfg),
		cache:     bookingCache,
		limiter:   limiter,
		publisher: publisher,
		clk:       clock.System(),
		cfg:       cfg,
	}
}

// bookingPage is the cached shape of a paginated booking list.
type bookingPage struct {
	Bookings []*model.Booking `json:"bookings"`
	Total    int64            `json:"total"`
}

func (s *bookingService) Create(ctx context.Context, booking *model.Booking) error {
	if err := s.limiter.Allow(ctx, booking.OwnerID, opCreate); err != nil {
		return err
	}

	booking.ID = ""
	booking.Status = model.StatusConfirmed
	booking.Version = 0
	s.sanitize(booking)

	if err := s.validateShape(booking); err != nil {
		return err
	}
	if err := s.validateRules(ctx, booking); err != nil {
		return err
	}
	if err := s.checkRoom(ctx, booking.RoomID); err != nil {
		return err
	}

	lockID, err := s.acquireSlotLock(ctx, booking.RoomID, booking.StartTime)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := s.lockRepo.Release(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release slot lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifyRoomFree(sessCtx, booking, ""); err != nil {
			return err
		}
		if err := s.repo.Create(sessCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create booking",
			"room_id", booking.RoomID,
			"owner_id", booking.OwnerID,
			"error", err,
		)
		return err
	}

	s.invalidateAfterWrite(ctx, nil, booking)
	s.publisher.Publish(ctx, events.TypeCreated, booking)

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"room_id", booking.RoomID,
		"owner_id", booking.OwnerID,
		"start_time", booking.StartTime,
	)
	return nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupError(err, id)
	}

	return booking, nil
}

func (s *bookingService) Update(ctx context.Context, id, ownerID string, updates *model.BookingUpdate) (*model.Booking, error) {
	if err := s.limiter.Allow(ctx, ownerID, opUpdate); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	if err := s.validator.ValidateUpdateShape(updates); err != nil {
		s.cfg.Log.Warn("Booking update validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	existing, err := s.findOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if existing.IsCancelled() {
		return nil, apperrors.AlreadyCancelled(id)
	}

	expectedVersion := existing.Version
	if updates.Version != nil {
		if *updates.Version != existing.Version {
			return nil, apperrors.StaleVersion(*updates.Version, existing.Version)
		}
		expectedVersion = *updates.Version
	}

	merged := s.mergeBookingUpdates(existing, updates)
	s.sanitize(merged)
	if err := s.validateShape(merged); err != nil {
		return nil, err
	}
	if err := s.validateRules(ctx, merged); err != nil {
		return nil, err
	}

	apply := func(applyCtx context.Context) error {
		matched, err := s.repo.UpdateWithVersion(applyCtx, merged, expectedVersion)
		if err != nil {
			if errors.Is(err, bookingerrors.ErrInvalidID) {
				return apperrors.InvalidInput("Invalid booking ID format")
			}
			return apperrors.Internal("Failed to update booking", err)
		}
		if matched == 0 {
			return s.staleOutcome(applyCtx, id, expectedVersion)
		}
		return nil
	}

	if updates.HasTimeChange() {
		// A moved interval must clear the room exclusively, same as a create.
		lockID, lockErr := s.acquireSlotLock(ctx, merged.RoomID, merged.StartTime)
		if lockErr != nil {
			return nil, lockErr
		}
		defer func() {
			if releaseErr := s.lockRepo.Release(ctx, lockID); releaseErr != nil {
				s.cfg.Log.Warn("Failed to release slot lock", "lock_id", lockID, "error", releaseErr)
			}
		}()

		err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			if err := s.verifyRoomFree(sessCtx, merged, id); err != nil {
				return err
			}
			return apply(sessCtx)
		})
	} else {
		err = apply(ctx)
	}
	if err != nil {
		s.cfg.Log.Error("Failed to update booking", "id", id, "error", err)
		return nil, err
	}

	s.invalidateAfterWrite(ctx, existing, merged)
	s.publisher.Publish(ctx, events.TypeUpdated, merged)

	s.cfg.Log.Info("Booking updated successfully", "id", id, "version", merged.Version)
	return merged, nil
}

func (s *bookingService) Cancel(ctx context.Context, id, ownerID string, expectedVersion int64) error {
	if err := s.limiter.Allow(ctx, ownerID, opCancel); err != nil {
		return err
	}
	if id == "" {
		return apperrors.InvalidInput("Booking ID cannot be empty")
	}

	existing, err := s.findOwned(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if existing.IsCancelled() {
		return apperrors.AlreadyCancelled(id)
	}

	version := existing.Version
	if expectedVersion >= 0 {
		if expectedVersion != existing.Version {
			return apperrors.StaleVersion(expectedVersion, existing.Version)
		}
		version = expectedVersion
	}

	// Removing a booking cannot create an overlap, so no slot lock here.
	cancelled := *existing
	cancelled.Status = model.StatusCancelled
	matched, err := s.repo.UpdateWithVersion(ctx, &cancelled, version)
	if err != nil {
		return apperrors.Internal("Failed to cancel booking", err)
	}
	if matched == 0 {
		return s.staleOutcome(ctx, id, version)
	}

	s.invalidateAfterWrite(ctx, existing, &cancelled)
	s.publisher.Publish(ctx, events.TypeCancelled, &cancelled)

	s.cfg.Log.Info("Booking cancelled successfully", "id", id, "owner_id", ownerID)
	return nil
}

func (s *bookingService) ListByOwner(ctx context.Context, ownerID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	if ownerID == "" {
		return nil, 0, apperrors.InvalidInput("Owner ID cannot be empty")
	}
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	cacheID := fmt.Sprintf("%s:%d:%d", ownerID, limit, offset)
	var cached bookingPage
	if s.cache.GetJSON(ctx, cache.CategoryUserBookings, cacheID, &cached) {
		return cached.Bookings, cached.Total, nil
	}

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByOwner(ctx, ownerID)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings by owner", "owner_id", ownerID, "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindByOwner(ctx, ownerID, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings by owner", "owner_id", ownerID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	s.cache.SetJSON(ctx, cache.CategoryUserBookings, cacheID, bookingPage{Bookings: bookings, Total: count}, s.cfg.CacheUserBookingsTTL)
	return bookings, count, nil
}

func (s *bookingService) ListRoomSchedule(ctx context.Context, roomID, date string) (*model.RoomSchedule, error) {
	if roomID == "" {
		return nil, apperrors.InvalidInput("Room ID cannot be empty")
	}
	day, err := time.ParseInLocation("2006-01-02", date, s.policy.Location)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid date, expected YYYY-MM-DD: " + date)
	}

	cacheID := roomID + ":" + date
	var cached model.RoomSchedule
	if s.cache.GetJSON(ctx, cache.CategoryRoomSchedule, cacheID, &cached) {
		return &cached, nil
	}

	if _, err := s.rooms.GetByID(ctx, roomID); err != nil {
		return nil, err
	}

	dayStart, dayEnd := interval.DayBounds(day, s.policy.Location)
	bookings, err := s.repo.FindByRoomBetween(ctx, roomID, dayStart, dayEnd, model.StatusConfirmed)
	if err != nil {
		s.cfg.Log.Error("Failed to load room schedule", "room_id", roomID, "date", date, "error", err)
		return nil, apperrors.Internal("Failed to load room schedule", err)
	}

	schedule := &model.RoomSchedule{
		RoomID:   roomID,
		Date:     date,
		Bookings: make([]model.Booking, 0, len(bookings)),
	}
	for _, b := range bookings {
		schedule.Bookings = append(schedule.Bookings, *b)
	}

	s.cache.SetJSON(ctx, cache.CategoryRoomSchedule, cacheID, schedule, s.cfg.CacheScheduleTTL)
	return schedule, nil
}

func (s *bookingService) ListUpcoming(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	cacheID := fmt.Sprintf("%d:%d", limit, offset)
	var cached bookingPage
	if s.cache.GetJSON(ctx, cache.CategoryUpcoming, cacheID, &cached) {
		return cached.Bookings, cached.Total, nil
	}

	now := s.clk.Now()

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountUpcoming(ctx, now)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count upcoming bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindUpcoming(ctx, now, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list upcoming bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	s.cache.SetJSON(ctx, cache.CategoryUpcoming, cacheID, bookingPage{Bookings: bookings, Total: count}, s.cfg.CacheUpcomingTTL)
	return bookings, count, nil
}

func (s *bookingService) DashboardSummary(ctx context.Context) (*model.DashboardSummary, error) {
	var cached model.DashboardSummary
	if s.cache.GetJSON(ctx, cache.CategoryDashboard, "summary", &cached) {
		return &cached, nil
	}

	now := s.clk.Now()
	dayStart, dayEnd := interval.DayBounds(now, s.policy.Location)

	summary := &model.DashboardSummary{GeneratedAt: now.UTC()}
	errs := make([]error, 4)
	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		summary.ConfirmedCount, errs[0] = s.repo.CountByStatus(ctx, model.StatusConfirmed)
	}()
	go func() {
		defer wg.Done()
		summary.CancelledCount, errs[1] = s.repo.CountByStatus(ctx, model.StatusCancelled)
	}()
	go func() {
		defer wg.Done()
		summary.UpcomingCount, errs[2] = s.repo.CountUpcoming(ctx, now)
	}()
	go func() {
		defer wg.Done()
		summary.TodayCount, errs[3] = s.repo.CountBetween(ctx, dayStart, dayEnd, model.StatusConfirmed)
	}()

	wg.Wait()
	for _, err := range errs {
		if err != nil {
			s.cfg.Log.Error("Failed to build dashboard summary", "error", err)
			return nil, apperrors.Internal("Failed to build dashboard summary", err)
		}
	}

	s.cache.SetJSON(ctx, cache.CategoryDashboard, "summary", summary, s.cfg.CacheDashboardTTL)
	return summary, nil
}

// --- Helpers ---

func (s *bookingService) sanitize(b *model.Booking) {
	b.Title = sanitizer.NormalizeTitle(b.Title)
	b.Description = sanitizer.NormalizeDescription(b.Description)
}

func (s *bookingService) validateShape(booking *model.Booking) error {
	if err := s.validator.ValidateShape(booking); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

// validateRules runs the ordered business rules. Steps needing no store
// reads come first; the owner facts are fetched once and evaluated against
// the candidate.
func (s *bookingService) validateRules(ctx context.Context, booking *model.Booking) error {
	now := s.clk.Now()

	dayKey := interval.DayKey(booking.StartTime, s.policy.Location)
	isHoliday, err := s.holidays.Exists(ctx, dayKey)
	if err != nil {
		return apperrors.Internal("Failed to check holiday calendar", err)
	}

	if err := s.validator.ValidateTimeRules(booking, now, isHoliday, s.policy); err != nil {
		s.cfg.Log.Info("Booking rejected by time rules",
			"owner_id", booking.OwnerID,
			"room_id", booking.RoomID,
			"error", err,
		)
		return err
	}

	dayStart, dayEnd := interval.DayBounds(booking.StartTime, s.policy.Location)
	sameDay, err := s.repo.FindByOwnerBetween(ctx, booking.OwnerID, dayStart, dayEnd, model.StatusConfirmed)
	if err != nil {
		return apperrors.Internal("Failed to load the owner's bookings", err)
	}

	if err := s.validator.ValidateOwnerRules(booking, sameDay, s.policy); err != nil {
		s.cfg.Log.Info("Booking rejected by owner rules",
			"owner_id", booking.OwnerID,
			"room_id", booking.RoomID,
			"error", err,
		)
		return err
	}

	return nil
}

func (s *bookingService) checkRoom(ctx context.Context, roomID string) error {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.Available {
		return apperrors.RoomUnavailable(room.Name)
	}
	return nil
}

func (s *bookingService) findOwned(ctx context.Context, id, ownerID string) (*model.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupError(err, id)
	}
	if booking.OwnerID != ownerID {
		return nil, apperrors.Forbidden("Booking belongs to another user")
	}
	return booking, nil
}

func (s *bookingService) mapLookupError(err error, id string) error {
	if errors.Is(err, bookingerrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Booking", id)
	}
	if errors.Is(err, bookingerrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid booking ID format")
	}
	return apperrors.Internal("Failed to retrieve booking", err)
}

// staleOutcome turns a matched-count-zero CAS into the most precise
// rejection the current row supports.
func (s *bookingService) staleOutcome(ctx context.Context, id string, expectedVersion int64) error {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return apperrors.StaleVersion(expectedVersion, -1)
	}
	if current.IsCancelled() {
		return apperrors.AlreadyCancelled(id)
	}
	return apperrors.StaleVersion(expectedVersion, current.Version)
}

func (s *bookingService) mergeBookingUpdates(existing *model.Booking, updates *model.BookingUpdate) *model.Booking {
	merged := *existing

	if updates.Title != "" {
		merged.Title = updates.Title
	}
	if updates.Description != nil {
		merged.Description = *updates.Description
	}
	if updates.StartTime != nil {
		merged.StartTime = *updates.StartTime
	}
	if updates.EndTime != nil {
		merged.EndTime = *updates.EndTime
	}

	return &merged
}

// verifyRoomFree is the authoritative overlap check. It runs inside the
// slot-lock critical section against the store; cached schedules never
// participate.
func (s *bookingService) verifyRoomFree(ctx context.Context, booking *model.Booking, excludeID string) error {
	existing, err := s.repo.FindOverlapping(ctx, booking.RoomID, booking.StartTime, booking.EndTime, model.StatusConfirmed, excludeID)
	if err != nil {
		return apperrors.Internal("Failed to check existing bookings", err)
	}

	for _, other := range existing {
		if interval.Overlaps(booking.StartTime, booking.EndTime, other.StartTime, other.EndTime) {
			return apperrors.RoomConflict(
				fmt.Sprintf("Room is already booked from %s to %s",
					other.StartTime.Format(time.RFC3339),
					other.EndTime.Format(time.RFC3339),
				),
				map[string]any{
					"booking_id": other.ID,
					"start_time": other.StartTime.Format(time.RFC3339),
					"end_time":   other.EndTime.Format(time.RFC3339),
				},
			)
		}
	}
	return nil
}

// acquireSlotLock serializes writers on one room-day. The wait is bounded:
// a holder that refuses to go away becomes LOCK_TIMEOUT, which is retryable
// and distinct from a genuine conflict.
func (s *bookingService) acquireSlotLock(ctx context.Context, roomID string, startTime time.Time) (string, error) {
	lockID := fmt.Sprintf("slot:%s:%s", roomID, interval.DayKey(startTime, s.policy.Location))

	for waited := time.Duration(0); ; waited += s.cfg.LockRetryInterval {
		now := s.clk.Now()
		lock := &model.SlotLock{
			ID:        lockID,
			Owner:     uuid.New().String(),
			ExpiresAt: now.Add(s.cfg.LockTTL),
		}

		err := s.lockRepo.Acquire(ctx, lock)
		if err == nil {
			return lockID, nil
		}
		if !errors.Is(err, bookingerrors.ErrLockHeld) {
			return "", apperrors.Internal("Failed to acquire slot lock", err)
		}

		// The holder may have crashed; a lapsed lease is free to claim.
		takeErr := s.lockRepo.TakeOver(ctx, lock, now)
		if takeErr == nil {
			return lockID, nil
		}
		if !errors.Is(takeErr, bookingerrors.ErrLockHeld) {
			return "", apperrors.Internal("Failed to take over slot lock", takeErr)
		}

		if waited+s.cfg.LockRetryInterval > s.cfg.LockWaitTimeout {
			s.cfg.Log.Warn("Slot lock wait timed out", "lock_id", lockID, "waited", waited)
			return "", apperrors.LockTimeout("Timed out waiting for the slot to become available, try again")
		}

		select {
		case <-ctx.Done():
			return "", apperrors.Timeout("Request cancelled while waiting for the slot lock")
		case <-time.After(s.cfg.LockRetryInterval):
		}
	}
}

// invalidateAfterWrite drops every cached view the mutation could have
// changed. Deletion, not refresh: the next reader repopulates from the
// store. A moved booking drops the schedule of both affected days.
func (s *bookingService) invalidateAfterWrite(ctx context.Context, before, after *model.Booking) {
	days := map[string]bool{
		interval.DayKey(after.StartTime, s.policy.Location): true,
	}
	if before != nil {
		days[interval.DayKey(before.StartTime, s.policy.Location)] = true
	}
	for day := range days {
		s.cache.InvalidateKey(ctx, cache.CategoryRoomSchedule, after.RoomID+":"+day)
	}

	s.cache.InvalidatePrefix(ctx, cache.CategoryUserBookings, after.OwnerID+":")
	s.cache.Invalidate(ctx, cache.CategoryUpcoming)
	s.cache.Invalidate(ctx, cache.CategoryDashboard)
}
