package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirsanndy/room-booking-sub001/pkg/config"
	apperrors "github.com/sirsanndy/room-booking-sub001/pkg/errors"
	"github.com/sirsanndy/room-booking-sub001/pkg/interval"
	"github.com/sirsanndy/room-booking-sub001/pkg/logger"
	"github.com/sirsanndy/room-booking-sub001/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Policy carries the booking rules as plain values so rule evaluation stays
// pure. MaxDuration zero disables the upper duration cap.
type Policy struct {
	MinDuration    time.Duration
	MaxDuration    time.Duration
	DailyLimit     time.Duration
	OpeningMinutes int
	ClosingMinutes int
	WorkingDays    map[time.Weekday]bool
	Location       *time.Location
}

func PolicyFromConfig(cfg *config.Config) Policy {
	days := make(map[time.Weekday]bool, len(cfg.WorkingDays))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if cfg.IsWorkingDay(d) {
			days[d] = true
		}
	}
	return Policy{
		MinDuration:    cfg.MinDuration,
		MaxDuration:    cfg.MaxDuration,
		DailyLimit:     cfg.DailyLimit,
		OpeningMinutes: config.MinutesFromClock(cfg.OpeningTime),
		ClosingMinutes: config.MinutesFromClock(cfg.ClosingTime),
		WorkingDays:    days,
		Location:       cfg.Location,
	}
}

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	log.Info("Booking validator initialized successfully")

	return &BookingValidator{
		validate: validator.New(),
		logger:   log,
	}
}

// ValidateShape checks field shape only (presence, lengths, ID formats).
// Time and business rules have their own ordered pipeline with stable codes.
func (v *BookingValidator) ValidateShape(booking *model.Booking) error {
	if err := v.validate.Struct(booking); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *BookingValidator) ValidateUpdateShape(update *model.BookingUpdate) error {
	if err := v.validate.Struct(update); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

// ValidateTimeRules runs the store-free rule checks in their fixed order and
// stops at the first failure. The holiday flag is a caller-supplied fact so
// the rules stay pure.
func (v *BookingValidator) ValidateTimeRules(booking *model.Booking, now time.Time, isHoliday bool, p Policy) error {
	if !booking.EndTime.After(booking.StartTime) {
		return apperrors.Rejection(apperrors.CodeInvalidTimeRange, "end_time must be after start_time")
	}

	if booking.StartTime.Before(now) {
		return apperrors.Rejection(apperrors.CodePastDate, "start_time cannot be in the past")
	}

	duration := booking.Duration()
	if duration < p.MinDuration {
		return apperrors.Rejection(apperrors.CodeDurationTooShort,
			fmt.Sprintf("booking must last at least %s", p.MinDuration))
	}
	if p.MaxDuration > 0 && duration > p.MaxDuration {
		return apperrors.Rejection(apperrors.CodeDurationTooLong,
			fmt.Sprintf("booking must not last longer than %s", p.MaxDuration))
	}

	if !p.WorkingDays[booking.StartTime.In(p.Location).Weekday()] {
		return apperrors.Rejection(apperrors.CodeWeekend, "bookings are only accepted on working days")
	}

	if isHoliday {
		return apperrors.Rejection(apperrors.CodeHoliday,
			fmt.Sprintf("no bookings on %s, it is a holiday", interval.DayKey(booking.StartTime, p.Location)))
	}

	startMinutes := interval.MinutesOfDay(booking.StartTime, p.Location)
	endMinutes := interval.MinutesOfDay(booking.EndTime, p.Location)
	if !interval.SameDay(booking.StartTime, booking.EndTime, p.Location) ||
		startMinutes < p.OpeningMinutes || endMinutes > p.ClosingMinutes {
		return apperrors.Rejection(apperrors.CodeOutOfHours,
			fmt.Sprintf("bookings must fall within business hours (%s to %s, one calendar day)",
				clockString(p.OpeningMinutes), clockString(p.ClosingMinutes)))
	}

	return nil
}

// ValidateOwnerRules runs the user-scoped checks on facts the caller fetched:
// the owner's other confirmed bookings on the candidate's day, any room. The
// candidate itself is recognized by ID and skipped, so updates do not count
// their own current interval.
func (v *BookingValidator) ValidateOwnerRules(booking *model.Booking, sameDay []*model.Booking, p Policy) error {
	total := booking.Duration()
	for _, other := range sameDay {
		if other.ID == booking.ID || other.IsCancelled() {
			continue
		}
		total += other.Duration()
	}
	if total > p.DailyLimit {
		return apperrors.Rejection(apperrors.CodeDailyLimitExceeded,
			fmt.Sprintf("booking would bring the day's total to %s, the limit is %s", total, p.DailyLimit))
	}

	for _, other := range sameDay {
		if other.ID == booking.ID || other.IsCancelled() {
			continue
		}
		if interval.Overlaps(booking.StartTime, booking.EndTime, other.StartTime, other.EndTime) {
			return apperrors.DoubleBooked("You already have a booking in that interval", map[string]any{
				"booking_id": other.ID,
				"room_id":    other.RoomID,
				"start_time": other.StartTime.Format(time.RFC3339),
				"end_time":   other.EndTime.Format(time.RFC3339),
			})
		}
	}

	return nil
}

func clockString(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "datetime":
			message = fmt.Sprintf("%s must match the format %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
