package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeInternal     = "INTERNAL_ERROR"
	CodeTimeout      = "TIMEOUT"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
	CodeInvalidInput = "INVALID_INPUT"

	// Booking rule rejections. Codes are part of the API contract and must
	// stay stable across releases; clients branch on them.
	CodeInvalidTimeRange   = "INVALID_TIME_RANGE"
	CodePastDate           = "PAST_DATE"
	CodeDurationTooShort   = "DURATION_TOO_SHORT"
	CodeDurationTooLong    = "DURATION_TOO_LONG"
	CodeWeekend            = "WEEKEND"
	CodeHoliday            = "HOLIDAY"
	CodeOutOfHours         = "OUT_OF_HOURS"
	CodeDailyLimitExceeded = "DAILY_LIMIT_EXCEEDED"
	CodeDoubleBooked       = "DOUBLE_BOOKED"
	CodeRoomUnavailable    = "ROOM_UNAVAILABLE"

	// Concurrency outcomes.
	CodeRoomConflict     = "ROOM_CONFLICT"
	CodeLockTimeout      = "LOCK_TIMEOUT"
	CodeStaleVersion     = "STALE_VERSION"
	CodeAlreadyCancelled = "ALREADY_CANCELLED"
	CodeRateLimited      = "RATE_LIMITED"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

// Retryable reports whether the caller can retry the same request unchanged
// after a short wait. Conflict and validation rejections are not retryable
// as-is; the request must change first.
func (e *AppError) Retryable() bool {
	switch e.Code {
	case CodeLockTimeout, CodeTimeout, CodeUnavailable, CodeRateLimited:
		return true
	}
	return false
}

func (e *AppError) ToJSON() []byte {
	response := ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
	data, _ := json.Marshal(response)
	return data
}

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NotFoundWithID(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

// Rejection builds a business-rule rejection with one of the stable booking
// codes. All rule rejections share the 422 status; the code carries the rule.
func Rejection(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// RoomConflict reports that the requested interval overlaps a confirmed
// booking for the same room. Details should name the blocking interval so
// the caller can pick a free slot without another round trip.
func RoomConflict(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeRoomConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
		Details:    details,
	}
}

func DoubleBooked(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeDoubleBooked,
		Message:    message,
		HTTPStatus: http.StatusConflict,
		Details:    details,
	}
}

func StaleVersion(expected, actual int64) *AppError {
	return &AppError{
		Code:       CodeStaleVersion,
		Message:    "Booking was modified by another request, refresh and retry",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"expected_version": expected,
			"current_version":  actual,
		},
	}
}

func AlreadyCancelled(id string) *AppError {
	return &AppError{
		Code:       CodeAlreadyCancelled,
		Message:    "Booking is already cancelled",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"id": id,
		},
	}
}

// LockTimeout reports that the slot lock could not be acquired within the
// configured wait. The slot may still be free; this is a retryable outcome,
// not a conflict.
func LockTimeout(message string) *AppError {
	return &AppError{
		Code:       CodeLockTimeout,
		Message:    message,
		HTTPStatus: http.StatusServiceUnavailable,
		Details: map[string]any{
			"retryable": true,
		},
	}
}

func RateLimited(retryAfter time.Duration) *AppError {
	seconds := int(retryAfter.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return &AppError{
		Code:       CodeRateLimited,
		Message:    "Too many requests, slow down",
		HTTPStatus: http.StatusTooManyRequests,
		Details: map[string]any{
			"retry_after_seconds": seconds,
		},
	}
}

func RoomUnavailable(name string) *AppError {
	return &AppError{
		Code:       CodeRoomUnavailable,
		Message:    fmt.Sprintf("Room %s is not available for booking", name),
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func Timeout(message string) *AppError {
	return &AppError{
		Code:       CodeTimeout,
		Message:    message,
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

func Unavailable(service string) *AppError {
	return &AppError{
		Code:       CodeUnavailable,
		Message:    fmt.Sprintf("%s is temporarily unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
