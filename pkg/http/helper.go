package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/sirsanndy/room-booking-sub001/pkg/config"
	apperrors "github.com/sirsanndy/room-booking-sub001/pkg/errors"
	"github.com/sirsanndy/room-booking-sub001/pkg/middleware"
)

func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	var offset int64 = 0
	if s := query.Get("offset"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		offset = int64(v)
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	return limit, offset, nil
}

// UserID returns the authenticated caller placed in the request context by
// the identity middleware.
func UserID(r *http.Request) (string, error) {
	id, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok || id == "" {
		return "", apperrors.Unauthorized("Missing user identity")
	}
	return id, nil
}

// ExtractDate reads a required YYYY-MM-DD query parameter.
func ExtractDate(r *http.Request, param string) (string, error) {
	value := r.URL.Query().Get(param)
	if value == "" {
		return "", apperrors.InvalidInput("missing required parameter: " + param)
	}
	if _, err := time.Parse("2006-01-02", value); err != nil {
		return "", apperrors.InvalidInput("invalid date, expected YYYY-MM-DD: " + value)
	}
	return value, nil
}

// ExtractYear reads a required year query parameter.
func ExtractYear(r *http.Request) (int, error) {
	value := r.URL.Query().Get("year")
	if value == "" {
		return 0, apperrors.InvalidInput("missing required parameter: year")
	}
	year, err := strconv.Atoi(value)
	if err != nil || year < 1970 || year > 9999 {
		return 0, apperrors.InvalidInput("invalid year parameter: " + value)
	}
	return year, nil
}
