package middleware

import (
	"context"
	"net/http"

	apperrors "github.com/sirsanndy/room-booking-sub001/pkg/errors"
	"github.com/sirsanndy/room-booking-sub001/pkg/logger"
)

const UserIDHeader = "X-User-ID"

const UserIDKey contextKey = "user_id"

// RequireUserID rejects requests without an X-User-ID header and puts the
// caller's identity into the request context. Upstream authentication is
// expected to have populated the header; this service only trusts it.
func RequireUserID(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get(UserIDHeader)

			if userID == "" {
				requestID := ""
				if rid := r.Context().Value(RequestIDKey); rid != nil {
					if id, ok := rid.(string); ok {
						requestID = id
					}
				}

				log.Warn("Request without user identity",
					"request_id", requestID,
					"method", r.Method,
					"path", r.URL.Path,
				)

				appErr := apperrors.Unauthorized("Missing " + UserIDHeader + " header")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(appErr.StatusCode())
				_, _ = w.Write(appErr.ToJSON())
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
