package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/utafrali/storefront/pkg/httputil"
)

// SessionHeader carries the storefront session identifier. Browsers keep it
// next to the cart and wishlist they used to hold in local storage.
const SessionHeader = "X-Session-ID"

type contextKeyType string

const sessionIDKey contextKeyType = "session_id"

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// RequireSession rejects requests without a well-formed X-Session-ID header
// and stores the session ID in the request context.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := r.Header.Get(SessionHeader)
		if sid == "" {
			httputil.WriteErrorCode(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "X-Session-ID header is required")
			return
		}
		if !sessionIDPattern.MatchString(sid) {
			httputil.WriteErrorCode(w, r, http.StatusBadRequest, "INVALID_INPUT", "X-Session-ID header is malformed")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sid)))
	})
}

// WithSessionID stores a session ID in ctx.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionIDFromContext returns the session ID set by RequireSession.
func SessionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey).(string); ok {
		return id
	}
	return ""
}
