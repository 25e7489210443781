package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/graycup/leads-admin/internal/auth"
)

type contextKey string

// userKey carries the authenticated username through the request context.
const userKey contextKey = "auth.username"

// Session returns middleware that requires a valid session cookie.
// The authenticated username is stored in the request context.
func Session(mgr *auth.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.CookieName)
			if err != nil {
				http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
				return
			}

			username, err := mgr.VerifyToken(cookie.Value)
			if err != nil {
				slog.Warn("session rejected",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", err,
				)
				http.Error(w, `{"error":"invalid or expired session"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Username returns the authenticated username from the request context,
// or "" when the request did not pass the Session middleware.
func Username(ctx context.Context) string {
	if v, ok := ctx.Value(userKey).(string); ok {
		return v
	}
	return ""
}
