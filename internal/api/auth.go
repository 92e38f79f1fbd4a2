package api

import (
	"context"
	"net"
	"net/http"
	"strings"

	"barbeapp/internal/auth"
)

type ctxKey string

const userIDKey ctxKey = "uid"

// UserIDFromContext returns the authenticated user id set by the auth middleware.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok && id > 0
}

// WithUserID stores the authenticated user id in ctx.
func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// HTTPAuth checks "Authorization: Bearer <jwt>" on protected routes.
type HTTPAuth struct {
	secret string
}

func NewHTTPAuth(secret string) *HTTPAuth {
	return &HTTPAuth{secret: secret}
}

func (a *HTTPAuth) Require(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" {
			writeError(w, http.StatusUnauthorized, "Token not provided")
			return
		}

		scheme, raw, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			writeError(w, http.StatusUnauthorized, "Token invalid")
			return
		}

		claims, err := auth.ParseToken(strings.TrimSpace(raw), a.secret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Token invalid")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.UserID)))
	})
}

// rateLimitMiddleware limits requests per remote host.
func rateLimitMiddleware(l *rateLimiter, next http.Handler) http.Handler {
	if !l.enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}
