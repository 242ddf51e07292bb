// Package identity carries the opaque user handle through a request.
//
// Authentication itself happens upstream. A request without a valid handle
// is anonymous and the budget service degrades to defaults for it.
package identity

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const userKey contextKey = "user_id"

// DefaultHeader carries the user handle set by the fronting proxy.
const DefaultHeader = "X-User-ID"

// User is an opaque authenticated-user handle.
type User string

// Anonymous is the empty handle.
const Anonymous User = ""

func (u User) String() string { return string(u) }

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// FromContext extracts the user handle. Anonymous requests report false.
func FromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userKey).(User)
	if !ok || u == Anonymous {
		return Anonymous, false
	}
	return u, true
}

// Parse normalizes a raw handle. Only uuids are accepted.
func Parse(raw string) (User, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Anonymous, false
	}
	return User(id.String()), true
}

// Middleware reads the user handle from header. Missing or malformed values
// leave the request anonymous; nothing is rejected here.
func Middleware(header string) func(http.Handler) http.Handler {
	if header == "" {
		header = DefaultHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(header)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			u, ok := Parse(raw)
			if !ok {
				slog.DebugContext(r.Context(), "Ignoring malformed user header", "header", header)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}
