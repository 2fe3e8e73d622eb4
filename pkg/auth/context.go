// Package auth provides session-based authentication for the dealership API:
// a cookie session manager, password hashing, and context helpers for the
// user attached to a request by the session middleware.
//
// Example usage in a handler:
//
//	user, ok := auth.UserFromContext(r.Context())
//	if !ok {
//	    // anonymous caller
//	}
package auth

import (
	"context"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// UserKey is the context key for the session user.
const UserKey contextKey = "session_user"

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *SessionUser) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// UserFromContext returns the session user attached to ctx.
// Returns false for anonymous requests.
func UserFromContext(ctx context.Context) (*SessionUser, bool) {
	user, ok := ctx.Value(UserKey).(*SessionUser)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}

// IsAuthenticated reports whether ctx carries a session user.
func IsAuthenticated(ctx context.Context) bool {
	_, ok := UserFromContext(ctx)
	return ok
}
