package auth

import (
	"net/http"

	"go.uber.org/zap"
)

// Middleware attaches the session user, if any, to each request context.
// It never rejects a request; handlers decide what anonymous callers may do.
type Middleware struct {
	sessions *SessionManager
	logger   *zap.Logger
}

// NewMiddleware creates a new session middleware.
func NewMiddleware(sessions *SessionManager, logger *zap.Logger) *Middleware {
	return &Middleware{
		sessions: sessions,
		logger:   logger.Named("auth"),
	}
}

// LoadUser reads the session cookie and stores the user in the request context.
func (m *Middleware) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := m.sessions.CurrentUser(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		m.logger.Debug("Session user attached",
			zap.String("username", user.Username),
			zap.String("path", r.URL.Path))

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}
