package auth

import (
	"crypto/sha256"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

// SessionName is the name of the login session cookie.
const SessionName = "dealership-session"

// Session value keys.
const (
	SessionKeyUserID   = "user_id"
	SessionKeyUsername = "username"
)

// SessionUser is the identity carried by an authenticated session.
type SessionUser struct {
	ID       uuid.UUID
	Username string
}

// SessionManager establishes, reads and ends login sessions stored in a
// signed cookie.
type SessionManager struct {
	store *sessions.CookieStore
}

// NewSessionManager creates a cookie-backed session manager.
//
// The secret can be any passphrase; it is SHA-256 hashed to derive a 32-byte
// signing key. It must be the same across restarts and across replicas,
// otherwise existing sessions stop validating.
//
// Cookie settings:
// - HttpOnly: true (inaccessible to JavaScript)
// - Secure: configurable (HTTPS-only in production)
// - SameSite: Lax (the React frontend is served from the same site)
func NewSessionManager(secret string, maxAge time.Duration, secure bool) *SessionManager {
	key := sha256.Sum256([]byte(secret))

	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(store.Options.MaxAge)

	return &SessionManager{store: store}
}

// Login binds user to the request's session and writes the cookie.
func (m *SessionManager) Login(w http.ResponseWriter, r *http.Request, user SessionUser) error {
	// An undecodable cookie still yields a fresh session, which is what we want to overwrite.
	session, _ := m.store.Get(r, SessionName)

	session.Values[SessionKeyUserID] = user.ID.String()
	session.Values[SessionKeyUsername] = user.Username

	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Logout ends the session by expiring the cookie. Ending a session that
// does not exist is not an error.
func (m *SessionManager) Logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := m.store.Get(r, SessionName)

	delete(session.Values, SessionKeyUserID)
	delete(session.Values, SessionKeyUsername)
	session.Options.MaxAge = -1

	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// CurrentUser returns the user bound to the request's session, if any.
// Tampered or expired cookies read as anonymous.
func (m *SessionManager) CurrentUser(r *http.Request) (*SessionUser, bool) {
	session, err := m.store.Get(r, SessionName)
	if err != nil || session.IsNew {
		return nil, false
	}

	idStr, ok := session.Values[SessionKeyUserID].(string)
	if !ok {
		return nil, false
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, false
	}

	username, ok := session.Values[SessionKeyUsername].(string)
	if !ok || username == "" {
		return nil, false
	}

	return &SessionUser{ID: id, Username: username}, true
}
