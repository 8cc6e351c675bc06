// internal/auth/auth.go
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"basin-gateway/internal/config"
)

var (
	// ErrBadRequest marks a login attempt with an empty field.
	ErrBadRequest = errors.New("missing credentials")
	// ErrInvalidCredentials is returned for both unknown users and
	// wrong passwords, leaking nothing about which was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// RoleAdmin is the role required by all mutating endpoints.
const RoleAdmin = "admin"

// Identity is the resolved user behind a session token.
type Identity struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type contextKey string

const identityKey contextKey = "identity"

// Manager maps opaque session tokens to identities. Sessions live only
// in process memory: restart or logout removes them.
type Manager struct {
	mu         sync.RWMutex
	users      []config.User
	sessions   map[string]Identity
	cookieName string
}

func NewManager(users []config.User, cookieName string) *Manager {
	return &Manager{
		users:      users,
		sessions:   make(map[string]Identity),
		cookieName: cookieName,
	}
}

// Login validates credentials against the configured registry and, on
// success, establishes a session bound to a fresh opaque token. The
// bcrypt comparison is constant-time; an unknown user still burns one
// comparison so both failure paths cost the same.
func (m *Manager) Login(username, password string) (string, Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", Identity{}, ErrBadRequest
	}

	var matched *config.User
	for i := range m.users {
		if strings.EqualFold(m.users[i].Username, username) {
			matched = &m.users[i]
			break
		}
	}
	if matched == nil {
		bcrypt.CompareHashAndPassword([]byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5B1aGFkOQW0J9mLOKxkbq4t8S7O3W"), []byte(password))
		return "", Identity{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(matched.PasswordHash), []byte(password)); err != nil {
		return "", Identity{}, ErrInvalidCredentials
	}

	identity := Identity{Username: matched.Username, Role: matched.Role}
	token := uuid.NewString()

	m.mu.Lock()
	m.sessions[token] = identity
	m.mu.Unlock()

	return token, identity, nil
}

// Logout destroys the session unconditionally; unknown tokens are a
// no-op.
func (m *Manager) Logout(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

// CurrentUser resolves a token. ok is false for the implicit visitor
// identity (absent or unknown token).
func (m *Manager) CurrentUser(token string) (Identity, bool) {
	m.mu.RLock()
	identity, ok := m.sessions[token]
	m.mu.RUnlock()
	return identity, ok
}

// HashPassword creates a bcrypt hash for the user registry.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CookieName returns the configured session cookie name.
func (m *Manager) CookieName() string { return m.cookieName }

// SetCookie attaches the session token to the response.
func (m *Manager) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// TokenFromRequest extracts the session token, empty when no cookie is
// present.
func (m *Manager) TokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// IdentityFromRequest resolves the request's session, ok false for
// visitors.
func (m *Manager) IdentityFromRequest(r *http.Request) (Identity, bool) {
	return m.CurrentUser(m.TokenFromRequest(r))
}

// RequireAdmin gates mutating handlers. It fails closed before the
// wrapped handler can touch any state.
func (m *Manager) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := m.IdentityFromRequest(r)
		if !ok || identity.Role != RoleAdmin {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Unauthorized"}`))
			return
		}
		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// IdentityFromContext returns the identity stored by RequireAdmin.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}
