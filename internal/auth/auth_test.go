package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basin-gateway/internal/config"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	hash, err := HashPassword("tide-pool-7")
	require.NoError(t, err)
	return NewManager([]config.User{
		{Username: "admin", PasswordHash: hash, Role: RoleAdmin},
	}, "basin_session")
}

func TestLoginSuccess(t *testing.T) {
	m := newTestManager(t)

	token, identity, err := m.Login("admin", "tide-pool-7")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "admin", identity.Username)
	assert.Equal(t, RoleAdmin, identity.Role)

	resolved, ok := m.CurrentUser(token)
	assert.True(t, ok)
	assert.Equal(t, identity, resolved)
}

func TestLoginIsCaseInsensitiveOnUsername(t *testing.T) {
	m := newTestManager(t)
	_, identity, err := m.Login("ADMIN", "tide-pool-7")
	require.NoError(t, err)
	assert.Equal(t, "admin", identity.Username)
}

func TestLoginEmptyFieldsAreBadRequest(t *testing.T) {
	m := newTestManager(t)

	_, _, err := m.Login("", "tide-pool-7")
	assert.True(t, errors.Is(err, ErrBadRequest))

	_, _, err = m.Login("admin", "")
	assert.True(t, errors.Is(err, ErrBadRequest))
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	m := newTestManager(t)

	_, _, unknownUser := m.Login("nobody", "tide-pool-7")
	_, _, wrongPassword := m.Login("admin", "wrong")

	assert.True(t, errors.Is(unknownUser, ErrInvalidCredentials))
	assert.True(t, errors.Is(wrongPassword, ErrInvalidCredentials))
	assert.Equal(t, unknownUser.Error(), wrongPassword.Error())
}

func TestLogoutIsIdempotent(t *testing.T) {
	m := newTestManager(t)
	token, _, err := m.Login("admin", "tide-pool-7")
	require.NoError(t, err)

	m.Logout(token)
	_, ok := m.CurrentUser(token)
	assert.False(t, ok)

	m.Logout(token) // second logout is a no-op
	m.Logout("never-issued")
}

func TestCurrentUserUnknownTokenIsVisitor(t *testing.T) {
	m := newTestManager(t)
	_, ok := m.CurrentUser("not-a-session")
	assert.False(t, ok)
}

func TestSessionCookieFlags(t *testing.T) {
	m := newTestManager(t)
	rec := httptest.NewRecorder()
	m.SetCookie(rec, "token-123")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, "basin_session", cookie.Name)
	assert.Equal(t, "token-123", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
}

func TestRequireAdminFailsClosed(t *testing.T) {
	m := newTestManager(t)

	touched := false
	handler := m.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
		touched = true
	})

	// No session at all.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, touched, "handler must not run without a session")
	assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())

	// Valid admin session passes through.
	token, _, err := m.Login("admin", "tide-pool-7")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(&http.Cookie{Name: "basin_session", Value: token})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.True(t, touched)
}

func TestRequireAdminRejectsNonAdminRole(t *testing.T) {
	hash, err := HashPassword("pw")
	require.NoError(t, err)
	m := NewManager([]config.User{{Username: "viewer", PasswordHash: hash, Role: "viewer"}}, "basin_session")

	token, _, err := m.Login("viewer", "pw")
	require.NoError(t, err)

	handler := m.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for non-admin roles")
	})
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(&http.Cookie{Name: "basin_session", Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
