package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/residencyhub/internal/app/system/auth"
	"go.uber.org/zap"
)

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(
		"test-session-key-must-be-32-chars-long",
		"test-session",
		"",
		24*time.Hour,
		false,
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

type stubFetcher map[string]*auth.SessionUser

func (f stubFetcher) FetchUser(_ context.Context, id string) *auth.SessionUser {
	return f[id]
}

func TestNewSessionManager_EmptyKey(t *testing.T) {
	if _, err := auth.NewSessionManager("", "", "", time.Hour, false, zap.NewNop()); err == nil {
		t.Error("expected error for empty session key")
	}
}

func TestRequireSignedIn_NoUser_Returns401(t *testing.T) {
	sm := newTestSessionManager(t)
	rec := httptest.NewRecorder()

	sm.RequireSignedIn(okHandler).ServeHTTP(rec, httptest.NewRequest("GET", "/api/me", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON error body, got content type %q", ct)
	}
}

func TestRequireRole(t *testing.T) {
	sm := newTestSessionManager(t)

	tests := []struct {
		name    string
		role    string // "" means signed out
		allowed []string
		want    int
	}{
		{"signed out", "", []string{"admin"}, http.StatusUnauthorized},
		{"wrong role", "resident", []string{"admin"}, http.StatusForbidden},
		{"correct role", "admin", []string{"admin"}, http.StatusOK},
		{"one of many", "tutor", []string{"admin", "tutor"}, http.StatusOK},
		{"case insensitive", "ADMIN", []string{" admin "}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/users", nil)
			if tt.role != "" {
				req = withTestUser(req, tt.role)
			}
			rec := httptest.NewRecorder()
			sm.RequireRole(tt.allowed...)(okHandler).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestLoginThenLoadSessionUser(t *testing.T) {
	sm := newTestSessionManager(t)
	user := &auth.SessionUser{ID: "507f1f77bcf86cd799439011", Name: "Ana Ruiz", Role: "resident"}
	sm.SetFetcher(stubFetcher{user.ID: user})

	// Sign in and capture the cookie.
	loginRec := httptest.NewRecorder()
	if err := sm.Login(loginRec, httptest.NewRequest("POST", "/login", nil), user.ID, "password"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	cookies := loginRec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie")
	}

	var got *auth.SessionUser
	h := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
	}))

	req := httptest.NewRequest("GET", "/api/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil || got.Name != "Ana Ruiz" {
		t.Fatalf("expected session user loaded, got %+v", got)
	}
}

func TestLoadSessionUser_DisabledUserDropped(t *testing.T) {
	sm := newTestSessionManager(t)
	sm.SetFetcher(stubFetcher{}) // user no longer available

	loginRec := httptest.NewRecorder()
	_ = sm.Login(loginRec, httptest.NewRequest("POST", "/login", nil), "507f1f77bcf86cd799439011", "password")

	var found bool
	h := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, found = auth.CurrentUser(r)
	}))

	req := httptest.NewRequest("GET", "/api/me", nil)
	for _, c := range loginRec.Result().Cookies() {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if found {
		t.Error("expected no user for a disabled account")
	}
	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test-session" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("expected session cookie to be cleared")
	}
}

func TestCurrentUser(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if u, ok := auth.CurrentUser(req); ok || u != nil {
		t.Error("expected no user in a fresh request")
	}

	req = withTestUser(req, "admin")
	u, ok := auth.CurrentUser(req)
	if !ok || u.Role != "admin" {
		t.Errorf("expected admin user, got %+v", u)
	}
}

func withTestUser(r *http.Request, role string) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:    "507f1f77bcf86cd799439011",
		Name:  "Test User",
		Email: "test@example.com",
		Role:  role,
	})
}
