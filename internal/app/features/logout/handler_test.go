package logout_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/residencyhub/internal/app/features/logout"
	"github.com/dalemusser/residencyhub/internal/app/system/auth"
	"github.com/dalemusser/residencyhub/internal/testutil"
	"go.uber.org/zap"
)

func newSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager("test-session-key-for-testing-only-32", "test-session", "", 24*time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	return sm
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test-session" {
			return c
		}
	}
	return nil
}

func TestServeLogout_ClearsSessionCookie(t *testing.T) {
	// Pass nil for audit logger in tests (auditlog.Logger is nil-safe)
	handler := logout.NewHandler(newSessionManager(t), nil, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.ServeLogout(rec, httptest.NewRequest("POST", "/logout", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	c := sessionCookie(t, rec)
	if c == nil {
		t.Fatal("expected session cookie to be set for deletion")
	}
	if c.MaxAge >= 0 {
		t.Errorf("cookie MaxAge: got %d, want negative (delete)", c.MaxAge)
	}
}

func TestServeLogout_WithExistingSession(t *testing.T) {
	sm := newSessionManager(t)
	handler := logout.NewHandler(sm, nil, zap.NewNop())

	rec1 := httptest.NewRecorder()
	if err := sm.Login(rec1, httptest.NewRequest("POST", "/login", nil), "507f1f77bcf86cd799439011", "password"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	req := testutil.WithUser(httptest.NewRequest("POST", "/logout", nil), testutil.ResidentUser())
	for _, c := range rec1.Result().Cookies() {
		req.AddCookie(c)
	}
	rec2 := httptest.NewRecorder()
	handler.ServeLogout(rec2, req)

	if rec2.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec2.Code)
	}
	if c := sessionCookie(t, rec2); c == nil || c.MaxAge >= 0 {
		t.Errorf("expected deletion cookie, got %+v", c)
	}
}
