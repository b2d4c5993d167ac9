package login_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	uierrors "github.com/dalemusser/residencyhub/internal/app/features/errors"
	"github.com/dalemusser/residencyhub/internal/app/features/login"
	loginstore "github.com/dalemusser/residencyhub/internal/app/store/logins"
	userstore "github.com/dalemusser/residencyhub/internal/app/store/users"
	"github.com/dalemusser/residencyhub/internal/app/system/auth"
	"github.com/dalemusser/residencyhub/internal/app/system/ratelimit"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"github.com/dalemusser/residencyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type env struct {
	h  *login.Handler
	fx *testutil.Fixtures
	db *mongo.Database
}

func newTestHandler(t *testing.T, allowTrust bool) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	// Create a session manager for testing (dev mode, insecure cookies allowed)
	sessionMgr, err := auth.NewSessionManager("test-session-key-for-testing-only-32", "test-session", "", time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}

	h := login.NewHandler(
		userstore.New(db),
		loginstore.New(db),
		sessionMgr,
		ratelimit.NewLoginLimiter(100),
		nil,
		uierrors.NewErrorLogger(logger),
		allowTrust,
		false,
		logger,
	)
	return env{h: h, fx: testutil.NewFixtures(t, db), db: db}
}

func post(t *testing.T, h *login.Handler, body any) *testutil.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := testutil.NewRecorder()
	h.HandleLoginPost(rec, req)
	return rec
}

func hasSessionCookie(rec *testutil.ResponseRecorder) bool {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test-session" && c.MaxAge >= 0 {
			return true
		}
	}
	return false
}

func TestHandleLoginPost_PasswordSuccess(t *testing.T) {
	e := newTestHandler(t, false)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := e.fx.CreatePasswordUser(ctx, "Test Admin", "admin@example.com", models.RoleAdmin, "correct horse")

	rec := post(t, e.h, map[string]string{"email": "admin@example.com", "password": "correct horse"})
	rec.AssertStatus(t, http.StatusOK)

	var body struct {
		User auth.SessionUser `json:"user"`
	}
	rec.DecodeJSON(t, &body)
	if body.User.ID != u.ID.Hex() || body.User.Role != models.RoleAdmin {
		t.Errorf("unexpected user %+v", body.User)
	}
	if !hasSessionCookie(rec) {
		t.Error("expected session cookie to be set")
	}

	n, err := e.db.Collection("login_records").CountDocuments(ctx, bson.M{"user_id": u.ID})
	if err != nil {
		t.Fatalf("count login records: %v", err)
	}
	if n != 1 {
		t.Errorf("login records: got %d, want 1", n)
	}
}

func TestHandleLoginPost_CaseInsensitiveEmail(t *testing.T) {
	e := newTestHandler(t, false)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	e.fx.CreatePasswordUser(ctx, "Test Tutor", "tutor@example.com", models.RoleTutor, "long enough")

	rec := post(t, e.h, map[string]string{"email": "  TUTOR@Example.com ", "password": "long enough"})
	rec.AssertStatus(t, http.StatusOK)
}

func TestHandleLoginPost_WrongPassword(t *testing.T) {
	e := newTestHandler(t, false)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	e.fx.CreatePasswordUser(ctx, "Test Admin", "admin@example.com", models.RoleAdmin, "correct horse")

	rec := post(t, e.h, map[string]string{"email": "admin@example.com", "password": "battery staple"})
	rec.AssertStatus(t, http.StatusUnauthorized)
	rec.AssertContains(t, "invalid email or password")
	if hasSessionCookie(rec) {
		t.Error("no session expected after a failed login")
	}
}

func TestHandleLoginPost_NonexistentEmail(t *testing.T) {
	e := newTestHandler(t, false)

	rec := post(t, e.h, map[string]string{"email": "nobody@example.com", "password": "whatever1"})
	rec.AssertStatus(t, http.StatusUnauthorized)
	rec.AssertContains(t, "invalid email or password")
}

func TestHandleLoginPost_BadBody(t *testing.T) {
	e := newTestHandler(t, false)

	tests := []struct {
		name string
		body any
	}{
		{"empty email", map[string]string{"email": "", "password": "x"}},
		{"not an email", map[string]string{"email": "bob", "password": "x"}},
		{"unknown field", map[string]string{"email": "a@b.co", "login_id": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, e.h, tt.body)
			rec.AssertStatus(t, http.StatusBadRequest)
		})
	}
}

func TestHandleLoginPost_DisabledUser(t *testing.T) {
	e := newTestHandler(t, true)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	e.fx.CreateDisabledUser(ctx, "Gone Resident", "gone@example.com")

	rec := post(t, e.h, map[string]string{"email": "gone@example.com"})
	rec.AssertStatus(t, http.StatusForbidden)
	rec.AssertContains(t, "disabled")
}

func TestHandleLoginPost_Trust(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	t.Run("allowed in dev", func(t *testing.T) {
		e := newTestHandler(t, true)
		e.fx.CreateResident(ctx, "Dev Resident", "dev@example.com")
		rec := post(t, e.h, map[string]string{"email": "dev@example.com"})
		rec.AssertStatus(t, http.StatusOK)
		if !hasSessionCookie(rec) {
			t.Error("expected session cookie")
		}
	})

	t.Run("refused otherwise", func(t *testing.T) {
		e := newTestHandler(t, false)
		e.fx.CreateResident(ctx, "Dev Resident", "dev@example.com")
		rec := post(t, e.h, map[string]string{"email": "dev@example.com"})
		rec.AssertStatus(t, http.StatusForbidden)
	})
}

func TestHandleLoginPost_RateLimited(t *testing.T) {
	e := newTestHandler(t, false)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	e.fx.CreatePasswordUser(ctx, "Test Admin", "admin@example.com", models.RoleAdmin, "correct horse")

	// Five attempts per email are allowed; the sixth is refused even with
	// the right password.
	for i := 0; i < 5; i++ {
		rec := post(t, e.h, map[string]string{"email": "admin@example.com", "password": "nope nope"})
		rec.AssertStatus(t, http.StatusUnauthorized)
	}
	rec := post(t, e.h, map[string]string{"email": "admin@example.com", "password": "correct horse"})
	rec.AssertStatus(t, http.StatusTooManyRequests)
}
