package userinfo_test

import (
	"net/http"
	"testing"

	uierrors "github.com/dalemusser/residencyhub/internal/app/features/errors"
	"github.com/dalemusser/residencyhub/internal/app/features/userinfo"
	userstore "github.com/dalemusser/residencyhub/internal/app/store/users"
	"github.com/dalemusser/residencyhub/internal/testutil"
	"go.uber.org/zap"
)

type meBody struct {
	IsAuthenticated bool `json:"is_authenticated"`
	User            *struct {
		ID        string `json:"id"`
		FullName  string `json:"full_name"`
		Email     string `json:"email"`
		Role      string `json:"role"`
		StudyYear int    `json:"study_year"`
	} `json:"user"`
}

func newTestHandler(t *testing.T) (*userinfo.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	h := userinfo.NewHandler(userstore.New(db), uierrors.NewErrorLogger(logger), logger)
	return h, testutil.NewFixtures(t, db)
}

func TestServeMe_Unauthenticated(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := testutil.NewRecorder()
	h.ServeMe(rec, testutil.NewRequest("GET", "/api/me"))

	rec.AssertStatus(t, http.StatusOK)
	var body meBody
	rec.DecodeJSON(t, &body)
	if body.IsAuthenticated || body.User != nil {
		t.Errorf("expected anonymous response, got %+v", body)
	}
}

func TestServeMe_Resident(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	res := fx.CreateResident(ctx, "Ana Ruiz", "ana@example.com")

	rec := testutil.NewRecorder()
	h.ServeMe(rec, testutil.NewAuthenticatedRequest("GET", "/api/me", testutil.AsTestUser(res)))

	rec.AssertStatus(t, http.StatusOK)
	var body meBody
	rec.DecodeJSON(t, &body)
	if !body.IsAuthenticated || body.User == nil {
		t.Fatalf("expected authenticated response, got %+v", body)
	}
	if body.User.ID != res.ID.Hex() || body.User.Role != "resident" || body.User.StudyYear != 1 {
		t.Errorf("unexpected user %+v", body.User)
	}
}

func TestServeMe_DeletedUser(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := testutil.NewRecorder()
	h.ServeMe(rec, testutil.NewAuthenticatedRequest("GET", "/api/me", testutil.TutorUser()))

	rec.AssertStatus(t, http.StatusOK)
	var body meBody
	rec.DecodeJSON(t, &body)
	if body.IsAuthenticated {
		t.Error("a user missing from the database should read as signed out")
	}
}
