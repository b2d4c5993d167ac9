package petitions_test

import (
	"net/http"
	"testing"

	uierrors "github.com/dalemusser/residencyhub/internal/app/features/errors"
	"github.com/dalemusser/residencyhub/internal/app/features/petitions"
	assignmentstore "github.com/dalemusser/residencyhub/internal/app/store/assignments"
	petitionstore "github.com/dalemusser/residencyhub/internal/app/store/petitions"
	"github.com/dalemusser/residencyhub/internal/app/system/indexes"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"github.com/dalemusser/residencyhub/internal/testutil"
	"go.uber.org/zap"
)

type env struct {
	h           *petitions.Handler
	fx          *testutil.Fixtures
	assignments *assignmentstore.Store

	resident models.User
	tutor    models.User
	rotation models.Rotation
}

func setup(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	logger := zap.NewNop()
	fx := testutil.NewFixtures(t, db)
	e := env{
		h:           petitions.NewHandler(petitionstore.New(db, logger), nil, uierrors.NewErrorLogger(logger), logger),
		fx:          fx,
		assignments: assignmentstore.New(db, logger),
		resident:    fx.CreateResident(ctx, "Ana Ruiz", "ana@hospital.org"),
		tutor:       fx.CreateTutor(ctx, "Dr. Paz", "paz@hospital.org"),
		rotation:    fx.CreateRotation(ctx, "Cardiology"),
	}
	return e
}

func (e env) file(t *testing.T, typ string) *testutil.ResponseRecorder {
	t.Helper()
	rec := testutil.NewRecorder()
	e.h.HandleCreate(rec, testutil.NewJSONRequest(t, "POST", "/api/petitions", map[string]any{
		"rotation_id": e.rotation.ID.Hex(),
		"type":        typ,
		"reason":      "ready to start",
	}, testutil.AsTestUser(e.resident)))
	return rec
}

func (e env) resolve(t *testing.T, action, id string, user testutil.TestUser) *testutil.ResponseRecorder {
	t.Helper()
	rec := testutil.NewRecorder()
	req := testutil.WithChiURLParam(testutil.NewJSONRequest(t, "POST", "/api/petitions/"+id+"/"+action, nil, user), "id", id)
	switch action {
	case "approve":
		e.h.HandleApprove(rec, req)
	case "deny":
		e.h.HandleDeny(rec, req)
	case "cancel":
		e.h.HandleCancel(rec, req)
	}
	return rec
}

func TestHandleCreate(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e.fx.CreateAssignment(ctx, e.resident.ID, e.rotation.ID, models.AssignmentPlanned, e.tutor.ID)

	rec := e.file(t, models.PetitionActivate)
	rec.AssertStatus(t, http.StatusCreated)

	var p models.RotationPetition
	rec.DecodeJSON(t, &p)
	if p.ResidentID != e.resident.ID || p.Status != models.PetitionPending {
		t.Errorf("unexpected petition %+v", p)
	}

	e.file(t, models.PetitionActivate).AssertStatus(t, http.StatusConflict)
	e.file(t, models.PetitionFinish).AssertStatus(t, http.StatusConflict)
	e.file(t, "pause").AssertStatus(t, http.StatusBadRequest)
}

func TestHandleApprove_SupervisingTutor(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e.fx.CreateAssignment(ctx, e.resident.ID, e.rotation.ID, models.AssignmentPlanned, e.tutor.ID)
	p := e.fx.CreatePetition(ctx, e.resident.ID, e.rotation.ID, models.PetitionActivate)

	other := e.fx.CreateTutor(ctx, "Dr. Sol", "sol@hospital.org")
	e.resolve(t, "approve", p.ID.Hex(), testutil.AsTestUser(other)).AssertStatus(t, http.StatusForbidden)

	rec := e.resolve(t, "approve", p.ID.Hex(), testutil.AsTestUser(e.tutor))
	rec.AssertStatus(t, http.StatusOK)

	active, err := e.assignments.ActiveForResident(ctx, e.resident.ID)
	if err != nil || active == nil || active.RotationID != e.rotation.ID {
		t.Fatalf("active = %+v, %v", active, err)
	}

	e.resolve(t, "approve", p.ID.Hex(), testutil.AsTestUser(e.tutor)).AssertStatus(t, http.StatusConflict)
}

func TestHandleApprove_Finish(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	a := e.fx.CreateAssignment(ctx, e.resident.ID, e.rotation.ID, models.AssignmentActive, e.tutor.ID)
	p := e.fx.CreatePetition(ctx, e.resident.ID, e.rotation.ID, models.PetitionFinish)

	e.resolve(t, "approve", p.ID.Hex(), testutil.AdminUser()).AssertStatus(t, http.StatusOK)

	got, err := e.assignments.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != models.AssignmentFinished {
		t.Errorf("status = %q, want finished", got.Status)
	}
}

func TestHandleDenyAndCancel(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e.fx.CreateAssignment(ctx, e.resident.ID, e.rotation.ID, models.AssignmentPlanned, e.tutor.ID)
	denied := e.fx.CreatePetition(ctx, e.resident.ID, e.rotation.ID, models.PetitionActivate)

	rec := e.resolve(t, "deny", denied.ID.Hex(), testutil.AdminUser())
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"status":"denied"`)

	mine := e.fx.CreatePetition(ctx, e.resident.ID, e.rotation.ID, models.PetitionActivate)
	stranger := e.fx.CreateResident(ctx, "Ben Ortiz", "ben@hospital.org")
	e.resolve(t, "cancel", mine.ID.Hex(), testutil.AsTestUser(stranger)).AssertStatus(t, http.StatusForbidden)
	e.resolve(t, "cancel", mine.ID.Hex(), testutil.AsTestUser(e.resident)).AssertStatus(t, http.StatusOK)
	e.resolve(t, "cancel", mine.ID.Hex(), testutil.AsTestUser(e.resident)).AssertStatus(t, http.StatusConflict)
}

func TestServeList_Scoped(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	other := e.fx.CreateResident(ctx, "Ben Ortiz", "ben@hospital.org")
	e.fx.CreateAssignment(ctx, e.resident.ID, e.rotation.ID, models.AssignmentPlanned, e.tutor.ID)
	e.fx.CreatePetition(ctx, e.resident.ID, e.rotation.ID, models.PetitionActivate)
	e.fx.CreatePetition(ctx, other.ID, e.rotation.ID, models.PetitionActivate)

	tests := []struct {
		name string
		user testutil.TestUser
		want int
	}{
		{"admin", testutil.AdminUser(), 2},
		{"resident", testutil.AsTestUser(other), 1},
		{"tutor", testutil.AsTestUser(e.tutor), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			e.h.ServeList(rec, testutil.NewAuthenticatedRequest("GET", "/api/petitions?status=pending", tt.user))
			rec.AssertStatus(t, http.StatusOK)
			var body struct {
				Petitions []models.RotationPetition `json:"petitions"`
			}
			rec.DecodeJSON(t, &body)
			if len(body.Petitions) != tt.want {
				t.Errorf("got %d petitions, want %d", len(body.Petitions), tt.want)
			}
		})
	}
}
