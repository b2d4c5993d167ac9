package tasks_test

import (
	"net/http"
	"testing"
	"time"

	uierrors "github.com/dalemusser/residencyhub/internal/app/features/errors"
	"github.com/dalemusser/residencyhub/internal/app/features/tasks"
	assignmentstore "github.com/dalemusser/residencyhub/internal/app/store/assignments"
	rotationstore "github.com/dalemusser/residencyhub/internal/app/store/rotations"
	taskstore "github.com/dalemusser/residencyhub/internal/app/store/tasks"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"github.com/dalemusser/residencyhub/internal/testutil"
	"go.uber.org/zap"
)

type env struct {
	h  *tasks.Handler
	fx *testutil.Fixtures

	resident models.User
	tutor    models.User
	rotation models.Rotation
	nodes    []models.RotationNode
}

func setup(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	logger := zap.NewNop()
	fx := testutil.NewFixtures(t, db)

	e := env{
		h: tasks.NewHandler(taskstore.New(db, logger), assignmentstore.New(db, logger), rotationstore.New(db),
			time.UTC, nil, uierrors.NewErrorLogger(logger), logger),
		fx:       fx,
		resident: fx.CreateResident(ctx, "Ana Ruiz", "ana@hospital.org"),
		tutor:    fx.CreateTutor(ctx, "Dr. Paz", "paz@hospital.org"),
		rotation: fx.CreateRotation(ctx, "Cardiology"),
	}
	e.nodes = fx.CreateTaskNodes(ctx, e.rotation.ID, 4, "Read ECG", "Echo")
	fx.CreateAssignment(ctx, e.resident.ID, e.rotation.ID, models.AssignmentActive, e.tutor.ID)
	return e
}

func TestHandleCreate(t *testing.T) {
	e := setup(t)

	rec := testutil.NewRecorder()
	e.h.HandleCreate(rec, testutil.NewJSONRequest(t, "POST", "/api/tasks", map[string]any{
		"node_id":      e.nodes[0].ID.Hex(),
		"count":        2,
		"performed_on": "2026-03-02",
		"note":         "night shift",
	}, testutil.AsTestUser(e.resident)))
	rec.AssertStatus(t, http.StatusCreated)

	var got models.TaskDoc
	rec.DecodeJSON(t, &got)
	if got.Count != 2 || got.Status != models.TaskPending || got.RotationID != e.rotation.ID {
		t.Errorf("unexpected task %+v", got)
	}
	if !got.PerformedOn.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("performed_on = %v", got.PerformedOn)
	}
}

func TestHandleCreate_Errors(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	stranger := e.fx.CreateResident(ctx, "Ben Ortiz", "ben@hospital.org")
	future := time.Now().AddDate(0, 0, 5).Format("2006-01-02")

	tests := []struct {
		name string
		user models.User
		body map[string]any
		want int
	}{
		{"unassigned resident", stranger, map[string]any{"node_id": e.nodes[0].ID.Hex()}, http.StatusConflict},
		{"future date", e.resident, map[string]any{"node_id": e.nodes[0].ID.Hex(), "performed_on": future}, http.StatusBadRequest},
		{"too many", e.resident, map[string]any{"node_id": e.nodes[0].ID.Hex(), "count": 500}, http.StatusBadRequest},
		{"unknown node", e.resident, map[string]any{"node_id": "507f1f77bcf86cd799439011"}, http.StatusNotFound},
		{"topic node", e.resident, map[string]any{"node_id": *e.nodes[0].ParentID}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			e.h.HandleCreate(rec, testutil.NewJSONRequest(t, "POST", "/api/tasks", tt.body, testutil.AsTestUser(tt.user)))
			rec.AssertStatus(t, tt.want)
		})
	}
}

func TestHandleReview(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	task := e.fx.CreateTask(ctx, e.resident.ID, e.nodes[0], 3, models.TaskPending)
	other := e.fx.CreateTutor(ctx, "Dr. Sol", "sol@hospital.org")

	review := func(user models.User, body map[string]any) *testutil.ResponseRecorder {
		rec := testutil.NewRecorder()
		req := testutil.NewJSONRequest(t, "POST", "/api/tasks/"+task.ID.Hex()+"/review", body, testutil.AsTestUser(user))
		e.h.HandleReview(rec, testutil.WithChiURLParam(req, "id", task.ID.Hex()))
		return rec
	}

	review(e.tutor, map[string]any{"feedback": "no decision"}).AssertStatus(t, http.StatusBadRequest)
	review(other, map[string]any{"approve": true}).AssertStatus(t, http.StatusForbidden)

	rec := review(e.tutor, map[string]any{"approve": true, "feedback": "well done"})
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"status":"approved"`)

	review(e.tutor, map[string]any{"approve": false}).AssertStatus(t, http.StatusConflict)
}

func TestServeProgress(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e.fx.CreateTask(ctx, e.resident.ID, e.nodes[0], 6, models.TaskApproved)
	e.fx.CreateTask(ctx, e.resident.ID, e.nodes[1], 1, models.TaskApproved)
	e.fx.CreateTask(ctx, e.resident.ID, e.nodes[1], 2, models.TaskPending)

	get := func(user testutil.TestUser) *testutil.ResponseRecorder {
		rec := testutil.NewRecorder()
		req := testutil.NewAuthenticatedRequest("GET", "/api/progress", user)
		req = testutil.WithChiURLParam(req, "residentID", e.resident.ID.Hex())
		req = testutil.WithChiURLParam(req, "rotationID", e.rotation.ID.Hex())
		e.h.ServeProgress(rec, req)
		return rec
	}

	rec := get(testutil.AsTestUser(e.resident))
	rec.AssertStatus(t, http.StatusOK)
	var body struct {
		Progress taskstore.Progress `json:"progress"`
	}
	rec.DecodeJSON(t, &body)
	// 4 of 4 on the first task (capped) plus 1 of 4 on the second.
	if body.Progress.Required != 8 || body.Progress.Completed != 5 || body.Progress.Pending != 2 {
		t.Errorf("unexpected progress %+v", body.Progress)
	}

	get(testutil.AsTestUser(e.tutor)).AssertStatus(t, http.StatusOK)
	get(testutil.AdminUser()).AssertStatus(t, http.StatusOK)
	get(testutil.ResidentUser()).AssertStatus(t, http.StatusForbidden)
	get(testutil.TutorUser()).AssertStatus(t, http.StatusForbidden)
}

func TestServeList_Scoped(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e.fx.CreateTask(ctx, e.resident.ID, e.nodes[0], 1, models.TaskPending)
	e.fx.CreateTask(ctx, e.resident.ID, e.nodes[1], 1, models.TaskApproved)

	tests := []struct {
		name   string
		user   testutil.TestUser
		target string
		want   int
	}{
		{"resident all", testutil.AsTestUser(e.resident), "/api/tasks", 2},
		{"resident pending", testutil.AsTestUser(e.resident), "/api/tasks?status=pending", 1},
		{"tutor", testutil.AsTestUser(e.tutor), "/api/tasks?status=pending", 1},
		{"unrelated tutor", testutil.TutorUser(), "/api/tasks", 0},
		{"admin by resident", testutil.AdminUser(), "/api/tasks?resident=" + e.resident.ID.Hex(), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			e.h.ServeList(rec, testutil.NewAuthenticatedRequest("GET", tt.target, tt.user))
			rec.AssertStatus(t, http.StatusOK)
			var body struct {
				Tasks []models.TaskDoc `json:"tasks"`
			}
			rec.DecodeJSON(t, &body)
			if len(body.Tasks) != tt.want {
				t.Errorf("got %d tasks, want %d", len(body.Tasks), tt.want)
			}
		})
	}
}
