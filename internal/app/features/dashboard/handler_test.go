package dashboard_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/residencyhub/internal/app/features/dashboard"
	uierrors "github.com/dalemusser/residencyhub/internal/app/features/errors"
	meetingstore "github.com/dalemusser/residencyhub/internal/app/store/meetings"
	oncallstore "github.com/dalemusser/residencyhub/internal/app/store/oncall"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"github.com/dalemusser/residencyhub/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*dashboard.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	h := dashboard.NewHandler(db,
		oncallstore.New(db, time.UTC, []string{"UCI", "Planta"}, logger),
		meetingstore.New(db, time.UTC, logger),
		uierrors.NewErrorLogger(logger), logger)
	return h, testutil.NewFixtures(t, db)
}

func TestServeDashboard_Unauthenticated(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeDashboard(rec, httptest.NewRequest("GET", "/api/dashboard", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rec.Code)
	}
}

func TestServeDashboard_Resident(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ana := fx.CreateResident(ctx, "Ana Ruiz", "ana@hospital.org")
	paz := fx.CreateTutor(ctx, "Dr. Paz", "paz@hospital.org")
	rot := fx.CreateRotation(ctx, "Cardiology")
	nodes := fx.CreateTaskNodes(ctx, rot.ID, 2, "Read ECG", "Echo")
	fx.CreateAssignment(ctx, ana.ID, rot.ID, models.AssignmentActive, paz.ID)
	fx.CreateTask(ctx, ana.ID, nodes[0], 2, models.TaskApproved)
	fx.CreateTask(ctx, ana.ID, nodes[1], 1, models.TaskPending)
	fx.CreatePetition(ctx, ana.ID, rot.ID, models.PetitionFinish)

	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")
	fx.CreateOnCallDay(ctx, tomorrow, models.OnCallShift{Station: "UCI", ResidentID: &ana.ID, ResidentName: ana.FullName})
	fx.CreateMeeting(ctx, time.Now().UTC().Format("2006-01")+"-01", "Sepsis update", 1)

	rec := testutil.NewRecorder()
	h.ServeDashboard(rec, testutil.NewAuthenticatedRequest("GET", "/api/dashboard", testutil.AsTestUser(ana)))
	rec.AssertStatus(t, http.StatusOK)

	var got struct {
		Role    string `json:"role"`
		Current *struct {
			Rotation models.Rotation `json:"rotation"`
			Tutors   []string        `json:"tutors"`
			Percent  int             `json:"percent"`
		} `json:"current"`
		PendingTasks  []models.TaskDoc          `json:"pending_tasks"`
		OpenPetitions []models.RotationPetition `json:"open_petitions"`
		OnCall        []models.OnCallDay        `json:"on_call"`
		Meetings      []models.MorningMeeting   `json:"meetings"`
	}
	rec.DecodeJSON(t, &got)

	if got.Role != models.RoleResident || got.Current == nil {
		t.Fatalf("got role %q current %v", got.Role, got.Current)
	}
	if got.Current.Rotation.Name != "Cardiology" || len(got.Current.Tutors) != 1 || got.Current.Tutors[0] != "Dr. Paz" {
		t.Errorf("current = %+v", got.Current)
	}
	if got.Current.Percent != 50 {
		t.Errorf("percent = %d, want 50", got.Current.Percent)
	}
	if len(got.PendingTasks) != 1 || len(got.OpenPetitions) != 1 {
		t.Errorf("pending tasks %d, open petitions %d", len(got.PendingTasks), len(got.OpenPetitions))
	}
	if len(got.OnCall) != 1 || got.OnCall[0].DateKey != tomorrow {
		t.Errorf("on call = %+v", got.OnCall)
	}
	if len(got.Meetings) != 1 {
		t.Errorf("meetings = %+v", got.Meetings)
	}
}

func TestServeDashboard_ResidentWithoutAssignment(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	ben := fx.CreateResident(ctx, "Ben Ortiz", "ben@hospital.org")

	rec := testutil.NewRecorder()
	h.ServeDashboard(rec, testutil.NewAuthenticatedRequest("GET", "/api/dashboard", testutil.AsTestUser(ben)))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"current":null`)
}

func TestServeDashboard_Tutor(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ana := fx.CreateResident(ctx, "Ana Ruiz", "ana@hospital.org")
	ben := fx.CreateResident(ctx, "Ben Ortiz", "ben@hospital.org")
	paz := fx.CreateTutor(ctx, "Dr. Paz", "paz@hospital.org")
	rot := fx.CreateRotation(ctx, "Cardiology")
	nodes := fx.CreateTaskNodes(ctx, rot.ID, 1, "Read ECG")
	fx.CreateAssignment(ctx, ana.ID, rot.ID, models.AssignmentActive, paz.ID)
	fx.CreateAssignment(ctx, ben.ID, rot.ID, models.AssignmentActive)
	fx.CreateTask(ctx, ana.ID, nodes[0], 1, models.TaskPending)
	fx.CreateTask(ctx, ben.ID, nodes[0], 1, models.TaskPending)
	fx.CreatePetition(ctx, ana.ID, rot.ID, models.PetitionFinish)

	rec := testutil.NewRecorder()
	h.ServeDashboard(rec, testutil.NewAuthenticatedRequest("GET", "/api/dashboard", testutil.AsTestUser(paz)))
	rec.AssertStatus(t, http.StatusOK)

	var got struct {
		Role      string `json:"role"`
		Residents []struct {
			ResidentName string `json:"resident_name"`
			RotationName string `json:"rotation_name"`
		} `json:"residents"`
		PendingTasks     []models.TaskDoc          `json:"pending_tasks"`
		PendingPetitions []models.RotationPetition `json:"pending_petitions"`
	}
	rec.DecodeJSON(t, &got)

	if got.Role != models.RoleTutor || len(got.Residents) != 1 || got.Residents[0].ResidentName != "Ana Ruiz" {
		t.Fatalf("residents = %+v", got.Residents)
	}
	if got.Residents[0].RotationName != "Cardiology" {
		t.Errorf("rotation name = %q", got.Residents[0].RotationName)
	}
	if len(got.PendingTasks) != 1 || got.PendingTasks[0].ResidentID != ana.ID {
		t.Errorf("pending tasks = %+v", got.PendingTasks)
	}
	if len(got.PendingPetitions) != 1 {
		t.Errorf("pending petitions = %+v", got.PendingPetitions)
	}
}

func TestServeDashboard_Admin(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ana := fx.CreateResident(ctx, "Ana Ruiz", "ana@hospital.org")
	fx.CreateResident(ctx, "Ben Ortiz", "ben@hospital.org")
	rot := fx.CreateRotation(ctx, "Cardiology")
	fx.CreateAssignment(ctx, ana.ID, rot.ID, models.AssignmentActive)

	rec := testutil.NewRecorder()
	h.ServeDashboard(rec, testutil.NewAuthenticatedRequest("GET", "/api/dashboard", testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusOK)

	var got struct {
		Role   string `json:"role"`
		Counts struct {
			ActiveByRotation []struct {
				Name   string `json:"name"`
				Active int64  `json:"active"`
			} `json:"active_by_rotation"`
			ResidentsWithoutActive int64 `json:"residents_without_active"`
		} `json:"counts"`
	}
	rec.DecodeJSON(t, &got)
	if got.Role != models.RoleAdmin {
		t.Errorf("role = %q", got.Role)
	}
	if len(got.Counts.ActiveByRotation) != 1 || got.Counts.ActiveByRotation[0].Name != "Cardiology" || got.Counts.ActiveByRotation[0].Active != 1 {
		t.Errorf("active by rotation = %+v", got.Counts.ActiveByRotation)
	}
	if got.Counts.ResidentsWithoutActive != 1 {
		t.Errorf("residents without active = %d, want 1", got.Counts.ResidentsWithoutActive)
	}
}
