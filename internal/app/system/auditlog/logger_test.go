package auditlog_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/residencyhub/internal/app/store/audit"
	"github.com/dalemusser/residencyhub/internal/app/system/auditlog"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"github.com/dalemusser/residencyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestLogger_NilLogger(t *testing.T) {
	// nil logger should be a no-op (not panic)
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()
	req := httptest.NewRequest("GET", "/", nil)

	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.LoginSuccess(ctx, req, primitive.NewObjectID(), "password", "a@example.com")
	logger.LoginFailedUserNotFound(ctx, req, "a@example.com")
	logger.Logout(ctx, req, primitive.NewObjectID().Hex())
	logger.OnCallBackfill(ctx, nil, nil, 1, 1, 0)
}

func TestLogger_Destinations(t *testing.T) {
	tests := []struct {
		name    string
		setting string
		want    int
	}{
		{"off", auditlog.Off, 0},
		{"log only", auditlog.Log, 0},
		{"db only", auditlog.DB, 1},
		{"all", auditlog.All, 1},
		{"empty means all", "", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			store := audit.New(db)
			ctx, cancel := testutil.TestContext()
			defer cancel()

			logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: tt.setting})
			userID := primitive.NewObjectID()
			logger.LoginSuccess(ctx, httptest.NewRequest("POST", "/login", nil), userID, "password", "a@example.com")

			events, err := store.GetByUser(ctx, userID, 10)
			if err != nil {
				t.Fatalf("GetByUser failed: %v", err)
			}
			if len(events) != tt.want {
				t.Errorf("got %d stored events, want %d", len(events), tt.want)
			}
		})
	}
}

func TestLogger_CategoriesFilteredIndependently(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{
		Auth:     auditlog.Off,
		Admin:    auditlog.DB,
		Workflow: auditlog.DB,
	})
	req := httptest.NewRequest("POST", "/", nil)
	actor := primitive.NewObjectID()
	resident := primitive.NewObjectID()

	logger.LoginSuccess(ctx, req, resident, "password", "r@example.com")
	logger.AssignmentCreated(ctx, req, actor, models.Assignment{
		ID: primitive.NewObjectID(), ResidentID: resident, RotationID: primitive.NewObjectID(), Status: models.AssignmentPlanned,
	})
	finished := primitive.NewObjectID()
	activated := models.Assignment{ID: primitive.NewObjectID(), ResidentID: resident, RotationID: primitive.NewObjectID(), Status: models.AssignmentActive}
	logger.AssignmentTransferred(ctx, req, actor, resident, &finished, activated)

	events, err := store.GetByUser(ctx, resident, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (auth disabled)", len(events))
	}
	transfer := events[0]
	if transfer.EventType != audit.EventAssignmentTransferred || transfer.Category != audit.CategoryWorkflow {
		t.Errorf("unexpected newest event %+v", transfer)
	}
	if transfer.SubjectID == nil || *transfer.SubjectID != activated.ID {
		t.Error("expected SubjectID to be the activated assignment")
	}
	if transfer.Details["finished_assignment_id"] != finished.Hex() {
		t.Errorf("finished_assignment_id = %q", transfer.Details["finished_assignment_id"])
	}
}

func TestLogger_PetitionResolvedEventType(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{})
	actor := primitive.NewObjectID()

	for status, want := range map[string]string{
		models.PetitionApproved:  audit.EventPetitionApproved,
		models.PetitionDenied:    audit.EventPetitionDenied,
		models.PetitionCancelled: audit.EventPetitionCancelled,
	} {
		p := models.RotationPetition{ID: primitive.NewObjectID(), ResidentID: primitive.NewObjectID(), Status: status, Type: models.PetitionFinish}
		logger.PetitionResolved(ctx, nil, actor, p)
		events, err := store.GetBySubject(ctx, p.ID, 1)
		if err != nil {
			t.Fatalf("GetBySubject failed: %v", err)
		}
		if len(events) != 1 || events[0].EventType != want {
			t.Errorf("status %s: got %+v, want %s", status, events, want)
		}
	}
}

func TestLogger_ClientIP(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: auditlog.DB})
	userID := primitive.NewObjectID()

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.195, 10.0.0.1")
	req.Header.Set("X-Real-IP", "192.168.1.1")
	req.RemoteAddr = "127.0.0.1:12345"

	logger.LoginSuccess(ctx, req, userID, "password", "a@example.com")

	events, _ := store.GetByUser(ctx, userID, 10)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].IP != "203.0.113.195" {
		t.Errorf("IP: got %q, want %q", events[0].IP, "203.0.113.195")
	}
}
