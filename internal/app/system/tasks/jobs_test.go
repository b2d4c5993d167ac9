package tasks_test

import (
	"testing"
	"time"

	loginstore "github.com/dalemusser/residencyhub/internal/app/store/logins"
	oncallstore "github.com/dalemusser/residencyhub/internal/app/store/oncall"
	"github.com/dalemusser/residencyhub/internal/app/system/tasks"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"github.com/dalemusser/residencyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestLoginRecordPruneJob(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logins := loginstore.New(db)
	uid := primitive.NewObjectID()
	now := time.Now().UTC()
	for _, at := range []time.Time{now.Add(-48 * time.Hour), now.Add(-time.Hour)} {
		if err := logins.Create(ctx, models.LoginRecord{UserID: uid, Provider: "password", CreatedAt: at}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	job := tasks.LoginRecordPruneJob(logins, zap.NewNop(), "0 4 * * *", 24*time.Hour)
	if job.Name != tasks.LoginRecordPrune || job.Timeout <= 0 {
		t.Fatalf("unexpected job %+v", job)
	}
	if err := job.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	n, err := db.Collection("login_records").CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("remaining records: got %d, want 1", n)
	}
}

func TestOnCallBackfillJob(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := oncallstore.New(db, time.UTC, []string{"Urgencias"}, zap.NewNop())
	if _, err := db.Collection("oncall_days").InsertOne(ctx, bson.M{
		"date":   time.Date(2026, 5, 9, 22, 0, 0, 0, time.UTC),
		"shifts": bson.A{},
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// A nil audit logger is allowed.
	job := tasks.OnCallBackfillJob(store, nil, zap.NewNop(), "30 3 * * *")
	if err := job.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := store.GetDay(ctx, "2026-05-10"); err != nil {
		t.Errorf("expected roster keyed to 2026-05-10: %v", err)
	}
}
