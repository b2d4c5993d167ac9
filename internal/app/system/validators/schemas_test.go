package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/residencyhub/internal/app/system/validators"
	"github.com/dalemusser/residencyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("first EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	have := make(map[string]bool)
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{
		"users", "rotations", "rotation_nodes", "assignments", "rotation_petitions",
		"tasks", "morning_meetings", "oncall_days", "audit_events", "login_records",
	} {
		if !have[want] {
			t.Errorf("expected collection %q to exist", want)
		}
	}
}

func TestSchemas_RejectInvalidDocuments(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	tests := []struct {
		name string
		coll string
		doc  bson.M
	}{
		{"user missing fields", "users", bson.M{"full_name": "X"}},
		{"user bad role", "users", bson.M{"full_name": "X", "email": "x@example.com", "role": "intern", "status": "active", "auth_method": "password"}},
		{"rotation blank name", "rotations", bson.M{"name": "  ", "name_ci": "x", "status": "active"}},
		{"assignment bad status", "assignments", bson.M{"resident_id": primitive.NewObjectID(), "rotation_id": primitive.NewObjectID(), "status": "paused"}},
		{"task zero count", "tasks", bson.M{"resident_id": primitive.NewObjectID(), "rotation_id": primitive.NewObjectID(), "node_id": primitive.NewObjectID(), "count": 0, "status": "pending"}},
		{"meeting bad month key", "morning_meetings", bson.M{"date": time.Now(), "date_key": "2024-03-01", "month_key": "March", "title": "Grand rounds"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := db.Collection(tt.coll).InsertOne(ctx, tt.doc); err == nil {
				t.Errorf("expected %s insert to be rejected", tt.coll)
			}
		})
	}
}

func TestSchemas_AcceptValidUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	_, err := db.Collection("users").InsertOne(ctx, bson.M{
		"full_name":    "Ana Ruiz",
		"full_name_ci": "ana ruiz",
		"email":        "ana@example.com",
		"role":         "resident",
		"status":       "active",
		"auth_method":  "password",
		"study_year":   2,
	})
	if err != nil {
		t.Errorf("insert valid user failed: %v", err)
	}
}
