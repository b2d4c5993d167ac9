package loginstore_test

import (
	"net/http/httptest"
	"testing"
	"time"

	loginstore "github.com/dalemusser/residencyhub/internal/app/store/logins"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"github.com/dalemusser/residencyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := loginstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	if err := store.Create(ctx, models.LoginRecord{UserID: userID, IP: "192.168.1.1", Provider: "password"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	var found models.LoginRecord
	if err := db.Collection("login_records").FindOne(ctx, bson.M{"user_id": userID}).Decode(&found); err != nil {
		t.Fatalf("failed to find login record: %v", err)
	}
	if found.IP != "192.168.1.1" || found.Provider != "password" {
		t.Errorf("unexpected record %+v", found)
	}
	if found.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestStore_Create_WithExplicitTimestamp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := loginstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	customTime := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)
	if err := store.Create(ctx, models.LoginRecord{UserID: userID, CreatedAt: customTime, Provider: "google"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	recs, err := store.Recent(ctx, userID, 5)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recs) != 1 || !recs[0].CreatedAt.Equal(customTime) {
		t.Errorf("expected preserved timestamp, got %+v", recs)
	}
}

func TestStore_CreateFromAndActiveUsers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := loginstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	req := httptest.NewRequest("POST", "/login", nil)
	req.RemoteAddr = "198.51.100.7:5555"

	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	for _, id := range []primitive.ObjectID{a, a, b} {
		if err := store.CreateFrom(ctx, req, id, "password"); err != nil {
			t.Fatalf("CreateFrom failed: %v", err)
		}
	}
	old := primitive.NewObjectID()
	if err := store.Create(ctx, models.LoginRecord{UserID: old, CreatedAt: time.Now().UTC().AddDate(0, 0, -30)}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	recs, err := store.Recent(ctx, a, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recs) != 2 || recs[0].IP != "198.51.100.7" {
		t.Errorf("unexpected records %+v", recs)
	}

	n, err := store.ActiveUsersSince(ctx, time.Now().UTC().AddDate(0, 0, -7))
	if err != nil {
		t.Fatalf("ActiveUsersSince failed: %v", err)
	}
	if n != 2 {
		t.Errorf("ActiveUsersSince = %d, want 2", n)
	}
}

func TestStore_DeleteBefore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := loginstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	now := time.Now().UTC()
	for _, at := range []time.Time{now.Add(-400 * 24 * time.Hour), now.Add(-200 * 24 * time.Hour), now} {
		if err := store.Create(ctx, models.LoginRecord{UserID: userID, Provider: "password", CreatedAt: at}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	n, err := store.DeleteBefore(ctx, now.Add(-365*24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore failed: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted: got %d, want 1", n)
	}
	left, err := store.Recent(ctx, userID, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(left) != 2 {
		t.Errorf("remaining: got %d, want 2", len(left))
	}
}
