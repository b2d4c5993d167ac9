package rotationstore_test

import (
	"errors"
	"testing"

	rotationstore "github.com/dalemusser/residencyhub/internal/app/store/rotations"
	"github.com/dalemusser/residencyhub/internal/app/system/indexes"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"github.com/dalemusser/residencyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func setup(t *testing.T) *rotationstore.Store {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	return rotationstore.New(db)
}

func strp(s string) *string { return &s }

func TestStore_Create(t *testing.T) {
	store := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rot, err := store.Create(ctx, models.Rotation{Name: "  Cardiología  ", Color: "#aa0011"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if rot.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if rot.Name != "Cardiología" {
		t.Errorf("Name = %q, want trimmed", rot.Name)
	}
	if rot.NameCI != "cardiologia" {
		t.Errorf("NameCI = %q, want %q", rot.NameCI, "cardiologia")
	}
	if rot.Status != models.RotationActive {
		t.Errorf("Status = %q, want active", rot.Status)
	}
	if rot.CreatedAt.IsZero() || rot.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestStore_Create_Validation(t *testing.T) {
	store := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tests := []struct {
		name string
		rot  models.Rotation
		want error
	}{
		{"missing name", models.Rotation{Name: "   "}, rotationstore.ErrNameRequired},
		{"bad status", models.Rotation{Name: "ICU", Status: "paused"}, rotationstore.ErrBadStatus},
		{"bad color", models.Rotation{Name: "ICU", Color: "red"}, rotationstore.ErrBadColor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Create(ctx, tt.rot); !errors.Is(err, tt.want) {
				t.Errorf("Create err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStore_Create_DuplicateName(t *testing.T) {
	store := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, models.Rotation{Name: "Neurología"}); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	_, err := store.Create(ctx, models.Rotation{Name: "NEUROLOGIA"})
	if !errors.Is(err, rotationstore.ErrDuplicateRotationName) {
		t.Errorf("expected ErrDuplicateRotationName, got %v", err)
	}
}

func TestStore_GetByID_NotFound(t *testing.T) {
	store := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.GetByID(ctx, primitive.NewObjectID()); !errors.Is(err, rotationstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_EnsureByName(t *testing.T) {
	store := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	first, created, err := store.EnsureByName(ctx, "Surgery")
	if err != nil {
		t.Fatalf("EnsureByName failed: %v", err)
	}
	if !created {
		t.Error("expected first call to create the rotation")
	}
	second, created, err := store.EnsureByName(ctx, "surgery")
	if err != nil {
		t.Fatalf("second EnsureByName failed: %v", err)
	}
	if created {
		t.Error("expected second call to reuse the rotation")
	}
	if first.ID != second.ID {
		t.Errorf("IDs differ: %s vs %s", first.ID.Hex(), second.ID.Hex())
	}
}

func TestStore_Update(t *testing.T) {
	store := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rot, _ := store.Create(ctx, models.Rotation{Name: "Pediatrics"})
	other, _ := store.Create(ctx, models.Rotation{Name: "Obstetrics"})

	updated, err := store.Update(ctx, rot.ID, rotationstore.Update{
		Name:        strp("Pediatrics Ward"),
		Description: strp("General peds"),
		Status:      strp(models.RotationArchived),
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Name != "Pediatrics Ward" || updated.NameCI != "pediatrics ward" {
		t.Errorf("name not updated: %q / %q", updated.Name, updated.NameCI)
	}
	if updated.Status != models.RotationArchived {
		t.Errorf("Status = %q, want archived", updated.Status)
	}

	if _, err := store.Update(ctx, other.ID, rotationstore.Update{Name: strp("pediatrics ward")}); !errors.Is(err, rotationstore.ErrDuplicateRotationName) {
		t.Errorf("expected ErrDuplicateRotationName, got %v", err)
	}
	if _, err := store.Update(ctx, primitive.NewObjectID(), rotationstore.Update{Description: strp("x")}); !errors.Is(err, rotationstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Update(ctx, rot.ID, rotationstore.Update{Status: strp("gone")}); !errors.Is(err, rotationstore.ErrBadStatus) {
		t.Errorf("expected ErrBadStatus, got %v", err)
	}
}

func TestStore_SetNodeCount(t *testing.T) {
	store := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rot, _ := store.Create(ctx, models.Rotation{Name: "ICU"})
	if err := store.SetNodeCount(ctx, rot.ID, 12); err != nil {
		t.Fatalf("SetNodeCount failed: %v", err)
	}
	got, err := store.GetByID(ctx, rot.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.NodeCount != 12 {
		t.Errorf("NodeCount = %d, want 12", got.NodeCount)
	}
	if err := store.SetNodeCount(ctx, primitive.NewObjectID(), 1); !errors.Is(err, rotationstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_List(t *testing.T) {
	store := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, name := range []string{"Internal Medicine", "Emergency Room", "Cardiology"} {
		if _, err := store.Create(ctx, models.Rotation{Name: name}); err != nil {
			t.Fatalf("Create %s failed: %v", name, err)
		}
	}
	if _, err := store.Create(ctx, models.Rotation{Name: "Dermatology", Status: models.RotationArchived}); err != nil {
		t.Fatalf("Create archived failed: %v", err)
	}

	all, err := store.List(ctx, rotationstore.ListFilter{Status: "all"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 rotations, got %d", len(all))
	}
	if all[0].Name != "Cardiology" {
		t.Errorf("expected name order, first = %q", all[0].Name)
	}

	active, _ := store.List(ctx, rotationstore.ListFilter{Status: models.RotationActive})
	if len(active) != 3 {
		t.Errorf("expected 3 active rotations, got %d", len(active))
	}

	er, _ := store.List(ctx, rotationstore.ListFilter{Query: "er"})
	if len(er) != 1 || er[0].Name != "Emergency Room" {
		t.Errorf("synonym search for er = %v", er)
	}
}
