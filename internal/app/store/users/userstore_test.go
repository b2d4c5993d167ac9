package userstore_test

import (
	"errors"
	"testing"

	userstore "github.com/dalemusser/residencyhub/internal/app/store/users"
	"github.com/dalemusser/residencyhub/internal/app/system/indexes"
	"github.com/dalemusser/residencyhub/internal/app/system/paging"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"github.com/dalemusser/residencyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func setup(t *testing.T) (*mongo.Database, *userstore.Store, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	return db, userstore.New(db), testutil.NewFixtures(t, db)
}

func TestStore_Create_Normalizes(t *testing.T) {
	_, store, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		FullName:  "  Ana   Martínez ",
		Email:     " Ana@Example.COM ",
		Role:      "Resident",
		StudyYear: 2,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.FullName != "Ana Martínez" {
		t.Errorf("FullName = %q", created.FullName)
	}
	if created.FullNameCI != "ana martinez" {
		t.Errorf("FullNameCI = %q", created.FullNameCI)
	}
	if created.Email != "ana@example.com" {
		t.Errorf("Email = %q", created.Email)
	}
	if created.Role != models.RoleResident || created.Status != "active" || created.AuthMethod != models.AuthPassword {
		t.Errorf("defaults not applied: %+v", created)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	got, err := store.GetByEmail(ctx, "ANA@example.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if got.ID != created.ID {
		t.Error("GetByEmail returned a different user")
	}
}

func TestStore_Create_Validation(t *testing.T) {
	_, store, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tests := []struct {
		name string
		user models.User
		want error
	}{
		{"no name", models.User{Email: "a@example.com", Role: "tutor"}, userstore.ErrNameRequired},
		{"bad email", models.User{FullName: "A", Email: "nope", Role: "tutor"}, userstore.ErrBadEmail},
		{"bad role", models.User{FullName: "A", Email: "a@example.com", Role: "intern"}, userstore.ErrBadRole},
		{"bad status", models.User{FullName: "A", Email: "a@example.com", Role: "tutor", Status: "paused"}, userstore.ErrBadStatus},
		{"bad auth", models.User{FullName: "A", Email: "a@example.com", Role: "tutor", AuthMethod: "ldap"}, userstore.ErrBadAuthMethod},
		{"bad year", models.User{FullName: "A", Email: "a@example.com", Role: "resident", StudyYear: 9}, userstore.ErrBadStudyYear},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Create(ctx, tt.user); !errors.Is(err, tt.want) {
				t.Errorf("Create() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStore_Create_TutorDropsResidentFields(t *testing.T) {
	_, store, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := store.Create(ctx, models.User{FullName: "Tom", Email: "tom@example.com", Role: "tutor", StudyYear: 3})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if u.StudyYear != 0 {
		t.Errorf("StudyYear = %d, want 0 for tutors", u.StudyYear)
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	_, store, fx := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateTutor(ctx, "First", "dup@example.com")
	_, err := store.Create(ctx, models.User{FullName: "Second", Email: "DUP@example.com", Role: "tutor"})
	if !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Errorf("Create() error = %v, want ErrDuplicateEmail", err)
	}
}

func TestStore_GetByID_NotFound(t *testing.T) {
	_, store, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.GetByID(ctx, primitive.NewObjectID()); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestStore_Update(t *testing.T) {
	_, store, fx := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateResident(ctx, "Rita Resident", "rita@example.com")

	name := "Rita  Ramos"
	year := 4
	phone := " 555 0101 "
	got, err := store.Update(ctx, u.ID, userstore.Update{FullName: &name, StudyYear: &year, Phone: &phone})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.FullName != "Rita Ramos" || got.FullNameCI != "rita ramos" {
		t.Errorf("name not updated: %q / %q", got.FullName, got.FullNameCI)
	}
	if got.StudyYear != 4 || got.Phone != "555 0101" {
		t.Errorf("fields not updated: %+v", got)
	}

	role := "tutor"
	got, err = store.Update(ctx, u.ID, userstore.Update{Role: &role})
	if err != nil {
		t.Fatalf("Update role failed: %v", err)
	}
	if got.Role != models.RoleTutor || got.StudyYear != 0 {
		t.Errorf("role change should clear study_year: %+v", got)
	}

	bad := "intern"
	if _, err := store.Update(ctx, u.ID, userstore.Update{Role: &bad}); !errors.Is(err, userstore.ErrBadRole) {
		t.Errorf("Update bad role error = %v", err)
	}
	if _, err := store.Update(ctx, primitive.NewObjectID(), userstore.Update{Phone: &phone}); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("Update missing user error = %v", err)
	}
}

func TestStore_DisableEnable(t *testing.T) {
	_, store, fx := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateTutor(ctx, "Tess", "tess@example.com")
	if err := store.Disable(ctx, u.ID); err != nil {
		t.Fatalf("Disable failed: %v", err)
	}
	got, _ := store.GetByID(ctx, u.ID)
	if got.Status != "disabled" {
		t.Errorf("Status = %q, want disabled", got.Status)
	}
	if err := store.Enable(ctx, u.ID); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	got, _ = store.GetByID(ctx, u.ID)
	if got.Status != "active" {
		t.Errorf("Status = %q, want active", got.Status)
	}
	if err := store.Disable(ctx, primitive.NewObjectID()); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("Disable missing user error = %v", err)
	}
}

func TestStore_SetPassword(t *testing.T) {
	_, store, fx := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateTutor(ctx, "Pat", "pat@example.com")
	if err := store.SetPassword(ctx, u.ID, "short"); !errors.Is(err, userstore.ErrWeakPassword) {
		t.Errorf("SetPassword(short) error = %v", err)
	}
	if err := store.SetPassword(ctx, u.ID, "correct horse"); err != nil {
		t.Fatalf("SetPassword failed: %v", err)
	}

	plain, _ := store.GetByID(ctx, u.ID)
	if plain.PasswordHash != "" {
		t.Error("GetByID should not return the password hash")
	}
	withHash, err := store.GetForLogin(ctx, "pat@example.com")
	if err != nil {
		t.Fatalf("GetForLogin failed: %v", err)
	}
	if withHash.AuthMethod != models.AuthPassword {
		t.Errorf("AuthMethod = %q, want password", withHash.AuthMethod)
	}
	if !userstore.VerifyPassword(withHash, "correct horse") {
		t.Error("expected password to verify")
	}
	if userstore.VerifyPassword(withHash, "wrong horse") {
		t.Error("expected wrong password to fail")
	}
}

func TestStore_ListUsers(t *testing.T) {
	_, store, fx := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateResident(ctx, "Carla Díaz", "carla@example.com")
	fx.CreateResident(ctx, "Bruno Alves", "bruno@example.com")
	fx.CreateTutor(ctx, "Alicia Emergency", "alicia@example.com")
	fx.CreateAdmin(ctx, "Zed Admin", "zed@example.com")
	fx.CreateDisabledUser(ctx, "Dora Disabled", "dora@example.com")

	tests := []struct {
		name   string
		filter userstore.ListFilter
		want   []string
	}{
		{"all sorted", userstore.ListFilter{}, []string{"Alicia Emergency", "Bruno Alves", "Carla Díaz", "Dora Disabled", "Zed Admin"}},
		{"residents", userstore.ListFilter{Role: "resident"}, []string{"Bruno Alves", "Carla Díaz", "Dora Disabled"}},
		{"active residents", userstore.ListFilter{Role: "resident", Status: "active"}, []string{"Bruno Alves", "Carla Díaz"}},
		{"all sentinel", userstore.ListFilter{Role: "all", Status: "All"}, []string{"Alicia Emergency", "Bruno Alves", "Carla Díaz", "Dora Disabled", "Zed Admin"}},
		{"diacritics", userstore.ListFilter{Query: "diaz"}, []string{"Carla Díaz"}},
		{"email prefix", userstore.ListFilter{Query: "zed@"}, []string{"Zed Admin"}},
		{"synonym", userstore.ListFilter{Query: "ER"}, []string{"Alicia Emergency"}},
		{"word prefix only", userstore.ListFilter{Query: "lves"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, _, err := store.ListUsers(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListUsers failed: %v", err)
			}
			if len(rows) != len(tt.want) {
				t.Fatalf("got %d rows, want %d", len(rows), len(tt.want))
			}
			for i, u := range rows {
				if u.FullName != tt.want[i] {
					t.Errorf("row %d = %q, want %q", i, u.FullName, tt.want[i])
				}
			}
		})
	}
}

func TestStore_ListUsers_Paging(t *testing.T) {
	_, store, fx := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, n := range []string{"Ann", "Ben", "Cal", "Dee", "Eve"} {
		fx.CreateResident(ctx, n+" Resident", n+"@example.com")
	}

	for _, q := range []string{"", "resident"} {
		rows, res, err := store.ListUsers(ctx, userstore.ListFilter{Query: q, Page: paging.Page{Start: 3, Limit: 2}})
		if err != nil {
			t.Fatalf("ListUsers(%q) failed: %v", q, err)
		}
		if len(rows) != 2 || rows[0].FullName != "Cal Resident" || rows[1].FullName != "Dee Resident" {
			t.Errorf("query %q: unexpected page %v", q, rows)
		}
		if !res.HasPrev || !res.HasNext || res.Start != 3 || res.End != 4 || res.NextStart != 5 {
			t.Errorf("query %q: unexpected result %+v", q, res)
		}
	}
}

func TestStore_Sync(t *testing.T) {
	_, store, fx := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fx.CreateAdmin(ctx, "Ada Admin", "ada@example.com")
	tutor := fx.CreateTutor(ctx, "Tim Tutor", "tim@example.com")
	fx.CreateResident(ctx, "Same Name", "same@example.com")

	res, err := store.Sync(ctx, []userstore.SyncEntry{
		{Email: "new@example.com", FullName: "New Person", AuthUID: "g-1"},
		{Email: "ada@example.com", FullName: "Ada Lovelace", Role: "resident"},
		{Email: "tim@example.com", FullName: "Tim Tutor", Role: "admin"},
		{Email: "same@example.com", FullName: "Same Name"},
		{Email: "not-an-email", FullName: "Bad"},
		{Email: "NEW@example.com", FullName: "Again"},
		{Email: "noname@example.com"},
	})
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if res.Created != 1 || res.Updated != 2 || res.Unchanged != 1 {
		t.Errorf("counts = %+v, want created 1 updated 2 unchanged 1", res)
	}
	if len(res.Errors) != 3 {
		t.Fatalf("errors = %+v, want 3", res.Errors)
	}
	if res.Errors[0].Row != 5 || res.Errors[1].Row != 6 || res.Errors[2].Row != 7 {
		t.Errorf("unexpected error rows: %+v", res.Errors)
	}

	created, err := store.GetByEmail(ctx, "new@example.com")
	if err != nil {
		t.Fatalf("GetByEmail(new) failed: %v", err)
	}
	if created.Role != models.RoleResident || created.AuthMethod != models.AuthGoogle || created.AuthUID != "g-1" {
		t.Errorf("unexpected created user: %+v", created)
	}
	if byUID, err := store.GetByAuthUID(ctx, "g-1"); err != nil || byUID.ID != created.ID {
		t.Errorf("GetByAuthUID = %v, %v", byUID, err)
	}

	gotAdmin, _ := store.GetByID(ctx, admin.ID)
	if gotAdmin.Role != models.RoleAdmin {
		t.Errorf("admin role changed to %q", gotAdmin.Role)
	}
	if gotAdmin.FullName != "Ada Lovelace" {
		t.Errorf("admin name = %q, want updated", gotAdmin.FullName)
	}
	gotTutor, _ := store.GetByID(ctx, tutor.ID)
	if gotTutor.Role != models.RoleAdmin {
		t.Errorf("tutor role = %q, want promoted to admin", gotTutor.Role)
	}
}

func TestFetcher_FetchUser(t *testing.T) {
	db, _, fx := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	active := fx.CreateTutor(ctx, "Tina", "tina@example.com")
	disabled := fx.CreateDisabledUser(ctx, "Dan", "dan@example.com")
	f := userstore.NewFetcher(db)

	su := f.FetchUser(ctx, active.ID.Hex())
	if su == nil {
		t.Fatal("expected active user")
	}
	if su.Name != "Tina" || su.Email != "tina@example.com" || su.Role != models.RoleTutor {
		t.Errorf("unexpected session user %+v", su)
	}
	if f.FetchUser(ctx, disabled.ID.Hex()) != nil {
		t.Error("expected nil for disabled user")
	}
	if f.FetchUser(ctx, "not-hex") != nil {
		t.Error("expected nil for malformed id")
	}
	if f.FetchUser(ctx, primitive.NewObjectID().Hex()) != nil {
		t.Error("expected nil for missing user")
	}
}

func TestDirectory_Resolve(t *testing.T) {
	ids := []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()}
	d := userstore.NewDirectory([]models.User{
		{ID: ids[0], FullName: "José Pérez", Email: "jose@example.com"},
		{ID: ids[1], FullName: "Sam Lee", Email: "sam1@example.com"},
		{ID: ids[2], FullName: "Sam Lee", Email: "sam2@example.com"},
	})

	tests := []struct {
		in       string
		wantID   *primitive.ObjectID
		wantName string
	}{
		{"JOSE@example.com", &ids[0], "José Pérez"},
		{"jose  perez", &ids[0], "José Pérez"},
		{"Sam Lee", nil, "Sam Lee"}, // ambiguous
		{"sam2@example.com", &ids[2], "Sam Lee"},
		{" Dr.  Who ", nil, "Dr. Who"},
		{"ghost@example.com", nil, "ghost@example.com"},
	}
	for _, tt := range tests {
		id, name := d.Resolve(tt.in)
		if name != tt.wantName {
			t.Errorf("Resolve(%q) name = %q, want %q", tt.in, name, tt.wantName)
		}
		switch {
		case tt.wantID == nil && id != nil:
			t.Errorf("Resolve(%q) id = %v, want nil", tt.in, id)
		case tt.wantID != nil && (id == nil || *id != *tt.wantID):
			t.Errorf("Resolve(%q) id = %v, want %v", tt.in, id, *tt.wantID)
		}
	}
}
