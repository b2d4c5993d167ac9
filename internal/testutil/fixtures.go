package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/residencyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc interface{}) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to insert test %s: %v", coll, err)
	}
}

// CreateUser creates an active trust-auth user with the given role.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email, role string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		Email:      email,
		AuthMethod: models.AuthTrust,
		Role:       role,
		Status:     "active",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if role == models.RoleResident {
		user.StudyYear = 1
	}
	f.insert(ctx, "users", user)
	return user
}

// CreateAdmin creates a test admin user.
func (f *Fixtures) CreateAdmin(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, models.RoleAdmin)
}

// CreateTutor creates a test tutor user.
func (f *Fixtures) CreateTutor(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, models.RoleTutor)
}

// CreateResident creates a test resident user.
func (f *Fixtures) CreateResident(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, models.RoleResident)
}

// CreatePasswordUser creates a password-auth user with a bcrypt hash of password.
func (f *Fixtures) CreatePasswordUser(ctx context.Context, fullName, email, role, password string) models.User {
	f.t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("failed to hash password: %v", err)
	}
	now := time.Now().UTC()
	user := models.User{
		ID:           primitive.NewObjectID(),
		FullName:     fullName,
		FullNameCI:   text.Fold(fullName),
		Email:        email,
		AuthMethod:   models.AuthPassword,
		PasswordHash: string(hash),
		Role:         role,
		Status:       "active",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.insert(ctx, "users", user)
	return user
}

// CreateDisabledUser creates a test resident with disabled status.
func (f *Fixtures) CreateDisabledUser(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		Email:      email,
		AuthMethod: models.AuthTrust,
		Role:       models.RoleResident,
		Status:     "disabled",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.insert(ctx, "users", user)
	return user
}

// CreateRotation creates an active rotation with no curriculum.
func (f *Fixtures) CreateRotation(ctx context.Context, name string) models.Rotation {
	f.t.Helper()

	now := time.Now().UTC()
	rot := models.Rotation{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Status:    models.RotationActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "rotations", rot)
	return rot
}

// CreateTaskNodes creates a single category/subject/topic branch under
// rotationID with one task node per name, each requiring required completions.
// It returns the task nodes in order.
func (f *Fixtures) CreateTaskNodes(ctx context.Context, rotationID primitive.ObjectID, required int, names ...string) []models.RotationNode {
	f.t.Helper()

	var parent *primitive.ObjectID
	path := ""
	for i, typ := range []string{models.NodeCategory, models.NodeSubject, models.NodeTopic} {
		name := typ + " one"
		if path != "" {
			path += "/"
		}
		path += text.Fold(name)
		n := models.RotationNode{
			ID:         primitive.NewObjectID(),
			RotationID: rotationID,
			ParentID:   parent,
			Type:       typ,
			Name:       name,
			NameCI:     text.Fold(name),
			Path:       path,
			Order:      i,
		}
		f.insert(ctx, "rotation_nodes", n)
		id := n.ID
		parent = &id
	}

	out := make([]models.RotationNode, 0, len(names))
	for i, name := range names {
		n := models.RotationNode{
			ID:            primitive.NewObjectID(),
			RotationID:    rotationID,
			ParentID:      parent,
			Type:          models.NodeTask,
			Name:          name,
			NameCI:        text.Fold(name),
			Path:          path + "/" + text.Fold(name),
			Order:         i,
			RequiredCount: required,
		}
		f.insert(ctx, "rotation_nodes", n)
		out = append(out, n)
	}
	return out
}

// CreateAssignment links a resident to a rotation with the given status.
func (f *Fixtures) CreateAssignment(ctx context.Context, residentID, rotationID primitive.ObjectID, status string, tutorIDs ...primitive.ObjectID) models.Assignment {
	f.t.Helper()

	if tutorIDs == nil {
		tutorIDs = []primitive.ObjectID{}
	}
	now := time.Now().UTC()
	a := models.Assignment{
		ID:         primitive.NewObjectID(),
		ResidentID: residentID,
		RotationID: rotationID,
		TutorIDs:   tutorIDs,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if status == models.AssignmentActive || status == models.AssignmentFinished {
		start := now.Add(-24 * time.Hour)
		a.StartDate = &start
	}
	if status == models.AssignmentFinished {
		a.EndDate = &now
	}
	f.insert(ctx, "assignments", a)
	return a
}

// CreatePetition creates a pending petition.
func (f *Fixtures) CreatePetition(ctx context.Context, residentID, rotationID primitive.ObjectID, typ string) models.RotationPetition {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.RotationPetition{
		ID:         primitive.NewObjectID(),
		ResidentID: residentID,
		RotationID: rotationID,
		Type:       typ,
		Status:     models.PetitionPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.insert(ctx, "rotation_petitions", p)
	return p
}

// CreateTask logs count completions of node by residentID with the given status.
func (f *Fixtures) CreateTask(ctx context.Context, residentID primitive.ObjectID, node models.RotationNode, count int, status string) models.TaskDoc {
	f.t.Helper()

	now := time.Now().UTC()
	td := models.TaskDoc{
		ID:          primitive.NewObjectID(),
		ResidentID:  residentID,
		RotationID:  node.RotationID,
		NodeID:      node.ID,
		Count:       count,
		PerformedOn: now,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.insert(ctx, "tasks", td)
	return td
}

// CreateMeeting creates a meeting on the given local day (YYYY-MM-DD, UTC midnight).
func (f *Fixtures) CreateMeeting(ctx context.Context, dateKey, title string, order int) models.MorningMeeting {
	f.t.Helper()

	d, err := time.Parse("2006-01-02", dateKey)
	if err != nil {
		f.t.Fatalf("bad fixture date %q: %v", dateKey, err)
	}
	now := time.Now().UTC()
	m := models.MorningMeeting{
		ID:        primitive.NewObjectID(),
		Date:      d,
		DateKey:   dateKey,
		MonthKey:  dateKey[:7],
		Order:     order,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "morning_meetings", m)
	return m
}

// CreateOnCallDay creates a roster for the given day (YYYY-MM-DD, UTC midnight).
func (f *Fixtures) CreateOnCallDay(ctx context.Context, dateKey string, shifts ...models.OnCallShift) models.OnCallDay {
	f.t.Helper()

	d, err := time.Parse("2006-01-02", dateKey)
	if err != nil {
		f.t.Fatalf("bad fixture date %q: %v", dateKey, err)
	}
	if shifts == nil {
		shifts = []models.OnCallShift{}
	}
	now := time.Now().UTC()
	day := models.OnCallDay{
		ID:        primitive.NewObjectID(),
		Date:      d,
		DateKey:   dateKey,
		Shifts:    shifts,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "oncall_days", day)
	return day
}
