package metricsstore

import (
	"context"
	"time"

	assignmentstore "github.com/dalemusser/residencyhub/internal/app/store/assignments"
	loginstore "github.com/dalemusser/residencyhub/internal/app/store/logins"
	petitionstore "github.com/dalemusser/residencyhub/internal/app/store/petitions"
	rotationstore "github.com/dalemusser/residencyhub/internal/app/store/rotations"
	taskstore "github.com/dalemusser/residencyhub/internal/app/store/tasks"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ActiveWindow is how far back a login counts toward ActiveUsers.
const ActiveWindow = 30 * 24 * time.Hour

// UserCount is the number of users with one role and status.
type UserCount struct {
	Role   string `bson:"role" json:"role"`
	Status string `bson:"status" json:"status"`
	Count  int64  `bson:"count" json:"count"`
}

// RotationLoad is the number of residents currently active in a rotation.
type RotationLoad struct {
	RotationID primitive.ObjectID `json:"rotation_id"`
	Name       string             `json:"name"`
	Active     int64              `json:"active"`
}

// Counts is the set of totals shown on the admin dashboard.
type Counts struct {
	Users                  []UserCount    `json:"users"`
	Rotations              int64          `json:"rotations"` // active rotations
	ActiveByRotation       []RotationLoad `json:"active_by_rotation"`
	ResidentsWithoutActive int64          `json:"residents_without_active"`
	PendingPetitions       int64          `json:"pending_petitions"`
	PendingTasks           int64          `json:"pending_tasks"`
	ActiveUsers            int            `json:"active_users"` // distinct logins within ActiveWindow
}

// FetchDashboardCounts returns the high-level counts used by the admin dashboard.
// Intentionally tolerant: on error it returns 0 for that counter.
func FetchDashboardCounts(ctx context.Context, db *mongo.Database) Counts {
	log := zap.NewNop()
	out := Counts{Users: []UserCount{}, ActiveByRotation: []RotationLoad{}}

	// users by role and status
	if cur, err := db.Collection("users").Aggregate(ctx, []bson.M{
		{"$group": bson.M{"_id": bson.M{"role": "$role", "status": "$status"}, "count": bson.M{"$sum": 1}}},
		{"$project": bson.M{"_id": 0, "role": "$_id.role", "status": "$_id.status", "count": 1}},
		{"$sort": bson.D{{Key: "role", Value: 1}, {Key: "status", Value: 1}}},
	}); err == nil {
		var rows []UserCount
		if cur.All(ctx, &rows) == nil && rows != nil {
			out.Users = rows
		}
	}

	rotations := rotationstore.New(db)
	if n, err := rotations.Count(ctx, models.RotationActive); err == nil {
		out.Rotations = n
	}

	// active assignments per rotation
	assignments := assignmentstore.New(db, log)
	if counts, err := assignments.ActiveByRotation(ctx); err == nil {
		ids := make([]primitive.ObjectID, len(counts))
		for i, c := range counts {
			ids[i] = c.RotationID
		}
		names, _ := rotations.GetByIDs(ctx, ids)
		for _, c := range counts {
			out.ActiveByRotation = append(out.ActiveByRotation, RotationLoad{
				RotationID: c.RotationID,
				Name:       names[c.RotationID].Name,
				Active:     c.Count,
			})
		}
	}

	// active residents with no active assignment
	if ids, err := assignments.ActiveResidentIDs(ctx); err == nil {
		filter := bson.M{"role": models.RoleResident, "status": "active", "_id": bson.M{"$nin": ids}}
		if n, err := db.Collection("users").CountDocuments(ctx, filter); err == nil {
			out.ResidentsWithoutActive = n
		}
	}

	if n, err := petitionstore.New(db, log).CountPending(ctx); err == nil {
		out.PendingPetitions = n
	}
	if n, err := taskstore.New(db, log).CountPending(ctx); err == nil {
		out.PendingTasks = n
	}
	if n, err := loginstore.New(db).ActiveUsersSince(ctx, time.Now().Add(-ActiveWindow)); err == nil {
		out.ActiveUsers = n
	}

	return out
}
