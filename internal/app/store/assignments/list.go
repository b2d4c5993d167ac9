package assignmentstore

import (
	"context"

	"github.com/dalemusser/residencyhub/internal/app/system/normalize"
	"github.com/dalemusser/residencyhub/internal/app/system/retry"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ListFilter narrows List. Nil IDs and an empty Status do not filter.
type ListFilter struct {
	ResidentID *primitive.ObjectID
	TutorID    *primitive.ObjectID
	RotationID *primitive.ObjectID
	Status     string
}

// List returns matching assignments, newest first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Assignment, error) {
	filter := bson.M{}
	if f.ResidentID != nil {
		filter["resident_id"] = *f.ResidentID
	}
	if f.TutorID != nil {
		filter["tutor_ids"] = *f.TutorID
	}
	if f.RotationID != nil {
		filter["rotation_id"] = *f.RotationID
	}
	if st := normalize.FilterAll(f.Status); st != "" {
		filter["status"] = st
	}
	return retry.Value(ctx, func(ctx context.Context) ([]models.Assignment, error) {
		cur, err := s.c.Find(ctx, filter, options.Find().SetSort(listSort))
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)
		out := []models.Assignment{}
		if err := cur.All(ctx, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}

func (s *Store) ListByResident(ctx context.Context, residentID primitive.ObjectID) ([]models.Assignment, error) {
	return s.List(ctx, ListFilter{ResidentID: &residentID})
}

// ListByTutor returns the assignments tutorID supervises with the given
// status ("" for all).
func (s *Store) ListByTutor(ctx context.Context, tutorID primitive.ObjectID, status string) ([]models.Assignment, error) {
	return s.List(ctx, ListFilter{TutorID: &tutorID, Status: status})
}

func (s *Store) ListByRotation(ctx context.Context, rotationID primitive.ObjectID, status string) ([]models.Assignment, error) {
	return s.List(ctx, ListFilter{RotationID: &rotationID, Status: status})
}

// RotationCount is the number of active assignments in one rotation.
type RotationCount struct {
	RotationID primitive.ObjectID `bson:"_id" json:"rotation_id"`
	Count      int64              `bson:"count" json:"count"`
}

// ActiveByRotation counts active assignments per rotation, largest first.
func (s *Store) ActiveByRotation(ctx context.Context) ([]RotationCount, error) {
	pipeline := []bson.M{
		{"$match": bson.M{"status": models.AssignmentActive}},
		{"$group": bson.M{"_id": "$rotation_id", "count": bson.M{"$sum": 1}}},
		{"$sort": bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}},
	}
	return retry.Value(ctx, func(ctx context.Context) ([]RotationCount, error) {
		cur, err := s.c.Aggregate(ctx, pipeline)
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)
		out := []RotationCount{}
		if err := cur.All(ctx, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// ActiveResidentIDs returns the residents that currently hold an active assignment.
func (s *Store) ActiveResidentIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	return retry.Value(ctx, func(ctx context.Context) ([]primitive.ObjectID, error) {
		vals, err := s.c.Distinct(ctx, "resident_id", bson.M{"status": models.AssignmentActive})
		if err != nil {
			return nil, err
		}
		out := make([]primitive.ObjectID, 0, len(vals))
		for _, v := range vals {
			if id, ok := v.(primitive.ObjectID); ok {
				out = append(out, id)
			}
		}
		return out, nil
	})
}
