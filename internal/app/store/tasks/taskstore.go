// internal/app/store/tasks/taskstore.go
package taskstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	assignmentstore "github.com/dalemusser/residencyhub/internal/app/store/assignments"
	rotationnodestore "github.com/dalemusser/residencyhub/internal/app/store/rotationnodes"
	"github.com/dalemusser/residencyhub/internal/app/system/normalize"
	"github.com/dalemusser/residencyhub/internal/app/system/retry"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MaxCount caps how many completions a single entry may log.
const MaxCount = 100

var (
	ErrNotFound    = errors.New("task not found")
	ErrNotTaskNode = errors.New("node is not a task")
	ErrNotAssigned = errors.New("resident has no active or finished assignment in this rotation")
	ErrBadCount    = fmt.Errorf("count must be between 1 and %d", MaxCount)
	ErrFutureDate  = errors.New("performed_on is in the future")
	ErrNotPending  = errors.New("task has already been reviewed")
	ErrForbidden   = errors.New("not allowed to review this task")
)

var listSort = bson.D{{Key: "performed_on", Value: -1}, {Key: "_id", Value: -1}}

// Reviewer is the tutor or admin approving a logged task.
type Reviewer struct {
	ID   primitive.ObjectID
	Role string
}

type Store struct {
	c           *mongo.Collection
	nodes       *rotationnodestore.Store
	assignments *assignmentstore.Store
}

func New(db *mongo.Database, log *zap.Logger) *Store {
	return &Store{
		c:           db.Collection("tasks"),
		nodes:       rotationnodestore.New(db, log),
		assignments: assignmentstore.New(db, log),
	}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.TaskDoc, error) {
	t, err := retry.Value(ctx, func(ctx context.Context) (models.TaskDoc, error) {
		var t models.TaskDoc
		err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
		return t, err
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.TaskDoc{}, ErrNotFound
	}
	return t, err
}

// CreateInput is a resident's log entry. A zero PerformedOn means now.
type CreateInput struct {
	ResidentID  primitive.ObjectID
	NodeID      primitive.ObjectID
	Count       int
	PerformedOn time.Time
	Note        string
}

// Create logs completions of a curriculum task. The node must be a task
// node of a rotation the resident is active in or has finished.
func (s *Store) Create(ctx context.Context, in CreateInput) (models.TaskDoc, error) {
	if in.Count < 1 || in.Count > MaxCount {
		return models.TaskDoc{}, ErrBadCount
	}
	now := time.Now().UTC()
	if in.PerformedOn.IsZero() {
		in.PerformedOn = now
	}
	// One day of slack covers residents ahead of UTC.
	if in.PerformedOn.After(now.Add(24 * time.Hour)) {
		return models.TaskDoc{}, ErrFutureDate
	}

	node, err := s.nodes.GetByID(ctx, in.NodeID)
	if err != nil {
		return models.TaskDoc{}, err
	}
	if node.Type != models.NodeTask {
		return models.TaskDoc{}, ErrNotTaskNode
	}
	ok, err := s.assignments.HasAssignment(ctx, in.ResidentID, node.RotationID,
		models.AssignmentActive, models.AssignmentFinished)
	if err != nil {
		return models.TaskDoc{}, err
	}
	if !ok {
		return models.TaskDoc{}, ErrNotAssigned
	}

	t := models.TaskDoc{
		ID:          primitive.NewObjectID(),
		ResidentID:  in.ResidentID,
		RotationID:  node.RotationID,
		NodeID:      node.ID,
		Count:       in.Count,
		PerformedOn: in.PerformedOn.UTC(),
		Note:        strings.TrimSpace(in.Note),
		Status:      models.TaskPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.TaskDoc{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

// CanReview reports whether by may review t: admins always, tutors when they
// supervise the resident in the task's rotation.
func (s *Store) CanReview(ctx context.Context, by Reviewer, t models.TaskDoc) (bool, error) {
	switch by.Role {
	case models.RoleAdmin:
		return true, nil
	case models.RoleTutor:
		return s.assignments.HasTutorFor(ctx, by.ID, t.ResidentID, t.RotationID)
	}
	return false, nil
}

// Review approves or rejects a pending task.
func (s *Store) Review(ctx context.Context, id primitive.ObjectID, by Reviewer, approve bool, feedback string) (models.TaskDoc, error) {
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return models.TaskDoc{}, err
	}
	ok, err := s.CanReview(ctx, by, t)
	if err != nil {
		return models.TaskDoc{}, err
	}
	if !ok {
		return models.TaskDoc{}, ErrForbidden
	}
	if t.Status != models.TaskPending {
		return models.TaskDoc{}, ErrNotPending
	}

	to := models.TaskRejected
	if approve {
		to = models.TaskApproved
	}
	now := time.Now().UTC()
	set := bson.M{
		"status":      to,
		"reviewer_id": by.ID,
		"reviewed_at": now,
		"updated_at":  now,
	}
	if feedback = strings.TrimSpace(feedback); feedback != "" {
		set["feedback"] = feedback
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "status": models.TaskPending}, bson.M{"$set": set})
	if err != nil {
		return models.TaskDoc{}, fmt.Errorf("review task: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.TaskDoc{}, ErrNotPending
	}
	t.Status = to
	t.ReviewerID = &by.ID
	t.ReviewedAt = &now
	t.Feedback = feedback
	t.UpdatedAt = now
	return t, nil
}

// ListFilter narrows List. Nil IDs and an empty Status do not filter.
type ListFilter struct {
	ResidentID *primitive.ObjectID
	RotationID *primitive.ObjectID
	Status     string
}

// List returns logged tasks, most recently performed first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.TaskDoc, error) {
	filter := bson.M{}
	if f.ResidentID != nil {
		filter["resident_id"] = *f.ResidentID
	}
	if f.RotationID != nil {
		filter["rotation_id"] = *f.RotationID
	}
	if st := normalize.FilterAll(f.Status); st != "" {
		filter["status"] = st
	}
	return s.find(ctx, filter)
}

// ListForTutor returns tasks of the resident/rotation pairs tutorID
// supervises, optionally narrowed to one resident.
func (s *Store) ListForTutor(ctx context.Context, tutorID primitive.ObjectID, residentID *primitive.ObjectID, status string) ([]models.TaskDoc, error) {
	assigned, err := s.assignments.ListByTutor(ctx, tutorID, "")
	if err != nil {
		return nil, err
	}
	pairs := []bson.M{}
	seen := make(map[[2]primitive.ObjectID]bool, len(assigned))
	for _, a := range assigned {
		if residentID != nil && a.ResidentID != *residentID {
			continue
		}
		key := [2]primitive.ObjectID{a.ResidentID, a.RotationID}
		if seen[key] {
			continue
		}
		seen[key] = true
		pairs = append(pairs, bson.M{"resident_id": a.ResidentID, "rotation_id": a.RotationID})
	}
	if len(pairs) == 0 {
		return []models.TaskDoc{}, nil
	}
	filter := bson.M{"$or": pairs}
	if st := normalize.FilterAll(status); st != "" {
		filter["status"] = st
	}
	return s.find(ctx, filter)
}

// CountPending returns how many tasks await review.
func (s *Store) CountPending(ctx context.Context) (int64, error) {
	return retry.Value(ctx, func(ctx context.Context) (int64, error) {
		return s.c.CountDocuments(ctx, bson.M{"status": models.TaskPending})
	})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.TaskDoc, error) {
	return retry.Value(ctx, func(ctx context.Context) ([]models.TaskDoc, error) {
		cur, err := s.c.Find(ctx, filter, options.Find().SetSort(listSort))
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)
		out := []models.TaskDoc{}
		if err := cur.All(ctx, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}
