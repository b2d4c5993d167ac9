// internal/app/store/assignments/assignmentstore.go
package assignmentstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	rotationstore "github.com/dalemusser/residencyhub/internal/app/store/rotations"
	userstore "github.com/dalemusser/residencyhub/internal/app/store/users"
	"github.com/dalemusser/residencyhub/internal/app/system/retry"
	"github.com/dalemusser/residencyhub/internal/app/system/txn"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	ErrNotFound           = errors.New("assignment not found")
	ErrActiveExists       = errors.New("resident already has an active assignment")
	ErrOpenExists         = errors.New("resident already has an open assignment for this rotation")
	ErrNotResident        = errors.New("user is not a resident")
	ErrNotTutor           = errors.New("every tutor must be an existing tutor")
	ErrRotationInactive   = errors.New("rotation is not active")
	ErrBadStatus          = errors.New(`status must be "planned"|"active"|"inactive"`)
	ErrInvalidTransition  = errors.New("assignment status change not allowed")
	ErrNoActiveAssignment = errors.New("resident has no active assignment")
	ErrSameRotation       = errors.New("resident is already active in that rotation")
)

// openStatuses are the statuses of an assignment that is not finished.
var openStatuses = []string{models.AssignmentPlanned, models.AssignmentActive, models.AssignmentInactive}

var listSort = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

type Store struct {
	db        *mongo.Database
	c         *mongo.Collection
	users     *userstore.Store
	rotations *rotationstore.Store
	log       *zap.Logger
}

func New(db *mongo.Database, log *zap.Logger) *Store {
	return &Store{
		db:        db,
		c:         db.Collection("assignments"),
		users:     userstore.New(db),
		rotations: rotationstore.New(db),
		log:       log,
	}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Assignment, error) {
	a, err := s.findOne(ctx, bson.M{"_id": id})
	if err != nil {
		return models.Assignment{}, err
	}
	return *a, nil
}

// findOne returns ErrNotFound when nothing matches.
func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.Assignment, error) {
	a, err := retry.Value(ctx, func(ctx context.Context) (*models.Assignment, error) {
		var a models.Assignment
		if err := s.c.FindOne(ctx, filter).Decode(&a); err != nil {
			return nil, err
		}
		return &a, nil
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	return a, err
}

// optional turns ErrNotFound into a nil result.
func optional(a *models.Assignment, err error) (*models.Assignment, error) {
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return a, err
}

// ActiveForResident returns the resident's active assignment, or nil.
func (s *Store) ActiveForResident(ctx context.Context, residentID primitive.ObjectID) (*models.Assignment, error) {
	return optional(s.findOne(ctx, bson.M{"resident_id": residentID, "status": models.AssignmentActive}))
}

// OpenFor returns the non-finished assignment of the resident in rotationID, or nil.
func (s *Store) OpenFor(ctx context.Context, residentID, rotationID primitive.ObjectID) (*models.Assignment, error) {
	return optional(s.findOne(ctx, bson.M{
		"resident_id": residentID,
		"rotation_id": rotationID,
		"status":      bson.M{"$in": openStatuses},
	}))
}

// HasTutorFor reports whether tutorID supervises any assignment of the
// resident in rotationID.
func (s *Store) HasTutorFor(ctx context.Context, tutorID, residentID, rotationID primitive.ObjectID) (bool, error) {
	n, err := retry.Value(ctx, func(ctx context.Context) (int64, error) {
		return s.c.CountDocuments(ctx, bson.M{
			"resident_id": residentID,
			"rotation_id": rotationID,
			"tutor_ids":   tutorID,
		}, options.Count().SetLimit(1))
	})
	return n > 0, err
}

// HasAssignment reports whether the resident has an assignment in rotationID,
// limited to statuses when given.
func (s *Store) HasAssignment(ctx context.Context, residentID, rotationID primitive.ObjectID, statuses ...string) (bool, error) {
	filter := bson.M{"resident_id": residentID, "rotation_id": rotationID}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	n, err := retry.Value(ctx, func(ctx context.Context) (int64, error) {
		return s.c.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	})
	return n > 0, err
}

// AssignInput describes a new assignment. Status defaults to planned.
type AssignInput struct {
	ResidentID primitive.ObjectID
	RotationID primitive.ObjectID
	TutorIDs   []primitive.ObjectID
	Status     string
	StartDate  *time.Time
	Notes      string
}

// AssignResidentToRotation creates an assignment after checking the people
// and rotation involved. A resident holds at most one active assignment and
// at most one non-finished assignment per rotation.
func (s *Store) AssignResidentToRotation(ctx context.Context, in AssignInput) (models.Assignment, error) {
	if in.Status == "" {
		in.Status = models.AssignmentPlanned
	}
	switch in.Status {
	case models.AssignmentPlanned, models.AssignmentActive, models.AssignmentInactive:
	default:
		return models.Assignment{}, ErrBadStatus
	}
	if err := s.checkResident(ctx, in.ResidentID); err != nil {
		return models.Assignment{}, err
	}
	if err := s.checkRotation(ctx, in.RotationID); err != nil {
		return models.Assignment{}, err
	}
	tutors, err := s.checkTutors(ctx, in.TutorIDs)
	if err != nil {
		return models.Assignment{}, err
	}

	now := time.Now().UTC()
	a := models.Assignment{
		ID:         primitive.NewObjectID(),
		ResidentID: in.ResidentID,
		RotationID: in.RotationID,
		TutorIDs:   tutors,
		Status:     in.Status,
		StartDate:  in.StartDate,
		Notes:      in.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if a.Status == models.AssignmentActive && a.StartDate == nil {
		a.StartDate = &now
	}

	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		open, err := s.OpenFor(ctx, in.ResidentID, in.RotationID)
		if err != nil {
			return err
		}
		if open != nil {
			return ErrOpenExists
		}
		if a.Status == models.AssignmentActive {
			cur, err := s.ActiveForResident(ctx, in.ResidentID)
			if err != nil {
				return err
			}
			if cur != nil {
				return ErrActiveExists
			}
		}
		return s.insert(ctx, a)
	})
	if err != nil {
		return models.Assignment{}, err
	}
	return a, nil
}

func (s *Store) insert(ctx context.Context, a models.Assignment) error {
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		if wafflemongo.IsDup(err) {
			return ErrActiveExists
		}
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

// TransferResult reports both sides of a transfer.
type TransferResult struct {
	Finished  models.Assignment `json:"finished"`
	Activated models.Assignment `json:"activated"`
}

// TransferAssignment moves a resident from their active rotation to
// toRotationID in one transaction. The current assignment is finished and the
// target rotation's planned or inactive assignment is activated, or a new
// active one is created. Non-empty tutorIDs replace the target's tutors.
func (s *Store) TransferAssignment(ctx context.Context, residentID, toRotationID primitive.ObjectID, tutorIDs []primitive.ObjectID) (TransferResult, error) {
	if err := s.checkRotation(ctx, toRotationID); err != nil {
		return TransferResult{}, err
	}
	tutors, err := s.checkTutors(ctx, tutorIDs)
	if err != nil {
		return TransferResult{}, err
	}

	var res TransferResult
	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		cur, err := s.ActiveForResident(ctx, residentID)
		if err != nil {
			return err
		}
		if cur == nil {
			return ErrNoActiveAssignment
		}
		if cur.RotationID == toRotationID {
			return ErrSameRotation
		}
		finished, activated, err := s.SwitchActive(ctx, residentID, toRotationID, tutors)
		if err != nil {
			return err
		}
		res = TransferResult{Finished: *finished, Activated: activated}
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}
	return res, nil
}

// SwitchActive finishes the resident's active assignment (if it is in another
// rotation) and activates their assignment in rotationID, creating it when
// there is no open one. It returns the finished assignment (nil if none) and
// the active one. Call it inside txn.Run.
func (s *Store) SwitchActive(ctx context.Context, residentID, rotationID primitive.ObjectID, tutorIDs []primitive.ObjectID) (*models.Assignment, models.Assignment, error) {
	now := time.Now().UTC()

	cur, err := s.ActiveForResident(ctx, residentID)
	if err != nil {
		return nil, models.Assignment{}, err
	}
	if cur != nil && cur.RotationID == rotationID {
		return nil, *cur, nil
	}
	var finished *models.Assignment
	if cur != nil {
		f, err := s.setStatus(ctx, *cur, models.AssignmentFinished, now)
		if err != nil {
			return nil, models.Assignment{}, err
		}
		finished = &f
	}

	open, err := s.OpenFor(ctx, residentID, rotationID)
	if err != nil {
		return nil, models.Assignment{}, err
	}
	if open == nil {
		if tutorIDs == nil {
			tutorIDs = []primitive.ObjectID{}
		}
		a := models.Assignment{
			ID:         primitive.NewObjectID(),
			ResidentID: residentID,
			RotationID: rotationID,
			TutorIDs:   tutorIDs,
			Status:     models.AssignmentActive,
			StartDate:  &now,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.insert(ctx, a); err != nil {
			return nil, models.Assignment{}, err
		}
		return finished, a, nil
	}

	if len(tutorIDs) > 0 {
		open.TutorIDs = tutorIDs
	}
	open.StartDate = &now
	set := bson.M{
		"status":     models.AssignmentActive,
		"start_date": now,
		"tutor_ids":  open.TutorIDs,
		"updated_at": now,
	}
	if _, err := s.c.UpdateByID(ctx, open.ID, bson.M{"$set": set, "$unset": bson.M{"end_date": ""}}); err != nil {
		if wafflemongo.IsDup(err) {
			return nil, models.Assignment{}, ErrActiveExists
		}
		return nil, models.Assignment{}, fmt.Errorf("activate assignment: %w", err)
	}
	open.Status = models.AssignmentActive
	open.EndDate = nil
	open.UpdatedAt = now
	return finished, *open, nil
}

// SetStatus moves an assignment along its lifecycle:
// planned→active|inactive, active→finished|inactive, inactive→planned|active.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, to string) (models.Assignment, error) {
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return models.Assignment{}, err
	}
	if !models.CanTransition(a.Status, to) {
		return models.Assignment{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, a.Status, to)
	}
	return s.setStatus(ctx, a, to, time.Now().UTC())
}

// FinishActive finishes the resident's active assignment in rotationID.
// Call it inside txn.Run.
func (s *Store) FinishActive(ctx context.Context, residentID, rotationID primitive.ObjectID) (models.Assignment, error) {
	cur, err := s.ActiveForResident(ctx, residentID)
	if err != nil {
		return models.Assignment{}, err
	}
	if cur == nil || cur.RotationID != rotationID {
		return models.Assignment{}, ErrNoActiveAssignment
	}
	return s.setStatus(ctx, *cur, models.AssignmentFinished, time.Now().UTC())
}

func (s *Store) setStatus(ctx context.Context, a models.Assignment, to string, now time.Time) (models.Assignment, error) {
	set := bson.M{"status": to, "updated_at": now}
	switch to {
	case models.AssignmentActive:
		if a.StartDate == nil {
			a.StartDate = &now
			set["start_date"] = now
		}
	case models.AssignmentFinished:
		a.EndDate = &now
		set["end_date"] = now
	}

	// Guard on the status we read so concurrent changes don't both apply.
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": a.ID, "status": a.Status}, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Assignment{}, ErrActiveExists
		}
		return models.Assignment{}, fmt.Errorf("set assignment status: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.Assignment{}, ErrInvalidTransition
	}
	a.Status = to
	a.UpdatedAt = now
	return a, nil
}

// UpdateTutors replaces the tutors of an assignment.
func (s *Store) UpdateTutors(ctx context.Context, id primitive.ObjectID, tutorIDs []primitive.ObjectID) (models.Assignment, error) {
	tutors, err := s.checkTutors(ctx, tutorIDs)
	if err != nil {
		return models.Assignment{}, err
	}
	var a models.Assignment
	err = s.c.FindOneAndUpdate(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"tutor_ids": tutors, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Assignment{}, ErrNotFound
	}
	if err != nil {
		return models.Assignment{}, fmt.Errorf("update tutors: %w", err)
	}
	return a, nil
}

func (s *Store) checkResident(ctx context.Context, id primitive.ObjectID) error {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, userstore.ErrNotFound) {
		return ErrNotResident
	}
	if err != nil {
		return err
	}
	if u.Role != models.RoleResident {
		return ErrNotResident
	}
	return nil
}

func (s *Store) checkRotation(ctx context.Context, id primitive.ObjectID) error {
	rot, err := s.rotations.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rot.Status != models.RotationActive {
		return ErrRotationInactive
	}
	return nil
}

// checkTutors deduplicates ids and verifies each is a tutor.
func (s *Store) checkTutors(ctx context.Context, ids []primitive.ObjectID) ([]primitive.ObjectID, error) {
	out := []primitive.ObjectID{}
	seen := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return out, nil
	}
	users, err := s.users.GetByIDs(ctx, out)
	if err != nil {
		return nil, err
	}
	for _, id := range out {
		u, ok := users[id]
		if !ok || u.Role != models.RoleTutor {
			return nil, ErrNotTutor
		}
	}
	return out, nil
}
