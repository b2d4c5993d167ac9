// internal/app/store/petitions/petitionstore.go
package petitionstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	assignmentstore "github.com/dalemusser/residencyhub/internal/app/store/assignments"
	rotationstore "github.com/dalemusser/residencyhub/internal/app/store/rotations"
	"github.com/dalemusser/residencyhub/internal/app/system/normalize"
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
	ErrNotFound         = errors.New("petition not found")
	ErrDuplicatePending = errors.New("a pending petition of this type already exists for the rotation")
	ErrNotPending       = errors.New("petition is no longer pending")
	ErrBadType          = errors.New(`type must be "activate"|"finish"`)
	ErrNotEligible      = errors.New("the resident's assignments do not allow this petition")
	ErrForbidden        = errors.New("not allowed to resolve this petition")
)

var listSort = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

// Resolver is the user approving or denying a petition.
type Resolver struct {
	ID   primitive.ObjectID
	Role string
}

type Store struct {
	db          *mongo.Database
	c           *mongo.Collection
	assignments *assignmentstore.Store
	rotations   *rotationstore.Store
	log         *zap.Logger
}

func New(db *mongo.Database, log *zap.Logger) *Store {
	return &Store{
		db:          db,
		c:           db.Collection("rotation_petitions"),
		assignments: assignmentstore.New(db, log),
		rotations:   rotationstore.New(db),
		log:         log,
	}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.RotationPetition, error) {
	p, err := retry.Value(ctx, func(ctx context.Context) (models.RotationPetition, error) {
		var p models.RotationPetition
		err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
		return p, err
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.RotationPetition{}, ErrNotFound
	}
	return p, err
}

// CreateInput is a resident's petition for one of their rotations.
type CreateInput struct {
	ResidentID primitive.ObjectID
	RotationID primitive.ObjectID
	Type       string
	Reason     string
}

// Create files a pending petition.
//
// An activate petition needs an active rotation in which the resident is not
// already active. Having no assignment there is fine: approval creates one.
// A finish petition needs the resident's active assignment to be in that
// rotation.
func (s *Store) Create(ctx context.Context, in CreateInput) (models.RotationPetition, error) {
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	switch in.Type {
	case models.PetitionActivate:
		rot, err := s.rotations.GetByID(ctx, in.RotationID)
		if err != nil {
			return models.RotationPetition{}, err
		}
		if rot.Status != models.RotationActive {
			return models.RotationPetition{}, assignmentstore.ErrRotationInactive
		}
		active, err := s.assignments.HasAssignment(ctx, in.ResidentID, in.RotationID, models.AssignmentActive)
		if err != nil {
			return models.RotationPetition{}, err
		}
		if active {
			return models.RotationPetition{}, ErrNotEligible
		}
	case models.PetitionFinish:
		active, err := s.assignments.HasAssignment(ctx, in.ResidentID, in.RotationID, models.AssignmentActive)
		if err != nil {
			return models.RotationPetition{}, err
		}
		if !active {
			return models.RotationPetition{}, ErrNotEligible
		}
	default:
		return models.RotationPetition{}, ErrBadType
	}

	now := time.Now().UTC()
	p := models.RotationPetition{
		ID:         primitive.NewObjectID(),
		ResidentID: in.ResidentID,
		RotationID: in.RotationID,
		Type:       in.Type,
		Status:     models.PetitionPending,
		Reason:     strings.TrimSpace(in.Reason),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.RotationPetition{}, ErrDuplicatePending
		}
		return models.RotationPetition{}, fmt.Errorf("insert petition: %w", err)
	}
	return p, nil
}

// CanResolve reports whether the resolver may approve or deny p: admins
// always, tutors when they supervise the resident in that rotation.
func (s *Store) CanResolve(ctx context.Context, by Resolver, p models.RotationPetition) (bool, error) {
	switch by.Role {
	case models.RoleAdmin:
		return true, nil
	case models.RoleTutor:
		return s.assignments.HasTutorFor(ctx, by.ID, p.ResidentID, p.RotationID)
	}
	return false, nil
}

// ApproveResult reports the petition and the assignments it changed.
type ApproveResult struct {
	Petition  models.RotationPetition `json:"petition"`
	Finished  *models.Assignment      `json:"finished,omitempty"`
	Activated *models.Assignment      `json:"activated,omitempty"`
}

// Approve applies a pending petition in one transaction.
//
// activate finishes the resident's other active assignment, then activates
// (or creates) the assignment for the petition's rotation. finish sets the
// active assignment in the rotation to finished.
func (s *Store) Approve(ctx context.Context, id primitive.ObjectID, by Resolver, note string) (ApproveResult, error) {
	var res ApproveResult
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		res = ApproveResult{}
		p, err := s.pendingFor(ctx, id, by)
		if err != nil {
			return err
		}

		switch p.Type {
		case models.PetitionActivate:
			finished, activated, err := s.assignments.SwitchActive(ctx, p.ResidentID, p.RotationID, nil)
			if err != nil {
				return err
			}
			res.Finished = finished
			res.Activated = &activated
		case models.PetitionFinish:
			finished, err := s.assignments.FinishActive(ctx, p.ResidentID, p.RotationID)
			if err != nil {
				return err
			}
			res.Finished = &finished
		}

		resolved, err := s.resolve(ctx, p, models.PetitionApproved, &by.ID, note)
		if err != nil {
			return err
		}
		res.Petition = resolved
		return nil
	})
	if err != nil {
		return ApproveResult{}, err
	}
	return res, nil
}

// Deny rejects a pending petition.
func (s *Store) Deny(ctx context.Context, id primitive.ObjectID, by Resolver, note string) (models.RotationPetition, error) {
	p, err := s.pendingFor(ctx, id, by)
	if err != nil {
		return models.RotationPetition{}, err
	}
	return s.resolve(ctx, p, models.PetitionDenied, &by.ID, note)
}

// Cancel withdraws a pending petition. Only the resident who filed it may.
func (s *Store) Cancel(ctx context.Context, id, residentID primitive.ObjectID) (models.RotationPetition, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return models.RotationPetition{}, err
	}
	if p.ResidentID != residentID {
		return models.RotationPetition{}, ErrForbidden
	}
	if p.Status != models.PetitionPending {
		return models.RotationPetition{}, ErrNotPending
	}
	return s.resolve(ctx, p, models.PetitionCancelled, &residentID, "")
}

// pendingFor loads a petition the resolver may act on.
func (s *Store) pendingFor(ctx context.Context, id primitive.ObjectID, by Resolver) (models.RotationPetition, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return models.RotationPetition{}, err
	}
	ok, err := s.CanResolve(ctx, by, p)
	if err != nil {
		return models.RotationPetition{}, err
	}
	if !ok {
		return models.RotationPetition{}, ErrForbidden
	}
	if p.Status != models.PetitionPending {
		return models.RotationPetition{}, ErrNotPending
	}
	return p, nil
}

// resolve moves p out of pending. The update only matches while the stored
// petition is still pending, so two resolvers cannot both win.
func (s *Store) resolve(ctx context.Context, p models.RotationPetition, to string, by *primitive.ObjectID, note string) (models.RotationPetition, error) {
	now := time.Now().UTC()
	set := bson.M{
		"status":      to,
		"resolved_by": by,
		"resolved_at": now,
		"updated_at":  now,
	}
	if note = strings.TrimSpace(note); note != "" {
		set["resolution_note"] = note
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": p.ID, "status": models.PetitionPending}, bson.M{"$set": set})
	if err != nil {
		return models.RotationPetition{}, fmt.Errorf("resolve petition: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.RotationPetition{}, ErrNotPending
	}
	p.Status = to
	p.ResolvedBy = by
	p.ResolvedAt = &now
	p.ResolutionNote = note
	p.UpdatedAt = now
	return p, nil
}

// ListFilter narrows List. An empty Status (or "all") returns every status.
type ListFilter struct {
	ResidentID *primitive.ObjectID
	Status     string
}

// List returns petitions newest first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.RotationPetition, error) {
	filter := bson.M{}
	if f.ResidentID != nil {
		filter["resident_id"] = *f.ResidentID
	}
	if st := normalize.FilterAll(f.Status); st != "" {
		filter["status"] = st
	}
	return s.find(ctx, filter)
}

// ListResolvable returns the petitions tutorID may resolve: those for
// resident/rotation pairs on assignments the tutor supervises.
func (s *Store) ListResolvable(ctx context.Context, tutorID primitive.ObjectID, status string) ([]models.RotationPetition, error) {
	assigned, err := s.assignments.ListByTutor(ctx, tutorID, "")
	if err != nil {
		return nil, err
	}
	if len(assigned) == 0 {
		return []models.RotationPetition{}, nil
	}
	pairs := make([]bson.M, 0, len(assigned))
	seen := make(map[[2]primitive.ObjectID]bool, len(assigned))
	for _, a := range assigned {
		key := [2]primitive.ObjectID{a.ResidentID, a.RotationID}
		if seen[key] {
			continue
		}
		seen[key] = true
		pairs = append(pairs, bson.M{"resident_id": a.ResidentID, "rotation_id": a.RotationID})
	}
	filter := bson.M{"$or": pairs}
	if st := normalize.FilterAll(status); st != "" {
		filter["status"] = st
	}
	return s.find(ctx, filter)
}

// CountPending returns the number of petitions awaiting a decision.
func (s *Store) CountPending(ctx context.Context) (int64, error) {
	return retry.Value(ctx, func(ctx context.Context) (int64, error) {
		return s.c.CountDocuments(ctx, bson.M{"status": models.PetitionPending})
	})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.RotationPetition, error) {
	return retry.Value(ctx, func(ctx context.Context) ([]models.RotationPetition, error) {
		cur, err := s.c.Find(ctx, filter, options.Find().SetSort(listSort))
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)
		out := []models.RotationPetition{}
		if err := cur.All(ctx, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}
