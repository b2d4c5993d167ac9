// internal/app/store/rotations/rotationstore.go
package rotationstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/dalemusser/residencyhub/internal/app/system/normalize"
	"github.com/dalemusser/residencyhub/internal/app/system/retry"
	"github.com/dalemusser/residencyhub/internal/app/system/search"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound              = errors.New("rotation not found")
	ErrDuplicateRotationName = errors.New("a rotation with this name already exists")
	ErrNameRequired          = errors.New("name is required")
	ErrBadStatus             = fmt.Errorf(`status must be %q|%q`, models.RotationActive, models.RotationArchived)
	ErrBadColor              = errors.New(`color must look like "#1a2b3c"`)
)

var colorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

var listSort = bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}

type Store struct {
	c       *mongo.Collection
	matcher *search.Matcher
}

func New(db *mongo.Database) *Store {
	return NewWithMatcher(db, search.New(search.DefaultGroups))
}

// NewWithMatcher returns a Store using m for synonym-aware search.
func NewWithMatcher(db *mongo.Database, m *search.Matcher) *Store {
	return &Store{c: db.Collection("rotations"), matcher: m}
}

func validStatus(s string) bool {
	return s == models.RotationActive || s == models.RotationArchived
}

func (s *Store) Create(ctx context.Context, rot models.Rotation) (models.Rotation, error) {
	rot.Name = normalize.Name(rot.Name)
	if rot.Name == "" {
		return models.Rotation{}, ErrNameRequired
	}
	rot.NameCI = text.Fold(rot.Name)
	if rot.Status == "" {
		rot.Status = models.RotationActive
	}
	if !validStatus(rot.Status) {
		return models.Rotation{}, ErrBadStatus
	}
	if rot.Color != "" && !colorRe.MatchString(rot.Color) {
		return models.Rotation{}, ErrBadColor
	}
	now := time.Now().UTC()
	rot.ID = primitive.NewObjectID()
	rot.NodeCount = 0
	rot.CreatedAt = now
	rot.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, rot); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Rotation{}, ErrDuplicateRotationName
		}
		return models.Rotation{}, fmt.Errorf("insert rotation: %w", err)
	}
	return rot, nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Rotation, error) {
	rot, err := retry.Value(ctx, func(ctx context.Context) (models.Rotation, error) {
		var r models.Rotation
		err := s.c.FindOne(ctx, filter).Decode(&r)
		return r, err
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Rotation{}, ErrNotFound
	}
	return rot, err
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Rotation, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByName looks a rotation up by its case- and accent-insensitive name.
func (s *Store) GetByName(ctx context.Context, name string) (models.Rotation, error) {
	return s.findOne(ctx, bson.M{"name_ci": text.Fold(normalize.Name(name))})
}

// GetByIDs loads the given rotations keyed by ID. Missing IDs are skipped.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Rotation, error) {
	out := make(map[primitive.ObjectID]models.Rotation, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = r
	}
	return out, nil
}

// EnsureByName returns the rotation called name, creating an active one
// when none exists.
func (s *Store) EnsureByName(ctx context.Context, name string) (rot models.Rotation, created bool, err error) {
	rot, err = s.GetByName(ctx, name)
	if err == nil {
		return rot, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return models.Rotation{}, false, err
	}
	rot, err = s.Create(ctx, models.Rotation{Name: name})
	if err != nil {
		return models.Rotation{}, false, err
	}
	return rot, true, nil
}

// Update holds the mutable rotation fields. Nil fields are left unchanged.
type Update struct {
	Name        *string
	Description *string
	Color       *string
	Status      *string
}

// Update applies u and returns the stored rotation.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, u Update) (models.Rotation, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if u.Name != nil {
		name := normalize.Name(*u.Name)
		if name == "" {
			return models.Rotation{}, ErrNameRequired
		}
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	if u.Description != nil {
		set["description"] = normalize.Name(*u.Description)
	}
	if u.Color != nil {
		if *u.Color != "" && !colorRe.MatchString(*u.Color) {
			return models.Rotation{}, ErrBadColor
		}
		set["color"] = *u.Color
	}
	if u.Status != nil {
		if !validStatus(*u.Status) {
			return models.Rotation{}, ErrBadStatus
		}
		set["status"] = *u.Status
	}

	var rot models.Rotation
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&rot)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return models.Rotation{}, ErrNotFound
	case wafflemongo.IsDup(err):
		return models.Rotation{}, ErrDuplicateRotationName
	case err != nil:
		return models.Rotation{}, fmt.Errorf("update rotation: %w", err)
	}
	return rot, nil
}

// SetNodeCount records how many curriculum nodes the rotation has.
func (s *Store) SetNodeCount(ctx context.Context, id primitive.ObjectID, n int) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"node_count": n,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("set node_count: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFilter narrows List. An empty Status (or "all") returns every rotation.
type ListFilter struct {
	Status string
	Query  string
}

// List returns rotations sorted by name. Query matches name and description
// with synonyms, so "er" finds "Emergency Room".
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Rotation, error) {
	filter := bson.M{}
	if st := normalize.FilterAll(f.Status); st != "" {
		filter["status"] = st
	}
	rows, err := s.find(ctx, filter, options.Find().SetSort(listSort))
	if err != nil {
		return nil, err
	}
	if q := normalize.QueryParam(f.Query); q != "" {
		rows = search.Filter(s.matcher, q, rows, func(r models.Rotation) []string {
			return []string{r.Name, r.Description}
		})
	}
	return rows, nil
}

// Count returns how many rotations have the given status ("" for all).
func (s *Store) Count(ctx context.Context, status string) (int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return retry.Value(ctx, func(ctx context.Context) (int64, error) {
		return s.c.CountDocuments(ctx, filter)
	})
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Rotation, error) {
	return retry.Value(ctx, func(ctx context.Context) ([]models.Rotation, error) {
		cur, err := s.c.Find(ctx, filter, opts)
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)
		out := []models.Rotation{}
		if err := cur.All(ctx, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}
