package userstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/residencyhub/internal/app/system/normalize"
	"github.com/dalemusser/residencyhub/internal/app/system/retry"
	"github.com/dalemusser/residencyhub/internal/app/system/search"
	"github.com/dalemusser/residencyhub/internal/app/system/status"
	"github.com/dalemusser/residencyhub/internal/app/system/validators"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

// MaxStudyYear is the last year of residency.
const MaxStudyYear = 6

// MinPasswordLength applies to SetPassword.
const MinPasswordLength = 8

var (
	// ErrNotFound is returned when no user matches.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	ErrBadRole        = errors.New(`role must be "resident"|"tutor"|"admin"`)
	ErrBadStatus      = errors.New(`status must be "active"|"disabled"`)
	ErrBadAuthMethod  = errors.New("auth_method must be one of: " + models.AuthMethodsList())
	ErrBadEmail       = errors.New("email is not a valid address")
	ErrNameRequired   = errors.New("full_name is required")
	ErrBadStudyYear   = fmt.Errorf("study_year must be between 1 and %d", MaxStudyYear)
	ErrWeakPassword   = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
)

// withoutSecrets keeps password hashes out of list and lookup results.
var withoutSecrets = bson.M{"password_hash": 0}

type Store struct {
	c       *mongo.Collection
	matcher *search.Matcher
}

// New returns a Store that matches search text with the default synonyms.
func New(db *mongo.Database) *Store {
	return NewWithMatcher(db, search.New(search.DefaultGroups))
}

// NewWithMatcher returns a Store using m for synonym-aware search.
func NewWithMatcher(db *mongo.Database, m *search.Matcher) *Store {
	return &Store{c: db.Collection("users"), matcher: m}
}

func (s *Store) findOne(ctx context.Context, filter bson.M, withHash bool) (*models.User, error) {
	opts := options.FindOne()
	if !withHash {
		opts.SetProjection(withoutSecrets)
	}
	u, err := retry.Value(ctx, func(ctx context.Context) (*models.User, error) {
		var u models.User
		if err := s.c.FindOne(ctx, filter, opts).Decode(&u); err != nil {
			return nil, err
		}
		return &u, nil
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	return u, err
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id}, false)
}

// GetByEmail looks up a user by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": normalize.Email(email)}, false)
}

// GetForLogin loads a user by email including the password hash.
func (s *Store) GetForLogin(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": normalize.Email(email)}, true)
}

// GetByAuthUID finds a user by external identity subject.
func (s *Store) GetByAuthUID(ctx context.Context, uid string) (*models.User, error) {
	if uid == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"auth_uid": uid}, false)
}

// GetByIDs loads the given users keyed by ID. Missing IDs are skipped.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	out := make(map[primitive.ObjectID]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	err := retry.Do(ctx, func(ctx context.Context) error {
		cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetProjection(withoutSecrets))
		if err != nil {
			return err
		}
		defer cur.Close(ctx)
		for cur.Next(ctx) {
			var u models.User
			if err := cur.Decode(&u); err != nil {
				return err
			}
			out[u.ID] = u
		}
		return cur.Err()
	})
	return out, err
}

// normalizeUser canonicalizes and validates the fields Create and Sync write.
func normalizeUser(u *models.User) error {
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	u.Email = normalize.Email(u.Email)
	u.Role = normalize.Role(u.Role)
	u.Status = normalize.Status(u.Status)
	u.AuthMethod = normalize.AuthMethod(u.AuthMethod)
	if u.Status == "" {
		u.Status = status.Active
	}
	if u.AuthMethod == "" {
		u.AuthMethod = models.AuthPassword
	}

	switch {
	case u.FullName == "":
		return ErrNameRequired
	case !validators.IsEmail(u.Email):
		return ErrBadEmail
	case !models.IsValidRole(u.Role):
		return ErrBadRole
	case !status.IsValid(u.Status):
		return ErrBadStatus
	case !models.IsValidAuthMethod(u.AuthMethod):
		return ErrBadAuthMethod
	}

	if u.Role != models.RoleResident {
		u.StudyYear = 0
		u.ResidencyStart = nil
	} else if u.StudyYear < 0 || u.StudyYear > MaxStudyYear {
		return ErrBadStudyYear
	}
	return nil
}

// Create inserts a new user after normalizing & validating fields.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	if err := normalizeUser(&u); err != nil {
		return models.User{}, err
	}
	u.ID = primitive.NewObjectID()

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	u.PasswordHash = ""
	return u, nil
}

// Update holds the profile fields an admin may change. Nil fields are left alone.
type Update struct {
	FullName   *string
	Role       *string
	Status     *string
	AuthMethod *string
	StudyYear  *int
	Phone      *string
}

// Update applies upd to the user and returns the stored result.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (*models.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}

	if upd.FullName != nil {
		name := normalize.Name(*upd.FullName)
		if name == "" {
			return nil, ErrNameRequired
		}
		set["full_name"] = name
		set["full_name_ci"] = text.Fold(name)
	}
	if upd.Role != nil {
		role := normalize.Role(*upd.Role)
		if !models.IsValidRole(role) {
			return nil, ErrBadRole
		}
		set["role"] = role
		if role != models.RoleResident {
			unset["study_year"] = ""
			unset["residency_start"] = ""
		}
	}
	if upd.Status != nil {
		st := normalize.Status(*upd.Status)
		if !status.IsValid(st) {
			return nil, ErrBadStatus
		}
		set["status"] = st
	}
	if upd.AuthMethod != nil {
		am := normalize.AuthMethod(*upd.AuthMethod)
		if !models.IsValidAuthMethod(am) {
			return nil, ErrBadAuthMethod
		}
		set["auth_method"] = am
	}
	if upd.StudyYear != nil {
		if *upd.StudyYear < 1 || *upd.StudyYear > MaxStudyYear {
			return nil, ErrBadStudyYear
		}
		if _, clearing := unset["study_year"]; !clearing {
			set["study_year"] = *upd.StudyYear
		}
	}
	if upd.Phone != nil {
		set["phone"] = normalize.Name(*upd.Phone)
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var out models.User
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutSecrets)
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

// SetStatus enables or disables an account.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, st string) error {
	st = normalize.Status(st)
	if !status.IsValid(st) {
		return ErrBadStatus
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"status": st, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Disable marks the account disabled; its sessions stop resolving on the next request.
func (s *Store) Disable(ctx context.Context, id primitive.ObjectID) error {
	return s.SetStatus(ctx, id, status.Disabled)
}

// Enable re-activates a disabled account.
func (s *Store) Enable(ctx context.Context, id primitive.ObjectID) error {
	return s.SetStatus(ctx, id, status.Active)
}

// SetPassword stores a bcrypt hash of plain and switches the user to password auth.
func (s *Store) SetPassword(ctx context.Context, id primitive.ObjectID, plain string) error {
	if len(plain) < MinPasswordLength {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"password_hash": string(hash),
		"auth_method":   models.AuthPassword,
		"updated_at":    time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// VerifyPassword reports whether plain matches the user's stored hash.
func VerifyPassword(u *models.User, plain string) bool {
	if u == nil || u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}

// LinkAuthUID records the external identity subject on first federated sign-in.
func (s *Store) LinkAuthUID(ctx context.Context, id primitive.ObjectID, uid string) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"auth_uid": uid, "updated_at": time.Now().UTC()}})
	return err
}

// EmailExistsForOther checks if an email already exists for a user other than the given ID.
func (s *Store) EmailExistsForOther(ctx context.Context, email string, excludeID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{
		"email": normalize.Email(email),
		"_id":   bson.M{"$ne": excludeID},
	}).Err()
	if err == nil {
		return true, nil // found another user with this email
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return false, err
}
