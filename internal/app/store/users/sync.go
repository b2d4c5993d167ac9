package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/residencyhub/internal/app/system/normalize"
	"github.com/dalemusser/residencyhub/internal/app/system/status"
	"github.com/dalemusser/residencyhub/internal/app/system/validators"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// SyncEntry is one person from an external identity list.
type SyncEntry struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	AuthUID  string `json:"auth_uid,omitempty"`
	Role     string `json:"role,omitempty"` // used for new profiles and non-admin updates; default resident
}

// ItemError represents a per-item error during batch processing.
type ItemError struct {
	Row    int    `json:"row"` // 1-indexed position in the request
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// SyncResult summarizes a Sync run.
type SyncResult struct {
	Created   int         `json:"created"`
	Updated   int         `json:"updated"`
	Unchanged int         `json:"unchanged"`
	Errors    []ItemError `json:"errors"`
}

// Sync upserts profiles by email. Missing profiles are created as federated
// (google) accounts. Existing profiles get their name and auth_uid refreshed;
// their role follows the entry unless they are an admin, whose role is never
// changed. A bad entry is reported in Errors and does not stop the run; a
// database failure does.
func (s *Store) Sync(ctx context.Context, entries []SyncEntry) (SyncResult, error) {
	res := SyncResult{Errors: []ItemError{}}
	seen := make(map[string]bool, len(entries))

	for i, e := range entries {
		row := i + 1
		email := normalize.Email(e.Email)
		name := normalize.Name(e.FullName)
		role := normalize.Role(e.Role)
		fail := func(reason string) {
			res.Errors = append(res.Errors, ItemError{Row: row, Email: email, Reason: reason})
		}

		switch {
		case !validators.IsEmail(email):
			fail(ErrBadEmail.Error())
			continue
		case seen[email]:
			fail("duplicate entry in request")
			continue
		case role != "" && !models.IsValidRole(role):
			fail(ErrBadRole.Error())
			continue
		}
		seen[email] = true

		existing, err := s.findOne(ctx, bson.M{"email": email}, false)
		switch {
		case errors.Is(err, ErrNotFound):
			if name == "" {
				fail(ErrNameRequired.Error())
				continue
			}
			if role == "" {
				role = models.RoleResident
			}
			if err := s.syncCreate(ctx, email, name, role, e.AuthUID); err != nil {
				if wafflemongo.IsDup(err) {
					fail(ErrDuplicateEmail.Error())
					continue
				}
				return res, err
			}
			res.Created++
		case err != nil:
			return res, err
		default:
			changed, err := s.syncUpdate(ctx, existing, name, role, e.AuthUID)
			if err != nil {
				return res, err
			}
			if changed {
				res.Updated++
			} else {
				res.Unchanged++
			}
		}
	}
	return res, nil
}

func (s *Store) syncCreate(ctx context.Context, email, name, role, uid string) error {
	now := time.Now().UTC()
	u := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   name,
		FullNameCI: text.Fold(name),
		Email:      email,
		AuthMethod: models.AuthGoogle,
		AuthUID:    uid,
		Role:       role,
		Status:     status.Active,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_, err := s.c.InsertOne(ctx, u)
	return err
}

func (s *Store) syncUpdate(ctx context.Context, u *models.User, name, role, uid string) (bool, error) {
	set := bson.M{}
	if name != "" && name != u.FullName {
		set["full_name"] = name
		set["full_name_ci"] = text.Fold(name)
	}
	if uid != "" && uid != u.AuthUID {
		set["auth_uid"] = uid
	}
	if role != "" && role != u.Role && u.Role != models.RoleAdmin {
		set["role"] = role
	}
	if len(set) == 0 {
		return false, nil
	}
	set["updated_at"] = time.Now().UTC()

	update := bson.M{"$set": set}
	if r, ok := set["role"]; ok && r != models.RoleResident {
		update["$unset"] = bson.M{"study_year": "", "residency_start": ""}
	}
	if _, err := s.c.UpdateByID(ctx, u.ID, update); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
