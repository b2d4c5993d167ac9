package userstore

import (
	"context"
	"strings"

	"github.com/dalemusser/residencyhub/internal/app/system/normalize"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Directory resolves free-text roster names to user profiles.
type Directory struct {
	byEmail map[string]models.User
	byName  map[string][]models.User
}

// Directory snapshots every active user for name resolution during imports.
func (s *Store) Directory(ctx context.Context) (*Directory, error) {
	users, err := s.find(ctx, bson.M{"status": "active"},
		options.Find().SetProjection(bson.M{"_id": 1, "full_name": 1, "full_name_ci": 1, "email": 1, "role": 1}))
	if err != nil {
		return nil, err
	}
	return NewDirectory(users), nil
}

// NewDirectory indexes users by email and folded name.
func NewDirectory(users []models.User) *Directory {
	d := &Directory{
		byEmail: make(map[string]models.User, len(users)),
		byName:  make(map[string][]models.User, len(users)),
	}
	for _, u := range users {
		d.byEmail[normalize.Email(u.Email)] = u
		key := text.Fold(normalize.Name(u.FullName))
		d.byName[key] = append(d.byName[key], u)
	}
	return d
}

// Resolve maps an email or full name to a user. An email must match exactly;
// a name must match exactly one user after folding. Unresolved input comes
// back as a nil ID with the cleaned-up text as the name.
func (d *Directory) Resolve(s string) (*primitive.ObjectID, string) {
	s = normalize.Name(s)
	if s == "" {
		return nil, ""
	}
	if strings.Contains(s, "@") {
		if u, ok := d.byEmail[normalize.Email(s)]; ok {
			id := u.ID
			return &id, u.FullName
		}
		return nil, s
	}
	if hits := d.byName[text.Fold(s)]; len(hits) == 1 {
		id := hits[0].ID
		return &id, hits[0].FullName
	}
	return nil, s
}
