// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles.
const (
	RoleResident = "resident"
	RoleTutor    = "tutor"
	RoleAdmin    = "admin"
)

// Roles lists every role in privilege order.
var Roles = []string{RoleResident, RoleTutor, RoleAdmin}

// User is the profile of everyone who signs in: residents, tutors and admins.
//
// NOTE:
//   - Rotation membership is not embedded on User.
//     Use the assignments collection to discover a resident's rotations.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName     string             `bson:"full_name" json:"full_name"`
	FullNameCI   string             `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	Email        string             `bson:"email" json:"email"`
	AuthMethod   string             `bson:"auth_method,omitempty" json:"auth_method,omitempty"`
	AuthUID      string             `bson:"auth_uid,omitempty" json:"auth_uid,omitempty"` // external identity subject
	PasswordHash string             `bson:"password_hash,omitempty" json:"-"`
	Role         string             `bson:"role" json:"role"` // resident | tutor | admin
	Status       string             `bson:"status" json:"status"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`

	// Resident-only fields.
	StudyYear      int        `bson:"study_year,omitempty" json:"study_year,omitempty"`
	ResidencyStart *time.Time `bson:"residency_start,omitempty" json:"residency_start,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	switch role {
	case RoleResident, RoleTutor, RoleAdmin:
		return true
	}
	return false
}
