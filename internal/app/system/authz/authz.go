// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/residencyhub/internal/app/system/auth"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's role (lowercased), name, Mongo ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "visitor", "", NilObjectID, false, so ok=true always means a signed-in user
// with a valid ObjectID.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in session: fail closed.
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, userID, true
}

// Actor is the signed-in user as the stores see it.
type Actor struct {
	ID   primitive.ObjectID
	Name string
	Role string
}

// IsAdmin reports whether the actor is an admin.
func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// CurrentActor returns the signed-in user as an Actor.
func CurrentActor(r *http.Request) (Actor, bool) {
	role, name, id, ok := UserCtx(r)
	if !ok {
		return Actor{}, false
	}
	return Actor{ID: id, Name: name, Role: role}, true
}

// IsAdmin reports whether the current request's user is an admin.
func IsAdmin(r *http.Request) bool {
	return HasRole(r, models.RoleAdmin)
}

// IsTutor reports whether the current request's user is a tutor.
func IsTutor(r *http.Request) bool {
	return HasRole(r, models.RoleTutor)
}

// IsResident reports whether the current request's user is a resident.
func IsResident(r *http.Request) bool {
	return HasRole(r, models.RoleResident)
}
