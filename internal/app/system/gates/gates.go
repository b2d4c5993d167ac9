// Package gates provides authorization gate functions for HTTP handlers.
// Gates check authentication and role, answering 401 or 403 JSON when a
// check fails.
//
// # Three-Tier Authorization Pattern
//
//  1. Route-Level Middleware (auth.RequireSignedIn, auth.RequireRole)
//     Applied in routes.go files for coarse-grained access control.
//
//  2. Handler-Level Gates (this package)
//     Used in handlers mounted for several roles that still need the
//     caller as an authz.Actor, or a narrower role check than the group.
//
//  3. Store-Level Checks
//     Resource-specific rules that need the database, such as
//     petitionstore.CanResolve (admin or a tutor on the assignment).
//     Stores return ErrForbidden and handlers map it to 403.
//
// Don't use gates in handlers that are behind role-specific middleware
// only to repeat the same role check; call Actor to get the caller.
package gates

import (
	"net/http"

	uierrors "github.com/dalemusser/residencyhub/internal/app/features/errors"
	"github.com/dalemusser/residencyhub/internal/app/system/authz"
	"github.com/dalemusser/residencyhub/internal/domain/models"
)

// Actor returns the signed-in caller. When there is none it answers 401 and
// returns ok=false.
func Actor(w http.ResponseWriter, r *http.Request) (authz.Actor, bool) {
	a, ok := authz.CurrentActor(r)
	if !ok {
		uierrors.Unauthorized(w)
		return authz.Actor{}, false
	}
	return a, true
}

// RequireAdmin ensures the caller is signed in and an admin.
func RequireAdmin(w http.ResponseWriter, r *http.Request) (authz.Actor, bool) {
	return RequireAnyRole(w, r, models.RoleAdmin)
}

// RequireAnyRole ensures the caller is signed in with one of roles.
// It answers 401 when signed out and 403 when the role does not match.
func RequireAnyRole(w http.ResponseWriter, r *http.Request, roles ...string) (authz.Actor, bool) {
	a, ok := Actor(w, r)
	if !ok {
		return authz.Actor{}, false
	}
	for _, role := range roles {
		if a.Role == role {
			return a, true
		}
	}
	uierrors.Forbidden(w, "your role may not do this")
	return authz.Actor{}, false
}
