// internal/app/features/rotations/routes.go
package rotations

import (
	"github.com/dalemusser/residencyhub/internal/app/system/auth"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts /api/rotations. Reads are open to every signed-in user;
// writes and curriculum imports are admin only.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeGet)
	r.Get("/{id}/tree", h.ServeTree)

	r.Group(func(r chi.Router) {
		r.Use(sm.RequireRole(models.RoleAdmin))
		r.Post("/", h.HandleCreate)
		r.Post("/import", h.HandleImport)
		r.Patch("/{id}", h.HandleUpdate)
	})
	return r
}
