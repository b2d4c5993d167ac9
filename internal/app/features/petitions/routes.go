// internal/app/features/petitions/routes.go
package petitions

import (
	"github.com/dalemusser/residencyhub/internal/app/system/auth"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeList)

	r.Group(func(r chi.Router) {
		r.Use(sm.RequireRole(models.RoleResident))
		r.Post("/", h.HandleCreate)
		r.Post("/{id}/cancel", h.HandleCancel)
	})

	// Tutors pass the role check here; petitionstore decides whether they
	// supervise this particular resident.
	r.Group(func(r chi.Router) {
		r.Use(sm.RequireRole(models.RoleAdmin, models.RoleTutor))
		r.Post("/{id}/approve", h.HandleApprove)
		r.Post("/{id}/deny", h.HandleDeny)
	})
	return r
}
