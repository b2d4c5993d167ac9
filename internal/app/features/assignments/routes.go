// internal/app/features/assignments/routes.go
package assignments

import (
	"github.com/dalemusser/residencyhub/internal/app/system/auth"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	// Listing is scoped by role inside the handler.
	r.Get("/", h.ServeList)

	r.Group(func(r chi.Router) {
		r.Use(sm.RequireRole(models.RoleAdmin))
		r.Post("/", h.HandleCreate)
		r.Post("/transfer", h.HandleTransfer)
		r.Patch("/{id}/tutors", h.HandleTutors)
		r.Patch("/{id}/status", h.HandleStatus)
	})
	return r
}
