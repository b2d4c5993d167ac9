// internal/app/features/tasks/routes.go
package tasks

import (
	"github.com/dalemusser/residencyhub/internal/app/system/auth"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts /api/tasks.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.With(sm.RequireRole(models.RoleResident)).Post("/", h.HandleCreate)
	r.With(sm.RequireRole(models.RoleAdmin, models.RoleTutor)).Post("/{id}/review", h.HandleReview)
	return r
}

// ProgressRoutes mounts /api/progress.
func ProgressRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/{residentID}/{rotationID}", h.ServeProgress)
	return r
}
