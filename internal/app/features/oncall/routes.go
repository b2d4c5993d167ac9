// internal/app/features/oncall/routes.go
package oncall

import (
	"github.com/dalemusser/residencyhub/internal/app/system/auth"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts /api/oncall. Every signed-in user can read the roster.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Get("/export.xlsx", h.ServeExport)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(models.RoleAdmin))
		pr.Post("/import", h.HandleImport)
		pr.Post("/backfill", h.HandleBackfill)
		pr.Put("/{date}", h.HandleSetDay)
	})
	return r
}
