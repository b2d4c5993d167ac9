// internal/app/features/dashboard/admin.go
package dashboard

import (
	"net/http"

	metricsstore "github.com/dalemusser/residencyhub/internal/app/store/metrics"
	"github.com/dalemusser/residencyhub/internal/app/system/jsonutil"
	"github.com/dalemusser/residencyhub/internal/app/system/timeouts"
	"github.com/dalemusser/residencyhub/internal/domain/models"
)

type adminData struct {
	Role   string              `json:"role"`
	Counts metricsstore.Counts `json:"counts"`
}

func (h *Handler) serveAdmin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "dashboard.admin")
	defer cancel()

	jsonutil.OK(w, adminData{
		Role:   models.RoleAdmin,
		Counts: metricsstore.FetchDashboardCounts(ctx, h.DB),
	})
}
