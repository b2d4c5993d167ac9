// internal/app/features/petitions/list.go
package petitions

import (
	"net/http"

	petitionstore "github.com/dalemusser/residencyhub/internal/app/store/petitions"
	"github.com/dalemusser/residencyhub/internal/app/system/formutil"
	"github.com/dalemusser/residencyhub/internal/app/system/gates"
	"github.com/dalemusser/residencyhub/internal/app/system/jsonutil"
	"github.com/dalemusser/residencyhub/internal/app/system/timeouts"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

// ServeList handles GET /api/petitions?status=. Residents see their own
// petitions, tutors the ones they may resolve and admins everything
// (optionally narrowed with ?resident=).
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	actor, ok := gates.Actor(w, r)
	if !ok {
		return
	}
	status := query.Get(r, "status")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "petitions.list")
	defer cancel()

	var rows []models.RotationPetition
	var err error
	switch actor.Role {
	case models.RoleResident:
		id := actor.ID
		rows, err = h.Petitions.List(ctx, petitionstore.ListFilter{ResidentID: &id, Status: status})
	case models.RoleTutor:
		rows, err = h.Petitions.ListResolvable(ctx, actor.ID, status)
	default:
		resident, perr := formutil.OptionalObjectID(r, "resident")
		if perr != nil {
			jsonutil.Error(w, http.StatusBadRequest, perr.Error())
			return
		}
		rows, err = h.Petitions.List(ctx, petitionstore.ListFilter{ResidentID: resident, Status: status})
	}
	if err != nil {
		h.fail(w, r, "list petitions", err)
		return
	}
	jsonutil.OK(w, map[string]any{"petitions": rows})
}
