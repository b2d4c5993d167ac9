// internal/app/features/rotations/list.go
package rotations

import (
	"net/http"

	rotationstore "github.com/dalemusser/residencyhub/internal/app/store/rotations"
	"github.com/dalemusser/residencyhub/internal/app/system/formutil"
	"github.com/dalemusser/residencyhub/internal/app/system/jsonutil"
	"github.com/dalemusser/residencyhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
)

// ServeList handles GET /api/rotations?status=&q=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "rotations.list")
	defer cancel()

	rows, err := h.Rotations.List(ctx, rotationstore.ListFilter{
		Status: query.Get(r, "status"),
		Query:  query.Get(r, "q"),
	})
	if err != nil {
		h.fail(w, r, "list rotations", err)
		return
	}
	jsonutil.OK(w, map[string]any{"rotations": rows})
}

// ServeGet handles GET /api/rotations/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, err := formutil.ObjectIDParam(r, "id")
	if err != nil {
		jsonutil.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "rotations.get")
	defer cancel()

	rot, err := h.Rotations.GetByID(ctx, id)
	if err != nil {
		h.fail(w, r, "get rotation", err)
		return
	}
	jsonutil.OK(w, rot)
}

// ServeTree handles GET /api/rotations/{id}/tree: the rotation and its
// curriculum nested category > subject > topic > task.
func (h *Handler) ServeTree(w http.ResponseWriter, r *http.Request) {
	id, err := formutil.ObjectIDParam(r, "id")
	if err != nil {
		jsonutil.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "rotations.tree")
	defer cancel()

	rot, err := h.Rotations.GetByID(ctx, id)
	if err != nil {
		h.fail(w, r, "get rotation", err)
		return
	}
	tree, err := h.Nodes.Tree(ctx, id)
	if err != nil {
		h.fail(w, r, "rotation tree", err)
		return
	}
	jsonutil.OK(w, map[string]any{"rotation": rot, "tree": tree})
}
