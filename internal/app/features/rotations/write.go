// internal/app/features/rotations/write.go
package rotations

import (
	"errors"
	"net/http"
	"strings"

	rotationstore "github.com/dalemusser/residencyhub/internal/app/store/rotations"
	"github.com/dalemusser/residencyhub/internal/app/system/authz"
	"github.com/dalemusser/residencyhub/internal/app/system/csvutil"
	"github.com/dalemusser/residencyhub/internal/app/system/formutil"
	"github.com/dalemusser/residencyhub/internal/app/system/jsonutil"
	"github.com/dalemusser/residencyhub/internal/app/system/metrics"
	"github.com/dalemusser/residencyhub/internal/app/system/timeouts"
	"github.com/dalemusser/residencyhub/internal/app/system/validators"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"go.uber.org/zap"
)

type createRequest struct {
	Name        string `json:"name" validate:"notblank,max=120"`
	Description string `json:"description" validate:"max=2000"`
	Color       string `json:"color"`
}

// HandleCreate handles POST /api/rotations.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.CurrentActor(r)

	var req createRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "rotations: decode create", err, err.Error())
		return
	}
	if err := validators.Struct(req); err != nil {
		h.fail(w, r, "create rotation", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "rotations.create")
	defer cancel()

	rot, err := h.Rotations.Create(ctx, models.Rotation{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
	})
	if err != nil {
		h.fail(w, r, "create rotation", err)
		return
	}
	h.AuditLog.RotationCreated(ctx, r, actor.ID, rot)
	jsonutil.Created(w, rot)
}

type updateRequest struct {
	Name        *string `json:"name" validate:"omitempty,notblank,max=120"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Color       *string `json:"color"`
	Status      *string `json:"status" validate:"omitempty,oneof=active archived"`
}

func (u updateRequest) changed() []string {
	var out []string
	if u.Name != nil {
		out = append(out, "name")
	}
	if u.Description != nil {
		out = append(out, "description")
	}
	if u.Color != nil {
		out = append(out, "color")
	}
	if u.Status != nil {
		out = append(out, "status")
	}
	return out
}

// HandleUpdate handles PATCH /api/rotations/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.CurrentActor(r)

	id, err := formutil.ObjectIDParam(r, "id")
	if err != nil {
		jsonutil.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var req updateRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "rotations: decode update", err, err.Error())
		return
	}
	if err := validators.Struct(req); err != nil {
		h.fail(w, r, "update rotation", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "rotations.update")
	defer cancel()

	rot, err := h.Rotations.Update(ctx, id, rotationstore.Update{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Status:      req.Status,
	})
	if err != nil {
		h.fail(w, r, "update rotation", err)
		return
	}
	if fields := req.changed(); len(fields) > 0 {
		h.AuditLog.RotationUpdated(ctx, r, actor.ID, id, strings.Join(fields, ","))
	}
	jsonutil.OK(w, rot)
}

// HandleImport handles POST /api/rotations/import: multipart "file" (the
// curriculum CSV) and "name" (the rotation to create or replace).
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.CurrentActor(r)

	f, err := formutil.UploadedFile(w, r)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, formutil.ErrFileTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		jsonutil.Error(w, status, err.Error())
		return
	}
	defer f.Close()

	name := r.FormValue("name")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "rotations.import")
	defer cancel()

	res, err := h.Nodes.ImportRotationFromCsv(ctx, name, f)
	if err != nil {
		var rej *csvutil.RejectedError
		if errors.As(err, &rej) {
			metrics.ObserveImport("curriculum", 0, len(rej.Errors))
		}
		h.fail(w, r, "import curriculum", err)
		return
	}
	metrics.ObserveImport("curriculum", res.Tasks, 0)
	h.AuditLog.CurriculumImported(ctx, r, actor.ID, res.Rotation.ID, res.Nodes, res.Created)
	h.Log.Info("curriculum imported",
		zap.String("rotation", res.Rotation.Name),
		zap.Int("nodes", res.Nodes),
		zap.Bool("created", res.Created))

	if res.Created {
		jsonutil.Created(w, res)
		return
	}
	jsonutil.OK(w, res)
}
