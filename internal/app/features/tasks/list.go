// internal/app/features/tasks/list.go
package tasks

import (
	"net/http"

	taskstore "github.com/dalemusser/residencyhub/internal/app/store/tasks"
	"github.com/dalemusser/residencyhub/internal/app/system/formutil"
	"github.com/dalemusser/residencyhub/internal/app/system/gates"
	"github.com/dalemusser/residencyhub/internal/app/system/jsonutil"
	"github.com/dalemusser/residencyhub/internal/app/system/timeouts"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeList handles GET /api/tasks?resident=&rotation=&status=.
// Residents see their own log; tutors see the residents they supervise.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	actor, ok := gates.Actor(w, r)
	if !ok {
		return
	}
	resident, err := formutil.OptionalObjectID(r, "resident")
	if err != nil {
		jsonutil.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	rotation, err := formutil.OptionalObjectID(r, "rotation")
	if err != nil {
		jsonutil.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	status := query.Get(r, "status")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "tasks.list")
	defer cancel()

	var rows []models.TaskDoc
	switch actor.Role {
	case models.RoleResident:
		id := actor.ID
		rows, err = h.Tasks.List(ctx, taskstore.ListFilter{ResidentID: &id, RotationID: rotation, Status: status})
	case models.RoleTutor:
		rows, err = h.Tasks.ListForTutor(ctx, actor.ID, resident, status)
		if err == nil && rotation != nil {
			rows = onlyRotation(rows, *rotation)
		}
	default:
		rows, err = h.Tasks.List(ctx, taskstore.ListFilter{ResidentID: resident, RotationID: rotation, Status: status})
	}
	if err != nil {
		h.fail(w, r, "list tasks", err)
		return
	}
	jsonutil.OK(w, map[string]any{"tasks": rows})
}

func onlyRotation(rows []models.TaskDoc, rotationID primitive.ObjectID) []models.TaskDoc {
	out := rows[:0]
	for _, t := range rows {
		if t.RotationID == rotationID {
			out = append(out, t)
		}
	}
	return out
}

// ServeProgress handles GET /api/progress/{residentID}/{rotationID}.
// Residents may only read their own progress and tutors only that of
// residents they supervise in the rotation.
func (h *Handler) ServeProgress(w http.ResponseWriter, r *http.Request) {
	actor, ok := gates.Actor(w, r)
	if !ok {
		return
	}
	residentID, err := formutil.ObjectIDParam(r, "residentID")
	if err != nil {
		jsonutil.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	rotationID, err := formutil.ObjectIDParam(r, "rotationID")
	if err != nil {
		jsonutil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "tasks.progress")
	defer cancel()

	switch actor.Role {
	case models.RoleResident:
		if residentID != actor.ID {
			jsonutil.Error(w, http.StatusForbidden, "residents may only view their own progress")
			return
		}
	case models.RoleTutor:
		ok, err := h.Assignments.HasTutorFor(ctx, actor.ID, residentID, rotationID)
		if err != nil {
			h.fail(w, r, "progress access", err)
			return
		}
		if !ok {
			jsonutil.Error(w, http.StatusForbidden, "you do not supervise this resident in this rotation")
			return
		}
	}

	rot, err := h.Rotations.GetByID(ctx, rotationID)
	if err != nil {
		h.fail(w, r, "progress rotation", err)
		return
	}
	p, err := h.Tasks.Progress(ctx, residentID, rotationID)
	if err != nil {
		h.fail(w, r, "progress", err)
		return
	}
	jsonutil.OK(w, map[string]any{"rotation": rot, "progress": p})
}
