// internal/app/features/assignments/list.go
package assignments

import (
	"context"
	"net/http"

	assignmentstore "github.com/dalemusser/residencyhub/internal/app/store/assignments"
	"github.com/dalemusser/residencyhub/internal/app/system/authz"
	"github.com/dalemusser/residencyhub/internal/app/system/formutil"
	"github.com/dalemusser/residencyhub/internal/app/system/gates"
	"github.com/dalemusser/residencyhub/internal/app/system/jsonutil"
	"github.com/dalemusser/residencyhub/internal/app/system/timeouts"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// assignmentView is an assignment with the names a client needs to show it.
type assignmentView struct {
	models.Assignment
	ResidentName string   `json:"resident_name"`
	RotationName string   `json:"rotation_name"`
	TutorNames   []string `json:"tutor_names"`
}

// ServeList handles GET /api/assignments?resident=&tutor=&rotation=&status=.
// Residents only ever see their own assignments and tutors only the ones they
// supervise.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	actor, ok := gates.Actor(w, r)
	if !ok {
		return
	}

	var f assignmentstore.ListFilter
	var err error
	if f.ResidentID, err = formutil.OptionalObjectID(r, "resident"); err != nil {
		jsonutil.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.TutorID, err = formutil.OptionalObjectID(r, "tutor"); err != nil {
		jsonutil.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.RotationID, err = formutil.OptionalObjectID(r, "rotation"); err != nil {
		jsonutil.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	f.Status = query.Get(r, "status")
	scope(actor, &f)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "assignments.list")
	defer cancel()

	rows, err := h.Assignments.List(ctx, f)
	if err != nil {
		h.fail(w, r, "list assignments", err)
		return
	}
	views, err := h.views(ctx, rows)
	if err != nil {
		h.fail(w, r, "list assignments", err)
		return
	}
	jsonutil.OK(w, map[string]any{"assignments": views})
}

// scope narrows f to what actor may see.
func scope(actor authz.Actor, f *assignmentstore.ListFilter) {
	switch actor.Role {
	case models.RoleResident:
		id := actor.ID
		f.ResidentID = &id
	case models.RoleTutor:
		id := actor.ID
		f.TutorID = &id
	}
}

func (h *Handler) views(ctx context.Context, rows []models.Assignment) ([]assignmentView, error) {
	var userIDs, rotIDs []primitive.ObjectID
	for _, a := range rows {
		userIDs = append(userIDs, a.ResidentID)
		userIDs = append(userIDs, a.TutorIDs...)
		rotIDs = append(rotIDs, a.RotationID)
	}
	users, err := h.Users.GetByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	rots, err := h.Rotations.GetByIDs(ctx, rotIDs)
	if err != nil {
		return nil, err
	}

	out := make([]assignmentView, 0, len(rows))
	for _, a := range rows {
		v := assignmentView{
			Assignment:   a,
			ResidentName: users[a.ResidentID].FullName,
			RotationName: rots[a.RotationID].Name,
			TutorNames:   []string{},
		}
		for _, id := range a.TutorIDs {
			if u, ok := users[id]; ok {
				v.TutorNames = append(v.TutorNames, u.FullName)
			}
		}
		out = append(out, v)
	}
	return out, nil
}
