// internal/app/features/dashboard/tutor.go
package dashboard

import (
	"net/http"

	"github.com/dalemusser/residencyhub/internal/app/system/jsonutil"
	"github.com/dalemusser/residencyhub/internal/app/system/timeouts"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type supervisedResident struct {
	AssignmentID primitive.ObjectID `json:"assignment_id"`
	ResidentID   primitive.ObjectID `json:"resident_id"`
	ResidentName string             `json:"resident_name"`
	RotationID   primitive.ObjectID `json:"rotation_id"`
	RotationName string             `json:"rotation_name"`
	Percent      int                `json:"percent"`
}

type tutorData struct {
	Role             string                    `json:"role"`
	Residents        []supervisedResident      `json:"residents"`
	PendingTasks     []models.TaskDoc          `json:"pending_tasks"`
	PendingPetitions []models.RotationPetition `json:"pending_petitions"`
}

func (h *Handler) serveTutor(w http.ResponseWriter, r *http.Request, tutorID primitive.ObjectID) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "dashboard.tutor")
	defer cancel()

	active, err := h.Assignments.ListByTutor(ctx, tutorID, models.AssignmentActive)
	if err != nil {
		h.ErrLog.Respond(w, r, "tutor dashboard", err)
		return
	}
	var userIDs, rotIDs []primitive.ObjectID
	for _, a := range active {
		userIDs = append(userIDs, a.ResidentID)
		rotIDs = append(rotIDs, a.RotationID)
	}
	users, err := h.Users.GetByIDs(ctx, userIDs)
	if err != nil {
		h.ErrLog.Respond(w, r, "tutor dashboard", err)
		return
	}
	rots, err := h.Rotations.GetByIDs(ctx, rotIDs)
	if err != nil {
		h.ErrLog.Respond(w, r, "tutor dashboard", err)
		return
	}

	data := tutorData{Role: models.RoleTutor, Residents: make([]supervisedResident, 0, len(active))}
	for _, a := range active {
		row := supervisedResident{
			AssignmentID: a.ID,
			ResidentID:   a.ResidentID,
			ResidentName: users[a.ResidentID].FullName,
			RotationID:   a.RotationID,
			RotationName: rots[a.RotationID].Name,
		}
		if p, err := h.Tasks.Progress(ctx, a.ResidentID, a.RotationID); err == nil {
			row.Percent = p.Percent
		} else {
			h.Log.Warn("dashboard progress failed", zap.Error(err), zap.String("assignment_id", a.ID.Hex()))
		}
		data.Residents = append(data.Residents, row)
	}

	if data.PendingTasks, err = h.Tasks.ListForTutor(ctx, tutorID, nil, models.TaskPending); err != nil {
		h.ErrLog.Respond(w, r, "tutor dashboard", err)
		return
	}
	if data.PendingPetitions, err = h.Petitions.ListResolvable(ctx, tutorID, models.PetitionPending); err != nil {
		h.ErrLog.Respond(w, r, "tutor dashboard", err)
		return
	}
	jsonutil.OK(w, data)
}
