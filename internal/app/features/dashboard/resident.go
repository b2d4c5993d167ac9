// internal/app/features/dashboard/resident.go
package dashboard

import (
	"net/http"
	"time"

	petitionstore "github.com/dalemusser/residencyhub/internal/app/store/petitions"
	taskstore "github.com/dalemusser/residencyhub/internal/app/store/tasks"
	"github.com/dalemusser/residencyhub/internal/app/system/dateutil"
	"github.com/dalemusser/residencyhub/internal/app/system/jsonutil"
	"github.com/dalemusser/residencyhub/internal/app/system/timeouts"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type currentRotation struct {
	Assignment models.Assignment `json:"assignment"`
	Rotation   models.Rotation   `json:"rotation"`
	Tutors     []string          `json:"tutors"`
	Percent    int               `json:"percent"`
}

type residentData struct {
	Role          string                    `json:"role"`
	Current       *currentRotation          `json:"current"` // nil without an active assignment
	PendingTasks  []models.TaskDoc          `json:"pending_tasks"`
	OpenPetitions []models.RotationPetition `json:"open_petitions"`
	OnCall        []models.OnCallDay        `json:"on_call"`
	Meetings      []models.MorningMeeting   `json:"meetings"`
}

func (h *Handler) serveResident(w http.ResponseWriter, r *http.Request, residentID primitive.ObjectID) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "dashboard.resident")
	defer cancel()

	data := residentData{Role: models.RoleResident}

	a, err := h.Assignments.ActiveForResident(ctx, residentID)
	if err != nil {
		h.ErrLog.Respond(w, r, "resident dashboard", err)
		return
	}
	if a != nil {
		cur := &currentRotation{Assignment: *a, Tutors: []string{}}
		if cur.Rotation, err = h.Rotations.GetByID(ctx, a.RotationID); err != nil {
			h.ErrLog.Respond(w, r, "resident dashboard", err)
			return
		}
		tutors, err := h.Users.GetByIDs(ctx, a.TutorIDs)
		if err != nil {
			h.ErrLog.Respond(w, r, "resident dashboard", err)
			return
		}
		for _, id := range a.TutorIDs {
			if u, ok := tutors[id]; ok {
				cur.Tutors = append(cur.Tutors, u.FullName)
			}
		}
		p, err := h.Tasks.Progress(ctx, residentID, a.RotationID)
		if err != nil {
			h.ErrLog.Respond(w, r, "resident dashboard", err)
			return
		}
		cur.Percent = p.Percent
		data.Current = cur
	}

	if data.PendingTasks, err = h.Tasks.List(ctx, taskstore.ListFilter{ResidentID: &residentID, Status: models.TaskPending}); err != nil {
		h.ErrLog.Respond(w, r, "resident dashboard", err)
		return
	}
	if data.OpenPetitions, err = h.Petitions.List(ctx, petitionstore.ListFilter{ResidentID: &residentID, Status: models.PetitionPending}); err != nil {
		h.ErrLog.Respond(w, r, "resident dashboard", err)
		return
	}

	today := dateutil.Midnight(time.Now(), h.Loc)
	if data.OnCall, err = h.OnCall.ListForResident(ctx, residentID, today, dateutil.AddDays(today, onCallHorizon, h.Loc)); err != nil {
		h.ErrLog.Respond(w, r, "resident dashboard", err)
		return
	}
	if data.Meetings, err = h.Meetings.ListMonth(ctx, dateutil.MonthKey(time.Now(), h.Meetings.Location())); err != nil {
		h.ErrLog.Respond(w, r, "resident dashboard", err)
		return
	}
	jsonutil.OK(w, data)
}
