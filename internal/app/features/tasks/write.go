// internal/app/features/tasks/write.go
package tasks

import (
	"net/http"
	"time"

	taskstore "github.com/dalemusser/residencyhub/internal/app/store/tasks"
	"github.com/dalemusser/residencyhub/internal/app/system/authz"
	"github.com/dalemusser/residencyhub/internal/app/system/dateutil"
	"github.com/dalemusser/residencyhub/internal/app/system/formutil"
	"github.com/dalemusser/residencyhub/internal/app/system/jsonutil"
	"github.com/dalemusser/residencyhub/internal/app/system/timeouts"
	"github.com/dalemusser/residencyhub/internal/app/system/validators"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type createRequest struct {
	NodeID      string `json:"node_id" validate:"required,objectid"`
	Count       int    `json:"count" validate:"omitempty,min=1,max=100"`
	PerformedOn string `json:"performed_on"`
	Note        string `json:"note" validate:"max=2000"`
}

// HandleCreate handles POST /api/tasks. performed_on is a calendar day in
// any accepted date layout; it defaults to now.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.CurrentActor(r)

	var req createRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "tasks: decode create", err, err.Error())
		return
	}
	if err := validators.Struct(req); err != nil {
		h.fail(w, r, "log task", err)
		return
	}
	nodeID, _ := primitive.ObjectIDFromHex(req.NodeID)
	if req.Count == 0 {
		req.Count = 1
	}
	var performed time.Time
	if req.PerformedOn != "" {
		d, err := dateutil.ParseDate(req.PerformedOn, h.Loc)
		if err != nil {
			jsonutil.Error(w, http.StatusBadRequest, "performed_on: "+err.Error())
			return
		}
		performed = d
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "tasks.create")
	defer cancel()

	t, err := h.Tasks.Create(ctx, taskstore.CreateInput{
		ResidentID:  actor.ID,
		NodeID:      nodeID,
		Count:       req.Count,
		PerformedOn: performed,
		Note:        req.Note,
	})
	if err != nil {
		h.fail(w, r, "log task", err)
		return
	}
	h.AuditLog.TaskLogged(ctx, r, t)
	jsonutil.Created(w, t)
}

type reviewRequest struct {
	Approve  *bool  `json:"approve" validate:"required"`
	Feedback string `json:"feedback" validate:"max=2000"`
}

// HandleReview handles POST /api/tasks/{id}/review.
func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.CurrentActor(r)

	id, err := formutil.ObjectIDParam(r, "id")
	if err != nil {
		jsonutil.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var req reviewRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "tasks: decode review", err, err.Error())
		return
	}
	if err := validators.Struct(req); err != nil {
		h.fail(w, r, "review task", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "tasks.review")
	defer cancel()

	t, err := h.Tasks.Review(ctx, id, taskstore.Reviewer{ID: actor.ID, Role: actor.Role}, *req.Approve, req.Feedback)
	if err != nil {
		h.fail(w, r, "review task", err)
		return
	}
	h.AuditLog.TaskReviewed(ctx, r, actor.ID, t)
	jsonutil.OK(w, t)
}
