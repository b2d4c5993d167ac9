// internal/app/features/assignments/write.go
package assignments

import (
	"net/http"

	assignmentstore "github.com/dalemusser/residencyhub/internal/app/store/assignments"
	"github.com/dalemusser/residencyhub/internal/app/system/authz"
	"github.com/dalemusser/residencyhub/internal/app/system/dateutil"
	"github.com/dalemusser/residencyhub/internal/app/system/formutil"
	"github.com/dalemusser/residencyhub/internal/app/system/jsonutil"
	"github.com/dalemusser/residencyhub/internal/app/system/timeouts"
	"github.com/dalemusser/residencyhub/internal/app/system/validators"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type createRequest struct {
	ResidentID string   `json:"resident_id" validate:"required,objectid"`
	RotationID string   `json:"rotation_id" validate:"required,objectid"`
	TutorIDs   []string `json:"tutor_ids" validate:"max=10,dive,objectid"`
	Status     string   `json:"status" validate:"omitempty,oneof=planned active inactive"`
	StartDate  string   `json:"start_date"`
	Notes      string   `json:"notes" validate:"max=2000"`
}

// HandleCreate handles POST /api/assignments.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.CurrentActor(r)

	var req createRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "assignments: decode create", err, err.Error())
		return
	}
	if err := validators.Struct(req); err != nil {
		h.fail(w, r, "create assignment", err)
		return
	}

	in := assignmentstore.AssignInput{Status: req.Status, Notes: req.Notes}
	in.ResidentID, _ = primitive.ObjectIDFromHex(req.ResidentID)
	in.RotationID, _ = primitive.ObjectIDFromHex(req.RotationID)
	tutors, err := formutil.ObjectIDs("tutor_ids", req.TutorIDs)
	if err != nil {
		jsonutil.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	in.TutorIDs = tutors
	if req.StartDate != "" {
		start, err := dateutil.ParseDate(req.StartDate, h.Loc)
		if err != nil {
			jsonutil.Error(w, http.StatusBadRequest, "start_date: "+err.Error())
			return
		}
		in.StartDate = &start
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "assignments.create")
	defer cancel()

	a, err := h.Assignments.AssignResidentToRotation(ctx, in)
	if err != nil {
		h.fail(w, r, "create assignment", err)
		return
	}
	h.AuditLog.AssignmentCreated(ctx, r, actor.ID, a)
	jsonutil.Created(w, a)
}

type transferRequest struct {
	ResidentID   string   `json:"resident_id" validate:"required,objectid"`
	ToRotationID string   `json:"to_rotation_id" validate:"required,objectid"`
	TutorIDs     []string `json:"tutor_ids" validate:"max=10,dive,objectid"`
}

// HandleTransfer handles POST /api/assignments/transfer. The resident's
// active assignment is finished and the target rotation's becomes active.
func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.CurrentActor(r)

	var req transferRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "assignments: decode transfer", err, err.Error())
		return
	}
	if err := validators.Struct(req); err != nil {
		h.fail(w, r, "transfer assignment", err)
		return
	}
	residentID, _ := primitive.ObjectIDFromHex(req.ResidentID)
	toRotationID, _ := primitive.ObjectIDFromHex(req.ToRotationID)
	tutors, err := formutil.ObjectIDs("tutor_ids", req.TutorIDs)
	if err != nil {
		jsonutil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "assignments.transfer")
	defer cancel()

	res, err := h.Assignments.TransferAssignment(ctx, residentID, toRotationID, tutors)
	if err != nil {
		h.fail(w, r, "transfer assignment", err)
		return
	}
	finished := res.Finished.ID
	h.AuditLog.AssignmentTransferred(ctx, r, actor.ID, residentID, &finished, res.Activated)
	h.Log.Info("assignment transferred",
		zap.String("resident_id", residentID.Hex()),
		zap.String("from_rotation", res.Finished.RotationID.Hex()),
		zap.String("to_rotation", res.Activated.RotationID.Hex()))
	jsonutil.OK(w, res)
}

type tutorsRequest struct {
	TutorIDs []string `json:"tutor_ids" validate:"max=10,dive,objectid"`
}

// HandleTutors handles PATCH /api/assignments/{id}/tutors.
func (h *Handler) HandleTutors(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.CurrentActor(r)

	id, err := formutil.ObjectIDParam(r, "id")
	if err != nil {
		jsonutil.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var req tutorsRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "assignments: decode tutors", err, err.Error())
		return
	}
	if err := validators.Struct(req); err != nil {
		h.fail(w, r, "update tutors", err)
		return
	}
	tutors, err := formutil.ObjectIDs("tutor_ids", req.TutorIDs)
	if err != nil {
		jsonutil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "assignments.tutors")
	defer cancel()

	a, err := h.Assignments.UpdateTutors(ctx, id, tutors)
	if err != nil {
		h.fail(w, r, "update tutors", err)
		return
	}
	h.AuditLog.AssignmentTutorsChanged(ctx, r, actor.ID, a)
	jsonutil.OK(w, a)
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=planned active finished inactive"`
}

// HandleStatus handles PATCH /api/assignments/{id}/status.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.CurrentActor(r)

	id, err := formutil.ObjectIDParam(r, "id")
	if err != nil {
		jsonutil.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var req statusRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "assignments: decode status", err, err.Error())
		return
	}
	if err := validators.Struct(req); err != nil {
		h.fail(w, r, "set assignment status", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "assignments.status")
	defer cancel()

	before, err := h.Assignments.GetByID(ctx, id)
	if err != nil {
		h.fail(w, r, "set assignment status", err)
		return
	}
	a, err := h.Assignments.SetStatus(ctx, id, req.Status)
	if err != nil {
		h.fail(w, r, "set assignment status", err)
		return
	}
	h.AuditLog.AssignmentStatusChanged(ctx, r, actor.ID, a, before.Status)
	jsonutil.OK(w, a)
}
