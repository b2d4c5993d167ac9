// internal/app/features/petitions/write.go
package petitions

import (
	"net/http"

	petitionstore "github.com/dalemusser/residencyhub/internal/app/store/petitions"
	"github.com/dalemusser/residencyhub/internal/app/system/authz"
	"github.com/dalemusser/residencyhub/internal/app/system/formutil"
	"github.com/dalemusser/residencyhub/internal/app/system/jsonutil"
	"github.com/dalemusser/residencyhub/internal/app/system/timeouts"
	"github.com/dalemusser/residencyhub/internal/app/system/validators"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type createRequest struct {
	RotationID string `json:"rotation_id" validate:"required,objectid"`
	Type       string `json:"type" validate:"required,oneof=activate finish"`
	Reason     string `json:"reason" validate:"max=1000"`
}

// HandleCreate handles POST /api/petitions. Residents file petitions for
// themselves only.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.CurrentActor(r)

	var req createRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "petitions: decode create", err, err.Error())
		return
	}
	if err := validators.Struct(req); err != nil {
		h.fail(w, r, "create petition", err)
		return
	}
	rotationID, _ := primitive.ObjectIDFromHex(req.RotationID)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "petitions.create")
	defer cancel()

	p, err := h.Petitions.Create(ctx, petitionstore.CreateInput{
		ResidentID: actor.ID,
		RotationID: rotationID,
		Type:       req.Type,
		Reason:     req.Reason,
	})
	if err != nil {
		h.fail(w, r, "create petition", err)
		return
	}
	h.AuditLog.PetitionCreated(ctx, r, p)
	jsonutil.Created(w, p)
}

type resolveRequest struct {
	Note string `json:"note" validate:"max=1000"`
}

// decodeResolve reads the optional note. An empty body is allowed.
func (h *Handler) decodeResolve(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, string, bool) {
	id, err := formutil.ObjectIDParam(r, "id")
	if err != nil {
		jsonutil.Error(w, http.StatusBadRequest, err.Error())
		return primitive.NilObjectID, "", false
	}
	var req resolveRequest
	if r.ContentLength != 0 {
		if err := jsonutil.Decode(r, &req); err != nil {
			h.ErrLog.LogBadRequest(w, r, "petitions: decode resolve", err, err.Error())
			return primitive.NilObjectID, "", false
		}
	}
	if err := validators.Struct(req); err != nil {
		h.fail(w, r, "resolve petition", err)
		return primitive.NilObjectID, "", false
	}
	return id, req.Note, true
}

// HandleApprove handles POST /api/petitions/{id}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.CurrentActor(r)
	id, note, ok := h.decodeResolve(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "petitions.approve")
	defer cancel()

	res, err := h.Petitions.Approve(ctx, id, petitionstore.Resolver{ID: actor.ID, Role: actor.Role}, note)
	if err != nil {
		h.fail(w, r, "approve petition", err)
		return
	}
	h.AuditLog.PetitionResolved(ctx, r, actor.ID, res.Petition)
	if res.Activated != nil {
		var finished *primitive.ObjectID
		if res.Finished != nil {
			finished = &res.Finished.ID
		}
		h.AuditLog.AssignmentTransferred(ctx, r, actor.ID, res.Petition.ResidentID, finished, *res.Activated)
	}
	h.Log.Info("petition approved",
		zap.String("petition_id", id.Hex()),
		zap.String("type", res.Petition.Type),
		zap.String("by", actor.ID.Hex()))
	jsonutil.OK(w, res)
}

// HandleDeny handles POST /api/petitions/{id}/deny.
func (h *Handler) HandleDeny(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.CurrentActor(r)
	id, note, ok := h.decodeResolve(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "petitions.deny")
	defer cancel()

	p, err := h.Petitions.Deny(ctx, id, petitionstore.Resolver{ID: actor.ID, Role: actor.Role}, note)
	if err != nil {
		h.fail(w, r, "deny petition", err)
		return
	}
	h.AuditLog.PetitionResolved(ctx, r, actor.ID, p)
	jsonutil.OK(w, p)
}

// HandleCancel handles POST /api/petitions/{id}/cancel.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.CurrentActor(r)
	id, err := formutil.ObjectIDParam(r, "id")
	if err != nil {
		jsonutil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "petitions.cancel")
	defer cancel()

	p, err := h.Petitions.Cancel(ctx, id, actor.ID)
	if err != nil {
		h.fail(w, r, "cancel petition", err)
		return
	}
	h.AuditLog.PetitionResolved(ctx, r, actor.ID, p)
	jsonutil.OK(w, p)
}
