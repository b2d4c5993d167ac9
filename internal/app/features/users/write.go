// internal/app/features/users/write.go
package users

import (
	"net/http"
	"strings"

	userstore "github.com/dalemusser/residencyhub/internal/app/store/users"
	"github.com/dalemusser/residencyhub/internal/app/system/authz"
	"github.com/dalemusser/residencyhub/internal/app/system/formutil"
	"github.com/dalemusser/residencyhub/internal/app/system/jsonutil"
	"github.com/dalemusser/residencyhub/internal/app/system/timeouts"
	"github.com/dalemusser/residencyhub/internal/app/system/validators"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"go.uber.org/zap"
)

type createRequest struct {
	FullName   string `json:"full_name" validate:"notblank"`
	Email      string `json:"email" validate:"required,email"`
	Role       string `json:"role" validate:"required,role"`
	AuthMethod string `json:"auth_method" validate:"omitempty,oneof=password google trust"`
	Password   string `json:"password" validate:"omitempty,min=8"`
	StudyYear  int    `json:"study_year" validate:"omitempty,min=1,max=6"`
	Phone      string `json:"phone" validate:"max=40"`
}

// HandleCreate handles POST /api/users.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.CurrentActor(r)

	var req createRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "users: decode create", err, err.Error())
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	if err := validators.Struct(req); err != nil {
		h.fail(w, r, "create user", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "users.create")
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{
		FullName:   req.FullName,
		Email:      req.Email,
		Role:       req.Role,
		AuthMethod: req.AuthMethod,
		StudyYear:  req.StudyYear,
		Phone:      req.Phone,
	})
	if err != nil {
		h.fail(w, r, "create user", err)
		return
	}
	if req.Password != "" {
		if err := h.Users.SetPassword(ctx, u.ID, req.Password); err != nil {
			h.fail(w, r, "set password", err)
			return
		}
		u.AuthMethod = models.AuthPassword
	}

	h.AuditLog.UserCreated(ctx, r, actor.ID, u)
	h.Log.Info("user created", zap.String("user_id", u.ID.Hex()), zap.String("role", u.Role))
	jsonutil.Created(w, u)
}

type updateRequest struct {
	FullName   *string `json:"full_name" validate:"omitempty,notblank"`
	Role       *string `json:"role" validate:"omitempty,role"`
	Status     *string `json:"status" validate:"omitempty,oneof=active disabled"`
	AuthMethod *string `json:"auth_method" validate:"omitempty,oneof=password google trust"`
	StudyYear  *int    `json:"study_year" validate:"omitempty,min=1,max=6"`
	Phone      *string `json:"phone" validate:"omitempty,max=40"`
	Password   *string `json:"password" validate:"omitempty,min=8"`
}

// changed lists the JSON names of the fields present in the request.
func (u updateRequest) changed() []string {
	var out []string
	add := func(present bool, name string) {
		if present {
			out = append(out, name)
		}
	}
	add(u.FullName != nil, "full_name")
	add(u.Role != nil, "role")
	add(u.Status != nil, "status")
	add(u.AuthMethod != nil, "auth_method")
	add(u.StudyYear != nil, "study_year")
	add(u.Phone != nil, "phone")
	return out
}

// HandleUpdate handles PATCH /api/users/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.CurrentActor(r)

	id, err := formutil.ObjectIDParam(r, "id")
	if err != nil {
		jsonutil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	var req updateRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "users: decode update", err, err.Error())
		return
	}
	if req.Role != nil {
		role := strings.ToLower(strings.TrimSpace(*req.Role))
		req.Role = &role
	}
	if err := validators.Struct(req); err != nil {
		h.fail(w, r, "update user", err)
		return
	}
	if id == actor.ID && ((req.Role != nil && *req.Role != models.RoleAdmin) || (req.Status != nil && *req.Status != "active")) {
		jsonutil.Error(w, http.StatusConflict, "you cannot demote or disable your own account")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "users.update")
	defer cancel()

	u, err := h.Users.Update(ctx, id, userstore.Update{
		FullName:   req.FullName,
		Role:       req.Role,
		Status:     req.Status,
		AuthMethod: req.AuthMethod,
		StudyYear:  req.StudyYear,
		Phone:      req.Phone,
	})
	if err != nil {
		h.fail(w, r, "update user", err)
		return
	}
	if fields := req.changed(); len(fields) > 0 {
		h.AuditLog.UserUpdated(ctx, r, actor.ID, id, strings.Join(fields, ","))
	}

	if req.Password != nil {
		if err := h.Users.SetPassword(ctx, id, *req.Password); err != nil {
			h.fail(w, r, "set password", err)
			return
		}
		h.AuditLog.PasswordChanged(ctx, r, actor.ID, id)
		u.AuthMethod = models.AuthPassword
	}
	jsonutil.OK(w, u)
}

type syncRequest struct {
	Entries []userstore.SyncEntry `json:"entries" validate:"required,min=1,max=5000"`
}

// HandleSync handles POST /api/users/sync. Bad entries are reported per
// row in the response; they do not fail the request.
func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.CurrentActor(r)

	var req syncRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "users: decode sync", err, err.Error())
		return
	}
	if err := validators.Struct(req); err != nil {
		h.fail(w, r, "sync users", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "users.sync")
	defer cancel()

	res, err := h.Users.Sync(ctx, req.Entries)
	if err != nil {
		h.fail(w, r, "sync users", err)
		return
	}
	h.AuditLog.UsersSynced(ctx, r, actor.ID, res.Created, res.Updated, res.Unchanged, len(res.Errors))
	h.Log.Info("users synced",
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("unchanged", res.Unchanged),
		zap.Int("failed", len(res.Errors)))
	jsonutil.OK(w, res)
}
