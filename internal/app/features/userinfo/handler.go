// internal/app/features/userinfo/handler.go
package userinfo

import (
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/residencyhub/internal/app/features/errors"
	userstore "github.com/dalemusser/residencyhub/internal/app/store/users"
	"github.com/dalemusser/residencyhub/internal/app/system/authz"
	"github.com/dalemusser/residencyhub/internal/app/system/jsonutil"
	"github.com/dalemusser/residencyhub/internal/app/system/timeouts"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves the signed-in user's own profile.
type Handler struct {
	Users  *userstore.Store
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

// NewHandler creates a new userinfo handler.
func NewHandler(users *userstore.Store, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Users: users, ErrLog: errLog, Log: logger}
}

type meResponse struct {
	IsAuthenticated bool         `json:"is_authenticated"`
	User            *models.User `json:"user,omitempty"`
}

// ServeMe returns the current user's authentication status and profile.
//
// Response format:
//
//	{ "is_authenticated": bool, "user": { "id": "...", "full_name": "...", "role": "..." } }
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		jsonutil.OK(w, meResponse{})
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "userinfo.me")
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if errors.Is(err, userstore.ErrNotFound) {
		jsonutil.OK(w, meResponse{})
		return
	}
	if err != nil {
		h.ErrLog.Respond(w, r, "load current user", err)
		return
	}
	jsonutil.OK(w, meResponse{IsAuthenticated: true, User: u})
}
