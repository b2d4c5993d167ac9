// internal/app/features/users/handler.go
package users

import (
	"net/http"

	uierrors "github.com/dalemusser/residencyhub/internal/app/features/errors"
	userstore "github.com/dalemusser/residencyhub/internal/app/store/users"
	"github.com/dalemusser/residencyhub/internal/app/system/auditlog"
	"go.uber.org/zap"
)

// Handler is the feature-level entry point for user administration.
type Handler struct {
	Users    *userstore.Store
	AuditLog *auditlog.Logger
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

// NewHandler constructs a users Handler.
func NewHandler(users *userstore.Store, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Users: users, AuditLog: audit, ErrLog: errLog, Log: logger}
}

var storeErrors = []uierrors.Mapping{
	{Err: userstore.ErrNotFound, Status: http.StatusNotFound},
	{Err: userstore.ErrDuplicateEmail, Status: http.StatusConflict},
	{Err: userstore.ErrBadRole, Status: http.StatusBadRequest},
	{Err: userstore.ErrBadStatus, Status: http.StatusBadRequest},
	{Err: userstore.ErrBadAuthMethod, Status: http.StatusBadRequest},
	{Err: userstore.ErrBadEmail, Status: http.StatusBadRequest},
	{Err: userstore.ErrNameRequired, Status: http.StatusBadRequest},
	{Err: userstore.ErrBadStudyYear, Status: http.StatusBadRequest},
	{Err: userstore.ErrWeakPassword, Status: http.StatusBadRequest},
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.ErrLog.Respond(w, r, op, err, storeErrors...)
}
