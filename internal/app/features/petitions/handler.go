// internal/app/features/petitions/handler.go
package petitions

import (
	"net/http"

	uierrors "github.com/dalemusser/residencyhub/internal/app/features/errors"
	assignmentstore "github.com/dalemusser/residencyhub/internal/app/store/assignments"
	petitionstore "github.com/dalemusser/residencyhub/internal/app/store/petitions"
	rotationstore "github.com/dalemusser/residencyhub/internal/app/store/rotations"
	"github.com/dalemusser/residencyhub/internal/app/system/auditlog"
	"go.uber.org/zap"
)

type Handler struct {
	Petitions *petitionstore.Store
	AuditLog  *auditlog.Logger
	ErrLog    *uierrors.ErrorLogger
	Log       *zap.Logger
}

func NewHandler(petitions *petitionstore.Store, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Petitions: petitions, AuditLog: audit, ErrLog: errLog, Log: logger}
}

var storeErrors = []uierrors.Mapping{
	{Err: petitionstore.ErrNotFound, Status: http.StatusNotFound},
	{Err: rotationstore.ErrNotFound, Status: http.StatusNotFound},
	{Err: petitionstore.ErrForbidden, Status: http.StatusForbidden},
	{Err: petitionstore.ErrDuplicatePending, Status: http.StatusConflict},
	{Err: petitionstore.ErrNotPending, Status: http.StatusConflict},
	{Err: petitionstore.ErrNotEligible, Status: http.StatusConflict},
	{Err: assignmentstore.ErrRotationInactive, Status: http.StatusConflict},
	{Err: assignmentstore.ErrActiveExists, Status: http.StatusConflict},
	{Err: assignmentstore.ErrNoActiveAssignment, Status: http.StatusConflict},
	{Err: petitionstore.ErrBadType, Status: http.StatusBadRequest},
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.ErrLog.Respond(w, r, op, err, storeErrors...)
}
