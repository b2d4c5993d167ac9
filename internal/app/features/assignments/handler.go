// internal/app/features/assignments/handler.go
package assignments

import (
	"net/http"
	"time"

	uierrors "github.com/dalemusser/residencyhub/internal/app/features/errors"
	assignmentstore "github.com/dalemusser/residencyhub/internal/app/store/assignments"
	rotationstore "github.com/dalemusser/residencyhub/internal/app/store/rotations"
	userstore "github.com/dalemusser/residencyhub/internal/app/store/users"
	"github.com/dalemusser/residencyhub/internal/app/system/auditlog"
	"go.uber.org/zap"
)

// Handler serves /api/assignments. Loc is the program time zone used to
// read start dates.
type Handler struct {
	Assignments *assignmentstore.Store
	Users       *userstore.Store
	Rotations   *rotationstore.Store
	Loc         *time.Location
	AuditLog    *auditlog.Logger
	ErrLog      *uierrors.ErrorLogger
	Log         *zap.Logger
}

func NewHandler(assignments *assignmentstore.Store, users *userstore.Store, rotations *rotationstore.Store, loc *time.Location, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Assignments: assignments,
		Users:       users,
		Rotations:   rotations,
		Loc:         loc,
		AuditLog:    audit,
		ErrLog:      errLog,
		Log:         logger,
	}
}

var storeErrors = []uierrors.Mapping{
	{Err: assignmentstore.ErrNotFound, Status: http.StatusNotFound},
	{Err: rotationstore.ErrNotFound, Status: http.StatusNotFound},
	{Err: assignmentstore.ErrActiveExists, Status: http.StatusConflict},
	{Err: assignmentstore.ErrOpenExists, Status: http.StatusConflict},
	{Err: assignmentstore.ErrInvalidTransition, Status: http.StatusConflict},
	{Err: assignmentstore.ErrNoActiveAssignment, Status: http.StatusConflict},
	{Err: assignmentstore.ErrSameRotation, Status: http.StatusConflict},
	{Err: assignmentstore.ErrRotationInactive, Status: http.StatusConflict},
	{Err: assignmentstore.ErrNotResident, Status: http.StatusBadRequest},
	{Err: assignmentstore.ErrNotTutor, Status: http.StatusBadRequest},
	{Err: assignmentstore.ErrBadStatus, Status: http.StatusBadRequest},
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.ErrLog.Respond(w, r, op, err, storeErrors...)
}
