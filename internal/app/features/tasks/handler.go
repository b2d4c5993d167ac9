// internal/app/features/tasks/handler.go
package tasks

import (
	"net/http"
	"time"

	uierrors "github.com/dalemusser/residencyhub/internal/app/features/errors"
	assignmentstore "github.com/dalemusser/residencyhub/internal/app/store/assignments"
	rotationnodestore "github.com/dalemusser/residencyhub/internal/app/store/rotationnodes"
	rotationstore "github.com/dalemusser/residencyhub/internal/app/store/rotations"
	taskstore "github.com/dalemusser/residencyhub/internal/app/store/tasks"
	"github.com/dalemusser/residencyhub/internal/app/system/auditlog"
	"go.uber.org/zap"
)

// Handler serves the task log, its review workflow and rotation progress.
type Handler struct {
	Tasks       *taskstore.Store
	Assignments *assignmentstore.Store
	Rotations   *rotationstore.Store
	Loc         *time.Location
	AuditLog    *auditlog.Logger
	ErrLog      *uierrors.ErrorLogger
	Log         *zap.Logger
}

func NewHandler(tasks *taskstore.Store, assignments *assignmentstore.Store, rotations *rotationstore.Store, loc *time.Location, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Tasks:       tasks,
		Assignments: assignments,
		Rotations:   rotations,
		Loc:         loc,
		AuditLog:    audit,
		ErrLog:      errLog,
		Log:         logger,
	}
}

var storeErrors = []uierrors.Mapping{
	{Err: taskstore.ErrNotFound, Status: http.StatusNotFound},
	{Err: rotationnodestore.ErrNotFound, Status: http.StatusNotFound},
	{Err: rotationstore.ErrNotFound, Status: http.StatusNotFound},
	{Err: taskstore.ErrForbidden, Status: http.StatusForbidden},
	{Err: taskstore.ErrNotPending, Status: http.StatusConflict},
	{Err: taskstore.ErrNotAssigned, Status: http.StatusConflict},
	{Err: taskstore.ErrNotTaskNode, Status: http.StatusBadRequest},
	{Err: taskstore.ErrBadCount, Status: http.StatusBadRequest},
	{Err: taskstore.ErrFutureDate, Status: http.StatusBadRequest},
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.ErrLog.Respond(w, r, op, err, storeErrors...)
}
