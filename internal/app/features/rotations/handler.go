// internal/app/features/rotations/handler.go
package rotations

import (
	"net/http"

	uierrors "github.com/dalemusser/residencyhub/internal/app/features/errors"
	rotationnodestore "github.com/dalemusser/residencyhub/internal/app/store/rotationnodes"
	rotationstore "github.com/dalemusser/residencyhub/internal/app/store/rotations"
	"github.com/dalemusser/residencyhub/internal/app/system/auditlog"
	"github.com/dalemusser/residencyhub/internal/app/system/csvutil"
	"go.uber.org/zap"
)

type Handler struct {
	Rotations *rotationstore.Store
	Nodes     *rotationnodestore.Store
	AuditLog  *auditlog.Logger
	ErrLog    *uierrors.ErrorLogger
	Log       *zap.Logger
}

func NewHandler(rotations *rotationstore.Store, nodes *rotationnodestore.Store, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Rotations: rotations, Nodes: nodes, AuditLog: audit, ErrLog: errLog, Log: logger}
}

var storeErrors = []uierrors.Mapping{
	{Err: rotationstore.ErrNotFound, Status: http.StatusNotFound},
	{Err: rotationstore.ErrDuplicateRotationName, Status: http.StatusConflict},
	{Err: rotationstore.ErrNameRequired, Status: http.StatusBadRequest},
	{Err: rotationstore.ErrBadStatus, Status: http.StatusBadRequest},
	{Err: rotationstore.ErrBadColor, Status: http.StatusBadRequest},
	{Err: rotationnodestore.ErrEmptyCurriculum, Status: http.StatusBadRequest},
	{Err: csvutil.ErrTooManyRows, Status: http.StatusBadRequest},
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.ErrLog.Respond(w, r, op, err, storeErrors...)
}
