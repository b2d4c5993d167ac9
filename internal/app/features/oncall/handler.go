// internal/app/features/oncall/handler.go
package oncall

import (
	"net/http"

	uierrors "github.com/dalemusser/residencyhub/internal/app/features/errors"
	oncallstore "github.com/dalemusser/residencyhub/internal/app/store/oncall"
	"github.com/dalemusser/residencyhub/internal/app/system/auditlog"
	"github.com/dalemusser/residencyhub/internal/app/system/csvutil"
	"github.com/dalemusser/residencyhub/internal/app/system/dateutil"
	"github.com/dalemusser/residencyhub/internal/app/system/formutil"
	"go.uber.org/zap"
)

// Handler serves the on-call roster.
type Handler struct {
	OnCall   *oncallstore.Store
	AuditLog *auditlog.Logger
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(store *oncallstore.Store, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		OnCall:   store,
		AuditLog: audit,
		ErrLog:   errLog,
		Log:      logger,
	}
}

var storeErrors = []uierrors.Mapping{
	{Err: oncallstore.ErrNotFound, Status: http.StatusNotFound},
	{Err: oncallstore.ErrUnknownStation, Status: http.StatusBadRequest},
	{Err: oncallstore.ErrDuplicateStation, Status: http.StatusBadRequest},
	{Err: oncallstore.ErrResidentRequired, Status: http.StatusBadRequest},
	{Err: oncallstore.ErrUnknownResident, Status: http.StatusBadRequest},
	{Err: oncallstore.ErrBadRange, Status: http.StatusBadRequest},
	{Err: formutil.ErrBadRange, Status: http.StatusBadRequest},
	{Err: dateutil.ErrBadDate, Status: http.StatusBadRequest},
	{Err: csvutil.ErrTooManyRows, Status: http.StatusBadRequest},
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.ErrLog.Respond(w, r, op, err, storeErrors...)
}
