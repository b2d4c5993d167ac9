// internal/app/features/meetings/handler.go
package meetings

import (
	"net/http"
	"time"

	uierrors "github.com/dalemusser/residencyhub/internal/app/features/errors"
	meetingstore "github.com/dalemusser/residencyhub/internal/app/store/meetings"
	"github.com/dalemusser/residencyhub/internal/app/system/auditlog"
	"github.com/dalemusser/residencyhub/internal/app/system/csvutil"
	"github.com/dalemusser/residencyhub/internal/app/system/dateutil"
	"github.com/dalemusser/residencyhub/internal/app/system/formutil"
	"go.uber.org/zap"
)

// Handler serves the morning-meeting calendar. Start and Duration place each
// meeting on its day for the calendar feed.
type Handler struct {
	Meetings *meetingstore.Store
	Start    dateutil.Clock
	Duration time.Duration
	AuditLog *auditlog.Logger
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(meetings *meetingstore.Store, start dateutil.Clock, duration time.Duration, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Meetings: meetings,
		Start:    start,
		Duration: duration,
		AuditLog: audit,
		ErrLog:   errLog,
		Log:      logger,
	}
}

var storeErrors = []uierrors.Mapping{
	{Err: meetingstore.ErrNotFound, Status: http.StatusNotFound},
	{Err: meetingstore.ErrOutsideMonth, Status: http.StatusBadRequest},
	{Err: meetingstore.ErrTitleRequired, Status: http.StatusBadRequest},
	{Err: meetingstore.ErrBadLink, Status: http.StatusBadRequest},
	{Err: meetingstore.ErrBadRange, Status: http.StatusBadRequest},
	{Err: dateutil.ErrBadMonth, Status: http.StatusBadRequest},
	{Err: dateutil.ErrBadDate, Status: http.StatusBadRequest},
	{Err: formutil.ErrBadRange, Status: http.StatusBadRequest},
	{Err: csvutil.ErrTooManyRows, Status: http.StatusBadRequest},
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.ErrLog.Respond(w, r, op, err, storeErrors...)
}
