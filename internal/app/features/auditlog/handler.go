// internal/app/features/auditlog/handler.go
package auditlog

import (
	"time"

	uierrors "github.com/dalemusser/residencyhub/internal/app/features/errors"
	"github.com/dalemusser/residencyhub/internal/app/store/audit"
	userstore "github.com/dalemusser/residencyhub/internal/app/store/users"
	"go.uber.org/zap"
)

type Handler struct {
	Audit  *audit.Store
	Users  *userstore.Store
	Loc    *time.Location
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

// NewHandler constructs the audit log reader. Dates in filters are read in loc.
func NewHandler(store *audit.Store, users *userstore.Store, loc *time.Location, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Audit:  store,
		Users:  users,
		Loc:    loc,
		Log:    logger,
		ErrLog: errLog,
	}
}
