// internal/app/features/dashboard/handler.go
package dashboard

import (
	"net/http"
	"time"

	uierrors "github.com/dalemusser/residencyhub/internal/app/features/errors"
	assignmentstore "github.com/dalemusser/residencyhub/internal/app/store/assignments"
	meetingstore "github.com/dalemusser/residencyhub/internal/app/store/meetings"
	oncallstore "github.com/dalemusser/residencyhub/internal/app/store/oncall"
	petitionstore "github.com/dalemusser/residencyhub/internal/app/store/petitions"
	rotationstore "github.com/dalemusser/residencyhub/internal/app/store/rotations"
	taskstore "github.com/dalemusser/residencyhub/internal/app/store/tasks"
	userstore "github.com/dalemusser/residencyhub/internal/app/store/users"
	"github.com/dalemusser/residencyhub/internal/app/system/gates"
	"github.com/dalemusser/residencyhub/internal/app/system/jsonutil"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// onCallHorizon is how far ahead the resident dashboard lists on-call shifts.
const onCallHorizon = 14

type Handler struct {
	DB          *mongo.Database
	Users       *userstore.Store
	Rotations   *rotationstore.Store
	Assignments *assignmentstore.Store
	Tasks       *taskstore.Store
	Petitions   *petitionstore.Store
	OnCall      *oncallstore.Store
	Meetings    *meetingstore.Store
	Loc         *time.Location
	ErrLog      *uierrors.ErrorLogger
	Log         *zap.Logger
}

// NewHandler builds the dashboard over db. The on-call and meeting stores
// carry program configuration (stations, time zone) so they are passed in.
func NewHandler(db *mongo.Database, oncall *oncallstore.Store, meetings *meetingstore.Store, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:          db,
		Users:       userstore.New(db),
		Rotations:   rotationstore.New(db),
		Assignments: assignmentstore.New(db, logger),
		Tasks:       taskstore.New(db, logger),
		Petitions:   petitionstore.New(db, logger),
		OnCall:      oncall,
		Meetings:    meetings,
		Loc:         oncall.Location(),
		ErrLog:      errLog,
		Log:         logger,
	}
}

// ServeDashboard handles GET /api/dashboard and answers with the view for
// the caller's role.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := gates.Actor(w, r)
	if !ok {
		return
	}

	switch actor.Role {
	case models.RoleAdmin:
		h.serveAdmin(w, r)
	case models.RoleTutor:
		h.serveTutor(w, r, actor.ID)
	case models.RoleResident:
		h.serveResident(w, r, actor.ID)
	default:
		jsonutil.Error(w, http.StatusForbidden, "no dashboard for role "+actor.Role)
	}
}
