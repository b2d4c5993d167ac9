// internal/app/features/oncall/write.go
package oncall

import (
	"errors"
	"net/http"

	oncallstore "github.com/dalemusser/residencyhub/internal/app/store/oncall"
	"github.com/dalemusser/residencyhub/internal/app/system/authz"
	"github.com/dalemusser/residencyhub/internal/app/system/csvutil"
	"github.com/dalemusser/residencyhub/internal/app/system/dateutil"
	"github.com/dalemusser/residencyhub/internal/app/system/formutil"
	"github.com/dalemusser/residencyhub/internal/app/system/jsonutil"
	"github.com/dalemusser/residencyhub/internal/app/system/metrics"
	"github.com/dalemusser/residencyhub/internal/app/system/timeouts"
	"github.com/dalemusser/residencyhub/internal/app/system/validators"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type shiftItem struct {
	Station      string `json:"station" validate:"notblank"`
	ResidentID   string `json:"resident_id" validate:"omitempty,objectid"`
	ResidentName string `json:"resident_name" validate:"max=200"`
}

type setDayRequest struct {
	Shifts []shiftItem `json:"shifts" validate:"max=50,dive"`
}

// HandleSetDay handles PUT /api/oncall/{date}. The body's shifts replace the
// day's roster; an empty list clears it.
func (h *Handler) HandleSetDay(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.CurrentActor(r)

	day, err := dateutil.ParseDate(chi.URLParam(r, "date"), h.OnCall.Location())
	if err != nil {
		jsonutil.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var req setDayRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "oncall: decode day", err, err.Error())
		return
	}
	if err := validators.Struct(req); err != nil {
		h.fail(w, r, "set on-call day", err)
		return
	}

	shifts := make([]oncallstore.ShiftInput, 0, len(req.Shifts))
	for _, s := range req.Shifts {
		in := oncallstore.ShiftInput{Station: s.Station, ResidentName: s.ResidentName}
		if s.ResidentID != "" {
			id, _ := primitive.ObjectIDFromHex(s.ResidentID)
			in.ResidentID = &id
		}
		shifts = append(shifts, in)
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "oncall.set_day")
	defer cancel()

	saved, err := h.OnCall.SetDay(ctx, day, shifts)
	if err != nil {
		h.fail(w, r, "set on-call day", err)
		return
	}
	h.AuditLog.OnCallDaySet(ctx, r, actor.ID, saved.DateKey)
	jsonutil.OK(w, saved)
}

// HandleImport handles POST /api/oncall/import with a multipart "file"
// roster of date,station,resident lines.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.CurrentActor(r)

	f, err := formutil.UploadedFile(w, r)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, formutil.ErrFileTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		jsonutil.Error(w, status, err.Error())
		return
	}
	defer f.Close()

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "oncall.import")
	defer cancel()

	res, err := h.OnCall.Import(ctx, f)
	if err != nil {
		var rej *csvutil.RejectedError
		if errors.As(err, &rej) {
			metrics.ObserveImport("oncall", 0, len(rej.Errors))
		}
		h.fail(w, r, "import on-call", err)
		return
	}
	metrics.ObserveImport("oncall", res.Shifts, 0)
	h.AuditLog.OnCallImported(ctx, r, actor.ID, res.Days, res.Shifts, len(res.Unresolved))
	if len(res.Unresolved) > 0 {
		h.Log.Info("on-call import kept unresolved names",
			zap.Int("count", len(res.Unresolved)), zap.Strings("names", res.Unresolved))
	}
	jsonutil.OK(w, res)
}

// HandleBackfill handles POST /api/oncall/backfill. The same repair runs
// nightly from the scheduler.
func (h *Handler) HandleBackfill(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.CurrentActor(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "oncall.backfill")
	defer cancel()

	res, err := h.OnCall.Backfill(ctx, nil)
	if err != nil {
		h.fail(w, r, "backfill on-call", err)
		return
	}
	metrics.ObserveBackfill(res.Fixed, res.Merged)
	id := actor.ID
	h.AuditLog.OnCallBackfill(ctx, r, &id, res.Scanned, res.Fixed, res.Merged)
	jsonutil.OK(w, res)
}
