// internal/app/features/meetings/write.go
package meetings

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	meetingstore "github.com/dalemusser/residencyhub/internal/app/store/meetings"
	"github.com/dalemusser/residencyhub/internal/app/system/authz"
	"github.com/dalemusser/residencyhub/internal/app/system/csvutil"
	"github.com/dalemusser/residencyhub/internal/app/system/dateutil"
	"github.com/dalemusser/residencyhub/internal/app/system/formutil"
	"github.com/dalemusser/residencyhub/internal/app/system/jsonutil"
	"github.com/dalemusser/residencyhub/internal/app/system/metrics"
	"github.com/dalemusser/residencyhub/internal/app/system/timeouts"
	"github.com/dalemusser/residencyhub/internal/app/system/validators"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// HandleImport handles POST /api/meetings/import?month=YYYY-MM with a
// multipart "file" roster. The month's meetings are replaced.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.CurrentActor(r)

	month := query.Get(r, "month")
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
	if month == "" {
		month = r.FormValue("month")
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "meetings.import")
	defer cancel()

	rows, err := h.Meetings.ImportMonthCSV(ctx, month, f)
	if err != nil {
		var rej *csvutil.RejectedError
		if errors.As(err, &rej) {
			metrics.ObserveImport("meetings", 0, len(rej.Errors))
		}
		h.fail(w, r, "import meetings", err)
		return
	}
	metrics.ObserveImport("meetings", len(rows), 0)
	h.AuditLog.MeetingsImported(ctx, r, actor.ID, month, len(rows))
	h.Log.Info("meetings imported", zap.String("month", month), zap.Int("count", len(rows)))
	jsonutil.OK(w, map[string]any{"month": month, "meetings": rows})
}

type meetingItem struct {
	Date      string `json:"date" validate:"required"`
	Order     int    `json:"order" validate:"min=0"`
	Title     string `json:"title" validate:"notblank,max=300"`
	Lecturer  string `json:"lecturer" validate:"max=200"`
	Moderator string `json:"moderator" validate:"max=200"`
	Organizer string `json:"organizer" validate:"max=200"`
	Link      string `json:"link" validate:"omitempty,httpurl"`
	Notes     string `json:"notes" validate:"max=20000"`
}

type replaceRequest struct {
	Meetings []meetingItem `json:"meetings" validate:"max=500,dive"`
}

// HandleReplaceMonth handles PUT /api/meetings/month/{month}. The body's
// meetings become the month's full set; an empty list clears the month.
func (h *Handler) HandleReplaceMonth(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.CurrentActor(r)
	month := chi.URLParam(r, "month")
	loc := h.Meetings.Location()

	var req replaceRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "meetings: decode replace", err, err.Error())
		return
	}
	if err := validators.Struct(req); err != nil {
		h.fail(w, r, "replace meetings", err)
		return
	}

	items := make([]meetingstore.MeetingInput, 0, len(req.Meetings))
	for i, m := range req.Meetings {
		day, err := dateutil.ParseDate(m.Date, loc)
		if err != nil {
			jsonutil.Error(w, http.StatusBadRequest, "invalid date", fmt.Sprintf("meetings[%d].date: %v", i, err))
			return
		}
		items = append(items, meetingstore.MeetingInput{
			Date:      day,
			Order:     m.Order,
			Title:     m.Title,
			Lecturer:  m.Lecturer,
			Moderator: m.Moderator,
			Organizer: m.Organizer,
			Link:      m.Link,
			Notes:     m.Notes,
		})
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "meetings.replace")
	defer cancel()

	rows, err := h.Meetings.ReplaceMonthMeetings(ctx, month, items)
	if err != nil {
		h.fail(w, r, "replace meetings", err)
		return
	}
	h.AuditLog.MeetingsReplaced(ctx, r, actor.ID, month, len(rows))
	jsonutil.OK(w, map[string]any{"month": month, "meetings": rows})
}

type updateRequest struct {
	Date      *string `json:"date"`
	Title     *string `json:"title" validate:"omitempty,notblank,max=300"`
	Lecturer  *string `json:"lecturer" validate:"omitempty,max=200"`
	Moderator *string `json:"moderator" validate:"omitempty,max=200"`
	Organizer *string `json:"organizer" validate:"omitempty,max=200"`
	Link      *string `json:"link" validate:"omitempty,max=2000"`
	Notes     *string `json:"notes" validate:"omitempty,max=20000"`
}

// HandleUpdate handles PATCH /api/meetings/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.CurrentActor(r)

	id, err := formutil.ObjectIDParam(r, "id")
	if err != nil {
		jsonutil.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var req updateRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "meetings: decode update", err, err.Error())
		return
	}
	if err := validators.Struct(req); err != nil {
		h.fail(w, r, "update meeting", err)
		return
	}
	u := meetingstore.Update{
		Title:     req.Title,
		Lecturer:  req.Lecturer,
		Moderator: req.Moderator,
		Organizer: req.Organizer,
		Link:      req.Link,
		Notes:     req.Notes,
	}
	if req.Date != nil {
		var day time.Time
		if day, err = dateutil.ParseDate(*req.Date, h.Meetings.Location()); err != nil {
			h.fail(w, r, "update meeting", err)
			return
		}
		u.Date = &day
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "meetings.update")
	defer cancel()

	m, err := h.Meetings.Update(ctx, id, u)
	if err != nil {
		h.fail(w, r, "update meeting", err)
		return
	}
	h.AuditLog.MeetingUpdated(ctx, r, actor.ID, id)
	jsonutil.OK(w, m)
}

// HandleDelete handles DELETE /api/meetings/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.CurrentActor(r)

	id, err := formutil.ObjectIDParam(r, "id")
	if err != nil {
		jsonutil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "meetings.delete")
	defer cancel()

	if err := h.Meetings.Delete(ctx, id); err != nil {
		h.fail(w, r, "delete meeting", err)
		return
	}
	h.AuditLog.MeetingDeleted(ctx, r, actor.ID, id)
	w.WriteHeader(http.StatusNoContent)
}
