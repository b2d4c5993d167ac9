// internal/app/features/meetings/list.go
package meetings

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/residencyhub/internal/app/system/dateutil"
	"github.com/dalemusser/residencyhub/internal/app/system/formutil"
	"github.com/dalemusser/residencyhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/residencyhub/internal/app/system/icsutil"
	"github.com/dalemusser/residencyhub/internal/app/system/jsonutil"
	"github.com/dalemusser/residencyhub/internal/app/system/timeouts"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

// load reads ?month= (default this month) or an explicit ?from=&to= range.
func (h *Handler) load(ctx context.Context, r *http.Request) ([]models.MorningMeeting, string, error) {
	loc := h.Meetings.Location()
	if query.Get(r, "from") != "" || query.Get(r, "to") != "" {
		from, to, err := formutil.DateRange(r, loc, 31)
		if err != nil {
			return nil, "", err
		}
		rows, err := h.Meetings.ListRange(ctx, from, to)
		label := dateutil.Key(from, loc) + "_" + dateutil.Key(dateutil.AddDays(to, -1, loc), loc)
		return rows, label, err
	}

	month := query.Get(r, "month")
	if month == "" {
		month = dateutil.MonthKey(time.Now(), loc)
	}
	rows, err := h.Meetings.ListMonth(ctx, month)
	return rows, month, err
}

// ServeList handles GET /api/meetings?month=&q= (or ?from=&to=).
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "meetings.list")
	defer cancel()

	rows, label, err := h.load(ctx, r)
	if err != nil {
		h.fail(w, r, "list meetings", err)
		return
	}
	if q := query.Get(r, "q"); q != "" {
		rows = h.Meetings.Filter(q, rows)
	}
	jsonutil.OK(w, map[string]any{"period": label, "meetings": rows})
}

// ServeCalendar handles GET /api/meetings/calendar.ics with the same period
// parameters as ServeList.
func (h *Handler) ServeCalendar(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "meetings.calendar")
	defer cancel()

	rows, label, err := h.load(ctx, r)
	if err != nil {
		h.fail(w, r, "meetings calendar", err)
		return
	}

	cal := icsutil.Calendar{Name: "Morning meetings"}
	for _, m := range rows {
		cal.Events = append(cal.Events, h.event(m))
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="meetings-%s.ics"`, label))
	if err := cal.Write(w); err != nil {
		h.Log.Warn("write calendar failed", zap.Error(err))
	}
}

func (h *Handler) event(m models.MorningMeeting) icsutil.Event {
	start := h.Start.On(m.Date, h.Meetings.Location())

	var desc []string
	for _, p := range []struct{ label, name string }{
		{"Lecturer", m.Lecturer},
		{"Moderator", m.Moderator},
		{"Organizer", m.Organizer},
	} {
		if p.name != "" {
			desc = append(desc, p.label+": "+p.name)
		}
	}
	if notes := htmlsanitize.ToText(m.Notes); notes != "" {
		desc = append(desc, "", notes)
	}

	return icsutil.Event{
		UID:         meetingUID(m),
		Summary:     m.Title,
		Description: strings.Join(desc, "\n"),
		URL:         m.Link,
		Start:       start,
		End:         start.Add(h.Duration),
		Stamp:       m.UpdatedAt,
	}
}

// meetingUID keys the event on the meeting's slot so a re-imported month
// updates subscribed calendars instead of duplicating every event.
func meetingUID(m models.MorningMeeting) string {
	return icsutil.StableUID("meeting", m.DateKey+"#"+strconv.Itoa(m.Order))
}
