// internal/app/features/auditlog/list.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/residencyhub/internal/app/store/audit"
	"github.com/dalemusser/residencyhub/internal/app/system/formutil"
	"github.com/dalemusser/residencyhub/internal/app/system/jsonutil"
	"github.com/dalemusser/residencyhub/internal/app/system/paging"
	"github.com/dalemusser/residencyhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// subjectHistoryLimit bounds GET /api/audit/subject/{id}.
const subjectHistoryLimit = 200

type listResponse struct {
	Events []listItem    `json:"events"`
	Total  int64         `json:"total"`
	Page   paging.Result `json:"page"`
}

// ServeList handles GET /api/audit?category=&event_type=&actor=&user=&from=&to=&start=&limit=.
// Events are newest first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	f := audit.QueryFilter{
		Category:  query.Get(r, "category"),
		EventType: query.Get(r, "event_type"),
	}
	if f.Category != "" {
		if _, ok := categories[f.Category]; !ok {
			jsonutil.Error(w, http.StatusBadRequest, "unknown category "+f.Category)
			return
		}
	}
	if f.EventType != "" && !knownEventType(f.Category, f.EventType) {
		jsonutil.Error(w, http.StatusBadRequest, "unknown event_type "+f.EventType)
		return
	}

	var err error
	if f.ActorID, err = formutil.OptionalObjectID(r, "actor"); err != nil {
		jsonutil.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.UserID, err = formutil.OptionalObjectID(r, "user"); err != nil {
		jsonutil.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if query.Get(r, "from") != "" || query.Get(r, "to") != "" {
		from, to, err := formutil.DateRange(r, h.Loc, 1)
		if err != nil {
			jsonutil.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		last := to.Add(-1)
		f.StartTime, f.EndTime = &from, &last
	}

	p := paging.Parse(r)
	f.Offset = p.Skip()
	f.Limit = p.LimitPlusOne()

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit.list")
	defer cancel()

	events, err := h.Audit.Query(ctx, f)
	if err != nil {
		h.ErrLog.Respond(w, r, "query audit events", err)
		return
	}
	total, err := h.Audit.CountByFilter(ctx, f)
	if err != nil {
		h.ErrLog.Respond(w, r, "count audit events", err)
		return
	}
	page := paging.Trim(&events, p)

	jsonutil.OK(w, listResponse{Events: h.resolve(ctx, events), Total: total, Page: page})
}

// ServeSubject handles GET /api/audit/subject/{id}: the history of one
// assignment, petition, task or rotation.
func (h *Handler) ServeSubject(w http.ResponseWriter, r *http.Request) {
	id, err := formutil.ObjectIDParam(r, "id")
	if err != nil {
		jsonutil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "audit.subject")
	defer cancel()

	events, err := h.Audit.GetBySubject(ctx, id, subjectHistoryLimit)
	if err != nil {
		h.ErrLog.Respond(w, r, "audit subject history", err)
		return
	}
	jsonutil.OK(w, map[string]any{"events": h.resolve(ctx, events)})
}

// resolve attaches user names. A lookup failure leaves ids unresolved.
func (h *Handler) resolve(ctx context.Context, events []audit.Event) []listItem {
	seen := make(map[primitive.ObjectID]bool)
	var ids []primitive.ObjectID
	for _, e := range events {
		for _, id := range []*primitive.ObjectID{e.ActorID, e.UserID} {
			if id != nil && !seen[*id] {
				seen[*id] = true
				ids = append(ids, *id)
			}
		}
	}

	names := map[primitive.ObjectID]string{}
	if len(ids) > 0 {
		users, err := h.Users.GetByIDs(ctx, ids)
		if err != nil {
			h.Log.Warn("failed to fetch user names for audit log", zap.Error(err))
		}
		for id, u := range users {
			names[id] = u.FullName
		}
	}

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		item := listItem{Event: e}
		if e.ActorID != nil {
			item.ActorName = names[*e.ActorID]
		}
		if e.UserID != nil {
			item.TargetName = names[*e.UserID]
		}
		items = append(items, item)
	}
	return items
}
