// internal/app/features/users/list.go
package users

import (
	"net/http"

	userstore "github.com/dalemusser/residencyhub/internal/app/store/users"
	"github.com/dalemusser/residencyhub/internal/app/system/formutil"
	"github.com/dalemusser/residencyhub/internal/app/system/jsonutil"
	"github.com/dalemusser/residencyhub/internal/app/system/paging"
	"github.com/dalemusser/residencyhub/internal/app/system/timeouts"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

type listResponse struct {
	Users []models.User `json:"users"`
	Page  paging.Result `json:"page"`
}

// ServeList handles GET /api/users?role=&status=&q=&start=&limit=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "users.list")
	defer cancel()

	users, page, err := h.Users.ListUsers(ctx, userstore.ListFilter{
		Role:   query.Get(r, "role"),
		Status: query.Get(r, "status"),
		Query:  query.Get(r, "q"),
		Page:   paging.Parse(r),
	})
	if err != nil {
		h.fail(w, r, "list users", err)
		return
	}
	jsonutil.OK(w, listResponse{Users: users, Page: page})
}

// ServeGet handles GET /api/users/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, err := formutil.ObjectIDParam(r, "id")
	if err != nil {
		jsonutil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "users.get")
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		h.fail(w, r, "get user", err)
		return
	}
	jsonutil.OK(w, u)
}
