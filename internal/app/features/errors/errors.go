// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/residencyhub/internal/app/system/jsonutil"
)

// Handler is the errors feature handler.
// No DB needed; it answers unmatched routes with JSON.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// NotFound answers routes that matched nothing.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	jsonutil.Error(w, http.StatusNotFound, "not found")
}

// MethodNotAllowed answers a known path hit with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	jsonutil.Error(w, http.StatusMethodNotAllowed, "method not allowed")
}

// Unauthorized answers requests that need a signed-in user.
func Unauthorized(w http.ResponseWriter) {
	jsonutil.Error(w, http.StatusUnauthorized, "authentication required")
}

// Forbidden answers requests the signed-in user may not make.
func Forbidden(w http.ResponseWriter, msg string) {
	if msg == "" {
		msg = "forbidden"
	}
	jsonutil.Error(w, http.StatusForbidden, msg)
}
