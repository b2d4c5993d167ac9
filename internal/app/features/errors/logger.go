// internal/app/features/errors/logger.go
package errors

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/dalemusser/residencyhub/internal/app/system/csvutil"
	"github.com/dalemusser/residencyhub/internal/app/system/jsonutil"
	"github.com/dalemusser/residencyhub/internal/app/system/validators"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// maxRowErrors caps how many CSV row errors are echoed back to the client.
const maxRowErrors = 50

// Mapping pairs a sentinel error with the status it answers.
type Mapping struct {
	Err    error
	Status int
}

// ErrorLogger writes JSON error responses and logs the ones the client did
// not cause.
type ErrorLogger struct {
	Log *zap.Logger
}

// NewErrorLogger creates an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{Log: logger}
}

func (e *ErrorLogger) fields(r *http.Request, err error, extra []zap.Field) []zap.Field {
	fs := []zap.Field{
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}
	if id := middleware.GetReqID(r.Context()); id != "" {
		fs = append(fs, zap.String("request_id", id))
	}
	return append(fs, extra...)
}

// LogServerError logs err and answers 500 without leaking its text.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, extra ...zap.Field) {
	e.Log.Error(msg, e.fields(r, err, extra)...)
	jsonutil.Error(w, http.StatusInternalServerError, "internal server error")
}

// LogBadRequest answers 400 with userMsg and logs err at debug level.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	e.Log.Debug(msg, e.fields(r, err, nil)...)
	jsonutil.Error(w, http.StatusBadRequest, userMsg)
}

// Respond maps err to a JSON response. Request validation and CSV rejections
// answer 400 with per-field or per-row details; sentinels in table answer
// their status with the error text; a canceled or timed-out request answers
// 503; anything else is logged as a server error under op.
func (e *ErrorLogger) Respond(w http.ResponseWriter, r *http.Request, op string, err error, table ...Mapping) {
	var ve *validators.Error
	if stderrors.As(err, &ve) {
		jsonutil.Error(w, http.StatusBadRequest, "validation failed", ve.Details()...)
		return
	}
	var rej *csvutil.RejectedError
	if stderrors.As(err, &rej) {
		jsonutil.Error(w, http.StatusBadRequest, rej.Error(), csvutil.Messages(rej.Errors, maxRowErrors)...)
		return
	}
	for _, m := range table {
		if stderrors.Is(err, m.Err) {
			jsonutil.Error(w, m.Status, err.Error())
			return
		}
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		e.Log.Warn(op+": request did not finish", e.fields(r, err, nil)...)
		jsonutil.Error(w, http.StatusServiceUnavailable, "request timed out, try again")
		return
	}
	e.LogServerError(w, r, op, err)
}
