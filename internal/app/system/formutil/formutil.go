// Package formutil reads ids, dates and uploaded files out of requests.
//
// Every helper returns an error whose text is safe to show the caller, so
// handlers can answer 400 with err.Error() directly.
package formutil

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dalemusser/residencyhub/internal/app/system/csvutil"
	"github.com/dalemusser/residencyhub/internal/app/system/dateutil"
	"github.com/dalemusser/residencyhub/internal/app/system/limits"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNoFile is returned by UploadedFile when the "file" part is missing.
var ErrNoFile = errors.New(`multipart field "file" is required`)

// ErrFileTooLarge is returned by UploadedFile when the file exceeds csvutil.MaxUploadSize.
var ErrFileTooLarge = fmt.Errorf("file exceeds %d MB", csvutil.MaxUploadSize>>20)

// ErrBadRange is returned by DateRange when to falls before from.
var ErrBadRange = errors.New("to must not be before from")

// ObjectIDParam parses the chi URL parameter key as an ObjectID.
func ObjectIDParam(r *http.Request, key string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, key))
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%s must be a valid id", key)
	}
	return oid, nil
}

// OptionalObjectID parses query parameter key. It returns nil when the
// parameter is absent.
func OptionalObjectID(r *http.Request, key string) (*primitive.ObjectID, error) {
	v := query.Get(r, key)
	if v == "" {
		return nil, nil
	}
	oid, err := primitive.ObjectIDFromHex(v)
	if err != nil {
		return nil, fmt.Errorf("%s must be a valid id", key)
	}
	return &oid, nil
}

// ObjectIDs parses a list of hex ids.
func ObjectIDs(field string, hexes []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(hexes))
	for _, h := range hexes {
		oid, err := primitive.ObjectIDFromHex(h)
		if err != nil {
			return nil, fmt.Errorf("%s contains an invalid id %q", field, h)
		}
		out = append(out, oid)
	}
	return out, nil
}

// DateRange reads "from" and "to" (any dateutil input layout) in loc. Missing
// bounds default to today and today+days. to is exclusive: the day after the
// last one requested.
func DateRange(r *http.Request, loc *time.Location, days int) (from, to time.Time, err error) {
	today := dateutil.Midnight(time.Now(), loc)
	from, to = today, dateutil.AddDays(today, days, loc)

	if s := query.Get(r, "from"); s != "" {
		if from, err = dateutil.ParseDate(s, loc); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("from: %w", err)
		}
		to = dateutil.AddDays(from, days, loc)
	}
	if s := query.Get(r, "to"); s != "" {
		last, err := dateutil.ParseDate(s, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("to: %w", err)
		}
		to = dateutil.AddDays(last, 1, loc)
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, ErrBadRange
	}
	return from, to, nil
}

// UploadedFile parses a multipart request and returns the "file" part.
// The caller must close it.
func UploadedFile(w http.ResponseWriter, r *http.Request) (io.ReadCloser, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxUploadRequest)
	if err := r.ParseMultipartForm(limits.MaxMultipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, ErrFileTooLarge
		}
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		return nil, ErrNoFile
	}
	if hdr.Size > csvutil.MaxUploadSize {
		_ = f.Close()
		return nil, ErrFileTooLarge
	}
	return f, nil
}
