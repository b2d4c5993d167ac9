// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PageSize is the default number of rows returned by list endpoints.
const PageSize = 50

// MaxPageSize caps the "limit" query parameter.
const MaxPageSize = 200

// Page is a 1-based offset window over a sorted list.
type Page struct {
	Start int // 1-based index of the first row
	Limit int
}

// Parse reads "start" and "limit" from the request. Missing or invalid
// values fall back to 1 and PageSize.
func Parse(r *http.Request) Page {
	return Page{Start: ParseStart(r), Limit: ParseLimit(r)}
}

// ParseStart extracts the human-friendly "start" query parameter (1-based index).
// Returns 1 if not present or invalid.
func ParseStart(r *http.Request) int {
	n, err := strconv.Atoi(query.Get(r, "start"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// ParseLimit extracts "limit", clamped to [1, MaxPageSize].
func ParseLimit(r *http.Request) int {
	n, err := strconv.Atoi(query.Get(r, "limit"))
	if err != nil || n < 1 {
		return PageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// Skip is the number of rows before Start.
func (p Page) Skip() int64 {
	if p.Start < 1 {
		return 0
	}
	return int64(p.Start - 1)
}

// LimitPlusOne returns Limit+1 for look-ahead pagination
// (fetch one extra document to detect hasNext).
func (p Page) LimitPlusOne() int64 {
	return int64(p.size() + 1)
}

// Apply sets skip and look-ahead limit on find options.
func (p Page) Apply(find *options.FindOptions) *options.FindOptions {
	return find.SetSkip(p.Skip()).SetLimit(p.LimitPlusOne())
}

func (p Page) size() int {
	if p.Limit < 1 {
		return PageSize
	}
	return p.Limit
}

// Result describes the returned window.
type Result struct {
	Start     int  `json:"start"` // 0 if no results
	End       int  `json:"end"`
	HasPrev   bool `json:"has_prev"`
	HasNext   bool `json:"has_next"`
	PrevStart int  `json:"prev_start"`
	NextStart int  `json:"next_start"`
}

// Trim drops the look-ahead row fetched by Apply and computes the result window.
func Trim[T any](rows *[]T, p Page) Result {
	size := p.size()
	hasNext := false
	if len(*rows) > size {
		*rows = (*rows)[:size]
		hasNext = true
	}
	r := ComputeRange(p.Start, len(*rows), size)
	r.HasNext = hasNext
	r.HasPrev = p.Start > 1
	return r
}

// ComputeRange calculates display range values given the current start index,
// number of items shown and page size.
func ComputeRange(start, shown, pageSize int) Range {
	if start < 1 {
		start = 1
	}
	prevStart := start - pageSize
	if prevStart < 1 {
		prevStart = 1
	}
	if shown == 0 {
		return Result{PrevStart: prevStart, NextStart: start}
	}
	return Result{
		Start:     start,
		End:       start + shown - 1,
		PrevStart: prevStart,
		NextStart: start + shown,
	}
}

// Range is kept as an alias for callers that only need the display window.
type Range = Result
