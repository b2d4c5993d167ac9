// internal/app/system/csvutil/oncall.go
package csvutil

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dalemusser/residencyhub/internal/app/system/dateutil"
	"github.com/dalemusser/residencyhub/internal/app/system/normalize"
	"github.com/dalemusser/waffle/pantry/text"
)

// OnCallRow is one validated date,station,resident line. Resident is the raw
// email or full name; resolving it to a profile is the caller's job.
type OnCallRow struct {
	Line     int
	Date     time.Time // local midnight
	DateKey  string
	Station  string // canonical station name from configuration
	Resident string
}

// OnCallResult holds rows sorted by date, or the errors that reject the file.
type OnCallResult struct {
	Rows   []OnCallRow
	Errors []RowError
}

// HasErrors returns true if there are any validation errors.
func (r *OnCallResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Days groups rows by DateKey, preserving date order.
func (r *OnCallResult) Days() [][]OnCallRow {
	var out [][]OnCallRow
	for i, row := range r.Rows {
		if i == 0 || row.DateKey != r.Rows[i-1].DateKey {
			out = append(out, nil)
		}
		out[len(out)-1] = append(out[len(out)-1], row)
	}
	return out
}

var isOnCallHeader = headerMatcher("date", "fecha", "day")

// ParseOnCall reads an on-call roster. Each station must be one of stations
// (compared case- and accent-insensitively) and may appear once per date.
func ParseOnCall(r io.Reader, loc *time.Location, stations []string, opts ParseOptions) (OnCallResult, error) {
	var result OnCallResult

	recs, errs, err := readRecords(r, opts, isOnCallHeader)
	if err != nil {
		return result, err
	}
	result.Errors = errs

	canonical := make(map[string]string, len(stations))
	for _, s := range stations {
		canonical[text.Fold(normalize.Station(s))] = normalize.Station(s)
	}
	seen := make(map[string]int) // date_key|station -> line

	for _, rec := range recs {
		fail := func(format string, args ...any) {
			result.Errors = append(result.Errors, RowError{Line: rec.line, Reason: fmt.Sprintf(format, args...), Raw: rec.fields})
		}

		day, derr := dateutil.ParseDate(rec.field(0), loc)
		if derr != nil {
			fail("invalid date %q", rec.field(0))
			continue
		}
		station, ok := canonical[text.Fold(normalize.Station(rec.field(1)))]
		if !ok {
			fail("unknown station %q", rec.field(1))
			continue
		}
		resident := normalize.Name(rec.field(2))
		if resident == "" {
			fail("missing resident")
			continue
		}

		key := dateutil.Key(day, loc)
		if first, dup := seen[key+"|"+station]; dup {
			fail("station %s already assigned for %s on line %d", station, key, first)
			continue
		}
		seen[key+"|"+station] = rec.line

		result.Rows = append(result.Rows, OnCallRow{
			Line: rec.line, Date: day, DateKey: key, Station: station, Resident: resident,
		})
	}

	if len(result.Errors) > 0 {
		result.Rows = nil
		return result, nil
	}
	sort.SliceStable(result.Rows, func(i, j int) bool {
		return result.Rows[i].Date.Before(result.Rows[j].Date)
	})
	return result, nil
}
