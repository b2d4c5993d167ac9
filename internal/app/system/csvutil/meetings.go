// internal/app/system/csvutil/meetings.go
package csvutil

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dalemusser/residencyhub/internal/app/system/dateutil"
	"github.com/dalemusser/residencyhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/residencyhub/internal/app/system/normalize"
	"github.com/dalemusser/residencyhub/internal/app/system/validators"
)

// MeetingRow is one validated morning-meeting line.
type MeetingRow struct {
	Line      int
	Date      time.Time // local midnight
	DateKey   string
	Order     int // 1-based position within the day
	Title     string
	Lecturer  string
	Moderator string
	Organizer string
	Link      string
	Notes     string // sanitized HTML
}

// MeetingsResult holds rows sorted by date then file order, or the errors
// that reject the file.
type MeetingsResult struct {
	Rows   []MeetingRow
	Errors []RowError
}

// HasErrors returns true if there are any validation errors.
func (r *MeetingsResult) HasErrors() bool {
	return len(r.Errors) > 0
}

var isMeetingsHeader = headerMatcher("date", "fecha", "day")

// ParseMeetings reads a roster with columns
// date,title,lecturer,moderator,organizer,link,notes.
// Dates are interpreted in loc.
func ParseMeetings(r io.Reader, loc *time.Location, opts ParseOptions) (MeetingsResult, error) {
	var result MeetingsResult

	recs, errs, err := readRecords(r, opts, isMeetingsHeader)
	if err != nil {
		return result, err
	}
	result.Errors = errs

	for _, rec := range recs {
		var reasons []string

		day, derr := dateutil.ParseDate(rec.field(0), loc)
		if derr != nil {
			reasons = append(reasons, fmt.Sprintf("invalid date %q", rec.field(0)))
		}
		title := normalize.Name(rec.field(1))
		if title == "" {
			reasons = append(reasons, "missing title")
		}
		link := strings.TrimSpace(rec.field(5))
		if link != "" && !validators.IsHTTPURL(link) {
			reasons = append(reasons, fmt.Sprintf("link %q must be an absolute http(s) URL", link))
		}
		if len(reasons) > 0 {
			result.Errors = append(result.Errors, RowError{Line: rec.line, Reason: strings.Join(reasons, "; "), Raw: rec.fields})
			continue
		}

		result.Rows = append(result.Rows, MeetingRow{
			Line:      rec.line,
			Date:      day,
			DateKey:   dateutil.Key(day, loc),
			Title:     title,
			Lecturer:  normalize.Name(rec.field(2)),
			Moderator: normalize.Name(rec.field(3)),
			Organizer: normalize.Name(rec.field(4)),
			Link:      link,
			Notes:     htmlsanitize.Notes(rec.field(6)),
		})
	}

	if len(result.Errors) > 0 {
		result.Rows = nil
		return result, nil
	}

	sort.SliceStable(result.Rows, func(i, j int) bool {
		return result.Rows[i].Date.Before(result.Rows[j].Date)
	})
	NumberByDay(result.Rows)
	return result, nil
}

// NumberByDay assigns Order 1..n within each run of equal DateKey.
// rows must already be sorted by date.
func NumberByDay(rows []MeetingRow) {
	for i := range rows {
		if i > 0 && rows[i].DateKey == rows[i-1].DateKey {
			rows[i].Order = rows[i-1].Order + 1
		} else {
			rows[i].Order = 1
		}
	}
}
