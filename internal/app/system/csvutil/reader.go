// Package csvutil parses the CSV files admins upload: rotation curricula,
// morning-meeting rosters and on-call rosters.
//
// Every parser validates the whole file before anything is written. A file
// with any row error is rejected as a unit and all errors are reported with
// their line numbers.
package csvutil

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrTooManyRows is returned when a file has more data rows than allowed.
var ErrTooManyRows = errors.New("csv: too many rows")

// ParseOptions configures the parsers.
type ParseOptions struct {
	MaxRows int // 0 means unlimited
}

// DefaultParseOptions uses MaxRows.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{MaxRows: MaxRows}
}

// RowError describes one rejected line.
type RowError struct {
	Line   int      `json:"line"` // 1-based file line; 0 if unknown
	Reason string   `json:"reason"`
	Raw    []string `json:"raw,omitempty"`
}

func (e RowError) String() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return e.Reason
}

// RejectedError is returned by imports whose file had row errors. Nothing
// was written.
type RejectedError struct {
	Errors []RowError
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("csv: file rejected with %d invalid rows", len(e.Errors))
}

// Messages renders up to max errors as strings (all when max <= 0), adding
// a trailing "... and N more" when truncated.
func Messages(errs []RowError, max int) []string {
	n := len(errs)
	if max > 0 && n > max {
		n = max
	}
	out := make([]string, 0, n+1)
	for _, e := range errs[:n] {
		out = append(out, e.String())
	}
	if n < len(errs) {
		out = append(out, fmt.Sprintf("... and %d more", len(errs)-n))
	}
	return out
}

// record is one non-empty data row with its trimmed fields.
type record struct {
	line   int
	fields []string
}

// field returns the i-th column or "" when the row is short.
func (r record) field(i int) string {
	if i < len(r.fields) {
		return r.fields[i]
	}
	return ""
}

// readRecords reads every row of r. A leading UTF-8 BOM is dropped, the first
// row is skipped when isHeader reports true, blank rows are ignored and fields
// are trimmed. Malformed CSV lines are reported as RowErrors.
func readRecords(r io.Reader, opts ParseOptions, isHeader func([]string) bool) ([]record, []RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	// Rows are plain comma-delimited text: a quote inside a field is literal.
	reader.LazyQuotes = true

	var (
		out   []record
		errs  []RowError
		first = true
	)
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				errs = append(errs, RowError{Line: pe.StartLine, Reason: pe.Err.Error()})
				continue
			}
			return nil, nil, err
		}
		line, _ := reader.FieldPos(0)

		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		if first {
			first = false
			if len(rec) > 0 {
				rec[0] = strings.TrimSpace(strings.TrimPrefix(rec[0], "\ufeff"))
			}
			if isHeader(rec) {
				continue
			}
		}
		if blank(rec) {
			continue
		}
		if opts.MaxRows > 0 && len(out) >= opts.MaxRows {
			return nil, nil, ErrTooManyRows
		}
		out = append(out, record{line: line, fields: rec})
	}
	return out, errs, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if f != "" {
			return false
		}
	}
	return true
}

// headerMatcher returns a detector that treats a row as a header when its
// first column names one of the given words (case-insensitive).
func headerMatcher(words ...string) func([]string) bool {
	return func(rec []string) bool {
		if len(rec) == 0 {
			return false
		}
		c0 := strings.ToLower(strings.ReplaceAll(rec[0], " ", "_"))
		for _, w := range words {
			if c0 == w {
				return true
			}
		}
		return false
	}
}
