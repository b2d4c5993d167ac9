// internal/app/system/csvutil/curriculum.go
package csvutil

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dalemusser/residencyhub/internal/app/system/normalize"
	"github.com/dalemusser/residencyhub/internal/app/system/validators"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
)

// Curriculum columns: category,subject,topic,task,required_count,link_label,link_url
const (
	colCategory = iota
	colSubject
	colTopic
	colTask
	colRequired
	colLinkLabel
	colLinkURL
)

// CurriculumTask is one leaf of a rotation curriculum with the links
// gathered from every row that named it.
type CurriculumTask struct {
	Line          int // first line the task appeared on
	Category      string
	Subject       string
	Topic         string
	Task          string
	RequiredCount int
	Links         []models.Link
}

// Path returns the folded "category/subject/topic/task" key.
func (t CurriculumTask) Path() string {
	return FoldPath(t.Category, t.Subject, t.Topic, t.Task)
}

// pathEscaper keeps a "/" inside a segment distinct from the separator.
var pathEscaper = strings.NewReplacer(`\`, `\\`, "/", `\/`)

// FoldPath joins folded path segments with "/". Backslashes and slashes
// inside a segment are escaped with a backslash.
func FoldPath(parts ...string) string {
	folded := make([]string, len(parts))
	for i, p := range parts {
		folded[i] = pathEscaper.Replace(text.Fold(normalize.Name(p)))
	}
	return strings.Join(folded, "/")
}

// CurriculumResult holds the tasks in order of first appearance, or the
// errors that reject the file.
type CurriculumResult struct {
	Tasks  []CurriculumTask
	Errors []RowError
}

// HasErrors returns true if there are any validation errors.
func (r *CurriculumResult) HasErrors() bool {
	return len(r.Errors) > 0
}

var isCurriculumHeader = headerMatcher("category", "categoria")

// ParseCurriculum reads a curriculum CSV. Rows naming the same task path
// are merged: their links are combined in file order without repeating a
// URL, and their required counts must agree.
func ParseCurriculum(r io.Reader, opts ParseOptions) (CurriculumResult, error) {
	var result CurriculumResult

	recs, errs, err := readRecords(r, opts, isCurriculumHeader)
	if err != nil {
		return result, err
	}
	result.Errors = errs

	type entry struct {
		task     *CurriculumTask
		explicit bool // required_count given on some row
		urls     map[string]bool
	}
	index := make(map[string]*entry)
	var order []string

	for _, rec := range recs {
		fail := func(format string, args ...any) {
			result.Errors = append(result.Errors, RowError{Line: rec.line, Reason: fmt.Sprintf(format, args...), Raw: rec.fields})
		}

		cat := normalize.Name(rec.field(colCategory))
		sub := normalize.Name(rec.field(colSubject))
		top := normalize.Name(rec.field(colTopic))
		task := normalize.Name(rec.field(colTask))

		var missing []string
		for _, f := range []struct{ name, v string }{
			{"category", cat}, {"subject", sub}, {"topic", top}, {"task", task},
		} {
			if f.v == "" {
				missing = append(missing, f.name)
			}
		}
		if len(missing) > 0 {
			fail("missing %s", strings.Join(missing, ", "))
			continue
		}

		required, explicit := 1, false
		if raw := rec.field(colRequired); raw != "" {
			n, convErr := strconv.Atoi(raw)
			if convErr != nil || n < 1 {
				fail("required_count must be a positive integer, got %q", raw)
				continue
			}
			required, explicit = n, true
		}

		link, hasLink, linkErr := parseLink(rec.field(colLinkLabel), rec.field(colLinkURL))
		if linkErr != "" {
			fail("%s", linkErr)
			continue
		}

		key := FoldPath(cat, sub, top, task)
		e, seen := index[key]
		if !seen {
			e = &entry{
				task: &CurriculumTask{
					Line: rec.line, Category: cat, Subject: sub, Topic: top, Task: task,
					RequiredCount: required,
				},
				explicit: explicit,
				urls:     make(map[string]bool),
			}
			index[key] = e
			order = append(order, key)
		} else if explicit {
			if e.explicit && e.task.RequiredCount != required {
				fail("required_count %d conflicts with %d on line %d", required, e.task.RequiredCount, e.task.Line)
				continue
			}
			e.task.RequiredCount, e.explicit = required, true
		}

		if hasLink && !e.urls[link.URL] {
			e.urls[link.URL] = true
			e.task.Links = append(e.task.Links, link)
		}
	}

	if len(result.Errors) > 0 {
		return result, nil
	}
	for _, key := range order {
		result.Tasks = append(result.Tasks, *index[key].task)
	}
	return result, nil
}

// parseLink validates an optional link. A URL without a label uses the URL.
func parseLink(label, url string) (models.Link, bool, string) {
	label = normalize.Name(label)
	url = strings.TrimSpace(url)
	switch {
	case url == "" && label == "":
		return models.Link{}, false, ""
	case url == "":
		return models.Link{}, false, fmt.Sprintf("link %q has no URL", label)
	case !validators.IsHTTPURL(url):
		return models.Link{}, false, fmt.Sprintf("link URL %q must be an absolute http(s) URL", url)
	}
	if label == "" {
		label = url
	}
	return models.Link{Label: label, URL: url}, true, ""
}
