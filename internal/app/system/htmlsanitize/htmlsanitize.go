// Package htmlsanitize cleans user-supplied rich text (meeting notes,
// petition reasons) before it is stored.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policy = newPolicy()
	strict = bluemonday.StrictPolicy()
)

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowTables()
	p.AllowAttrs("class").Globally()
	p.AllowAttrs("colspan", "rowspan").OnElements("td", "th")
	return p
}

// Sanitize strips scripts, event handlers and unsafe URLs, keeping
// ordinary formatting, lists, tables and http(s) links.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return policy.Sanitize(s)
}

// IsPlainText reports whether s contains no markup.
func IsPlainText(s string) bool {
	return !(strings.Contains(s, "<") && strings.Contains(s, ">"))
}

// PlainTextToHTML escapes s and turns newlines into <br> inside one paragraph.
func PlainTextToHTML(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return "<p>" + strings.ReplaceAll(html.EscapeString(s), "\n", "<br>") + "</p>"
}

// Notes normalizes a free-text field for storage: plain text is escaped
// into a paragraph, markup is sanitized. Surrounding whitespace is dropped.
func Notes(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if IsPlainText(s) {
		return PlainTextToHTML(s)
	}
	return Sanitize(s)
}

// ToText drops all markup, turning <br> and paragraph ends into newlines.
// Used where HTML can't be rendered (calendar descriptions, spreadsheets).
func ToText(s string) string {
	if s == "" {
		return ""
	}
	r := strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</p>", "\n")
	out := html.UnescapeString(strict.Sanitize(r.Replace(s)))
	return strings.TrimSpace(out)
}
