// Package normalize trims and canonicalizes user-supplied values before they
// are stored or compared.
package normalize

import (
	"strings"
)

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and collapses internal runs of spaces.
// Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Role lowercases and trims a role value.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Status lowercases and trims a status value.
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// AuthMethod lowercases and trims an auth method.
func AuthMethod(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Station trims and collapses whitespace in an on-call station name.
func Station(s string) string {
	return Name(s)
}

// QueryParam trims a query-string value. Case is preserved.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// FilterAll maps the "all" sentinel used by list filters to the empty string.
func FilterAll(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") {
		return ""
	}
	return s
}
