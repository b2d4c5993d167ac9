package validators

import (
	"errors"
	"strings"
	"testing"
)

type signup struct {
	Email    string   `json:"email" validate:"required,email"`
	FullName string   `json:"full_name" validate:"notblank"`
	Role     string   `json:"role" validate:"role"`
	Year     int      `json:"study_year" validate:"gte=0,lte=6"`
	Tutors   []string `json:"tutor_ids" validate:"dive,objectid"`
}

func TestStruct_Valid(t *testing.T) {
	s := signup{
		Email:    "ana@example.com",
		FullName: "Ana Ruiz",
		Role:     "resident",
		Year:     2,
		Tutors:   []string{"507f1f77bcf86cd799439011"},
	}
	if err := Struct(s); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func TestStruct_ReportsJSONFieldNames(t *testing.T) {
	s := signup{
		Email:    "nope",
		FullName: "   ",
		Role:     "intern",
		Year:     9,
		Tutors:   []string{"bad"},
	}
	err := Struct(s)

	var ve *Error
	if !errors.As(err, &ve) {
		t.Fatalf("expected *Error, got %T %v", err, err)
	}

	got := map[string]string{}
	for _, f := range ve.Fields {
		got[f.Field] = f.Rule
	}
	want := map[string]string{
		"email":        "email",
		"full_name":    "notblank",
		"role":         "role",
		"study_year":   "lte",
		"tutor_ids[0]": "objectid",
	}
	for field, rule := range want {
		if got[field] != rule {
			t.Errorf("field %s: got rule %q, want %q (all: %v)", field, got[field], rule, got)
		}
	}

	if len(ve.Details()) != len(ve.Fields) {
		t.Errorf("Details() length %d, want %d", len(ve.Details()), len(ve.Fields))
	}
	if !strings.Contains(ve.Error(), "email must be a valid email address") {
		t.Errorf("Error() = %q", ve.Error())
	}
}

func TestMonthAndDateKey(t *testing.T) {
	type req struct {
		Month string `json:"month" validate:"month"`
		Day   string `json:"day" validate:"datekey"`
	}

	if err := Struct(req{Month: "2024-03", Day: "2024-03-31"}); err != nil {
		t.Errorf("expected valid, got %v", err)
	}
	if err := Struct(req{Month: "2024-13", Day: "2024-3-1"}); err == nil {
		t.Error("expected invalid month and day")
	}
}

func TestIsHTTPURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"http://example.com", true},
		{"https://example.com/path?query=1", true},
		{"  https://example.com  ", true},
		{"http://localhost:8080", true},
		{"", false},
		{"   ", false},
		{"ftp://example.com", false},
		{"javascript:alert(1)", false},
		{"example.com", false},
		{"/relative/path", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := IsHTTPURL(tt.url); got != tt.want {
				t.Errorf("IsHTTPURL(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestIsEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"user@example.com", true},
		{"user+tag@example.com", true},
		{" user@example.com ", true},
		{"", false},
		{"user", false},
		{"user@", false},
		{"@example.com", false},
		{"User Name <user@example.com>", false},
	}
	for _, tt := range tests {
		if got := IsEmail(tt.email); got != tt.want {
			t.Errorf("IsEmail(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
}
