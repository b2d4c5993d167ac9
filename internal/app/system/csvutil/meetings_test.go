package csvutil

import (
	"strings"
	"testing"
	"time"
)

func TestParseMeetings_SortsAndNumbers(t *testing.T) {
	csv := `date,title,lecturer,moderator,organizer,link,notes
12/03/2024,Heart failure update,Dr. Vega,Dr. Ruiz,,https://example.com/hf,
2024-03-05,  Sepsis   bundle ,Dr. Sol,,,,"Bring cases
Room 4"
12.03.2024,Journal club,,,Chief residents,,
`
	result, err := ParseMeetings(strings.NewReader(csv), time.UTC, DefaultParseOptions())
	if err != nil {
		t.Fatalf("ParseMeetings() error = %v", err)
	}
	if result.HasErrors() {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(result.Rows))
	}

	first := result.Rows[0]
	if first.DateKey != "2024-03-05" || first.Title != "Sepsis bundle" || first.Order != 1 {
		t.Errorf("first row = %+v", first)
	}
	if first.Notes != "<p>Bring cases<br>Room 4</p>" {
		t.Errorf("Notes = %q", first.Notes)
	}

	if result.Rows[1].Title != "Heart failure update" || result.Rows[1].Order != 1 {
		t.Errorf("second row = %+v", result.Rows[1])
	}
	if result.Rows[2].Title != "Journal club" || result.Rows[2].Order != 2 {
		t.Errorf("third row = %+v", result.Rows[2])
	}
	if result.Rows[2].Organizer != "Chief residents" {
		t.Errorf("Organizer = %q", result.Rows[2].Organizer)
	}
}

func TestParseMeetings_RowErrors(t *testing.T) {
	csv := "2024-02-30,Title\n2024-03-01,\n2024-03-02,Talk,,,,ftp://x\n2024-03-03,Fine\n"

	result, err := ParseMeetings(strings.NewReader(csv), time.UTC, DefaultParseOptions())
	if err != nil {
		t.Fatalf("ParseMeetings() error = %v", err)
	}
	if len(result.Errors) != 3 {
		t.Fatalf("got %d errors, want 3: %v", len(result.Errors), result.Errors)
	}
	wants := []string{"invalid date", "missing title", "http(s)"}
	for i, want := range wants {
		if result.Errors[i].Line != i+1 {
			t.Errorf("error %d: Line = %d, want %d", i, result.Errors[i].Line, i+1)
		}
		if !strings.Contains(result.Errors[i].Reason, want) {
			t.Errorf("error %d: Reason %q doesn't contain %q", i, result.Errors[i].Reason, want)
		}
	}
	if result.Rows != nil {
		t.Error("expected no rows when the file is rejected")
	}
}

func TestParseMeetings_SanitizesNotes(t *testing.T) {
	csv := `2024-03-05,Talk,,,,,"<p>Slides</p><script>x()</script>"`
	result, err := ParseMeetings(strings.NewReader(csv), time.UTC, DefaultParseOptions())
	if err != nil {
		t.Fatalf("ParseMeetings() error = %v", err)
	}
	if len(result.Rows) != 1 || result.Rows[0].Notes != "<p>Slides</p>" {
		t.Errorf("rows = %+v", result.Rows)
	}
}

func TestParseMeetings_LiteralQuotes(t *testing.T) {
	csv := "2024-03-04,The \"silent\" MI,Dr. A,,,,\n"

	result, err := ParseMeetings(strings.NewReader(csv), time.UTC, DefaultParseOptions())
	if err != nil {
		t.Fatalf("ParseMeetings() error = %v", err)
	}
	if result.HasErrors() {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Rows) != 1 || result.Rows[0].Title != `The "silent" MI` {
		t.Errorf("rows = %+v", result.Rows)
	}
}
