package dateutil

import (
	"errors"
	"testing"
	"time"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("time zone %s unavailable: %v", name, err)
	}
	return loc
}

func TestParseDate(t *testing.T) {
	loc := mustLoc(t, "Europe/Madrid")

	tests := []struct {
		in      string
		wantKey string
		wantErr bool
	}{
		{"2024-03-05", "2024-03-05", false},
		{"05/03/2024", "2024-03-05", false},
		{"5/3/2024", "2024-03-05", false},
		{"05.03.2024", "2024-03-05", false},
		{" 31.12.2024 ", "2024-12-31", false},
		{"2024/03/05", "", true},
		{"32/01/2024", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in, loc)
			if tt.wantErr {
				if !errors.Is(err, ErrBadDate) {
					t.Fatalf("expected ErrBadDate, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if k := Key(got, loc); k != tt.wantKey {
				t.Errorf("key: got %s, want %s", k, tt.wantKey)
			}
			if !IsMidnight(got, loc) {
				t.Errorf("expected local midnight, got %v", got)
			}
		})
	}
}

func TestMonthRange(t *testing.T) {
	loc := mustLoc(t, "America/New_York")

	from, to, err := MonthRange("2024-02", loc)
	if err != nil {
		t.Fatalf("MonthRange: %v", err)
	}
	if Key(from, loc) != "2024-02-01" || Key(to, loc) != "2024-03-01" {
		t.Errorf("got [%s, %s)", Key(from, loc), Key(to, loc))
	}

	if _, _, err := MonthRange("2024-13", loc); !errors.Is(err, ErrBadMonth) {
		t.Errorf("expected ErrBadMonth, got %v", err)
	}
}

func TestAddDays_AcrossDST(t *testing.T) {
	loc := mustLoc(t, "America/New_York")
	day, _ := ParseKey("2024-03-09", loc)

	next := AddDays(day, 2, loc)
	if Key(next, loc) != "2024-03-11" || !IsMidnight(next, loc) {
		t.Errorf("got %v", next.In(loc))
	}
}

func TestNormalizeShifted(t *testing.T) {
	loc := mustLoc(t, "America/Sao_Paulo") // UTC-3, no DST since 2019

	tests := []struct {
		name    string
		stored  time.Time
		wantKey string
	}{
		{"already midnight", time.Date(2024, 5, 10, 3, 0, 0, 0, time.UTC), "2024-05-10"},
		{"UTC midnight drifted back", time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), "2024-05-10"},
		{"morning stays", time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC), "2024-05-10"},
		{"noon rounds forward", time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC), "2024-05-11"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, mid := NormalizeShifted(tt.stored, loc)
			if key != tt.wantKey {
				t.Errorf("key: got %s, want %s", key, tt.wantKey)
			}
			if !IsMidnight(mid, loc) || Key(mid, loc) != tt.wantKey {
				t.Errorf("midnight: got %v", mid.In(loc))
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("07:30")
	if err != nil || c.Hour != 7 || c.Minute != 30 {
		t.Fatalf("ParseClock(07:30) = %+v, %v", c, err)
	}
	if c.String() != "07:30" {
		t.Errorf("String() = %s", c.String())
	}

	for _, bad := range []string{"", "7", "24:00", "07:60", "7:5", "ab:cd"} {
		if _, err := ParseClock(bad); !errors.Is(err, ErrBadClock) {
			t.Errorf("ParseClock(%q): expected ErrBadClock, got %v", bad, err)
		}
	}
}

func TestClockOn(t *testing.T) {
	loc := mustLoc(t, "Europe/Madrid")
	day, _ := ParseKey("2024-07-01", loc)

	got := Clock{Hour: 8, Minute: 15}.On(day, loc)
	want := time.Date(2024, 7, 1, 6, 15, 0, 0, time.UTC) // CEST is UTC+2
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got.UTC(), want)
	}
}
