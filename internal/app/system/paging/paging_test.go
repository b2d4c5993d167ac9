package paging

import (
	"net/http/httptest"
	"testing"

	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestParse(t *testing.T) {
	tests := []struct {
		url       string
		wantStart int
		wantLimit int
	}{
		{"/x", 1, PageSize},
		{"/x?start=11&limit=10", 11, 10},
		{"/x?start=0", 1, PageSize},
		{"/x?start=abc&limit=-3", 1, PageSize},
		{"/x?limit=5000", 1, MaxPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			p := Parse(httptest.NewRequest("GET", tt.url, nil))
			if p.Start != tt.wantStart || p.Limit != tt.wantLimit {
				t.Errorf("Parse(%s) = %+v, want start=%d limit=%d", tt.url, p, tt.wantStart, tt.wantLimit)
			}
		})
	}
}

func TestApply(t *testing.T) {
	find := Page{Start: 21, Limit: 10}.Apply(options.Find())
	if find.Skip == nil || *find.Skip != 20 {
		t.Errorf("skip: got %v, want 20", find.Skip)
	}
	if find.Limit == nil || *find.Limit != 11 {
		t.Errorf("limit: got %v, want 11", find.Limit)
	}
}

func TestTrim(t *testing.T) {
	rows := []int{1, 2, 3, 4}
	res := Trim(&rows, Page{Start: 4, Limit: 3})

	if len(rows) != 3 {
		t.Fatalf("expected 3 rows after trim, got %d", len(rows))
	}
	want := Result{Start: 4, End: 6, HasPrev: true, HasNext: true, PrevStart: 1, NextStart: 7}
	if res != want {
		t.Errorf("Trim() = %+v, want %+v", res, want)
	}
}

func TestTrim_LastPage(t *testing.T) {
	rows := []int{1, 2}
	res := Trim(&rows, Page{Start: 1, Limit: 3})
	if res.HasNext || res.HasPrev {
		t.Errorf("expected no neighbours, got %+v", res)
	}
	if res.End != 2 {
		t.Errorf("End: got %d, want 2", res.End)
	}
}

func TestComputeRange_Empty(t *testing.T) {
	got := ComputeRange(1, 0, PageSize)
	if got.Start != 0 || got.End != 0 {
		t.Errorf("expected empty range, got %+v", got)
	}
}
