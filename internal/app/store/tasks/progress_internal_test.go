package taskstore

import (
	"testing"

	"github.com/dalemusser/residencyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSummarize(t *testing.T) {
	a := models.RotationNode{ID: primitive.NewObjectID(), Name: "Echo", RequiredCount: 4}
	b := models.RotationNode{ID: primitive.NewObjectID(), Name: "ECG", RequiredCount: 2}
	c := models.RotationNode{ID: primitive.NewObjectID(), Name: "Legacy"} // no requirement stored

	totals := map[countKey]int{
		{NodeID: a.ID, Status: models.TaskApproved}: 2,
		{NodeID: a.ID, Status: models.TaskPending}:  1,
		{NodeID: b.ID, Status: models.TaskApproved}: 5,
	}
	p := summarize(primitive.NewObjectID(), primitive.NewObjectID(), []models.RotationNode{a, b, c}, totals)

	if len(p.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(p.Items))
	}
	want := []struct{ required, approved, pending, percent int }{
		{4, 2, 1, 50},
		{2, 5, 0, 100},
		{1, 0, 0, 0},
	}
	for i, w := range want {
		it := p.Items[i]
		if it.Required != w.required || it.Approved != w.approved || it.Pending != w.pending || it.Percent != w.percent {
			t.Errorf("item %d = %+v, want %+v", i, it, w)
		}
	}
	// Completed counts ECG as 2, not 5.
	if p.Required != 7 || p.Completed != 4 || p.Pending != 1 {
		t.Errorf("totals required=%d completed=%d pending=%d", p.Required, p.Completed, p.Pending)
	}
	if p.Percent != 57 {
		t.Errorf("Percent = %d, want 57", p.Percent)
	}
}

func TestSummarize_NoNodes(t *testing.T) {
	p := summarize(primitive.NewObjectID(), primitive.NewObjectID(), nil, nil)
	if p.Percent != 0 || len(p.Items) != 0 {
		t.Errorf("empty curriculum progress = %+v", p)
	}
}
