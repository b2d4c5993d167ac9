package taskstore

import (
	"context"

	"github.com/dalemusser/residencyhub/internal/app/system/retry"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgressItem is one task node of a rotation's curriculum.
type ProgressItem struct {
	NodeID   primitive.ObjectID `json:"node_id"`
	Name     string             `json:"name"`
	Path     string             `json:"path"`
	Required int                `json:"required"`
	Approved int                `json:"approved"`
	Pending  int                `json:"pending"`
	Percent  int                `json:"percent"` // 0..100
}

// Progress is a resident's standing in one rotation.
type Progress struct {
	ResidentID primitive.ObjectID `json:"resident_id"`
	RotationID primitive.ObjectID `json:"rotation_id"`
	Items      []ProgressItem     `json:"items"`
	Required   int                `json:"required"`
	Completed  int                `json:"completed"` // approved, capped per node
	Pending    int                `json:"pending"`
	Percent    int                `json:"percent"`
}

type countKey struct {
	NodeID primitive.ObjectID `bson:"node_id"`
	Status string             `bson:"status"`
}

// Progress sums approved and pending counts per task node of the rotation.
// Approved counts above a node's requirement do not raise the overall percent.
func (s *Store) Progress(ctx context.Context, residentID, rotationID primitive.ObjectID) (Progress, error) {
	nodes, err := s.nodes.Tasks(ctx, rotationID)
	if err != nil {
		return Progress{}, err
	}

	pipeline := []bson.M{
		{"$match": bson.M{
			"resident_id": residentID,
			"rotation_id": rotationID,
			"status":      bson.M{"$in": []string{models.TaskApproved, models.TaskPending}},
		}},
		{"$group": bson.M{
			"_id":   bson.M{"node_id": "$node_id", "status": "$status"},
			"total": bson.M{"$sum": "$count"},
		}},
	}
	type row struct {
		Key   countKey `bson:"_id"`
		Total int      `bson:"total"`
	}
	rows, err := retry.Value(ctx, func(ctx context.Context) ([]row, error) {
		cur, err := s.c.Aggregate(ctx, pipeline)
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)
		var out []row
		if err := cur.All(ctx, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return Progress{}, err
	}
	totals := make(map[countKey]int, len(rows))
	for _, r := range rows {
		totals[r.Key] = r.Total
	}

	return summarize(residentID, rotationID, nodes, totals), nil
}

// summarize builds a Progress from task nodes and per-(node, status) totals.
func summarize(residentID, rotationID primitive.ObjectID, nodes []models.RotationNode, totals map[countKey]int) Progress {
	p := Progress{ResidentID: residentID, RotationID: rotationID, Items: make([]ProgressItem, 0, len(nodes))}
	for _, n := range nodes {
		req := n.RequiredCount
		if req < 1 {
			req = 1
		}
		it := ProgressItem{
			NodeID:   n.ID,
			Name:     n.Name,
			Path:     n.Path,
			Required: req,
			Approved: totals[countKey{NodeID: n.ID, Status: models.TaskApproved}],
			Pending:  totals[countKey{NodeID: n.ID, Status: models.TaskPending}],
		}
		done := min(it.Approved, req)
		it.Percent = done * 100 / req
		p.Items = append(p.Items, it)

		p.Required += req
		p.Completed += done
		p.Pending += it.Pending
	}
	if p.Required > 0 {
		p.Percent = p.Completed * 100 / p.Required
	}
	return p
}
