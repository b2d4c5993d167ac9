// internal/domain/models/task.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task review statuses.
const (
	TaskPending  = "pending"
	TaskApproved = "approved"
	TaskRejected = "rejected"
)

var TaskStatuses = []string{TaskPending, TaskApproved, TaskRejected}

// TaskDoc records that a resident performed a curriculum task some number of times.
// Only approved tasks count toward rotation progress.
type TaskDoc struct {
	ID          primitive.ObjectID  `bson:"_id" json:"id"`
	ResidentID  primitive.ObjectID  `bson:"resident_id" json:"resident_id"`
	RotationID  primitive.ObjectID  `bson:"rotation_id" json:"rotation_id"`
	NodeID      primitive.ObjectID  `bson:"node_id" json:"node_id"`
	Count       int                 `bson:"count" json:"count"`
	PerformedOn time.Time           `bson:"performed_on" json:"performed_on"`
	Note        string              `bson:"note,omitempty" json:"note,omitempty"`
	Status      string              `bson:"status" json:"status"`
	ReviewerID  *primitive.ObjectID `bson:"reviewer_id,omitempty" json:"reviewer_id,omitempty"`
	ReviewedAt  *time.Time          `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`
	Feedback    string              `bson:"feedback,omitempty" json:"feedback,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
