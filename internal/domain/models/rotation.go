// internal/domain/models/rotation.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Rotation statuses.
const (
	RotationActive   = "active"
	RotationArchived = "archived"
)

// Rotation is a clinical service or department residents rotate through.
// Its curriculum lives in the rotation_nodes collection.
type Rotation struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Color       string             `bson:"color,omitempty" json:"color,omitempty"`
	Status      string             `bson:"status" json:"status"`
	NodeCount   int                `bson:"node_count" json:"node_count"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
