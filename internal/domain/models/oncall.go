// internal/domain/models/oncall.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OnCallShift is one station's on-call assignment on a given day.
// ResidentID is nil when the roster named someone without a profile.
type OnCallShift struct {
	Station      string              `bson:"station" json:"station"`
	ResidentID   *primitive.ObjectID `bson:"resident_id,omitempty" json:"resident_id,omitempty"`
	ResidentName string              `bson:"resident_name" json:"resident_name"`
}

// OnCallDay is the roster for a single date. DateKey is unique.
type OnCallDay struct {
	ID      primitive.ObjectID `bson:"_id" json:"id"`
	Date    time.Time          `bson:"date" json:"date"`
	DateKey string             `bson:"date_key,omitempty" json:"date_key"`
	Shifts  []OnCallShift      `bson:"shifts" json:"shifts"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
