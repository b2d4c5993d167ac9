// internal/domain/models/morningmeeting.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MorningMeeting is one entry in the department's morning-meeting calendar.
// Date is the UTC instant of local midnight; DateKey and MonthKey are in the
// program time zone.
type MorningMeeting struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Date      time.Time          `bson:"date" json:"date"`
	DateKey   string             `bson:"date_key" json:"date_key"`   // YYYY-MM-DD
	MonthKey  string             `bson:"month_key" json:"month_key"` // YYYY-MM
	Order     int                `bson:"order" json:"order"`         // position within the day
	Title     string             `bson:"title" json:"title"`
	Lecturer  string             `bson:"lecturer,omitempty" json:"lecturer,omitempty"`
	Moderator string             `bson:"moderator,omitempty" json:"moderator,omitempty"`
	Organizer string             `bson:"organizer,omitempty" json:"organizer,omitempty"`
	Link      string             `bson:"link,omitempty" json:"link,omitempty"`
	Notes     string             `bson:"notes,omitempty" json:"notes,omitempty"` // sanitized HTML

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
