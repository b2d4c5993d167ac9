// internal/domain/models/assignment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Assignment lifecycle statuses.
const (
	AssignmentPlanned  = "planned"
	AssignmentActive   = "active"
	AssignmentFinished = "finished"
	AssignmentInactive = "inactive"
)

// AssignmentStatuses lists every assignment status.
var AssignmentStatuses = []string{AssignmentPlanned, AssignmentActive, AssignmentFinished, AssignmentInactive}

// Assignment links a resident to a rotation and the tutors supervising them there.
// A resident has at most one active assignment at a time.
type Assignment struct {
	ID         primitive.ObjectID   `bson:"_id" json:"id"`
	ResidentID primitive.ObjectID   `bson:"resident_id" json:"resident_id"`
	RotationID primitive.ObjectID   `bson:"rotation_id" json:"rotation_id"`
	TutorIDs   []primitive.ObjectID `bson:"tutor_ids" json:"tutor_ids"`
	Status     string               `bson:"status" json:"status"`
	StartDate  *time.Time           `bson:"start_date,omitempty" json:"start_date,omitempty"`
	EndDate    *time.Time           `bson:"end_date,omitempty" json:"end_date,omitempty"`
	Notes      string               `bson:"notes,omitempty" json:"notes,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasTutor reports whether tutorID supervises this assignment.
func (a Assignment) HasTutor(tutorID primitive.ObjectID) bool {
	for _, id := range a.TutorIDs {
		if id == tutorID {
			return true
		}
	}
	return false
}

// assignmentTransitions lists the allowed status moves. Finished is terminal.
var assignmentTransitions = map[string][]string{
	AssignmentPlanned:  {AssignmentActive, AssignmentInactive},
	AssignmentActive:   {AssignmentFinished, AssignmentInactive},
	AssignmentInactive: {AssignmentPlanned, AssignmentActive},
}

// CanTransition reports whether an assignment may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range assignmentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
