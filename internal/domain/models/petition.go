// internal/domain/models/petition.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Petition types.
const (
	PetitionActivate = "activate"
	PetitionFinish   = "finish"
)

var PetitionTypes = []string{PetitionActivate, PetitionFinish}

// Petition statuses.
const (
	PetitionPending   = "pending"
	PetitionApproved  = "approved"
	PetitionDenied    = "denied"
	PetitionCancelled = "cancelled"
)

var PetitionStatuses = []string{PetitionPending, PetitionApproved, PetitionDenied, PetitionCancelled}

// RotationPetition is a resident's request to activate or finish a rotation.
// It needs tutor or admin approval.
type RotationPetition struct {
	ID             primitive.ObjectID  `bson:"_id" json:"id"`
	ResidentID     primitive.ObjectID  `bson:"resident_id" json:"resident_id"`
	RotationID     primitive.ObjectID  `bson:"rotation_id" json:"rotation_id"`
	Type           string              `bson:"type" json:"type"`
	Status         string              `bson:"status" json:"status"`
	Reason         string              `bson:"reason,omitempty" json:"reason,omitempty"`
	ResolvedBy     *primitive.ObjectID `bson:"resolved_by,omitempty" json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time          `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
	ResolutionNote string              `bson:"resolution_note,omitempty" json:"resolution_note,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
