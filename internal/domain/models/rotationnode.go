// internal/domain/models/rotationnode.go
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Node types, from the top of a curriculum tree down to its leaves.
const (
	NodeCategory = "category"
	NodeSubject  = "subject"
	NodeTopic    = "topic"
	NodeTask     = "task"
)

// NodeTypes is the depth-ordered list of node types.
var NodeTypes = []string{NodeCategory, NodeSubject, NodeTopic, NodeTask}

// Link is a reference attached to a curriculum task.
type Link struct {
	Label string `bson:"label" json:"label"`
	URL   string `bson:"url" json:"url"`
}

// RotationNode is one entry of a rotation's curriculum tree.
// Only task nodes carry RequiredCount and Links.
type RotationNode struct {
	ID            primitive.ObjectID  `bson:"_id" json:"id"`
	RotationID    primitive.ObjectID  `bson:"rotation_id" json:"rotation_id"`
	ParentID      *primitive.ObjectID `bson:"parent_id,omitempty" json:"parent_id,omitempty"`
	Type          string              `bson:"type" json:"type"`
	Name          string              `bson:"name" json:"name"`
	NameCI        string              `bson:"name_ci" json:"-"`
	Path          string              `bson:"path" json:"path"` // folded "category/subject/topic/task"
	Order         int                 `bson:"order" json:"order"`
	RequiredCount int                 `bson:"required_count,omitempty" json:"required_count,omitempty"`
	Links         []Link              `bson:"links,omitempty" json:"links,omitempty"`
}
