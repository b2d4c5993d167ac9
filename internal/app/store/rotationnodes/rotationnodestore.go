// internal/app/store/rotationnodes/rotationnodestore.go
package rotationnodestore

import (
	"context"
	"errors"
	"fmt"
	"io"

	rotationstore "github.com/dalemusser/residencyhub/internal/app/store/rotations"
	"github.com/dalemusser/residencyhub/internal/app/system/csvutil"
	"github.com/dalemusser/residencyhub/internal/app/system/normalize"
	"github.com/dalemusser/residencyhub/internal/app/system/retry"
	"github.com/dalemusser/residencyhub/internal/app/system/txn"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	ErrNotFound        = errors.New("curriculum node not found")
	ErrEmptyCurriculum = errors.New("curriculum file has no tasks")
)

var treeSort = bson.D{{Key: "order", Value: 1}, {Key: "_id", Value: 1}}

type Store struct {
	db        *mongo.Database
	c         *mongo.Collection
	rotations *rotationstore.Store
	log       *zap.Logger
}

func New(db *mongo.Database, log *zap.Logger) *Store {
	return &Store{
		db:        db,
		c:         db.Collection("rotation_nodes"),
		rotations: rotationstore.New(db),
		log:       log,
	}
}

// DB returns the database the store writes to.
func (s *Store) DB() *mongo.Database {
	return s.db
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.RotationNode, error) {
	n, err := retry.Value(ctx, func(ctx context.Context) (models.RotationNode, error) {
		var n models.RotationNode
		err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&n)
		return n, err
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.RotationNode{}, ErrNotFound
	}
	return n, err
}

// ListByRotation returns every node of a rotation ordered by sibling order.
func (s *Store) ListByRotation(ctx context.Context, rotationID primitive.ObjectID) ([]models.RotationNode, error) {
	return s.find(ctx, bson.M{"rotation_id": rotationID})
}

// Tasks returns the task (leaf) nodes of a rotation.
func (s *Store) Tasks(ctx context.Context, rotationID primitive.ObjectID) ([]models.RotationNode, error) {
	return s.find(ctx, bson.M{"rotation_id": rotationID, "type": models.NodeTask})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.RotationNode, error) {
	return retry.Value(ctx, func(ctx context.Context) ([]models.RotationNode, error) {
		cur, err := s.c.Find(ctx, filter, options.Find().SetSort(treeSort))
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)
		out := []models.RotationNode{}
		if err := cur.All(ctx, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// TreeNode is a curriculum node with its children nested.
type TreeNode struct {
	models.RotationNode
	Children []*TreeNode `json:"children,omitempty"`
}

// Tree returns the rotation's curriculum as nested roots (categories).
func (s *Store) Tree(ctx context.Context, rotationID primitive.ObjectID) ([]*TreeNode, error) {
	nodes, err := s.ListByRotation(ctx, rotationID)
	if err != nil {
		return nil, err
	}
	return BuildTree(nodes), nil
}

// BuildTree nests nodes under their parents. Sibling order follows the input,
// which ListByRotation sorts by Order. Nodes whose parent is missing become
// roots.
func BuildTree(nodes []models.RotationNode) []*TreeNode {
	byID := make(map[primitive.ObjectID]*TreeNode, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = &TreeNode{RotationNode: n}
	}
	roots := []*TreeNode{}
	for _, n := range nodes {
		tn := byID[n.ID]
		if n.ParentID != nil {
			if p, ok := byID[*n.ParentID]; ok {
				p.Children = append(p.Children, tn)
				continue
			}
		}
		roots = append(roots, tn)
	}
	return roots
}

// ImportResult summarizes a curriculum import.
type ImportResult struct {
	Rotation models.Rotation `json:"rotation"`
	Created  bool            `json:"created"` // rotation did not exist before
	Nodes    int             `json:"nodes"`
	Tasks    int             `json:"tasks"`
}

// ImportRotationFromCsv replaces the curriculum of the rotation called name
// with the tree read from r, creating the rotation if needed.
//
// The whole file is validated first. Any row error returns a
// *csvutil.RejectedError and nothing is written. Otherwise the rotation
// lookup, node replacement and node_count update run in one transaction.
func (s *Store) ImportRotationFromCsv(ctx context.Context, name string, r io.Reader) (ImportResult, error) {
	if normalize.Name(name) == "" {
		return ImportResult{}, rotationstore.ErrNameRequired
	}
	parsed, err := csvutil.ParseCurriculum(r, csvutil.DefaultParseOptions())
	if err != nil {
		return ImportResult{}, err
	}
	if parsed.HasErrors() {
		return ImportResult{}, &csvutil.RejectedError{Errors: parsed.Errors}
	}
	if len(parsed.Tasks) == 0 {
		return ImportResult{}, ErrEmptyCurriculum
	}

	var res ImportResult
	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		rot, created, err := s.rotations.EnsureByName(ctx, name)
		if err != nil {
			return err
		}
		nodes := BuildNodes(rot.ID, parsed.Tasks)

		if _, err := s.c.DeleteMany(ctx, bson.M{"rotation_id": rot.ID}); err != nil {
			return fmt.Errorf("delete old nodes: %w", err)
		}
		docs := make([]interface{}, len(nodes))
		for i := range nodes {
			docs[i] = nodes[i]
		}
		if _, err := s.c.InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("insert nodes: %w", err)
		}
		if err := s.rotations.SetNodeCount(ctx, rot.ID, len(nodes)); err != nil {
			return err
		}
		rot.NodeCount = len(nodes)
		res = ImportResult{Rotation: rot, Created: created, Nodes: len(nodes), Tasks: len(parsed.Tasks)}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	return res, nil
}

// BuildNodes turns parsed tasks into a category/subject/topic/task tree for
// rotationID. Branches are created in order of first appearance and Order
// numbers siblings from 0.
func BuildNodes(rotationID primitive.ObjectID, tasks []csvutil.CurriculumTask) []models.RotationNode {
	var nodes []models.RotationNode
	byPath := make(map[string]primitive.ObjectID)
	children := make(map[primitive.ObjectID]int) // parent -> child count
	roots := 0

	add := func(parent *primitive.ObjectID, typ, name, path string) primitive.ObjectID {
		if id, ok := byPath[path]; ok {
			return id
		}
		order := roots
		if parent == nil {
			roots++
		} else {
			order = children[*parent]
			children[*parent]++
		}
		n := models.RotationNode{
			ID:         primitive.NewObjectID(),
			RotationID: rotationID,
			ParentID:   parent,
			Type:       typ,
			Name:       name,
			NameCI:     text.Fold(name),
			Path:       path,
			Order:      order,
		}
		byPath[path] = n.ID
		nodes = append(nodes, n)
		return n.ID
	}

	for _, t := range tasks {
		catID := add(nil, models.NodeCategory, t.Category, csvutil.FoldPath(t.Category))
		subID := add(&catID, models.NodeSubject, t.Subject, csvutil.FoldPath(t.Category, t.Subject))
		topID := add(&subID, models.NodeTopic, t.Topic, csvutil.FoldPath(t.Category, t.Subject, t.Topic))
		taskID := add(&topID, models.NodeTask, t.Task, t.Path())

		// The leaf was just appended.
		leaf := &nodes[len(nodes)-1]
		if leaf.ID == taskID {
			leaf.RequiredCount = t.RequiredCount
			leaf.Links = t.Links
		}
	}
	return nodes
}
