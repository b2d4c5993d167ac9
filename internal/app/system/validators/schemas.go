// internal/app/system/validators/schemas.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/residencyhub/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("users", usersSchema())
	ensure("rotations", rotationsSchema())
	ensure("rotation_nodes", rotationNodesSchema())
	ensure("assignments", assignmentsSchema())
	ensure("rotation_petitions", petitionsSchema())
	ensure("tasks", tasksSchema())
	ensure("morning_meetings", meetingsSchema())
	ensure("oncall_days", oncallSchema())

	ensure("audit_events", nil)
	ensure("login_records", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		return false, nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Debug("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func commandMatches(err error, code int32, needles ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == code {
		return true
	}
	s := strings.ToLower(err.Error())
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func isNamespaceExistsErr(err error) bool {
	return commandMatches(err, 48, "already exists", "namespace exists")
}

func isNoSuchCommand(err error) bool {
	return commandMatches(err, 59, "no such command")
}

func isNotImplemented(err error) bool {
	return commandMatches(err, 115, "not implemented", "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func enum(values []string) bson.M {
	a := bson.A{}
	for _, v := range values {
		a = append(a, v)
	}
	return bson.M{"enum": a}
}

func object(required []string, props bson.M) bson.M {
	req := bson.A{}
	for _, r := range required {
		req = append(req, r)
	}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType":   "object",
			"required":   req,
			"properties": props,
		},
	}
}

func usersSchema() bson.M {
	return object([]string{"full_name", "email", "role", "status", "auth_method"}, bson.M{
		"full_name":    nonBlank,
		"full_name_ci": nonBlank,
		"email":        nonBlank,
		"role":         enum(models.Roles),
		"status":       enum([]string{"active", "disabled"}),
		"auth_method":  enum(models.AllAuthMethods),
		"study_year":   bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0, "maximum": 6},
	})
}

func rotationsSchema() bson.M {
	return object([]string{"name", "name_ci", "status"}, bson.M{
		"name":       nonBlank,
		"name_ci":    nonBlank,
		"status":     enum([]string{models.RotationActive, models.RotationArchived}),
		"node_count": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
	})
}

func rotationNodesSchema() bson.M {
	return object([]string{"rotation_id", "type", "name", "path"}, bson.M{
		"rotation_id":    bson.M{"bsonType": "objectId"},
		"parent_id":      bson.M{"bsonType": bson.A{"objectId", "null"}},
		"type":           enum(models.NodeTypes),
		"name":           nonBlank,
		"path":           nonBlank,
		"required_count": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
	})
}

func assignmentsSchema() bson.M {
	return object([]string{"resident_id", "rotation_id", "status"}, bson.M{
		"resident_id": bson.M{"bsonType": "objectId"},
		"rotation_id": bson.M{"bsonType": "objectId"},
		"tutor_ids":   bson.M{"bsonType": bson.A{"array", "null"}, "items": bson.M{"bsonType": "objectId"}},
		"status":      enum(models.AssignmentStatuses),
	})
}

func petitionsSchema() bson.M {
	return object([]string{"resident_id", "rotation_id", "type", "status"}, bson.M{
		"resident_id": bson.M{"bsonType": "objectId"},
		"rotation_id": bson.M{"bsonType": "objectId"},
		"type":        enum(models.PetitionTypes),
		"status":      enum(models.PetitionStatuses),
	})
}

func tasksSchema() bson.M {
	return object([]string{"resident_id", "rotation_id", "node_id", "count", "status"}, bson.M{
		"resident_id": bson.M{"bsonType": "objectId"},
		"rotation_id": bson.M{"bsonType": "objectId"},
		"node_id":     bson.M{"bsonType": "objectId"},
		"count":       bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1},
		"status":      enum(models.TaskStatuses),
	})
}

func meetingsSchema() bson.M {
	return object([]string{"date", "date_key", "month_key", "title"}, bson.M{
		"date":      bson.M{"bsonType": "date"},
		"date_key":  bson.M{"bsonType": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"},
		"month_key": bson.M{"bsonType": "string", "pattern": "^\\d{4}-\\d{2}$"},
		"title":     nonBlank,
	})
}

// oncallSchema leaves date_key optional; legacy rows without one are
// repaired by the backfill job.
func oncallSchema() bson.M {
	return object([]string{"date"}, bson.M{
		"date":     bson.M{"bsonType": "date"},
		"date_key": bson.M{"bsonType": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"},
		"shifts":   bson.M{"bsonType": bson.A{"array", "null"}},
	})
}
