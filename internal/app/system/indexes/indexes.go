// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	steps := []struct {
		name string
		fn   func(context.Context, *mongo.Database) error
	}{
		{"users", ensureUsers},
		{"rotations", ensureRotations},
		{"rotation_nodes", ensureRotationNodes},
		{"assignments", ensureAssignments},
		{"rotation_petitions", ensurePetitions},
		{"tasks", ensureTasks},
		{"morning_meetings", ensureMeetings},
		{"oncall_days", ensureOnCallDays},
		{"audit_events", ensureAuditEvents},
		// dashboards read "recent activity" from login_records
		{"login_records", ensureLoginRecords},
	}
	for _, s := range steps {
		if err := s.fn(ctx, db); err != nil {
			problems = append(problems, s.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name    string `bson:"name"`
	Key     bson.D `bson:"key"`
	Unique  *bool  `bson:"unique,omitempty"`
	Partial bson.D `bson:"partialFilterExpression,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

// partialSig renders a partial filter expression so a desired filter can be
// compared with the one the server reports back.
func partialSig(v interface{}) string {
	if v == nil {
		return ""
	}
	raw, err := bson.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	var d bson.D
	if err := bson.Unmarshal(raw, &d); err != nil {
		return fmt.Sprintf("%v", v)
	}
	if len(d) == 0 {
		return ""
	}
	return fmt.Sprintf("%v", d)
}

func sameBoolPtr(a, b *bool) bool {
	av := false
	bv := false
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 { // E11000 duplicate key error index
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "IndexOptionsConflict")
}

// duplicateHint points operators at the aggregation that finds the offending rows.
var duplicateHint = map[string]string{
	"users":       `db.users.aggregate([{ $group: { _id: "$email", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])`,
	"rotations":   `db.rotations.aggregate([{ $group: { _id: "$name_ci", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])`,
	"assignments": `db.assignments.aggregate([{ $match: { status: "active" } }, { $group: { _id: "$resident_id", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])`,
	"oncall_days": `db.oncall_days.aggregate([{ $group: { _id: "$date_key", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])`,
}

func createErr(coll *mongo.Collection, name string, unique bool, err error) string {
	if isDuplicateKeyErr(err) && unique {
		msg := fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), name)
		if h, ok := duplicateHint[coll.Name()]; ok {
			msg += ". Example finder: " + h
		}
		return msg
	}
	return fmt.Sprintf("%s(%s): %v", coll.Name(), name, err)
}

func listExisting(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	existing := map[string]existingIndex{} // sig -> index
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

func dropAndCreate(ctx context.Context, coll *mongo.Collection, dropName string, m mongo.IndexModel) error {
	if _, err := coll.Indexes().DropOne(ctx, dropName); err != nil {
		return fmt.Errorf("drop %s: %w", dropName, err)
	}
	_, err := coll.Indexes().CreateOne(ctx, m)
	return err
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		var desiredName string
		var desiredUnique *bool
		var desiredPartial string
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			desiredUnique = m.Options.Unique
			desiredPartial = partialSig(m.Options.PartialFilterExpression)
		}
		unique := desiredUnique != nil && *desiredUnique
		desiredSig := keySig(m.Keys.(bson.D))

		start := time.Now()
		fields := []zap.Field{
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", desiredSig),
			zap.Bool("unique", unique),
		}
		zap.L().Debug("ensuring index", fields...)

		existing := listExisting(ctx, coll)

		if ex, ok := existing[desiredSig]; ok {
			sameOpts := sameBoolPtr(desiredUnique, ex.Unique) && desiredPartial == partialSig(ex.Partial)
			switch {
			case sameOpts && (desiredName == "" || ex.Name == desiredName):
				zap.L().Debug("reusing existing index", append(fields, zap.Duration("took", time.Since(start)))...)
			case sameOpts:
				// Same keys and options under another name: align the name.
				if err := dropAndCreate(ctx, coll, ex.Name, m); err != nil {
					zap.L().Warn("index rename failed", append(fields, zap.String("from", ex.Name), zap.Error(err))...)
					errs = append(errs, createErr(coll, desiredName, unique, err))
					continue
				}
				zap.L().Info("index renamed", append(fields, zap.String("from", ex.Name), zap.Duration("took", time.Since(start)))...)
			default:
				// Options changed (e.g., upgrading to unique or a new partial filter).
				if err := dropAndCreate(ctx, coll, ex.Name, m); err != nil {
					zap.L().Warn("index recreate failed", append(fields, zap.Error(err))...)
					errs = append(errs, createErr(coll, desiredName, unique, err))
					continue
				}
				zap.L().Info("index dropped and recreated", append(fields, zap.Duration("took", time.Since(start)))...)
			}
			continue
		}

		// No existing index with the same keys: create it.
		created, err := coll.Indexes().CreateOne(ctx, m)
		if err != nil && isOptionsConflictErr(err) {
			// Raced with another creator or the listing was stale; retry against a fresh view.
			if ex, ok := listExisting(ctx, coll)[desiredSig]; ok {
				if sameBoolPtr(desiredUnique, ex.Unique) && desiredPartial == partialSig(ex.Partial) {
					zap.L().Info("reusing existing index (post-conflict)", append(fields, zap.String("existing", ex.Name))...)
					continue
				}
				err = dropAndCreate(ctx, coll, ex.Name, m)
			}
		}
		if err != nil {
			zap.L().Warn("index ensure failed", append(fields, zap.Duration("took", time.Since(start)), zap.Error(err))...)
			errs = append(errs, createErr(coll, desiredName, unique, err))
			continue
		}
		zap.L().Info("index ensured", append(fields, zap.String("created_name", created), zap.Duration("took", time.Since(start)))...)
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("users")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// 1) Email is the login identity and must be unique.
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},

		// 2) User lists: {role} and {role, status} filters, sorted by name with a stable tiebreak.
		{
			Keys: bson.D{
				{Key: "role", Value: 1},
				{Key: "status", Value: 1},
				{Key: "full_name_ci", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_users_role_status_fullnameci_id"),
		},

		// 3) Unfiltered list sorted by name.
		{
			Keys:    bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_users_fullnameci_id"),
		},

		// 4) External identity lookup (Google subject). Only set for federated users.
		{
			Keys: bson.D{{Key: "auth_uid", Value: 1}},
			Options: options.Index().
				SetName("idx_users_authuid").
				SetPartialFilterExpression(bson.D{{Key: "auth_uid", Value: bson.D{{Key: "$exists", Value: true}}}}),
		},
	})
}

func ensureRotations(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("rotations")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Rotation names are unique (case/diacritics folded).
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_rotations_nameci"),
		},
		// Filter by status, then name_ci sort
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_rotations_status_nameci__id"),
		},
	})
}

func ensureRotationNodes(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("rotation_nodes")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// One node per folded path inside a rotation's curriculum.
		{
			Keys:    bson.D{{Key: "rotation_id", Value: 1}, {Key: "path", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_nodes_rotation_path"),
		},
		// Tree assembly reads siblings in order.
		{
			Keys: bson.D{
				{Key: "rotation_id", Value: 1},
				{Key: "parent_id", Value: 1},
				{Key: "order", Value: 1},
			},
			Options: options.Index().SetName("idx_nodes_rotation_parent_order"),
		},
		// Progress reads only the leaves.
		{
			Keys:    bson.D{{Key: "rotation_id", Value: 1}, {Key: "type", Value: 1}},
			Options: options.Index().SetName("idx_nodes_rotation_type"),
		},
	})
}

func ensureAssignments(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("assignments")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// At most one active assignment per resident.
		{
			Keys: bson.D{{Key: "resident_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_assign_active_resident").
				SetPartialFilterExpression(bson.D{{Key: "status", Value: "active"}}),
		},
		// Resident history and the (resident, rotation) open-assignment check.
		{
			Keys: bson.D{
				{Key: "resident_id", Value: 1},
				{Key: "rotation_id", Value: 1},
				{Key: "status", Value: 1},
			},
			Options: options.Index().SetName("idx_assign_resident_rotation_status"),
		},
		// Tutor dashboards: multikey on tutor_ids.
		{
			Keys:    bson.D{{Key: "tutor_ids", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_assign_tutors_status"),
		},
		// Rotation rosters and per-rotation KPI counts.
		{
			Keys:    bson.D{{Key: "rotation_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_assign_rotation_status"),
		},
	})
}

func ensurePetitions(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("rotation_petitions")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// At most one pending petition per (resident, rotation, type).
		{
			Keys: bson.D{
				{Key: "resident_id", Value: 1},
				{Key: "rotation_id", Value: 1},
				{Key: "type", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_petitions_pending").
				SetPartialFilterExpression(bson.D{{Key: "status", Value: "pending"}}),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_petitions_status_created"),
		},
		{
			Keys:    bson.D{{Key: "resident_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_petitions_resident_created"),
		},
	})
}

func ensureTasks(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("tasks")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Progress aggregation and resident task lists.
		{
			Keys: bson.D{
				{Key: "resident_id", Value: 1},
				{Key: "rotation_id", Value: 1},
				{Key: "status", Value: 1},
			},
			Options: options.Index().SetName("idx_tasks_resident_rotation_status"),
		},
		// Review queues (latest-first).
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_tasks_status_created"),
		},
		{
			Keys:    bson.D{{Key: "node_id", Value: 1}},
			Options: options.Index().SetName("idx_tasks_node"),
		},
	})
}

func ensureMeetings(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("morning_meetings")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Month views and month replacement.
		{
			Keys: bson.D{
				{Key: "month_key", Value: 1},
				{Key: "date_key", Value: 1},
				{Key: "order", Value: 1},
			},
			Options: options.Index().SetName("idx_meetings_month_date_order"),
		},
		// Range queries for calendar export.
		{
			Keys:    bson.D{{Key: "date", Value: 1}, {Key: "order", Value: 1}},
			Options: options.Index().SetName("idx_meetings_date_order"),
		},
	})
}

func ensureOnCallDays(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("oncall_days")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// One roster per day. Legacy rows without a date_key are left for backfill.
		{
			Keys: bson.D{{Key: "date_key", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_oncall_datekey").
				SetPartialFilterExpression(bson.D{{Key: "date_key", Value: bson.D{{Key: "$exists", Value: true}}}}),
		},
		{
			Keys:    bson.D{{Key: "date", Value: 1}},
			Options: options.Index().SetName("idx_oncall_date"),
		},
		// A resident's upcoming shifts.
		{
			Keys:    bson.D{{Key: "shifts.resident_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetName("idx_oncall_resident_date"),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("audit_events")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Query by time range (most recent first)
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "actor_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_actor_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_user_timestamp"),
		},
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "event_type", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_category_type_timestamp"),
		},
	})
}

func ensureLoginRecords(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("login_records")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Per-user recent logins (latest-first)
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_logins_user_created"),
		},
		// Site-wide recent logins (latest-first)
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_logins_created"),
		},
	})
}
