// internal/app/store/oncall/oncallstore.go
package oncallstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	userstore "github.com/dalemusser/residencyhub/internal/app/store/users"
	"github.com/dalemusser/residencyhub/internal/app/system/csvutil"
	"github.com/dalemusser/residencyhub/internal/app/system/dateutil"
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
	ErrNotFound         = errors.New("no on-call roster for that day")
	ErrUnknownStation   = errors.New("unknown on-call station")
	ErrDuplicateStation = errors.New("station listed twice for the day")
	ErrResidentRequired = errors.New("each shift needs a resident_id or resident_name")
	ErrUnknownResident  = errors.New("resident_id does not match a user")
	ErrBadRange         = errors.New("from must be before to")
)

var dateSort = bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}}

type Store struct {
	db       *mongo.Database
	c        *mongo.Collection
	users    *userstore.Store
	loc      *time.Location
	stations []string
	log      *zap.Logger
}

// New returns a Store for rosters dated in loc with the configured stations.
func New(db *mongo.Database, loc *time.Location, stations []string, log *zap.Logger) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{
		db:       db,
		c:        db.Collection("oncall_days"),
		users:    userstore.New(db),
		loc:      loc,
		stations: stations,
		log:      log,
	}
}

// Stations returns the configured stations in display order.
func (s *Store) Stations() []string {
	return append([]string(nil), s.stations...)
}

func (s *Store) Location() *time.Location {
	return s.loc
}

// GetDay returns the roster for a "YYYY-MM-DD" key.
func (s *Store) GetDay(ctx context.Context, dateKey string) (models.OnCallDay, error) {
	d, err := retry.Value(ctx, func(ctx context.Context) (models.OnCallDay, error) {
		var d models.OnCallDay
		err := s.c.FindOne(ctx, bson.M{"date_key": dateKey}).Decode(&d)
		return d, err
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.OnCallDay{}, ErrNotFound
	}
	return d, err
}

// ListRange returns rosters for local days in [from, to).
func (s *Store) ListRange(ctx context.Context, from, to time.Time) ([]models.OnCallDay, error) {
	filter, err := s.rangeFilter(from, to)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, filter)
}

// ListForResident returns the rosters in [from, to) on which residentID has a shift.
func (s *Store) ListForResident(ctx context.Context, residentID primitive.ObjectID, from, to time.Time) ([]models.OnCallDay, error) {
	filter, err := s.rangeFilter(from, to)
	if err != nil {
		return nil, err
	}
	filter["shifts.resident_id"] = residentID
	return s.find(ctx, filter)
}

// rangeFilter compares date keys so rows whose stored instant drifted still
// land on their calendar day.
func (s *Store) rangeFilter(from, to time.Time) (bson.M, error) {
	fromKey, toKey := dateutil.Key(from, s.loc), dateutil.Key(to, s.loc)
	if fromKey >= toKey {
		return nil, ErrBadRange
	}
	return bson.M{"date_key": bson.M{"$gte": fromKey, "$lt": toKey}}, nil
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.OnCallDay, error) {
	return retry.Value(ctx, func(ctx context.Context) ([]models.OnCallDay, error) {
		cur, err := s.c.Find(ctx, filter, options.Find().SetSort(dateSort))
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)
		out := []models.OnCallDay{}
		if err := cur.All(ctx, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// ShiftInput is one station of a roster being saved. ResidentID wins over
// ResidentName; a name alone is stored as free text.
type ShiftInput struct {
	Station      string
	ResidentID   *primitive.ObjectID
	ResidentName string
}

// SetDay replaces the shifts of the local day containing date. An empty
// list clears the day.
func (s *Store) SetDay(ctx context.Context, date time.Time, shifts []ShiftInput) (models.OnCallDay, error) {
	canonical := s.canonicalStations()
	seen := make(map[string]bool, len(shifts))
	out := make([]models.OnCallShift, 0, len(shifts))

	var ids []primitive.ObjectID
	for _, sh := range shifts {
		if sh.ResidentID != nil {
			ids = append(ids, *sh.ResidentID)
		}
	}
	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return models.OnCallDay{}, err
	}

	for _, sh := range shifts {
		station, ok := canonical[text.Fold(normalize.Station(sh.Station))]
		if !ok {
			return models.OnCallDay{}, fmt.Errorf("%w: %q", ErrUnknownStation, sh.Station)
		}
		if seen[station] {
			return models.OnCallDay{}, fmt.Errorf("%w: %s", ErrDuplicateStation, station)
		}
		seen[station] = true

		shift := models.OnCallShift{Station: station}
		switch {
		case sh.ResidentID != nil:
			u, ok := users[*sh.ResidentID]
			if !ok {
				return models.OnCallDay{}, ErrUnknownResident
			}
			id := u.ID
			shift.ResidentID = &id
			shift.ResidentName = u.FullName
		case normalize.Name(sh.ResidentName) != "":
			shift.ResidentName = normalize.Name(sh.ResidentName)
		default:
			return models.OnCallDay{}, ErrResidentRequired
		}
		out = append(out, shift)
	}

	day := dateutil.Midnight(date, s.loc)
	key := day.Format(dateutil.KeyLayout)
	if _, err := s.c.UpdateOne(ctx, bson.M{"date_key": key}, upsertDay(day, out, time.Now().UTC()),
		options.Update().SetUpsert(true)); err != nil {
		return models.OnCallDay{}, fmt.Errorf("set on-call day: %w", err)
	}
	return s.GetDay(ctx, key)
}

func upsertDay(day time.Time, shifts []models.OnCallShift, now time.Time) bson.M {
	return bson.M{
		"$set": bson.M{
			"date":       day.UTC(),
			"date_key":   day.Format(dateutil.KeyLayout),
			"shifts":     shifts,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
}

func (s *Store) canonicalStations() map[string]string {
	m := make(map[string]string, len(s.stations))
	for _, st := range s.stations {
		m[text.Fold(normalize.Station(st))] = normalize.Station(st)
	}
	return m
}

// ImportResult summarizes an on-call CSV import.
type ImportResult struct {
	Days       int      `json:"days"`
	Shifts     int      `json:"shifts"`
	Unresolved []string `json:"unresolved"` // names stored without a profile link
}

// Import reads a date,station,resident roster and replaces the shifts of
// every day it names. Residents are matched by email or unique full name;
// others are kept as free text. A file with row errors returns
// *csvutil.RejectedError and changes nothing.
func (s *Store) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	parsed, err := csvutil.ParseOnCall(r, s.loc, s.stations, csvutil.DefaultParseOptions())
	if err != nil {
		return ImportResult{}, err
	}
	if parsed.HasErrors() {
		return ImportResult{}, &csvutil.RejectedError{Errors: parsed.Errors}
	}
	dir, err := s.users.Directory(ctx)
	if err != nil {
		return ImportResult{}, err
	}

	res := ImportResult{Unresolved: []string{}}
	unresolved := map[string]bool{}
	now := time.Now().UTC()
	var writes []mongo.WriteModel
	for _, rows := range parsed.Days() {
		shifts := make([]models.OnCallShift, 0, len(rows))
		for _, row := range rows {
			id, name := dir.Resolve(row.Resident)
			if id == nil && !unresolved[name] {
				unresolved[name] = true
				res.Unresolved = append(res.Unresolved, name)
			}
			shifts = append(shifts, models.OnCallShift{Station: row.Station, ResidentID: id, ResidentName: name})
		}
		day := rows[0].Date
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"date_key": rows[0].DateKey}).
			SetUpdate(upsertDay(day, shifts, now)).
			SetUpsert(true))
		res.Days++
		res.Shifts += len(shifts)
	}
	if len(writes) == 0 {
		return res, nil
	}

	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		_, err := s.c.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true))
		return err
	})
	if err != nil {
		return ImportResult{}, fmt.Errorf("import on-call days: %w", err)
	}
	return res, nil
}
