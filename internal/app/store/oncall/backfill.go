package oncallstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dalemusser/residencyhub/internal/app/system/dateutil"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// BackfillResult counts what Backfill did.
type BackfillResult struct {
	Scanned int `json:"scanned"`
	Fixed   int `json:"fixed"`  // rewritten in place
	Merged  int `json:"merged"` // folded into an existing day and deleted
}

// Backfill repairs rosters whose date_key is missing or whose stored date is
// not local midnight (in loc) of that key.
//
// The intended day comes from dateutil.NormalizeShifted: an instant at or
// after 12:00 local is a midnight that drifted back across a zone offset and
// belongs to the next day. The date is rewritten to local midnight.
//
// Every document's intended day is worked out from one scan before anything
// is written, so the result does not depend on processing order. Documents
// that land on the same day are folded into one survivor: the one already
// correct for that day, else the earliest. Stations from the others that the
// survivor lacks are appended in date order and the others are deleted.
func (s *Store) Backfill(ctx context.Context, loc *time.Location) (BackfillResult, error) {
	if loc == nil {
		loc = s.loc
	}
	var res BackfillResult

	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(dateSort))
	if err != nil {
		return res, fmt.Errorf("scan on-call days: %w", err)
	}
	var all []models.OnCallDay
	if err := cur.All(ctx, &all); err != nil {
		return res, fmt.Errorf("scan on-call days: %w", err)
	}
	res.Scanned = len(all)

	groups := planBackfill(all, loc)

	// A stale key would block the day it names from being claimed by the
	// document that belongs there.
	var stale []primitive.ObjectID
	for _, g := range groups {
		for _, d := range g.docs {
			if d.DateKey != "" && d.DateKey != g.key {
				stale = append(stale, d.ID)
			}
		}
	}
	if len(stale) > 0 {
		if _, err := s.c.UpdateMany(ctx,
			bson.M{"_id": bson.M{"$in": stale}},
			bson.M{"$unset": bson.M{"date_key": ""}},
		); err != nil {
			return res, fmt.Errorf("clear stale keys: %w", err)
		}
	}

	for _, g := range groups {
		if !g.dirty(loc) {
			continue
		}
		keep := g.docs[0]
		shifts := keep.Shifts
		for _, d := range g.docs[1:] {
			shifts = MergeShifts(shifts, d.Shifts)
		}
		if _, err := s.c.UpdateByID(ctx, keep.ID, bson.M{"$set": bson.M{
			"date":       g.midnight.UTC(),
			"date_key":   g.key,
			"shifts":     shifts,
			"updated_at": time.Now().UTC(),
		}}); err != nil {
			return res, fmt.Errorf("fix %s: %w", g.key, err)
		}
		if needsFix(keep, loc) {
			res.Fixed++
		}
		for _, d := range g.docs[1:] {
			if _, err := s.c.DeleteOne(ctx, bson.M{"_id": d.ID}); err != nil {
				return res, fmt.Errorf("delete stray %s: %w", d.ID.Hex(), err)
			}
			res.Merged++
		}
	}

	if s.log != nil && (res.Fixed > 0 || res.Merged > 0) {
		s.log.Info("on-call backfill repaired dates",
			zap.Int("scanned", res.Scanned),
			zap.Int("fixed", res.Fixed),
			zap.Int("merged", res.Merged))
	}
	return res, nil
}

// backfillGroup is every document whose intended day is key. docs[0] is
// the survivor.
type backfillGroup struct {
	key      string
	midnight time.Time
	docs     []models.OnCallDay
}

func (g backfillGroup) dirty(loc *time.Location) bool {
	return len(g.docs) > 1 || needsFix(g.docs[0], loc)
}

// planBackfill groups all (sorted by date) by intended day, in day order.
func planBackfill(all []models.OnCallDay, loc *time.Location) []backfillGroup {
	var groups []backfillGroup
	index := make(map[string]int)
	for _, d := range all {
		key, midnight := d.DateKey, d.Date
		if needsFix(d, loc) {
			key, midnight = intendedDay(d.Date, loc)
		}
		i, ok := index[key]
		if !ok {
			index[key] = len(groups)
			groups = append(groups, backfillGroup{key: key, midnight: midnight, docs: []models.OnCallDay{d}})
			continue
		}
		g := &groups[i]
		if !needsFix(d, loc) {
			// The correctly stored document survives.
			g.docs = append([]models.OnCallDay{d}, g.docs...)
		} else {
			g.docs = append(g.docs, d)
		}
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].key < groups[j].key })
	return groups
}

// needsFix reports whether d lacks a key or its date is not that key's
// local midnight.
func needsFix(d models.OnCallDay, loc *time.Location) bool {
	if d.DateKey == "" {
		return true
	}
	want, err := dateutil.ParseKey(d.DateKey, loc)
	if err != nil {
		return true
	}
	return !want.Equal(d.Date)
}

// intendedDay is the calendar day a stored instant stands for. Exact local
// midnights keep their day.
func intendedDay(t time.Time, loc *time.Location) (string, time.Time) {
	if dateutil.IsMidnight(t, loc) {
		day := dateutil.Midnight(t, loc)
		return day.Format(dateutil.KeyLayout), day
	}
	return dateutil.NormalizeShifted(t, loc)
}

// MergeShifts appends the stations of extra that keep lacks. keep wins on
// conflicts and its order is preserved.
func MergeShifts(keep, extra []models.OnCallShift) []models.OnCallShift {
	out := append([]models.OnCallShift{}, keep...)
	have := make(map[string]bool, len(keep))
	for _, sh := range keep {
		have[sh.Station] = true
	}
	for _, sh := range extra {
		if !have[sh.Station] {
			have[sh.Station] = true
			out = append(out, sh)
		}
	}
	return out
}
