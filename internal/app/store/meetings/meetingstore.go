// internal/app/store/meetings/meetingstore.go
package meetingstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dalemusser/residencyhub/internal/app/system/csvutil"
	"github.com/dalemusser/residencyhub/internal/app/system/dateutil"
	"github.com/dalemusser/residencyhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/residencyhub/internal/app/system/normalize"
	"github.com/dalemusser/residencyhub/internal/app/system/retry"
	"github.com/dalemusser/residencyhub/internal/app/system/search"
	"github.com/dalemusser/residencyhub/internal/app/system/txn"
	"github.com/dalemusser/residencyhub/internal/app/system/validators"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	ErrNotFound      = errors.New("meeting not found")
	ErrOutsideMonth  = errors.New("meeting date is outside the month")
	ErrTitleRequired = errors.New("title is required")
	ErrBadLink       = errors.New("link must be an absolute http(s) URL")
	ErrBadRange      = errors.New("from must be before to")
)

var daySort = bson.D{{Key: "date", Value: 1}, {Key: "order", Value: 1}, {Key: "_id", Value: 1}}

type Store struct {
	db      *mongo.Database
	c       *mongo.Collection
	loc     *time.Location
	matcher *search.Matcher
	log     *zap.Logger
}

// New returns a Store whose calendar days are in loc.
func New(db *mongo.Database, loc *time.Location, log *zap.Logger) *Store {
	return NewWithMatcher(db, loc, search.New(search.DefaultGroups), log)
}

func NewWithMatcher(db *mongo.Database, loc *time.Location, m *search.Matcher, log *zap.Logger) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{db: db, c: db.Collection("morning_meetings"), loc: loc, matcher: m, log: log}
}

// Location is the program time zone meetings are dated in.
func (s *Store) Location() *time.Location {
	return s.loc
}

// MeetingInput is one meeting to store. Any instant within the local day
// works for Date. Order only breaks ties within a day; stored orders are
// renumbered from 1.
type MeetingInput struct {
	Date      time.Time
	Order     int
	Title     string
	Lecturer  string
	Moderator string
	Organizer string
	Link      string
	Notes     string
}

// InputsFromRows converts parsed CSV rows.
func InputsFromRows(rows []csvutil.MeetingRow) []MeetingInput {
	out := make([]MeetingInput, len(rows))
	for i, r := range rows {
		out[i] = MeetingInput{
			Date: r.Date, Order: r.Order, Title: r.Title, Lecturer: r.Lecturer,
			Moderator: r.Moderator, Organizer: r.Organizer, Link: r.Link, Notes: r.Notes,
		}
	}
	return out
}

// ReplaceMonthMeetings swaps the stored meetings of month ("YYYY-MM") for
// items in one transaction. Every item must fall inside the month.
func (s *Store) ReplaceMonthMeetings(ctx context.Context, month string, items []MeetingInput) ([]models.MorningMeeting, error) {
	from, to, err := dateutil.MonthRange(month, s.loc)
	if err != nil {
		return nil, err
	}
	monthKey := from.Format(dateutil.MonthLayout)

	now := time.Now().UTC()
	docs := make([]models.MorningMeeting, 0, len(items))
	for i, in := range items {
		m, err := s.build(in, now)
		if err != nil {
			return nil, fmt.Errorf("meeting %d: %w", i+1, err)
		}
		if m.Date.Before(from) || !m.Date.Before(to) {
			return nil, fmt.Errorf("meeting %d (%s): %w %s", i+1, m.DateKey, ErrOutsideMonth, monthKey)
		}
		docs = append(docs, m)
	}
	sort.SliceStable(docs, func(i, j int) bool {
		if !docs[i].Date.Equal(docs[j].Date) {
			return docs[i].Date.Before(docs[j].Date)
		}
		return docs[i].Order < docs[j].Order
	})
	for i := range docs {
		if i > 0 && docs[i].DateKey == docs[i-1].DateKey {
			docs[i].Order = docs[i-1].Order + 1
		} else {
			docs[i].Order = 1
		}
	}

	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if _, err := s.c.DeleteMany(ctx, bson.M{"month_key": monthKey}); err != nil {
			return fmt.Errorf("delete month: %w", err)
		}
		if len(docs) == 0 {
			return nil
		}
		batch := make([]interface{}, len(docs))
		for i := range docs {
			batch[i] = docs[i]
		}
		if _, err := s.c.InsertMany(ctx, batch); err != nil {
			return fmt.Errorf("insert meetings: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// ImportMonthCSV parses a roster and replaces month with it. A file with row
// errors returns *csvutil.RejectedError and changes nothing.
func (s *Store) ImportMonthCSV(ctx context.Context, month string, r io.Reader) ([]models.MorningMeeting, error) {
	if _, _, err := dateutil.MonthRange(month, s.loc); err != nil {
		return nil, err
	}
	res, err := csvutil.ParseMeetings(r, s.loc, csvutil.DefaultParseOptions())
	if err != nil {
		return nil, err
	}
	if res.HasErrors() {
		return nil, &csvutil.RejectedError{Errors: res.Errors}
	}
	return s.ReplaceMonthMeetings(ctx, month, InputsFromRows(res.Rows))
}

func (s *Store) build(in MeetingInput, now time.Time) (models.MorningMeeting, error) {
	title := normalize.Name(in.Title)
	if title == "" {
		return models.MorningMeeting{}, ErrTitleRequired
	}
	link := strings.TrimSpace(in.Link)
	if link != "" && !validators.IsHTTPURL(link) {
		return models.MorningMeeting{}, ErrBadLink
	}
	day := dateutil.Midnight(in.Date, s.loc)
	return models.MorningMeeting{
		ID:        primitive.NewObjectID(),
		Date:      day.UTC(),
		DateKey:   day.Format(dateutil.KeyLayout),
		MonthKey:  day.Format(dateutil.MonthLayout),
		Order:     in.Order,
		Title:     title,
		Lecturer:  normalize.Name(in.Lecturer),
		Moderator: normalize.Name(in.Moderator),
		Organizer: normalize.Name(in.Organizer),
		Link:      link,
		Notes:     htmlsanitize.Notes(in.Notes),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.MorningMeeting, error) {
	m, err := retry.Value(ctx, func(ctx context.Context) (models.MorningMeeting, error) {
		var m models.MorningMeeting
		err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
		return m, err
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.MorningMeeting{}, ErrNotFound
	}
	return m, err
}

// ListMonth returns the meetings of month ("YYYY-MM") in calendar order.
func (s *Store) ListMonth(ctx context.Context, month string) ([]models.MorningMeeting, error) {
	from, _, err := dateutil.MonthRange(month, s.loc)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, bson.M{"month_key": from.Format(dateutil.MonthLayout)})
}

// ListRange returns meetings dated in [from, to).
func (s *Store) ListRange(ctx context.Context, from, to time.Time) ([]models.MorningMeeting, error) {
	if !from.Before(to) {
		return nil, ErrBadRange
	}
	return s.find(ctx, bson.M{"date": bson.M{"$gte": from.UTC(), "$lt": to.UTC()}})
}

// Filter keeps the meetings whose title or people match query.
func (s *Store) Filter(query string, ms []models.MorningMeeting) []models.MorningMeeting {
	return search.Filter(s.matcher, normalize.QueryParam(query), ms, func(m models.MorningMeeting) []string {
		return []string{m.Title, m.Lecturer, m.Moderator, m.Organizer}
	})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.MorningMeeting, error) {
	return retry.Value(ctx, func(ctx context.Context) ([]models.MorningMeeting, error) {
		cur, err := s.c.Find(ctx, filter, options.Find().SetSort(daySort))
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)
		out := []models.MorningMeeting{}
		if err := cur.All(ctx, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// Update holds the editable meeting fields. Nil fields are left unchanged.
type Update struct {
	Date      *time.Time
	Title     *string
	Lecturer  *string
	Moderator *string
	Organizer *string
	Link      *string
	Notes     *string
}

// Update edits one meeting. Moving it to another day appends it after that
// day's last meeting.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, u Update) (models.MorningMeeting, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if u.Title != nil {
		title := normalize.Name(*u.Title)
		if title == "" {
			return models.MorningMeeting{}, ErrTitleRequired
		}
		set["title"] = title
	}
	for field, v := range map[string]*string{"lecturer": u.Lecturer, "moderator": u.Moderator, "organizer": u.Organizer} {
		if v != nil {
			set[field] = normalize.Name(*v)
		}
	}
	if u.Link != nil {
		link := strings.TrimSpace(*u.Link)
		if link != "" && !validators.IsHTTPURL(link) {
			return models.MorningMeeting{}, ErrBadLink
		}
		set["link"] = link
	}
	if u.Notes != nil {
		set["notes"] = htmlsanitize.Notes(*u.Notes)
	}

	if u.Date != nil {
		cur, err := s.GetByID(ctx, id)
		if err != nil {
			return models.MorningMeeting{}, err
		}
		day := dateutil.Midnight(*u.Date, s.loc)
		key := day.Format(dateutil.KeyLayout)
		if key != cur.DateKey {
			last, err := s.lastOrder(ctx, key)
			if err != nil {
				return models.MorningMeeting{}, err
			}
			set["date"] = day.UTC()
			set["date_key"] = key
			set["month_key"] = day.Format(dateutil.MonthLayout)
			set["order"] = last + 1
		}
	}

	var m models.MorningMeeting
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.MorningMeeting{}, ErrNotFound
	}
	if err != nil {
		return models.MorningMeeting{}, fmt.Errorf("update meeting: %w", err)
	}
	return m, nil
}

func (s *Store) lastOrder(ctx context.Context, dateKey string) (int, error) {
	var m models.MorningMeeting
	err := s.c.FindOne(ctx, bson.M{"date_key": dateKey},
		options.FindOne().SetSort(bson.D{{Key: "order", Value: -1}})).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return m.Order, nil
}

// Delete removes a meeting.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete meeting: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
