package userstore

import (
	"context"

	"github.com/dalemusser/residencyhub/internal/app/system/normalize"
	"github.com/dalemusser/residencyhub/internal/app/system/paging"
	"github.com/dalemusser/residencyhub/internal/app/system/retry"
	"github.com/dalemusser/residencyhub/internal/app/system/search"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// searchScanLimit bounds how many candidates a text search inspects.
const searchScanLimit = 5000

// ListFilter narrows ListUsers. Empty fields (or "all") do not filter.
type ListFilter struct {
	Role   string
	Status string
	Query  string // synonym-aware search over name and email
	Page   paging.Page
}

var listSort = bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}}

// ListUsers returns one page of users sorted by name.
//
// Without a query the page is read straight from Mongo with skip/limit. With a
// query, candidates are filtered in process so synonyms and word-prefix
// matching apply, and the page is cut from the matches.
func (s *Store) ListUsers(ctx context.Context, f ListFilter) ([]models.User, paging.Result, error) {
	filter := bson.M{}
	if role := normalize.Role(normalize.FilterAll(f.Role)); role != "" {
		filter["role"] = role
	}
	if st := normalize.Status(normalize.FilterAll(f.Status)); st != "" {
		filter["status"] = st
	}
	query := normalize.QueryParam(f.Query)

	if query == "" {
		opts := f.Page.Apply(options.Find().SetSort(listSort).SetProjection(withoutSecrets))
		rows, err := s.find(ctx, filter, opts)
		if err != nil {
			return nil, paging.Result{}, err
		}
		res := paging.Trim(&rows, f.Page)
		return rows, res, nil
	}

	opts := options.Find().SetSort(listSort).SetProjection(withoutSecrets).SetLimit(searchScanLimit)
	all, err := s.find(ctx, filter, opts)
	if err != nil {
		return nil, paging.Result{}, err
	}
	matched := search.Filter(s.matcher, query, all, func(u models.User) []string {
		return []string{u.FullName, u.Email}
	})
	rows := window(matched, f.Page)
	res := paging.Trim(&rows, f.Page)
	return rows, res, nil
}

// ListByRole returns every active user with role, sorted by name.
func (s *Store) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	return s.find(ctx, bson.M{"role": role, "status": "active"},
		options.Find().SetSort(listSort).SetProjection(withoutSecrets))
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.User, error) {
	return retry.Value(ctx, func(ctx context.Context) ([]models.User, error) {
		cur, err := s.c.Find(ctx, filter, opts)
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)
		out := []models.User{}
		if err := cur.All(ctx, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// window cuts the page (plus one look-ahead row) out of an in-memory list.
func window[T any](items []T, p paging.Page) []T {
	from := int(p.Skip())
	if from >= len(items) {
		return []T{}
	}
	to := from + int(p.LimitPlusOne())
	if to > len(items) {
		to = len(items)
	}
	return append([]T(nil), items[from:to]...)
}
