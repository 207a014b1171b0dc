// Package feed assembles the three paginated recipe feeds: timeline
// (followed handles), bookmark (saved recipes), and explore (everyone except
// self and follows).
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"forkful/apperr"
	"forkful/db"
	"forkful/models"
	"forkful/rdx"
	"forkful/store"
)

const pageSize = 10

const membershipTTL = 5 * time.Minute

type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Timeline returns up to ten recipes from handles the actor follows, newest
// first, strictly older than before when a cursor is given.
func (s *Service) Timeline(ctx context.Context, actor, before string) ([]models.Recipe, error) {
	follows, err := s.followSet(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, before, func(r models.Recipe) bool {
		return follows[r.UserHandle]
	})
}

// Bookmarks returns up to ten recipes the actor has bookmarked, newest first.
func (s *Service) Bookmarks(ctx context.Context, actor, before string) ([]models.Recipe, error) {
	bookmarks, err := s.bookmarkSet(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, before, func(r models.Recipe) bool {
		return bookmarks[r.ID]
	})
}

// Explore returns up to ten recipes authored by neither the actor nor anyone
// the actor follows, newest first.
func (s *Service) Explore(ctx context.Context, actor, before string) ([]models.Recipe, error) {
	follows, err := s.followSet(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, before, func(r models.Recipe) bool {
		return r.UserHandle != actor && !follows[r.UserHandle]
	})
}

// page scans the recipe stream newest first and filters in memory until the
// page is full or the stream is exhausted. Honest pagination: a short page
// means there really are no further matches, never that matches fell outside
// a fixed query window.
func (s *Service) page(ctx context.Context, before string, keep func(models.Recipe) bool) ([]models.Recipe, error) {
	q := store.Query{OrderBy: "createdAt", Desc: true}
	if before != "" {
		q.Filters = append(q.Filters, store.Filter{Field: "createdAt", Op: store.OpLt, Value: before})
	}

	var stream []models.Recipe
	if err := s.store.Find(ctx, db.Recipes, q, &stream); err != nil {
		return nil, fmt.Errorf("%w: list recipes: %v", apperr.ErrStoreFailure, err)
	}

	page := []models.Recipe{}
	for _, r := range stream {
		if keep(r) {
			page = append(page, r)
			if len(page) == pageSize {
				break
			}
		}
	}
	return page, nil
}

func (s *Service) followSet(ctx context.Context, actor string) (map[string]bool, error) {
	return s.membership(ctx, "follows:"+actor, db.Follows, actor, func(rel models.Relation) string {
		return rel.Follows
	})
}

func (s *Service) bookmarkSet(ctx context.Context, actor string) (map[string]bool, error) {
	return s.membership(ctx, "bookmarks:"+actor, db.Bookmarks, actor, func(rel models.Relation) string {
		return rel.RecipeID
	})
}

// membership loads the actor's full relation-membership list, through the
// Redis cache when available. The relations engine invalidates the key on
// every toggle.
func (s *Service) membership(ctx context.Context, cacheKey, coll, actor string, member func(models.Relation) string) (map[string]bool, error) {
	if cached := rdx.GetCached(ctx, cacheKey); cached != "" {
		var members []string
		if err := json.Unmarshal([]byte(cached), &members); err == nil {
			return toSet(members), nil
		}
	}

	var rels []models.Relation
	q := store.Query{Filters: []store.Filter{{Field: "userHandle", Op: store.OpEq, Value: actor}}}
	if err := s.store.Find(ctx, coll, q, &rels); err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", apperr.ErrStoreFailure, coll, err)
	}

	members := make([]string, 0, len(rels))
	for _, rel := range rels {
		members = append(members, member(rel))
	}
	if payload, err := json.Marshal(members); err == nil {
		rdx.SetCached(ctx, cacheKey, string(payload), membershipTTL)
	}
	return toSet(members), nil
}

func toSet(members []string) map[string]bool {
	set := make(map[string]bool, len(members))
	for _, m := range members {
		set[m] = true
	}
	return set
}
