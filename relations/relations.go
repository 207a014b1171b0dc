// Package relations enforces the at-most-one rule for likes, bookmarks, and
// follows, and keeps the denormalized counters on the target entity in step
// with relation writes.
package relations

import (
	"context"
	"fmt"

	"forkful/apperr"
	"forkful/db"
	"forkful/events"
	"forkful/models"
	"forkful/rdx"
	"forkful/store"
)

type Kind string

const (
	Like     Kind = "like"
	Bookmark Kind = "bookmark"
	Follow   Kind = "follow"
)

// kindInfo maps a relation kind to its collection, its target collection,
// and the counter field it maintains on the target.
type kindInfo struct {
	coll       string
	targetColl string
	counter    string
}

var kinds = map[Kind]kindInfo{
	Like:     {coll: db.Likes, targetColl: db.Recipes, counter: "likeCount"},
	Bookmark: {coll: db.Bookmarks, targetColl: db.Recipes, counter: "bookmarkCount"},
	Follow:   {coll: db.Follows, targetColl: db.Users, counter: "followCount"},
}

// RelationID is the deterministic composite id for an (actor, target) pair.
// Using it as the document id turns the uniqueness rule into a conditional
// insert: a duplicate is detected by the write itself, with no window between
// an existence check and the create.
func RelationID(actor, target string) string {
	return actor + ":" + target
}

type Engine struct {
	store store.Store
	bus   *events.Bus
}

func NewEngine(st store.Store, bus *events.Bus) *Engine {
	return &Engine{store: st, bus: bus}
}

// Add creates the relation and increments the target's counter. It fails
// with NotFound when the target is absent, SelfActionForbidden when the actor
// owns the target, and AlreadyExists when the relation is already present.
func (e *Engine) Add(ctx context.Context, kind Kind, actor, targetID string) error {
	info := kinds[kind]

	owner, err := e.targetOwner(ctx, kind, targetID)
	if err != nil {
		return err
	}
	if owner == actor {
		return fmt.Errorf("%s %s: %w", kind, targetID, apperr.ErrSelfActionForbidden)
	}

	rel := models.Relation{ID: RelationID(actor, targetID), UserHandle: actor}
	if kind == Follow {
		rel.Follows = targetID
	} else {
		rel.RecipeID = targetID
	}

	if err := e.store.Create(ctx, info.coll, rel.ID, rel); err != nil {
		if err == store.ErrExists {
			return fmt.Errorf("%s %s: %w", kind, targetID, apperr.ErrAlreadyExists)
		}
		return fmt.Errorf("%w: create %s: %v", apperr.ErrStoreFailure, kind, err)
	}

	// The relation document is the source of truth; a failure here leaves
	// the counter behind by one until Recount runs.
	if err := e.store.Update(ctx, info.targetColl, targetID, store.Update{Inc: store.M{info.counter: int64(1)}}); err != nil {
		return fmt.Errorf("%w: increment %s: %v", apperr.ErrStoreFailure, info.counter, err)
	}

	e.invalidateMembership(ctx, kind, actor)
	e.bus.Emit(events.RelationCreated, events.RelationEvent{
		Kind:     string(kind),
		ID:       rel.ID,
		Actor:    actor,
		TargetID: targetID,
	})
	return nil
}

// Remove deletes the relation and decrements the counter. A missing relation
// is NotFound; the delete itself reports whether the document was present, so
// two concurrent removes cannot double-decrement.
func (e *Engine) Remove(ctx context.Context, kind Kind, actor, targetID string) error {
	info := kinds[kind]

	owner, err := e.targetOwner(ctx, kind, targetID)
	if err != nil {
		return err
	}
	if owner == actor {
		return fmt.Errorf("%s %s: %w", kind, targetID, apperr.ErrSelfActionForbidden)
	}

	id := RelationID(actor, targetID)
	deleted, err := e.store.Delete(ctx, info.coll, id)
	if err != nil {
		return fmt.Errorf("%w: delete %s: %v", apperr.ErrStoreFailure, kind, err)
	}
	if !deleted {
		return fmt.Errorf("%s relation %s: %w", kind, id, apperr.ErrNotFound)
	}

	if err := e.store.Update(ctx, info.targetColl, targetID, store.Update{Inc: store.M{info.counter: int64(-1)}}); err != nil {
		return fmt.Errorf("%w: decrement %s: %v", apperr.ErrStoreFailure, info.counter, err)
	}

	e.invalidateMembership(ctx, kind, actor)
	e.bus.Emit(events.RelationRemoved, events.RelationEvent{
		Kind:     string(kind),
		ID:       id,
		Actor:    actor,
		TargetID: targetID,
	})
	return nil
}

// Recount is the reconciliation path for counter drift: it counts the actual
// relation documents and overwrites the target's counter with the result.
func (e *Engine) Recount(ctx context.Context, kind Kind, targetID string) (int64, error) {
	info := kinds[kind]

	field := "recipeId"
	if kind == Follow {
		field = "follows"
	}

	var rels []models.Relation
	q := store.Query{Filters: []store.Filter{{Field: field, Op: store.OpEq, Value: targetID}}}
	if err := e.store.Find(ctx, info.coll, q, &rels); err != nil {
		return 0, fmt.Errorf("%w: recount %s: %v", apperr.ErrStoreFailure, kind, err)
	}

	n := int64(len(rels))
	if err := e.store.Update(ctx, info.targetColl, targetID, store.Update{Set: store.M{info.counter: n}}); err != nil {
		return 0, fmt.Errorf("%w: write %s: %v", apperr.ErrStoreFailure, info.counter, err)
	}
	return n, nil
}

func (e *Engine) targetOwner(ctx context.Context, kind Kind, targetID string) (string, error) {
	if kind == Follow {
		var user models.User
		if err := e.store.Get(ctx, db.Users, targetID, &user); err != nil {
			if err == store.ErrNotFound {
				return "", fmt.Errorf("user %s: %w", targetID, apperr.ErrNotFound)
			}
			return "", fmt.Errorf("%w: get user: %v", apperr.ErrStoreFailure, err)
		}
		return user.Handle, nil
	}

	var recipe models.Recipe
	if err := e.store.Get(ctx, db.Recipes, targetID, &recipe); err != nil {
		if err == store.ErrNotFound {
			return "", fmt.Errorf("recipe %s: %w", targetID, apperr.ErrNotFound)
		}
		return "", fmt.Errorf("%w: get recipe: %v", apperr.ErrStoreFailure, err)
	}
	return recipe.UserHandle, nil
}

func (e *Engine) invalidateMembership(ctx context.Context, kind Kind, actor string) {
	switch kind {
	case Follow:
		rdx.Invalidate(ctx, "follows:"+actor)
	case Bookmark:
		rdx.Invalidate(ctx, "bookmarks:"+actor)
	}
}
