// Package cascade removes everything that references a deleted recipe and
// propagates denormalized profile pictures to a user's recipes and comments.
package cascade

import (
	"context"
	"fmt"

	"forkful/apperr"
	"forkful/db"
	"forkful/events"
	"forkful/models"
	"forkful/store"
)

type Cascader struct {
	store store.Store
}

func NewCascader(st store.Store) *Cascader {
	return &Cascader{store: st}
}

func (c *Cascader) Register(bus *events.Bus) {
	bus.Subscribe(events.UserPictureChanged, c.onPictureChanged)
}

// DeleteRecipe removes the recipe and every comment, like, bookmark, and
// notification referencing it in a single atomic batch, parent included, so a
// crash cannot leave orphaned children behind a deleted recipe.
func (c *Cascader) DeleteRecipe(ctx context.Context, recipeID, requester string) error {
	var recipe models.Recipe
	if err := c.store.Get(ctx, db.Recipes, recipeID, &recipe); err != nil {
		if err == store.ErrNotFound {
			return fmt.Errorf("recipe %s: %w", recipeID, apperr.ErrNotFound)
		}
		return fmt.Errorf("%w: get recipe: %v", apperr.ErrStoreFailure, err)
	}
	if recipe.UserHandle != requester {
		return fmt.Errorf("recipe %s owned by %s: %w", recipeID, recipe.UserHandle, apperr.ErrUnauthorized)
	}

	ops := []store.Op{{Kind: store.OpDelete, Coll: db.Recipes, ID: recipeID}}
	for _, coll := range []string{db.Comments, db.Likes, db.Bookmarks, db.Notifications} {
		ids, err := c.referencingIDs(ctx, coll, recipeID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			ops = append(ops, store.Op{Kind: store.OpDelete, Coll: coll, ID: id})
		}
	}

	if err := c.store.Batch(ctx, ops); err != nil {
		return fmt.Errorf("%w: cascade delete recipe %s: %v", apperr.ErrStoreFailure, recipeID, err)
	}
	return nil
}

func (c *Cascader) referencingIDs(ctx context.Context, coll, recipeID string) ([]string, error) {
	var docs []struct {
		ID string `bson:"_id"`
	}
	q := store.Query{Filters: []store.Filter{{Field: "recipeId", Op: store.OpEq, Value: recipeID}}}
	if err := c.store.Find(ctx, coll, q, &docs); err != nil {
		return nil, fmt.Errorf("%w: list %s for recipe %s: %v", apperr.ErrStoreFailure, coll, recipeID, err)
	}

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

// onPictureChanged rewrites the denormalized profilePicture field on every
// recipe and comment the user authored. Eventual consistency only: reads
// racing the fan-out may still see the old URL.
func (c *Cascader) onPictureChanged(ctx context.Context, payload any) error {
	ev, ok := payload.(events.PictureEvent)
	if !ok {
		return fmt.Errorf("cascade: unexpected payload %T", payload)
	}

	var ops []store.Op
	for _, coll := range []string{db.Recipes, db.Comments} {
		var docs []struct {
			ID string `bson:"_id"`
		}
		q := store.Query{Filters: []store.Filter{{Field: "userHandle", Op: store.OpEq, Value: ev.Handle}}}
		if err := c.store.Find(ctx, coll, q, &docs); err != nil {
			return fmt.Errorf("cascade: list %s for %s: %w", coll, ev.Handle, err)
		}
		for _, d := range docs {
			ops = append(ops, store.Op{
				Kind:   store.OpUpdate,
				Coll:   coll,
				ID:     d.ID,
				Update: store.Update{Set: store.M{"profilePicture": ev.URL}},
			})
		}
	}

	if len(ops) == 0 {
		return nil
	}
	if err := c.store.Batch(ctx, ops); err != nil {
		return fmt.Errorf("cascade: propagate picture for %s: %w", ev.Handle, err)
	}
	return nil
}
