package relations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forkful/apperr"
	"forkful/db"
	"forkful/events"
	"forkful/models"
	"forkful/store"
	"forkful/store/memstore"
)

func newTestEngine(t *testing.T) (*Engine, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, db.Users, "alice", models.User{Handle: "alice", UserID: "u_1"}))
	require.NoError(t, st.Set(ctx, db.Users, "bob", models.User{Handle: "bob", UserID: "u_2"}))
	require.NoError(t, st.Set(ctx, db.Recipes, "r1", models.Recipe{
		ID:         "r1",
		UserHandle: "bob",
		Body:       models.RecipeBody{Title: "Pancakes"},
		CreatedAt:  "2026-01-01T10:00:00Z",
	}))

	return NewEngine(st, events.NewBus()), st
}

func likeCount(t *testing.T, st *memstore.Store, recipeID string) int64 {
	t.Helper()
	var recipe models.Recipe
	require.NoError(t, st.Get(context.Background(), db.Recipes, recipeID, &recipe))
	return recipe.LikeCount
}

func TestAddCreatesRelationAndIncrementsCounter(t *testing.T) {
	engine, st := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.Add(ctx, Like, "alice", "r1"))

	var rel models.Relation
	require.NoError(t, st.Get(ctx, db.Likes, "alice:r1", &rel))
	assert.Equal(t, "alice", rel.UserHandle)
	assert.Equal(t, "r1", rel.RecipeID)
	assert.Equal(t, int64(1), likeCount(t, st, "r1"))
}

func TestAddDuplicateFailsWithoutSecondIncrement(t *testing.T) {
	engine, st := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.Add(ctx, Like, "alice", "r1"))
	err := engine.Add(ctx, Like, "alice", "r1")
	require.ErrorIs(t, err, apperr.ErrAlreadyExists)
	assert.Equal(t, int64(1), likeCount(t, st, "r1"))
}

func TestAddOwnTargetForbidden(t *testing.T) {
	engine, st := newTestEngine(t)
	ctx := context.Background()

	err := engine.Add(ctx, Like, "bob", "r1")
	require.ErrorIs(t, err, apperr.ErrSelfActionForbidden)

	err = engine.Add(ctx, Follow, "alice", "alice")
	require.ErrorIs(t, err, apperr.ErrSelfActionForbidden)

	assert.Equal(t, int64(0), likeCount(t, st, "r1"))
}

func TestAddMissingTarget(t *testing.T) {
	engine, _ := newTestEngine(t)

	err := engine.Add(context.Background(), Like, "alice", "nope")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRemoveRoundTrip(t *testing.T) {
	engine, st := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.Add(ctx, Like, "alice", "r1"))
	require.NoError(t, engine.Remove(ctx, Like, "alice", "r1"))

	var rel models.Relation
	assert.ErrorIs(t, st.Get(ctx, db.Likes, "alice:r1", &rel), store.ErrNotFound)
	assert.Equal(t, int64(0), likeCount(t, st, "r1"))
}

func TestRemoveAbsentDoesNotDecrement(t *testing.T) {
	engine, st := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.Add(ctx, Like, "alice", "r1"))
	require.NoError(t, engine.Remove(ctx, Like, "alice", "r1"))

	err := engine.Remove(ctx, Like, "alice", "r1")
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, int64(0), likeCount(t, st, "r1"))
}

func TestFollowMaintainsFollowCount(t *testing.T) {
	engine, st := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.Add(ctx, Follow, "alice", "bob"))

	var bob models.User
	require.NoError(t, st.Get(ctx, db.Users, "bob", &bob))
	assert.Equal(t, int64(1), bob.FollowCount)

	var rel models.Relation
	require.NoError(t, st.Get(ctx, db.Follows, "alice:bob", &rel))
	assert.Equal(t, "bob", rel.Follows)

	require.NoError(t, engine.Remove(ctx, Follow, "alice", "bob"))
	require.NoError(t, st.Get(ctx, db.Users, "bob", &bob))
	assert.Equal(t, int64(0), bob.FollowCount)
}

func TestRecountRepairsDriftedCounter(t *testing.T) {
	engine, st := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.Add(ctx, Like, "alice", "r1"))
	require.NoError(t, st.Set(ctx, db.Likes, "carol:r1", models.Relation{
		ID: "carol:r1", UserHandle: "carol", RecipeID: "r1",
	}))
	// Drift: the counter says five, the documents say two.
	require.NoError(t, st.Update(ctx, db.Recipes, "r1", store.Update{Set: store.M{"likeCount": int64(5)}}))

	n, err := engine.Recount(ctx, Like, "r1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, int64(2), likeCount(t, st, "r1"))
}

func TestRelationID(t *testing.T) {
	assert.Equal(t, "alice:r1", RelationID("alice", "r1"))
}
