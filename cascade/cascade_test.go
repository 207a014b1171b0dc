package cascade

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

func seedRecipeWithReferences(t *testing.T, st *memstore.Store, recipeID, owner string) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, db.Recipes, recipeID, models.Recipe{
		ID: recipeID, UserHandle: owner, Body: models.RecipeBody{Title: "Stew"},
	}))
	require.NoError(t, st.Set(ctx, db.Comments, recipeID+"-c1", models.Comment{
		ID: recipeID + "-c1", RecipeID: recipeID, UserHandle: "carol", Body: "nice",
	}))
	require.NoError(t, st.Set(ctx, db.Comments, recipeID+"-c2", models.Comment{
		ID: recipeID + "-c2", RecipeID: recipeID, UserHandle: "dave", Body: "tasty",
	}))
	require.NoError(t, st.Set(ctx, db.Likes, "carol:"+recipeID, models.Relation{
		ID: "carol:" + recipeID, UserHandle: "carol", RecipeID: recipeID,
	}))
	require.NoError(t, st.Set(ctx, db.Bookmarks, "dave:"+recipeID, models.Relation{
		ID: "dave:" + recipeID, UserHandle: "dave", RecipeID: recipeID,
	}))
	require.NoError(t, st.Set(ctx, db.Notifications, "carol:"+recipeID, models.Notification{
		ID: "carol:" + recipeID, RecipeID: recipeID, Type: "like", Sender: "carol", Recipient: owner,
	}))
}

func countByRecipe(t *testing.T, st *memstore.Store, coll, recipeID string) int {
	t.Helper()
	var docs []struct {
		ID string `bson:"_id"`
	}
	q := store.Query{Filters: []store.Filter{{Field: "recipeId", Op: store.OpEq, Value: recipeID}}}
	require.NoError(t, st.Find(context.Background(), coll, q, &docs))
	return len(docs)
}

func TestDeleteRecipeRemovesEveryReference(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	seedRecipeWithReferences(t, st, "r1", "alice")
	seedRecipeWithReferences(t, st, "r2", "alice")

	require.NoError(t, NewCascader(st).DeleteRecipe(ctx, "r1", "alice"))

	var recipe models.Recipe
	assert.ErrorIs(t, st.Get(ctx, db.Recipes, "r1", &recipe), store.ErrNotFound)
	for _, coll := range []string{db.Comments, db.Likes, db.Bookmarks, db.Notifications} {
		assert.Zero(t, countByRecipe(t, st, coll, "r1"), coll)
	}

	// The sibling recipe and its references are untouched.
	require.NoError(t, st.Get(ctx, db.Recipes, "r2", &recipe))
	assert.Equal(t, 2, countByRecipe(t, st, db.Comments, "r2"))
	assert.Equal(t, 1, countByRecipe(t, st, db.Likes, "r2"))
}

func TestDeleteRecipeMissing(t *testing.T) {
	st := memstore.New()
	err := NewCascader(st).DeleteRecipe(context.Background(), "ghost", "alice")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteRecipeWrongOwner(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	seedRecipeWithReferences(t, st, "r1", "alice")

	err := NewCascader(st).DeleteRecipe(ctx, "r1", "mallory")
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	var recipe models.Recipe
	require.NoError(t, st.Get(ctx, db.Recipes, "r1", &recipe))
	assert.Equal(t, 2, countByRecipe(t, st, db.Comments, "r1"))
}

func TestPictureChangePropagatesToRecipesAndComments(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, db.Recipes, "r1", models.Recipe{
		ID: "r1", UserHandle: "alice", ProfilePicture: "/old.png",
	}))
	require.NoError(t, st.Set(ctx, db.Comments, "c1", models.Comment{
		ID: "c1", RecipeID: "r9", UserHandle: "alice", ProfilePicture: "/old.png",
	}))
	require.NoError(t, st.Set(ctx, db.Comments, "c2", models.Comment{
		ID: "c2", RecipeID: "r9", UserHandle: "bob", ProfilePicture: "/bob.png",
	}))

	bus := events.NewBus()
	NewCascader(st).Register(bus)
	bus.Emit(events.UserPictureChanged, events.PictureEvent{Handle: "alice", URL: "/new.png"})
	bus.Wait()

	var recipe models.Recipe
	require.NoError(t, st.Get(ctx, db.Recipes, "r1", &recipe))
	assert.Equal(t, "/new.png", recipe.ProfilePicture)

	var comment models.Comment
	require.NoError(t, st.Get(ctx, db.Comments, "c1", &comment))
	assert.Equal(t, "/new.png", comment.ProfilePicture)

	require.NoError(t, st.Get(ctx, db.Comments, "c2", &comment))
	assert.Equal(t, "/bob.png", comment.ProfilePicture)
}
