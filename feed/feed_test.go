package feed

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forkful/db"
	"forkful/models"
	"forkful/relations"
	"forkful/store/memstore"
)

func seedRecipe(t *testing.T, st *memstore.Store, id, author, createdAt string) {
	t.Helper()
	require.NoError(t, st.Set(context.Background(), db.Recipes, id, models.Recipe{
		ID: id, UserHandle: author, Body: models.RecipeBody{Title: id}, CreatedAt: createdAt,
	}))
}

func seedFollow(t *testing.T, st *memstore.Store, actor, target string) {
	t.Helper()
	id := relations.RelationID(actor, target)
	require.NoError(t, st.Set(context.Background(), db.Follows, id, models.Relation{
		ID: id, UserHandle: actor, Follows: target,
	}))
}

func seedBookmark(t *testing.T, st *memstore.Store, actor, recipeID string) {
	t.Helper()
	id := relations.RelationID(actor, recipeID)
	require.NoError(t, st.Set(context.Background(), db.Bookmarks, id, models.Relation{
		ID: id, UserHandle: actor, RecipeID: recipeID,
	}))
}

func ids(recipes []models.Recipe) []string {
	out := make([]string, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, r.ID)
	}
	return out
}

func TestTimelineShowsFollowedAuthorsNewestFirst(t *testing.T) {
	st := memstore.New()
	svc := NewService(st)
	ctx := context.Background()

	seedRecipe(t, st, "r1", "bob", "2026-03-01T08:00:00Z")
	seedRecipe(t, st, "r2", "bob", "2026-03-01T09:00:00Z")
	seedRecipe(t, st, "r3", "carol", "2026-03-01T10:00:00Z")
	seedFollow(t, st, "alice", "bob")

	page, err := svc.Timeline(ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"r2", "r1"}, ids(page))
}

func TestTimelineEmptyWhenFollowingNobody(t *testing.T) {
	st := memstore.New()
	seedRecipe(t, st, "r1", "bob", "2026-03-01T08:00:00Z")

	page, err := NewService(st).Timeline(context.Background(), "alice", "")
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestBookmarksReturnsOnlySavedRecipes(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()

	seedRecipe(t, st, "r1", "bob", "2026-03-01T08:00:00Z")
	seedRecipe(t, st, "r2", "carol", "2026-03-01T09:00:00Z")
	seedRecipe(t, st, "r3", "carol", "2026-03-01T10:00:00Z")
	seedBookmark(t, st, "alice", "r1")
	seedBookmark(t, st, "alice", "r3")

	page, err := NewService(st).Bookmarks(ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"r3", "r1"}, ids(page))
}

func TestExploreExcludesSelfAndFollowed(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()

	seedRecipe(t, st, "own", "alice", "2026-03-01T08:00:00Z")
	seedRecipe(t, st, "followed", "bob", "2026-03-01T09:00:00Z")
	seedRecipe(t, st, "fresh", "carol", "2026-03-01T10:00:00Z")
	seedFollow(t, st, "alice", "bob")

	page, err := NewService(st).Explore(ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, ids(page))
}

func TestTimelineCursorPagination(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	seedFollow(t, st, "alice", "bob")

	for i := 1; i <= 15; i++ {
		seedRecipe(t, st, fmt.Sprintf("r%02d", i), "bob", fmt.Sprintf("2026-03-01T00:00:%02dZ", i))
	}

	svc := NewService(st)
	first, err := svc.Timeline(ctx, "alice", "")
	require.NoError(t, err)
	require.Len(t, first, 10)
	assert.Equal(t, "r15", first[0].ID)
	assert.Equal(t, "r06", first[9].ID)

	second, err := svc.Timeline(ctx, "alice", first[9].CreatedAt)
	require.NoError(t, err)
	require.Len(t, second, 5)
	assert.Equal(t, "r05", second[0].ID)
	assert.Equal(t, "r01", second[4].ID)
}

// A page is short only when the stream truly has no further matches, even
// when matches are sparse among non-matching recipes.
func TestTimelineFullPageDespiteSparseMatches(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	seedFollow(t, st, "alice", "bob")

	for i := 1; i <= 12; i++ {
		seedRecipe(t, st, fmt.Sprintf("b%02d", i), "bob", fmt.Sprintf("2026-03-01T00:%02d:00Z", 2*i))
		seedRecipe(t, st, fmt.Sprintf("x%02d", i), "stranger", fmt.Sprintf("2026-03-01T00:%02d:30Z", 2*i))
	}

	page, err := NewService(st).Timeline(ctx, "alice", "")
	require.NoError(t, err)
	require.Len(t, page, 10)
	for _, r := range page {
		assert.Equal(t, "bob", r.UserHandle)
	}
	assert.Equal(t, "b12", page[0].ID)
	assert.Equal(t, "b03", page[9].ID)
}
