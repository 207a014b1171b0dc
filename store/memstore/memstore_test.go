package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forkful/store"
)

type doc struct {
	ID    string `bson:"_id,omitempty"`
	Name  string `bson:"name"`
	Score int64  `bson:"score"`
	When  string `bson:"when"`
}

func TestCreateRejectsDuplicates(t *testing.T) {
	st := New()
	ctx := context.Background()

	require.NoError(t, st.Create(ctx, "things", "a", doc{Name: "first"}))
	assert.ErrorIs(t, st.Create(ctx, "things", "a", doc{Name: "second"}), store.ErrExists)

	var got doc
	require.NoError(t, st.Get(ctx, "things", "a", &got))
	assert.Equal(t, "first", got.Name)
	assert.Equal(t, "a", got.ID)
}

func TestGetMissing(t *testing.T) {
	st := New()
	var got doc
	assert.ErrorIs(t, st.Get(context.Background(), "things", "nope", &got), store.ErrNotFound)
}

func TestSetOverwrites(t *testing.T) {
	st := New()
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "things", "a", doc{Name: "v1"}))
	require.NoError(t, st.Set(ctx, "things", "a", doc{Name: "v2"}))

	var got doc
	require.NoError(t, st.Get(ctx, "things", "a", &got))
	assert.Equal(t, "v2", got.Name)
}

func TestUpdateSetAndInc(t *testing.T) {
	st := New()
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, "things", "a", doc{Name: "v1", Score: 3}))

	require.NoError(t, st.Update(ctx, "things", "a", store.Update{
		Set: store.M{"name": "v2"},
		Inc: store.M{"score": int64(2)},
	}))

	var got doc
	require.NoError(t, st.Get(ctx, "things", "a", &got))
	assert.Equal(t, "v2", got.Name)
	assert.Equal(t, int64(5), got.Score)

	assert.ErrorIs(t, st.Update(ctx, "things", "nope", store.Update{Inc: store.M{"score": int64(1)}}), store.ErrNotFound)
}

func TestDeleteReportsPresence(t *testing.T) {
	st := New()
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, "things", "a", doc{Name: "v1"}))

	deleted, err := st.Delete(ctx, "things", "a")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = st.Delete(ctx, "things", "a")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestFindFilterOrderLimit(t *testing.T) {
	st := New()
	ctx := context.Background()

	rows := []doc{
		{Name: "x", When: "2026-01-01T00:00:01Z"},
		{Name: "x", When: "2026-01-01T00:00:03Z"},
		{Name: "x", When: "2026-01-01T00:00:02Z"},
		{Name: "y", When: "2026-01-01T00:00:04Z"},
	}
	for i, r := range rows {
		require.NoError(t, st.Set(ctx, "things", string(rune('a'+i)), r))
	}

	var got []doc
	q := store.Query{
		Filters: []store.Filter{{Field: "name", Op: store.OpEq, Value: "x"}},
		OrderBy: "when",
		Desc:    true,
		Limit:   2,
	}
	require.NoError(t, st.Find(ctx, "things", q, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "2026-01-01T00:00:03Z", got[0].When)
	assert.Equal(t, "2026-01-01T00:00:02Z", got[1].When)
}

func TestFindLessThanCursor(t *testing.T) {
	st := New()
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		require.NoError(t, st.Set(ctx, "things", string(rune('a'+i)), doc{
			Name: "x", When: "2026-01-01T00:00:0" + string(rune('0'+i)) + "Z",
		}))
	}

	var got []doc
	q := store.Query{
		Filters: []store.Filter{{Field: "when", Op: store.OpLt, Value: "2026-01-01T00:00:03Z"}},
		OrderBy: "when",
		Desc:    true,
	}
	require.NoError(t, st.Find(ctx, "things", q, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "2026-01-01T00:00:02Z", got[0].When)
	assert.Equal(t, "2026-01-01T00:00:01Z", got[1].When)
}

func TestBatchAppliesAllOps(t *testing.T) {
	st := New()
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, "things", "a", doc{Name: "v1", Score: 1}))
	require.NoError(t, st.Set(ctx, "others", "b", doc{Name: "gone"}))

	err := st.Batch(ctx, []store.Op{
		{Kind: store.OpUpdate, Coll: "things", ID: "a", Update: store.Update{Inc: store.M{"score": int64(1)}}},
		{Kind: store.OpCreate, Coll: "things", ID: "c", Doc: doc{Name: "new"}},
		{Kind: store.OpDelete, Coll: "others", ID: "b"},
	})
	require.NoError(t, err)

	var got doc
	require.NoError(t, st.Get(ctx, "things", "a", &got))
	assert.Equal(t, int64(2), got.Score)
	require.NoError(t, st.Get(ctx, "things", "c", &got))
	assert.ErrorIs(t, st.Get(ctx, "others", "b", &got), store.ErrNotFound)
}

func TestBatchIsAtomic(t *testing.T) {
	st := New()
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, "things", "a", doc{Name: "v1", Score: 1}))

	err := st.Batch(ctx, []store.Op{
		{Kind: store.OpDelete, Coll: "things", ID: "a"},
		{Kind: store.OpUpdate, Coll: "things", ID: "missing", Update: store.Update{Set: store.M{"name": "x"}}},
	})
	require.ErrorIs(t, err, store.ErrNotFound)

	// The failing op rolled back the whole batch.
	var got doc
	require.NoError(t, st.Get(ctx, "things", "a", &got))
	assert.Equal(t, "v1", got.Name)
}
