package datacat

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T, fields []string) *catalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	c, err := newCatalog(context.Background(), path, fields)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, c.close())
	})
	return c
}

func TestCatalogUpsertGet(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t, []string{"dim1", "dim2"})

	id := "aa00000000000000000000000000000000000000000000000000000000000000"
	meta := map[string]string{"dim1": "A", "dim2": "B"}

	require.NoError(t, c.upsert(ctx, id, meta))

	row, err := c.get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, row.ID)
	assert.Equal(t, meta, row.Metadata)
	assert.False(t, row.CreatedAt.IsZero())
	assert.False(t, row.UpdatedAt.IsZero())
}

func TestCatalogGetNotFound(t *testing.T) {
	c := newTestCatalog(t, []string{"dim1"})

	_, err := c.get(context.Background(), "bb00000000000000000000000000000000000000000000000000000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogUpsertPreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t, []string{"dim1"})

	id := "cc00000000000000000000000000000000000000000000000000000000000000"
	require.NoError(t, c.upsert(ctx, id, map[string]string{"dim1": "A"}))

	// Backdate the row so a refreshed created_at would be visible.
	_, err := c.db.ExecContext(ctx,
		"UPDATE objects SET created_at = '2020-01-01 00:00:00', updated_at = '2020-01-01 00:00:00' WHERE id = ?", id)
	require.NoError(t, err)

	require.NoError(t, c.upsert(ctx, id, map[string]string{"dim1": "B"}))

	row, err := c.get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "B", row.Metadata["dim1"])
	assert.Equal(t, 2020, row.CreatedAt.Year(), "created_at must survive upsert")
	assert.True(t, row.UpdatedAt.After(row.CreatedAt), "updated_at must be refreshed")
}

func TestCatalogDelete(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t, []string{"dim1"})

	id := "dd00000000000000000000000000000000000000000000000000000000000000"
	require.NoError(t, c.upsert(ctx, id, map[string]string{"dim1": "A"}))
	require.NoError(t, c.delete(ctx, id))

	_, err := c.get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, c.delete(ctx, id), ErrNotFound)
}

func TestCatalogQuery(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t, []string{"dim1", "dim2"})

	rows := []struct {
		id   string
		meta map[string]string
	}{
		{"1100000000000000000000000000000000000000000000000000000000000000", map[string]string{"dim1": "A", "dim2": "X"}},
		{"2200000000000000000000000000000000000000000000000000000000000000", map[string]string{"dim1": "A", "dim2": "Y"}},
		{"3300000000000000000000000000000000000000000000000000000000000000", map[string]string{"dim1": "B", "dim2": "X"}},
	}
	for _, r := range rows {
		require.NoError(t, c.upsert(ctx, r.id, r.meta))
	}

	t.Run("single filter", func(t *testing.T) {
		got, err := c.query(ctx, QueryOptions{Filters: map[string]string{"dim1": "A"}})
		require.NoError(t, err)
		assert.Len(t, got, 2)
		for _, row := range got {
			assert.Equal(t, "A", row.Metadata["dim1"])
		}
	})

	t.Run("conjunctive filters intersect", func(t *testing.T) {
		got, err := c.query(ctx, QueryOptions{Filters: map[string]string{"dim1": "A", "dim2": "X"}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, rows[0].id, got[0].ID)
	})

	t.Run("raw where clause", func(t *testing.T) {
		got, err := c.query(ctx, QueryOptions{
			Filters: map[string]string{"dim2": "X"},
			Where:   "dim1 != 'B'",
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, rows[0].id, got[0].ID)
	})

	t.Run("order by and limit", func(t *testing.T) {
		got, err := c.query(ctx, QueryOptions{OrderBy: "dim1 DESC, dim2 ASC", Limit: 2})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "B", got[0].Metadata["dim1"])
	})

	t.Run("no match", func(t *testing.T) {
		got, err := c.query(ctx, QueryOptions{Filters: map[string]string{"dim1": "Z"}})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("unknown filter field", func(t *testing.T) {
		_, err := c.query(ctx, QueryOptions{Filters: map[string]string{"nope": "A"}})
		assert.ErrorIs(t, err, ErrSchemaMismatch)
	})
}

func TestCatalogQuotedFieldNames(t *testing.T) {
	// Reserved words and odd characters must be usable as schema fields.
	ctx := context.Background()
	c := newTestCatalog(t, []string{"order", "group"})

	id := "ee00000000000000000000000000000000000000000000000000000000000000"
	meta := map[string]string{"order": "first", "group": "g1"}
	require.NoError(t, c.upsert(ctx, id, meta))

	row, err := c.get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, meta, row.Metadata)

	got, err := c.query(ctx, QueryOptions{Filters: map[string]string{"order": "first"}})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestCatalogStats(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t, []string{"dim1", "dim2"})

	ids := []string{
		"aa11000000000000000000000000000000000000000000000000000000000000",
		"bb22000000000000000000000000000000000000000000000000000000000000",
		"cc33000000000000000000000000000000000000000000000000000000000000",
	}
	require.NoError(t, c.upsert(ctx, ids[0], map[string]string{"dim1": "A", "dim2": "X"}))
	require.NoError(t, c.upsert(ctx, ids[1], map[string]string{"dim1": "A", "dim2": "Y"}))
	require.NoError(t, c.upsert(ctx, ids[2], map[string]string{"dim1": "B", "dim2": "Z"}))

	stats, err := c.stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.Count)
	assert.Equal(t, int64(2), stats.Columns["dim1"].Distinct)
	assert.Equal(t, int64(3), stats.Columns["dim2"].Distinct)
	assert.Equal(t, "A", stats.Columns["dim1"].Min)
	assert.Equal(t, "B", stats.Columns["dim1"].Max)
}

func TestCatalogListIDsAndClear(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t, []string{"dim1"})

	require.NoError(t, c.upsert(ctx, "ab00000000000000000000000000000000000000000000000000000000000000", map[string]string{"dim1": "A"}))
	require.NoError(t, c.upsert(ctx, "cd00000000000000000000000000000000000000000000000000000000000000", map[string]string{"dim1": "B"}))

	ids, err := c.listIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	require.NoError(t, c.clear(ctx))
	ids, err = c.listIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
