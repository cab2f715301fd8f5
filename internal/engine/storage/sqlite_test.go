package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tctsung/google-maps-scraper/internal/engine/export"
)

func mergedTable() export.Table {
	return export.Table{
		Header: []string{"name", "address", "reviews_count", "State", "City"},
		Rows: [][]string{
			{"Alpha", "1 Main St", "12", "California", "Los Angeles"},
			{"Beta", "", "", "California", "Los Angeles"},
		},
	}
}

func TestStoreInsertBatchIgnoresDuplicates(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "merged.db"))
	require.NoError(t, err)
	defer store.Close()

	n, err := store.InsertBatch(mergedTable())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.InsertBatch(mergedTable())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStoreLoad(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "merged.db"))
	require.NoError(t, err)
	defer store.Close()

	_, err = store.InsertBatch(mergedTable())
	require.NoError(t, err)

	tbl, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Columns, tbl.Header)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []string{"Alpha", "1 Main St", "", "12", "", "", "", "", "", "California", "Los Angeles"}, tbl.Rows[0])
}

func TestAlignRows(t *testing.T) {
	rows := AlignRows(export.Table{Header: []string{"CITY", "name", "extra"}, Rows: [][]string{{"Austin", "Alpha", "x"}}})
	require.Len(t, rows, 1)
	require.Len(t, rows[0], len(Columns))
	assert.Equal(t, "Alpha", rows[0][0])
	assert.Equal(t, "Austin", rows[0][len(Columns)-1])
	assert.Equal(t, "", rows[0][1])
}

func TestRowKey(t *testing.T) {
	a := RowKey([]any{"Alpha", "", "x"})
	assert.Len(t, a, 64)
	assert.Equal(t, a, RowKey([]any{"Alpha", "", "x"}))
	assert.NotEqual(t, a, RowKey([]any{"Alpha", "x", ""}))
	assert.NotEqual(t, RowKey([]any{"x\x1f", "y"}), RowKey([]any{"x", "\x1fy"}))
	assert.NotEqual(t, RowKey([]any{"1:a", ""}), RowKey([]any{"1", "a"}))
}
