package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tctsung/google-maps-scraper/internal/model"
)

func TestBusinessTable(t *testing.T) {
	count, avg := 42, 4.25
	tbl := BusinessTable([]model.Business{
		{Name: "Alpha", ReviewsCount: &count, ReviewsAverage: &avg, Link: "https://maps/a"},
		{Name: "Beta"},
	})

	assert.Equal(t, model.BusinessColumns, tbl.Header)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []string{"Alpha", "", "", "42", "4.25", "", "", "", "https://maps/a"}, tbl.Rows[0])
	assert.Equal(t, "", tbl.Rows[1][3])
	assert.Equal(t, "", tbl.Rows[1][4])
}

func TestWriteCreatesDirectories(t *testing.T) {
	for _, ext := range []string{ExtCSV, ExtXLSX} {
		path := filepath.Join(t.TempDir(), "California", "Los_Angeles", "out"+ext)
		require.NoError(t, Write(path, Table{Header: []string{"name"}, Rows: [][]string{{"Alpha"}}}))

		tbl, err := Read(path)
		require.NoError(t, err, ext)
		assert.Equal(t, []string{"name"}, tbl.Header, ext)
		assert.Equal(t, [][]string{{"Alpha"}}, tbl.Rows, ext)
	}
}

func TestReadPadsShortRows(t *testing.T) {
	// Spreadsheet readers drop trailing empty cells.
	path := filepath.Join(t.TempDir(), "ragged.xlsx")
	require.NoError(t, Write(path, Table{
		Header: []string{"name", "address", "phone_number"},
		Rows:   [][]string{{"Alpha", "1 Main St", ""}, {"Beta", "", ""}},
	}))

	tbl, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Alpha", "1 Main St", ""}, {"Beta", "", ""}}, tbl.Rows)

	csvPath := filepath.Join(t.TempDir(), "ragged.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("a,b,c\n1\n1,2,3,4\n"), 0644))
	tbl, err = Read(csvPath)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "", ""}, {"1", "2", "3"}}, tbl.Rows)
}

func TestUnsupportedFormat(t *testing.T) {
	assert.False(t, Supported(".json"))
	assert.True(t, Supported(".XLSX"))

	err := Write(filepath.Join(t.TempDir(), "out.json"), Table{})
	assert.Error(t, err)
	_, err = Read("out.json")
	assert.Error(t, err)
}
