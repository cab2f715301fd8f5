package locations

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tctsung/google-maps-scraper/internal/engine/export"
)

func TestLoadReferenceCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uszips.csv")
	data := "zip,lat,lng,city,state_id,state_name\n" +
		"501,40.8154,-73.0451,Holtsville,NY,New York\n" +
		"90001,33.9731,-118.2479,Los Angeles,CA,California\n" +
		"90002,,,Los Angeles,CA,California\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	rows, err := LoadReference(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "00501", rows[0].Zip)
	assert.Equal(t, "New York", rows[0].StateName)
	assert.Equal(t, "NY", rows[0].StateID)
	assert.Equal(t, "Holtsville", rows[0].City)
	assert.True(t, rows[0].HasCoords)
	assert.InDelta(t, -73.0451, rows[0].Lng, 1e-9)

	assert.Equal(t, "90001", rows[1].Zip)
	assert.False(t, rows[2].HasCoords)
}

func TestLoadReferenceXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uszips.xlsx")
	require.NoError(t, export.Write(path, export.Table{
		Header: []string{"State_Name", "State_ID", "City", "Zip"},
		Rows:   [][]string{{"California", "CA", "Los Angeles", "90001"}},
	}))

	rows, err := LoadReference(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Los Angeles", rows[0].City)
	assert.False(t, rows[0].HasCoords)
}

func TestLoadReferenceMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("zip,city\n90001,Los Angeles\n"), 0644))

	_, err := LoadReference(path)
	assert.True(t, IsConfigurationError(err))
}

func TestNormalizeZip(t *testing.T) {
	assert.Equal(t, "00501", NormalizeZip("501"))
	assert.Equal(t, "02134", NormalizeZip(" 2134 "))
	assert.Equal(t, "90001", NormalizeZip("90001.0"))
	assert.Equal(t, "K1A", NormalizeZip("K1A"))
	assert.Equal(t, "", NormalizeZip(""))
}
