package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tctsung/google-maps-scraper/internal/model"
)

func TestParseOverwrite(t *testing.T) {
	p, err := parseOverwrite("Unique")
	require.NoError(t, err)
	assert.Equal(t, model.OverwriteUnique, p)

	p, err = parseOverwrite("overwrite")
	require.NoError(t, err)
	assert.Equal(t, model.OverwriteReplace, p)

	_, err = parseOverwrite("append")
	assert.Error(t, err)
}

func TestParseLatLng(t *testing.T) {
	pt, err := parseLatLng("34.0522, -118.2437")
	require.NoError(t, err)
	assert.InDelta(t, -118.2437, pt.Lon(), 1e-9)
	assert.InDelta(t, 34.0522, pt.Lat(), 1e-9)

	for _, bad := range []string{"34.05", "north,west", "95,10"} {
		_, err := parseLatLng(bad)
		assert.Error(t, err, bad)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("GMAPS_TEST_STR", "custom")
	t.Setenv("GMAPS_TEST_BOOL", "false")
	t.Setenv("GMAPS_TEST_BAD", "maybe")

	assert.Equal(t, "custom", envOr("GMAPS_TEST_STR", "def"))
	assert.Equal(t, "def", envOr("GMAPS_TEST_UNSET", "def"))
	assert.False(t, envBool("GMAPS_TEST_BOOL", true))
	assert.True(t, envBool("GMAPS_TEST_BAD", true))
}

func TestValidateFanOutTotal(t *testing.T) {
	assert.NoError(t, validateFanOutTotal(1))
	assert.NoError(t, validateFanOutTotal(200))
	assert.ErrorContains(t, validateFanOutTotal(0), "-total must be > 0")
	assert.Error(t, validateFanOutTotal(-5))
}
