package scraper

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tctsung/google-maps-scraper/internal/engine/browser"
	"github.com/tctsung/google-maps-scraper/internal/engine/export"
	"github.com/tctsung/google-maps-scraper/internal/engine/locations"
	"github.com/tctsung/google-maps-scraper/internal/engine/merge"
	"github.com/tctsung/google-maps-scraper/internal/model"
)

func testInputs() []model.SearchInput {
	return []model.SearchInput{
		{StateName: "California", StateID: "CA", City: "Los Angeles", Zip: "90001", Keyword: "boutique"},
		{StateName: "California", StateID: "CA", City: "San Diego", Zip: "92101", Keyword: "boutique"},
		{StateName: "New York", StateID: "NY", City: "New York", Zip: "10001", Keyword: "boutique"},
	}
}

func fanOutParams(root string, workers int) model.FanOutParams {
	return model.FanOutParams{OutputRoot: root, Workers: workers}
}

func csvFiles(t *testing.T, dir string) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	require.NoError(t, err)
	return files
}

func TestLocationDir(t *testing.T) {
	in := model.SearchInput{StateName: "New York", City: "New York"}
	assert.Equal(t, filepath.Join("out", "New_York", "New_York"), LocationDir("out", in))
}

func TestRunIsolatesFailedSessions(t *testing.T) {
	root := t.TempDir()
	tmpl := fakePage{
		panels: []fakePanel{panel("Shop A", nil), panel("Shop B", nil)},
		failOn: "San Diego",
	}
	var done atomic.Int64

	stats, err := Run(context.Background(), testInputs(), fanOutParams(root, 3), nil, &RunOptions{
		SuppressStderr: true,
		Opener:         pageOpener(tmpl),
		OnSessionDone:  func(model.SearchInput, *SessionResult, error) { done.Add(1) },
	})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.SessionsTotal)
	assert.EqualValues(t, 3, stats.SessionsDone.Load())
	assert.EqualValues(t, 1, stats.SessionsFailed.Load())
	assert.EqualValues(t, 4, stats.BusinessesSaved.Load())
	assert.EqualValues(t, 3, done.Load())

	assert.Len(t, csvFiles(t, filepath.Join(root, "California", "Los_Angeles")), 1)
	assert.Len(t, csvFiles(t, filepath.Join(root, "New_York", "New_York")), 1)
	assert.Empty(t, csvFiles(t, filepath.Join(root, "California", "San_Diego")))
}

func TestRunRecoversFromPanics(t *testing.T) {
	root := t.TempDir()
	var calls atomic.Int64
	open := func(ctx context.Context) (browser.Page, error) {
		if calls.Add(1) == 2 {
			panic("renderer crashed")
		}
		return pageOpener(fakePage{panels: []fakePanel{panel("Shop", nil)}})(ctx)
	}

	var failed []error
	stats, err := Run(context.Background(), testInputs(), fanOutParams(root, 1), nil, &RunOptions{
		SuppressStderr: true,
		Opener:         open,
		OnSessionDone: func(_ model.SearchInput, _ *SessionResult, err error) {
			if err != nil {
				failed = append(failed, err)
			}
		},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.SessionsDone.Load())
	assert.EqualValues(t, 1, stats.SessionsFailed.Load())

	require.Len(t, failed, 1)
	var se *SessionError
	require.True(t, errors.As(failed[0], &se))
	assert.Equal(t, "panic", se.Stage)
}

func TestRunStopsLaunchingWhenCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var opened atomic.Int64
	open := func(ctx context.Context) (browser.Page, error) {
		opened.Add(1)
		return &fakePage{}, nil
	}
	stats, err := Run(ctx, testInputs(), fanOutParams(t.TempDir(), 2), nil, &RunOptions{SuppressStderr: true, Opener: open})
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 0, opened.Load())
	assert.EqualValues(t, 0, stats.SessionsDone.Load())
}

func TestRunAppliesFanOutDefaults(t *testing.T) {
	var opened atomic.Int64
	panels := make([]fakePanel, DefaultFanOutTotal+10)
	for i := range panels {
		panels[i] = panel(fmt.Sprintf("Shop %d", i), nil)
	}
	open := func(ctx context.Context) (browser.Page, error) {
		opened.Add(1)
		return pageOpener(fakePage{panels: panels})(ctx)
	}

	stats, err := Run(context.Background(), testInputs()[:1], fanOutParams(t.TempDir(), 0), nil, &RunOptions{SuppressStderr: true, Opener: open})
	require.NoError(t, err)
	assert.EqualValues(t, DefaultFanOutTotal, stats.ListingsFound.Load())
	assert.EqualValues(t, 1, opened.Load())
}

// A city filter on the reference table turns into one session per zip,
// and merging the results tags every row with its location.
func TestFanOutEndToEnd(t *testing.T) {
	rows := []model.LocationRow{
		{StateName: "California", StateID: "CA", City: "Los Angeles", Zip: "90001"},
		{StateName: "California", StateID: "CA", City: "San Diego", Zip: "92101"},
		{StateName: "Texas", StateID: "TX", City: "Austin", Zip: "73301"},
	}
	inputs, err := locations.Expand(rows, "boutique", locations.Filter{Cities: []string{"Los Angeles"}})
	require.NoError(t, err)
	require.Len(t, inputs, 1)

	root := t.TempDir()
	typed := &recorder{}
	tmpl := fakePage{
		panels: []fakePanel{ratedPanel("Alpha Boutique", "4.5", "(20)"), panel("Beta Boutique", nil)},
		typed:  typed,
	}
	stats, err := Run(context.Background(), inputs, fanOutParams(root, 2), nil, &RunOptions{SuppressStderr: true, Opener: pageOpener(tmpl)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.SessionsDone.Load())
	assert.Equal(t, []string{"California Los Angeles 90001 boutique"}, typed.all())

	res, err := merge.Merge(root, merge.Options{Ext: export.ExtCSV})
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	require.Len(t, res.Table.Rows, 2)

	header := res.Table.Header
	assert.Equal(t, merge.StateColumn, header[len(header)-2])
	assert.Equal(t, merge.CityColumn, header[len(header)-1])
	for _, row := range res.Table.Rows {
		assert.Equal(t, "California", row[len(row)-2])
		assert.Equal(t, "Los Angeles", row[len(row)-1])
	}
}
