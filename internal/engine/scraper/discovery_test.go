package scraper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverListings(t *testing.T) {
	tests := []struct {
		name      string
		counts    []int
		target    int
		maxIter   int
		wantCount int
		wantIters int
		exhausted bool
		capped    bool
	}{
		{name: "stabilizes below target", counts: []int{3, 7, 7}, target: 100, wantCount: 7, wantIters: 3, exhausted: true},
		{name: "reaches target", counts: []int{3, 7}, target: 5, wantCount: 5, wantIters: 2},
		{name: "no target scrolls to the end", counts: []int{3, 7, 12, 12}, wantCount: 12, wantIters: 4, exhausted: true},
		{name: "empty results", counts: []int{0}, target: 10, wantCount: 0, wantIters: 1, exhausted: true},
		{name: "target met on first scroll", counts: []int{20}, target: 20, wantCount: 20, wantIters: 1},
		{name: "never stabilizes", counts: []int{1, 2, 3, 4, 5, 6}, maxIter: 4, wantCount: 4, wantIters: 4, capped: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := &fakePage{counts: tt.counts, current: -1}
			d, err := DiscoverListings(context.Background(), page, DiscoveryOptions{Target: tt.target, MaxIterations: tt.maxIter})
			require.NoError(t, err)
			assert.Len(t, d.Listings, tt.wantCount)
			assert.Equal(t, tt.wantIters, d.Iterations)
			assert.Equal(t, tt.exhausted, d.Exhausted)
			assert.Equal(t, tt.capped, d.Capped)
			assert.Equal(t, tt.wantIters, page.scrolls)
		})
	}
}

func TestDiscoverListingsKeepsDiscoveryOrder(t *testing.T) {
	page := &fakePage{counts: []int{4}, current: -1}
	d, err := DiscoverListings(context.Background(), page, DiscoveryOptions{Target: 2})
	require.NoError(t, err)
	require.Len(t, d.Listings, 2)
	assert.Equal(t, 0, d.Listings[0].(*fakeListing).index)
	assert.Equal(t, 1, d.Listings[1].(*fakeListing).index)
}

func TestDiscoverListingsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := DiscoverListings(ctx, &fakePage{counts: []int{1, 2}}, DiscoveryOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
