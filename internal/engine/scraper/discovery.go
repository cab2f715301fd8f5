package scraper

import (
	"context"
	"fmt"

	"github.com/tctsung/google-maps-scraper/internal/engine/browser"
)

const (
	scrollDelta          = 10000
	defaultMaxIterations = 500
)

// DiscoveryOptions bounds the scroll loop.
type DiscoveryOptions struct {
	Target        int // 0 = no limit, stop only when the list stops growing
	MaxIterations int // safety net for a result list that never stabilizes
}

// Discovery is the outcome of scrolling a result list.
type Discovery struct {
	Listings   []browser.Element
	Iterations int
	Exhausted  bool // the list stopped growing before Target was reached
	Capped     bool // MaxIterations hit before either stop condition
}

// DiscoverListings scrolls the result feed until Target listings are visible
// or two consecutive iterations count the same number of listings.
func DiscoverListings(ctx context.Context, page browser.Page, opts DiscoveryOptions) (*Discovery, error) {
	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}

	var matches []browser.Element
	previous := 0
	for i := 1; i <= maxIter; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := page.Scroll(ctx, ResultFeedSelector, scrollDelta); err != nil {
			return nil, fmt.Errorf("scrolling results: %w", err)
		}
		if err := page.Settle(ctx); err != nil {
			return nil, fmt.Errorf("waiting for results: %w", err)
		}

		var err error
		matches, err = page.FindAll(ctx, ListingLinkSelector)
		if err != nil {
			return nil, fmt.Errorf("counting listings: %w", err)
		}
		count := len(matches)

		if opts.Target > 0 && count >= opts.Target {
			return &Discovery{Listings: matches[:opts.Target], Iterations: i}, nil
		}
		if count == previous {
			return &Discovery{Listings: matches, Iterations: i, Exhausted: true}, nil
		}
		previous = count
	}

	return &Discovery{Listings: matches, Iterations: maxIter, Capped: true}, nil
}
