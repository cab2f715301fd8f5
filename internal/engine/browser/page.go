// Package browser is the capability surface the scraper drives: a single
// rendered tab that can navigate, locate elements, scroll and click.
package browser

import (
	"context"
	"time"
)

// Element is one node matched by a locator.
type Element interface {
	Text(ctx context.Context) (string, error)
	Click(ctx context.Context) error
}

// Page is one browser tab. Implementations are not safe for concurrent use;
// a session drives its page from a single goroutine.
type Page interface {
	Navigate(ctx context.Context, url string) error
	// Fill replaces the value of the input matched by locator.
	Fill(ctx context.Context, locator, value string) error
	PressEnter(ctx context.Context) error
	// FindAll returns every element matching the CSS locator, possibly none.
	FindAll(ctx context.Context, locator string) ([]Element, error)
	// WaitFor waits up to timeout for locator to match a visible element.
	WaitFor(ctx context.Context, locator string, timeout time.Duration) (bool, error)
	// Scroll scrolls the container matched by locator by delta pixels.
	Scroll(ctx context.Context, locator string, delta int) error
	// Settle blocks until the page stops changing after a state-changing action.
	Settle(ctx context.Context) error
	Title(ctx context.Context) (string, error)
	URL(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	Close() error
}

// Opener starts a fresh page for one session.
type Opener func(ctx context.Context) (Page, error)
