package scraper

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/tctsung/google-maps-scraper/internal/engine/browser"
)

// fakePanel is the place panel shown after clicking one listing.
type fakePanel struct {
	title    string
	link     string
	fields   map[string]string // locator -> text
	clickErr error
}

// fakePage scripts a Maps tab. counts[i] is the number of listings visible
// after the (i+1)th scroll; the last value repeats. With no counts every
// panel is visible from the first scroll.
type fakePage struct {
	counts  []int
	panels  []fakePanel
	failOn  string // Fill fails when the typed text contains this
	navErr  error
	typed   *recorder
	scrolls int
	current int
	closed  bool

	// lazyFeed hides the listings until WaitFor has been called on them.
	lazyFeed  bool
	feedReady bool
	waits     int

	// panelDelay is how many Settle calls a click needs before its panel shows.
	panelDelay int

	// stuck lists listings whose click never changes the panel.
	stuck   map[int]bool
	pending int
	delay   int
}

func (p *fakePage) Navigate(context.Context, string) error { return p.navErr }

func (p *fakePage) Fill(_ context.Context, _ string, value string) error {
	if p.typed != nil {
		p.typed.add(value)
	}
	if p.failOn != "" && strings.Contains(value, p.failOn) {
		return errors.New("search box not found")
	}
	return nil
}

func (p *fakePage) PressEnter(context.Context) error { return nil }

func (p *fakePage) FindAll(_ context.Context, locator string) ([]browser.Element, error) {
	switch locator {
	case ListingLinkSelector:
		n := p.visible()
		elems := make([]browser.Element, n)
		for i := range elems {
			elems[i] = &fakeListing{page: p, index: i}
		}
		return elems, nil
	case ConsentSelector:
		return nil, nil
	}
	if p.current < 0 || p.current >= len(p.panels) {
		return nil, nil
	}
	if text, ok := p.panels[p.current].fields[locator]; ok {
		return []browser.Element{textElement(text)}, nil
	}
	return nil, nil
}

func (p *fakePage) visible() int {
	if p.lazyFeed && !p.feedReady {
		return 0
	}
	if len(p.counts) == 0 {
		return len(p.panels)
	}
	if p.scrolls == 0 {
		return 0
	}
	i := min(p.scrolls, len(p.counts)) - 1
	return p.counts[i]
}

func (p *fakePage) Scroll(context.Context, string, int) error {
	p.scrolls++
	return nil
}

func (p *fakePage) WaitFor(_ context.Context, locator string, _ time.Duration) (bool, error) {
	p.waits++
	if locator != ListingLinkSelector || len(p.panels) == 0 {
		return false, nil
	}
	p.feedReady = true
	return true, nil
}

func (p *fakePage) Settle(context.Context) error {
	if p.delay > 0 {
		p.delay--
		if p.delay == 0 {
			p.current = p.pending
		}
	}
	return nil
}

func (p *fakePage) Title(context.Context) (string, error) {
	if p.current < 0 || p.current >= len(p.panels) {
		return "Google Maps", nil
	}
	return p.panels[p.current].title, nil
}

func (p *fakePage) URL(context.Context) (string, error) {
	if p.current < 0 || p.current >= len(p.panels) {
		return mapsURL, nil
	}
	return p.panels[p.current].link, nil
}

func (p *fakePage) HTML(context.Context) (string, error) {
	return "<html></html>", nil
}

func (p *fakePage) Close() error {
	p.closed = true
	return nil
}

type fakeListing struct {
	page  *fakePage
	index int
}

func (l *fakeListing) Text(context.Context) (string, error) { return "", nil }

func (l *fakeListing) Click(context.Context) error {
	if l.index < len(l.page.panels) {
		if err := l.page.panels[l.index].clickErr; err != nil {
			return err
		}
	}
	switch {
	case l.page.stuck[l.index]:
	case l.page.panelDelay > 0:
		l.page.pending = l.index
		l.page.delay = l.page.panelDelay
	default:
		l.page.current = l.index
	}
	return nil
}

type textElement string

func (e textElement) Text(context.Context) (string, error) { return string(e), nil }

func (e textElement) Click(context.Context) error { return nil }

// recorder collects search texts typed across concurrent sessions.
type recorder struct {
	mu    sync.Mutex
	items []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, s)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.items...)
}

func panel(name string, fields map[string]string) fakePanel {
	return fakePanel{
		title:  name + " - Google Maps",
		link:   "https://www.google.com/maps/place/" + strings.ReplaceAll(name, " ", "+"),
		fields: fields,
	}
}

func ratedPanel(name, avg, count string) fakePanel {
	return panel(name, map[string]string{
		AddressSelector:        "1 Main St",
		ReviewsAverageSelector: avg,
		ReviewsCountSelector:   count,
	})
}

// pageOpener hands out a fresh copy of tmpl for every session.
func pageOpener(tmpl fakePage) browser.Opener {
	return func(context.Context) (browser.Page, error) {
		p := tmpl
		p.current = -1
		return &p, nil
	}
}
