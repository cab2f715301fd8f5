package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tctsung/google-maps-scraper/internal/engine/browser"
	"github.com/tctsung/google-maps-scraper/internal/engine/export"
	"github.com/tctsung/google-maps-scraper/internal/model"
)

const (
	defaultNavTimeout = 60 * time.Second

	// resultsTimeout bounds the wait for the first listing after a search.
	resultsTimeout = 15 * time.Second

	// panelChecks is how many settles a click gets to open its place panel.
	panelChecks = 10
)

var errPanelUnchanged = errors.New("place panel did not change after click")

// OutputFormats are the files every session writes, in order.
var OutputFormats = []string{export.ExtXLSX, export.ExtCSV}

// SessionResult summarizes one finished session.
type SessionResult struct {
	ID         string
	Keyword    string
	Businesses []model.Business
	Discovered int
	Failed     int
	Files      []string
	Duration   time.Duration
}

// Session runs search, discovery, extraction and output for one keyword.
type Session struct {
	params model.SessionParams
	open   browser.Opener
	logger *log.Logger
	now    func() time.Time
}

// NewSession prepares a session. A nil logger discards log lines.
func NewSession(params model.SessionParams, open browser.Opener, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if params.NavTimeout <= 0 {
		params.NavTimeout = defaultNavTimeout
	}
	if params.OutputDir == "" {
		params.OutputDir = "output"
	}
	if params.Overwrite == "" {
		params.Overwrite = model.OverwriteReplace
	}
	if params.SettleDelay <= 0 {
		params.SettleDelay = browser.DefaultSettle
	}
	return &Session{params: params, open: open, logger: logger, now: time.Now}
}

// Run executes the session. Listings that fail extraction are logged and
// skipped; any other failure is returned as a *SessionError.
func (s *Session) Run(ctx context.Context) (*SessionResult, error) {
	p := s.params
	start := s.now()
	res := &SessionResult{ID: uuid.NewString(), Keyword: p.Keyword}
	fail := func(stage string, err error) (*SessionResult, error) {
		res.Duration = s.now().Sub(start)
		return res, &SessionError{Keyword: p.Keyword, Stage: stage, Err: err}
	}

	s.logger.Printf("SESSION_START id=%s keyword=%q total=%d dir=%s", res.ID, p.Keyword, p.Total, p.OutputDir)

	page, err := s.open(ctx)
	if err != nil {
		return fail("launch", err)
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, p.NavTimeout)
	err = page.Navigate(navCtx, mapsURL)
	cancel()
	if err != nil {
		return fail("navigate", err)
	}
	if err := page.Settle(ctx); err != nil {
		return fail("navigate", err)
	}
	s.dismissConsent(ctx, page)

	if err := page.Fill(ctx, SearchBoxSelector, p.Keyword); err != nil {
		return fail("search", err)
	}
	if err := page.PressEnter(ctx); err != nil {
		return fail("search", err)
	}
	if err := page.Settle(ctx); err != nil {
		return fail("search", err)
	}

	found, err := page.WaitFor(ctx, ListingLinkSelector, resultsTimeout)
	if err != nil {
		return fail("search", err)
	}
	disc := &Discovery{Exhausted: true}
	if found {
		disc, err = DiscoverListings(ctx, page, DiscoveryOptions{Target: p.Total})
		if err != nil {
			return fail("discovery", err)
		}
	} else {
		s.logger.Printf("NO_RESULTS keyword=%q no listing appeared within %s", p.Keyword, resultsTimeout)
	}
	res.Discovered = len(disc.Listings)
	s.logger.Printf("DISCOVERY keyword=%q listings=%d iterations=%d exhausted=%t capped=%t",
		p.Keyword, res.Discovered, disc.Iterations, disc.Exhausted, disc.Capped)
	if disc.Capped {
		s.logger.Printf("WARN keyword=%q result list never stabilized, using %d listings", p.Keyword, res.Discovered)
	}

	base := OutputBaseName(p.Keyword, start, p.Overwrite, res.ID)
	var canceled error
	for i, listing := range disc.Listings {
		if err := ctx.Err(); err != nil {
			canceled = err
			break
		}
		b, err := s.extractListing(ctx, page, listing, i, base)
		if err != nil {
			res.Failed++
			s.logger.Printf("EXTRACT_ERROR keyword=%q %v", p.Keyword, err)
			continue
		}
		res.Businesses = append(res.Businesses, b)
	}

	table := export.BusinessTable(res.Businesses)
	for _, ext := range OutputFormats {
		path := filepath.Join(p.OutputDir, base+ext)
		if err := export.Write(path, table); err != nil {
			return fail("write", err)
		}
		res.Files = append(res.Files, path)
	}

	res.Duration = s.now().Sub(start)
	s.logger.Printf("SESSION_DONE id=%s keyword=%q saved=%d failed=%d duration=%s",
		res.ID, p.Keyword, len(res.Businesses), res.Failed, res.Duration.Truncate(time.Second))
	if canceled != nil {
		return res, canceled
	}
	return res, nil
}

func (s *Session) extractListing(ctx context.Context, page browser.Page, listing browser.Element, i int, base string) (model.Business, error) {
	before, err := panelState(ctx, page)
	if err != nil {
		return model.Business{}, &ExtractionError{Index: i, Err: fmt.Errorf("reading current panel: %w", err)}
	}
	if err := listing.Click(ctx); err != nil {
		return model.Business{}, &ExtractionError{Index: i, Err: fmt.Errorf("opening listing: %w", err)}
	}
	if err := waitPanelChange(ctx, page, before); err != nil {
		return model.Business{}, &ExtractionError{Index: i, Err: err}
	}
	if s.params.Debug {
		s.dumpListing(ctx, page, i, base)
	}
	return Extract(ctx, page, i)
}

// dumpListing saves the opened place panel so it can be replayed offline.
func (s *Session) dumpListing(ctx context.Context, page browser.Page, i int, base string) {
	html, err := page.HTML(ctx)
	if err != nil {
		s.logger.Printf("DEBUG_ERROR listing=%d err=%v", i, err)
		return
	}
	link, err := page.URL(ctx)
	if err != nil {
		s.logger.Printf("DEBUG_ERROR listing=%d url err=%v", i, err)
	}
	dir := filepath.Join(s.params.OutputDir, "debug")
	if err := os.MkdirAll(dir, 0755); err != nil {
		s.logger.Printf("DEBUG_ERROR listing=%d err=%v", i, err)
		return
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%03d.html", base, i))
	if err := os.WriteFile(path, browser.EncodeSnapshot(link, html), 0644); err != nil {
		s.logger.Printf("DEBUG_ERROR listing=%d err=%v", i, err)
	}
}

// dismissConsent clicks through the cookie wall shown to EU visitors, if present.
func (s *Session) dismissConsent(ctx context.Context, page browser.Page) {
	buttons, err := page.FindAll(ctx, ConsentSelector)
	if err != nil || len(buttons) == 0 {
		return
	}
	if err := buttons[0].Click(ctx); err != nil {
		s.logger.Printf("CONSENT_ERROR keyword=%q err=%v", s.params.Keyword, err)
		return
	}
	if err := page.Settle(ctx); err != nil {
		s.logger.Printf("CONSENT_ERROR keyword=%q settle err=%v", s.params.Keyword, err)
	}
}

// panelState identifies what the tab is showing: its URL and title.
func panelState(ctx context.Context, page browser.Page) (string, error) {
	link, err := page.URL(ctx)
	if err != nil {
		return "", err
	}
	title, err := page.Title(ctx)
	if err != nil {
		return "", err
	}
	return link + "\n" + title, nil
}

// waitPanelChange settles until the tab shows something other than before,
// so a slow panel is never read as the previous listing.
func waitPanelChange(ctx context.Context, page browser.Page, before string) error {
	for i := 0; i < panelChecks; i++ {
		if err := page.Settle(ctx); err != nil {
			return fmt.Errorf("waiting for listing: %w", err)
		}
		now, err := panelState(ctx, page)
		if err != nil {
			return fmt.Errorf("reading listing panel: %w", err)
		}
		if now != before {
			return nil
		}
	}
	return errPanelUnchanged
}

// OutputBaseName is the extension-less file name of a session's outputs,
// e.g. google_maps_data_new_york_boutique_2024_03_01.
func OutputBaseName(keyword string, day time.Time, policy model.OverwritePolicy, sessionID string) string {
	name := fmt.Sprintf("google_maps_data_%s_%s", keyword, day.Format("2006_01_02"))
	name = strings.NewReplacer(" ", "_", "/", "_", `\`, "_").Replace(name)
	if policy == model.OverwriteUnique && sessionID != "" {
		suffix := strings.ReplaceAll(sessionID, "-", "")
		if len(suffix) > 8 {
			suffix = suffix[:8]
		}
		name += "_" + suffix
	}
	return name
}
