package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tctsung/google-maps-scraper/internal/engine/browser"
	"github.com/tctsung/google-maps-scraper/internal/engine/scraper"
	"github.com/tctsung/google-maps-scraper/internal/model"
)

// sessionFlags registers the flags shared by scrape and fanout.
func sessionFlags(fs *flag.FlagSet, p *model.SessionParams, overwrite *string) {
	fs.BoolVar(&p.Headless, "headless", envBool("HEADLESS", true), "Run Chrome without a window. Env: HEADLESS")
	fs.StringVar(&p.ChromePath, "chrome", envOr("CHROME_PATH", ""), "Chrome executable (default: autodetect). Env: CHROME_PATH")
	fs.StringVar(overwrite, "overwrite", string(model.OverwriteReplace), "Existing same-day outputs: overwrite|unique")
	fs.DurationVar(&p.NavTimeout, "nav-timeout", 60*time.Second, "Maps page load timeout")
	fs.DurationVar(&p.SettleDelay, "settle", browser.DefaultSettle, "Minimum pause after each page action")
	fs.BoolVar(&p.Debug, "debug", false, "Save each listing's HTML under <output>/debug")
}

func parseOverwrite(s string) (model.OverwritePolicy, error) {
	switch p := model.OverwritePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case model.OverwriteReplace, model.OverwriteUnique:
		return p, nil
	}
	return "", fmt.Errorf("-overwrite must be %q or %q, got %q", model.OverwriteReplace, model.OverwriteUnique, s)
}

func runScrape(args []string) error {
	var params model.SessionParams
	var overwrite string

	fs := flag.NewFlagSet("scrape", flag.ExitOnError)
	fs.StringVar(&params.Keyword, "search", "", "Search keyword (required)")
	fs.IntVar(&params.Total, "total", 0, "Max listings to scrape (default: all)")
	fs.StringVar(&params.OutputDir, "output", envOr("GMAPS_OUTPUT", "output"), "Output directory. Env: GMAPS_OUTPUT")
	sessionFlags(fs, &params, &overwrite)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gmapscraper scrape [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  gmapscraper scrape -search \"coffee shops in Austin\"\n")
		fmt.Fprintf(os.Stderr, "  gmapscraper scrape -search \"new york boutique\" -total 50 -overwrite unique\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	params.Keyword = strings.TrimSpace(params.Keyword)
	if params.Keyword == "" {
		return fmt.Errorf("-search is required")
	}
	if params.Total < 0 {
		return fmt.Errorf("-total must be >= 0")
	}
	policy, err := parseOverwrite(overwrite)
	if err != nil {
		return err
	}
	params.Overwrite = policy

	logger, logPath, closeLog, err := openRunLog(params.OutputDir, "scrape")
	if err != nil {
		return err
	}
	defer closeLog()
	fmt.Fprintf(os.Stderr, "Log: %s\n", logPath)

	ctx, cancel := signalContext()
	defer cancel()

	open := browser.ChromeOpener(browser.ChromeOptions{
		Headless: params.Headless,
		ExecPath: params.ChromePath,
		Settle:   params.SettleDelay,
	})

	fmt.Fprintf(os.Stderr, "Scraping %q...\n", params.Keyword)
	res, err := scraper.NewSession(params, open, logger).Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("scraping: %w", err)
	}

	logger.Printf("DONE keyword=%q discovered=%d saved=%d failed=%d", params.Keyword, res.Discovered, len(res.Businesses), res.Failed)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Scrape Complete\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Search:     %s\n", params.Keyword)
	fmt.Fprintf(os.Stderr, "  Listings:   %d\n", res.Discovered)
	fmt.Fprintf(os.Stderr, "  Saved:      %d\n", len(res.Businesses))
	fmt.Fprintf(os.Stderr, "  Skipped:    %d\n", res.Failed)
	fmt.Fprintf(os.Stderr, "  Duration:   %s\n", res.Duration.Truncate(time.Second))
	for _, f := range res.Files {
		fmt.Fprintf(os.Stderr, "  Output:     %s\n", f)
	}
	fmt.Fprintf(os.Stderr, "  Log:        %s\n", logPath)
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")

	return nil
}
