package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"github.com/tctsung/google-maps-scraper/internal/engine/locations"
	"github.com/tctsung/google-maps-scraper/internal/engine/scraper"
	"github.com/tctsung/google-maps-scraper/internal/model"
	"github.com/tctsung/google-maps-scraper/internal/tui"
)

func runFanOut(args []string) error {
	var params model.FanOutParams
	var overwrite, cities, states, zipsPath, near string
	var radius float64
	var useTUI bool

	fs := flag.NewFlagSet("fanout", flag.ExitOnError)
	fs.StringVar(&params.Session.Keyword, "search", "", "Base search keyword (required)")
	fs.StringVar(&cities, "city", "", "Comma-separated city names")
	fs.StringVar(&states, "state_id", "", "Comma-separated state ids, e.g. CA,NY")
	fs.StringVar(&zipsPath, "zips", envOr("GMAPS_ZIPS", locations.DefaultReferencePath), "Zip code reference table (.xlsx or .csv). Env: GMAPS_ZIPS")
	fs.StringVar(&params.OutputRoot, "output", envOr("GMAPS_OUTPUT", "output"), "Output root directory. Env: GMAPS_OUTPUT")
	fs.IntVar(&params.Workers, "workers", scraper.DefaultWorkers(), "Concurrent browser sessions")
	fs.IntVar(&params.Session.Total, "total", scraper.DefaultFanOutTotal, "Max listings per session, > 0")
	fs.Float64Var(&params.Rate, "rate", 0, "Max session launches per second (0 = unlimited)")
	fs.StringVar(&near, "near", "", "Only zips within -radius of lat,lng")
	fs.Float64Var(&radius, "radius", 0, "Radius in km for -near")
	fs.BoolVar(&useTUI, "tui", false, "Show an interactive progress view")
	sessionFlags(fs, &params.Session, &overwrite)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gmapscraper fanout [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  gmapscraper fanout -search boutique -city \"Los Angeles\"\n")
		fmt.Fprintf(os.Stderr, "  gmapscraper fanout -search cafe -state_id CA,NV -workers 4 -rate 0.5\n")
		fmt.Fprintf(os.Stderr, "  gmapscraper fanout -search gym -state_id NY -near 40.7128,-74.0060 -radius 15\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	policy, err := parseOverwrite(overwrite)
	if err != nil {
		return err
	}
	params.Session.Overwrite = policy
	if err := validateFanOutTotal(params.Session.Total); err != nil {
		return err
	}

	filter := locations.Filter{
		Cities:   locations.ParseList(cities),
		StateIDs: locations.ParseList(states),
		RadiusKm: radius,
	}
	if near != "" {
		pt, err := parseLatLng(near)
		if err != nil {
			return err
		}
		if radius <= 0 {
			return fmt.Errorf("-near needs a positive -radius")
		}
		filter.Near = &pt
	}

	// Configuration errors surface before any file or browser is touched.
	if strings.TrimSpace(params.Session.Keyword) == "" {
		return &locations.ConfigurationError{Reason: "-search is required"}
	}
	if len(filter.Cities) == 0 && len(filter.StateIDs) == 0 {
		return &locations.ConfigurationError{Reason: "at least one of -city or -state_id is required"}
	}

	rows, err := locations.LoadReference(zipsPath)
	if err != nil {
		return err
	}
	inputs, err := locations.Expand(rows, params.Session.Keyword, filter)
	if err != nil {
		return err
	}

	logger, logPath, closeLog, err := openRunLog(params.OutputRoot, "fanout")
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Printf("FANOUT_START keyword=%q inputs=%d workers=%d total=%d rate=%.2f cities=%v states=%v",
		params.Session.Keyword, len(inputs), params.Workers, params.Session.Total, params.Rate, filter.Cities, filter.StateIDs)

	ctx, cancel := signalContext()
	defer cancel()

	startTime := time.Now()
	var stats *scraper.Stats
	if useTUI {
		err = tui.Run(ctx, params.Session.Keyword, params.OutputRoot, len(inputs), func(ctx context.Context, s *scraper.Stats) error {
			stats = s
			_, err := scraper.Run(ctx, inputs, params, logger, &scraper.RunOptions{SuppressStderr: true, Stats: s})
			return err
		})
	} else {
		fmt.Fprintf(os.Stderr, "Log: %s\n", logPath)
		fmt.Fprintf(os.Stderr, "Fan-out: %d searches for %q (workers=%d)\n", len(inputs), params.Session.Keyword, params.Workers)
		stats, err = scraper.Run(ctx, inputs, params, logger, nil)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("fan-out: %w", err)
	}
	if stats == nil {
		stats = &scraper.Stats{SessionsTotal: len(inputs)}
	}

	duration := time.Since(startTime).Truncate(time.Second)
	logger.Printf("DONE sessions=%d/%d failed=%d listings=%d saved=%d extract_errors=%d duration=%s",
		stats.SessionsDone.Load(), stats.SessionsTotal, stats.SessionsFailed.Load(),
		stats.ListingsFound.Load(), stats.BusinessesSaved.Load(), stats.ExtractErrors.Load(), duration)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Fan-out Complete\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Search:     %s\n", params.Session.Keyword)
	fmt.Fprintf(os.Stderr, "  Sessions:   %d/%d\n", stats.SessionsDone.Load(), stats.SessionsTotal)
	fmt.Fprintf(os.Stderr, "  Failed:     %d\n", stats.SessionsFailed.Load())
	fmt.Fprintf(os.Stderr, "  Listings:   %d\n", stats.ListingsFound.Load())
	fmt.Fprintf(os.Stderr, "  Saved:      %d\n", stats.BusinessesSaved.Load())
	fmt.Fprintf(os.Stderr, "  Skipped:    %d\n", stats.ExtractErrors.Load())
	fmt.Fprintf(os.Stderr, "  Duration:   %s\n", duration)
	fmt.Fprintf(os.Stderr, "  Output:     %s\n", params.OutputRoot)
	fmt.Fprintf(os.Stderr, "  Log:        %s\n", logPath)
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "Next: gmapscraper merge -root %s\n", params.OutputRoot)

	return nil
}

// parseLatLng reads "lat,lng" into an orb.Point, which is [lng, lat].
func parseLatLng(s string) (orb.Point, error) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return orb.Point{}, fmt.Errorf("-near must be lat,lng, got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("parsing -near latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("parsing -near longitude: %w", err)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return orb.Point{}, fmt.Errorf("-near %q out of range", s)
	}
	return orb.Point{lng, lat}, nil
}

// validateFanOutTotal rejects "all listings": every session needs a cap.
func validateFanOutTotal(n int) error {
	if n <= 0 {
		return fmt.Errorf("-total must be > 0 in fan-out mode, got %d", n)
	}
	return nil
}
