package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tctsung/google-maps-scraper/internal/engine/browser"
	"github.com/tctsung/google-maps-scraper/internal/engine/export"
	"github.com/tctsung/google-maps-scraper/internal/engine/scraper"
	"github.com/tctsung/google-maps-scraper/internal/model"
)

func runExtract(args []string) error {
	var dir, outputPath string

	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	fs.StringVar(&dir, "dir", "", "Directory of .html pages saved by -debug (required)")
	fs.StringVar(&outputPath, "output", "", "Output file, .csv or .xlsx (default: <dir>/extracted.csv)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gmapscraper extract [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  gmapscraper extract -dir output/debug\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if dir == "" {
		return fmt.Errorf("-dir is required")
	}
	if outputPath == "" {
		outputPath = filepath.Join(dir, "extracted"+export.ExtCSV)
	}

	pages, err := filepath.Glob(filepath.Join(dir, "*.html"))
	if err != nil {
		return fmt.Errorf("listing pages: %w", err)
	}
	if len(pages) == 0 {
		return fmt.Errorf("no .html pages in %s", dir)
	}
	sort.Strings(pages)

	businesses, failed := extractPages(context.Background(), pages)
	if err := export.Write(outputPath, export.BusinessTable(businesses)); err != nil {
		return fmt.Errorf("writing %s: %w", outputPath, err)
	}

	fmt.Fprintf(os.Stderr, "Extracted %d of %d pages to %s\n", len(businesses), len(pages), outputPath)
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d pages failed extraction\n", failed)
	}
	return nil
}

func extractPages(ctx context.Context, pages []string) ([]model.Business, int) {
	var businesses []model.Business
	failed := 0
	for i, path := range pages {
		page, err := browser.LoadSnapshot(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipped %s: %v\n", path, err)
			failed++
			continue
		}
		b, err := scraper.Extract(ctx, page, i)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipped %s: %v\n", path, err)
			failed++
			continue
		}
		businesses = append(businesses, b)
	}
	return businesses, failed
}
