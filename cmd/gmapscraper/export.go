package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tctsung/google-maps-scraper/internal/engine/export"
	"github.com/tctsung/google-maps-scraper/internal/engine/storage"
)

func runExport(args []string) error {
	var dbPath, outputPath string

	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.StringVar(&dbPath, "db", "", "Path to .db file written by merge -db (required)")
	fs.StringVar(&outputPath, "output", "", "Output file, .csv or .xlsx (default: same dir as db)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gmapscraper export [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  gmapscraper export -db merged.db\n")
		fmt.Fprintf(os.Stderr, "  gmapscraper export -db merged.db -output results.xlsx\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if dbPath == "" {
		return fmt.Errorf("-db is required")
	}
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("opening db: %w", err)
	}

	// Default output path
	if outputPath == "" {
		dir := filepath.Dir(dbPath)
		base := strings.TrimSuffix(filepath.Base(dbPath), ".db")
		outputPath = filepath.Join(dir, base+export.ExtCSV)
	}
	if !export.Supported(filepath.Ext(outputPath)) {
		return fmt.Errorf("unsupported format: %s (csv or xlsx)", filepath.Ext(outputPath))
	}

	store, err := storage.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("loading db: %w", err)
	}
	defer store.Close()

	t, err := store.Load()
	if err != nil {
		return fmt.Errorf("loading db: %w", err)
	}
	if len(t.Rows) == 0 {
		return fmt.Errorf("no businesses found in database")
	}

	if err := export.Write(outputPath, t); err != nil {
		return fmt.Errorf("writing %s: %w", outputPath, err)
	}

	fmt.Fprintf(os.Stderr, "Exported %d businesses to %s\n", len(t.Rows), outputPath)
	return nil
}
