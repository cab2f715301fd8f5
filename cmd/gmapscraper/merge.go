package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tctsung/google-maps-scraper/internal/engine/export"
	"github.com/tctsung/google-maps-scraper/internal/engine/merge"
	"github.com/tctsung/google-maps-scraper/internal/engine/storage"
)

func runMerge(args []string) error {
	var root, ext, dbPath, pgDSN string

	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	fs.StringVar(&root, "root", envOr("GMAPS_OUTPUT", "output"), "Fan-out output root. Env: GMAPS_OUTPUT")
	fs.StringVar(&ext, "ext", export.ExtXLSX, "Session file format to merge: .xlsx or .csv")
	fs.StringVar(&dbPath, "db", "", "Also store merged rows in this SQLite file")
	fs.StringVar(&pgDSN, "pg-dsn", envOr("PG_DSN", ""), "Also store merged rows in Postgres. Env: PG_DSN")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gmapscraper merge [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  gmapscraper merge\n")
		fmt.Fprintf(os.Stderr, "  gmapscraper merge -root ./output -ext .csv -db merged.db\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if st, err := os.Stat(root); err != nil || !st.IsDir() {
		return fmt.Errorf("merge root %s is not a directory", root)
	}

	logger, logPath, closeLog, err := openRunLog(root, "merge")
	if err != nil {
		return err
	}
	defer closeLog()

	startTime := time.Now()
	res, err := merge.Merge(root, merge.Options{Ext: ext, Logger: logger})
	if err != nil {
		return fmt.Errorf("merging: %w", err)
	}
	for _, ie := range res.Errors {
		fmt.Fprintf(os.Stderr, "skipped: %v\n", ie)
	}

	var sqliteNew, pgNew int
	if dbPath != "" {
		store, err := storage.NewStore(dbPath)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer store.Close()
		if sqliteNew, err = store.InsertBatch(res.Table); err != nil {
			return fmt.Errorf("storing merged rows: %w", err)
		}
		logger.Printf("SQLITE_DONE db=%s inserted=%d", dbPath, sqliteNew)
	}
	if pgDSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		sink, err := storage.OpenPG(ctx, pgDSN)
		if err != nil {
			return err
		}
		defer sink.Close()
		if pgNew, err = sink.InsertBatch(ctx, res.Table); err != nil {
			return fmt.Errorf("storing merged rows in postgres: %w", err)
		}
		logger.Printf("PG_DONE inserted=%d", pgNew)
	}

	logger.Printf("DONE files=%d skipped=%d rows=%d output=%s", len(res.Files), len(res.Errors), len(res.Table.Rows), res.Output)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Merge Complete\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Files:      %d\n", len(res.Files))
	fmt.Fprintf(os.Stderr, "  Skipped:    %d\n", len(res.Errors))
	fmt.Fprintf(os.Stderr, "  Rows:       %d (unique)\n", len(res.Table.Rows))
	if dbPath != "" {
		fmt.Fprintf(os.Stderr, "  Database:   %s (+%d)\n", dbPath, sqliteNew)
	}
	if pgDSN != "" {
		fmt.Fprintf(os.Stderr, "  Postgres:   +%d\n", pgNew)
	}
	fmt.Fprintf(os.Stderr, "  Duration:   %s\n", time.Since(startTime).Truncate(time.Millisecond))
	fmt.Fprintf(os.Stderr, "  Output:     %s\n", res.Output)
	fmt.Fprintf(os.Stderr, "  Log:        %s\n", logPath)
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")

	return nil
}
