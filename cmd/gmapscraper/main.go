package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

var version = "dev"

func main() {
	// A missing .env is fine; flags and the real environment still apply.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "scrape":
		err = runScrape(os.Args[2:])
	case "fanout":
		err = runFanOut(os.Args[2:])
	case "merge":
		err = runMerge(os.Args[2:])
	case "export":
		err = runExport(os.Args[2:])
	case "extract":
		err = runExtract(os.Args[2:])
	case "version":
		fmt.Println("gmapscraper " + version)
		return
	case "help", "--help", "-h":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `gmapscraper - Google Maps business listing scraper

Usage:
  gmapscraper scrape [flags]    Scrape one search into .xlsx/.csv
  gmapscraper fanout [flags]    Scrape a keyword across many zip codes
  gmapscraper merge [flags]     Combine fan-out outputs into one file
  gmapscraper export [flags]    Export a merge database to CSV
  gmapscraper extract [flags]   Re-run extraction on saved debug pages
  gmapscraper version           Show version

Run 'gmapscraper <command> --help' for flags.
Defaults are read from the environment and .env: HEADLESS, CHROME_PATH,
GMAPS_OUTPUT, GMAPS_ZIPS, PG_DSN.
`)
}
