package scraper

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/tctsung/google-maps-scraper/internal/engine/browser"
	"github.com/tctsung/google-maps-scraper/internal/model"
)

// DefaultFanOutTotal is the per-session listing target of a fan-out run.
const DefaultFanOutTotal = 200

type Stats struct {
	SessionsTotal   int
	SessionsDone    atomic.Int64
	SessionsFailed  atomic.Int64
	ListingsFound   atomic.Int64
	BusinessesSaved atomic.Int64
	ExtractErrors   atomic.Int64
}

// RunOptions provides optional hooks for the fan-out pipeline.
type RunOptions struct {
	// SuppressStderr disables the built-in stderr progress reporter.
	SuppressStderr bool
	// Stats allows passing an external Stats object for live progress tracking.
	// If nil, Run() creates its own.
	Stats *Stats
	// Opener replaces the default one-Chrome-per-session opener.
	Opener browser.Opener
	// OnSessionDone is called after every session, failed or not.
	OnSessionDone func(in model.SearchInput, res *SessionResult, err error)
}

// DefaultWorkers is half the logical CPUs, at least one.
func DefaultWorkers() int {
	if n := runtime.NumCPU() / 2; n > 0 {
		return n
	}
	return 1
}

// LocationDir is the output directory of one search input: root/<State_Name>/<City>.
func LocationDir(root string, in model.SearchInput) string {
	return filepath.Join(root, dirName(in.StateName), dirName(in.City))
}

func dirName(s string) string {
	return strings.NewReplacer(" ", "_", "/", "_", `\`, "_").Replace(strings.TrimSpace(s))
}

// Run executes one scrape session per input with at most params.Workers in
// flight. A failed session is logged and counted; it never stops the others.
// Cancelling ctx stops new sessions from starting and returns ctx.Err() once
// the running ones have finished. A zero params.Session.Total means
// DefaultFanOutTotal; fan-out sessions are never uncapped.
func Run(ctx context.Context, inputs []model.SearchInput, params model.FanOutParams, logger *log.Logger, opts *RunOptions) (*Stats, error) {
	if opts == nil {
		opts = &RunOptions{}
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	stats := opts.Stats
	if stats == nil {
		stats = &Stats{}
	}
	if stats.SessionsTotal != len(inputs) {
		stats.SessionsTotal = len(inputs)
	}

	workers := params.Workers
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	if params.OutputRoot == "" {
		params.OutputRoot = "output"
	}
	if params.Session.Total == 0 {
		params.Session.Total = DefaultFanOutTotal
	}

	open := opts.Opener
	if open == nil {
		open = browser.ChromeOpener(browser.ChromeOptions{
			Headless: params.Session.Headless,
			ExecPath: params.Session.ChromePath,
			Settle:   params.Session.SettleDelay,
		})
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if params.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(params.Rate), 1)
	}

	startTime := time.Now()
	done := make(chan struct{})
	go reportProgress(stats, logger, startTime, !opts.SuppressStderr, done)

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	var runErr error

launch:
	for _, in := range inputs {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break launch
		case sem <- struct{}{}:
		}
		if err := limiter.Wait(ctx); err != nil {
			<-sem
			runErr = ctx.Err()
			break
		}

		wg.Add(1)
		go func(in model.SearchInput) {
			defer wg.Done()
			defer func() { <-sem }()

			res, err := runSession(ctx, in, params, open, logger)
			stats.SessionsDone.Add(1)
			if res != nil {
				stats.ListingsFound.Add(int64(res.Discovered))
				stats.BusinessesSaved.Add(int64(len(res.Businesses)))
				stats.ExtractErrors.Add(int64(res.Failed))
			}
			if err != nil {
				stats.SessionsFailed.Add(1)
				logger.Printf("SESSION_ERROR input=%q err=%v", in.String(), err)
			}
			if opts.OnSessionDone != nil {
				opts.OnSessionDone(in, res, err)
			}
		}(in)
	}

	wg.Wait()
	close(done)

	if !opts.SuppressStderr {
		fmt.Fprintf(os.Stderr, "\r%s\n", progressLine(stats, startTime))
	}
	if runErr == nil {
		runErr = ctx.Err()
	}
	return stats, runErr
}

// runSession isolates one session so a panic inside it only fails that input.
func runSession(ctx context.Context, in model.SearchInput, params model.FanOutParams, open browser.Opener, logger *log.Logger) (res *SessionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &SessionError{Keyword: in.String(), Stage: "panic", Err: fmt.Errorf("%v", r)}
		}
	}()

	sp := params.Session
	sp.Keyword = in.String()
	sp.OutputDir = LocationDir(params.OutputRoot, in)
	return NewSession(sp, open, logger).Run(ctx)
}

func reportProgress(stats *Stats, logger *log.Logger, start time.Time, toStderr bool, done <-chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	logTicker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	defer logTicker.Stop()
	for {
		select {
		case <-ticker.C:
			if toStderr {
				fmt.Fprintf(os.Stderr, "\r%s", progressLine(stats, start))
			}
		case <-logTicker.C:
			logger.Printf("PROGRESS sessions=%d/%d failed=%d listings=%d saved=%d extract_errors=%d elapsed=%s",
				stats.SessionsDone.Load(), stats.SessionsTotal, stats.SessionsFailed.Load(),
				stats.ListingsFound.Load(), stats.BusinessesSaved.Load(),
				stats.ExtractErrors.Load(), time.Since(start).Truncate(time.Second))
		case <-done:
			return
		}
	}
}

func progressLine(stats *Stats, start time.Time) string {
	return fmt.Sprintf("[%d/%d sessions] %d listings | %d saved | %d failed | %s",
		stats.SessionsDone.Load(), stats.SessionsTotal,
		stats.ListingsFound.Load(), stats.BusinessesSaved.Load(),
		stats.SessionsFailed.Load(), time.Since(start).Truncate(time.Second))
}
