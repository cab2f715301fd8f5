package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"
)

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// openRunLog creates dir/<prefix>_<timestamp>.log for one command run.
func openRunLog(dir, prefix string) (*log.Logger, string, func(), error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, "", nil, fmt.Errorf("creating output dir: %w", err)
	}
	logPath := filepath.Join(dir, fmt.Sprintf("%s_%s.log", prefix, time.Now().Format("20060102_150405")))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, "", nil, fmt.Errorf("opening log: %w", err)
	}
	return log.New(logFile, "", log.LstdFlags), logPath, func() { logFile.Close() }, nil
}

// signalContext is canceled on the first SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nShutting down gracefully...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
