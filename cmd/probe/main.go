// Command probe runs a single reference batch against a scoring service and
// prints every location's reading with the aggregate summary. It exits
// non-zero when the batch obtains no results.
//
// Usage:
//
//	go run ./cmd/probe \
//	  -url http://localhost:5000 \
//	  -locations data/reference_locations.json
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/couchcryptid/aqi-map-service/internal/adapter/scoring"
	"github.com/couchcryptid/aqi-map-service/internal/domain"
	"github.com/couchcryptid/aqi-map-service/internal/observability"
	"github.com/couchcryptid/aqi-map-service/internal/pipeline"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

type options struct {
	baseURL   string
	locations string
	timeout   time.Duration
	chunkSize int
	pacing    time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.baseURL, "url", sharedcfg.EnvOrDefault("SCORING_BASE_URL", "http://localhost:5000"), "scoring service base URL")
	flag.StringVar(&opts.locations, "locations", "", "JSON file of reference locations (default: built-in cities)")
	flag.DurationVar(&opts.timeout, "timeout", 10*time.Second, "per-request timeout")
	flag.IntVar(&opts.chunkSize, "chunk-size", pipeline.DefaultChunkSize, "locations queried concurrently")
	flag.DurationVar(&opts.pacing, "pacing", pipeline.DefaultPacing, "pause between chunks")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Stdout, opts))
}

func run(ctx context.Context, w io.Writer, opts options) int {
	locs := slices.Clone(domain.DefaultReferenceLocations)
	if opts.locations != "" {
		f, err := os.Open(opts.locations)
		if err != nil {
			fmt.Fprintf(w, "FATAL: open locations: %v\n", err)
			return 1
		}
		locs, err = domain.ParseReferenceLocations(f)
		_ = f.Close()
		if err != nil {
			fmt.Fprintf(w, "FATAL: %v\n", err)
			return 1
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	metrics := observability.NewMetricsForTesting()
	client := scoring.NewClient(opts.baseURL, opts.timeout, metrics, logger)
	o := pipeline.New(client, logger, metrics,
		pipeline.WithChunkSize(opts.chunkSize),
		pipeline.WithPacing(opts.pacing),
	)
	defer o.Close()

	fmt.Fprintf(w, "=== AQI Reference Probe: %s ===\n\n", opts.baseURL)

	err := o.Run(ctx, locs)
	s := o.Snapshot()

	for _, r := range s.Results {
		fmt.Fprintf(w, "  %-4s %-20s %8.2f  %s\n", r.ID, r.Name, r.Index, r.Severity.Label)
	}

	fmt.Fprintf(w, "\nLocations: %d requested, %d scored, %d dropped\n", s.Total, s.Completed, s.Total-s.Completed)
	if s.Summary.Mean != nil {
		fmt.Fprintf(w, "Mean AQI: %.2f (%s)\n", *s.Summary.Mean, domain.Classify(*s.Summary.Mean).Label)
		fmt.Fprintf(w, "Worst:    %s %.2f\n", s.Summary.Worst.Name, s.Summary.Worst.Index)
		fmt.Fprintf(w, "Best:     %s %.2f\n", s.Summary.Best.Name, s.Summary.Best.Index)
	}

	switch {
	case err == nil:
		fmt.Fprintln(w, "\nProbe passed.")
		return 0
	case errors.Is(err, domain.ErrNoResults):
		fmt.Fprintln(w, "\nProbe FAILED: no results obtained.")
		return 1
	default:
		fmt.Fprintf(w, "\nProbe aborted: %v\n", err)
		return 1
	}
}
