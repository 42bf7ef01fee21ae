// Command mockscorer serves a deterministic stand-in for the AQI scoring
// service, for local development and load testing of the map pipeline.
//
// Usage:
//
//	go run ./cmd/mockscorer -addr :5000 -latency 150ms -failure-rate 0.1
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/aqi-map-service/internal/mockscorer"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	addr := flag.String("addr", ":5000", "listen address")
	latency := flag.Duration("latency", 0, "delay added to every /predict response")
	failureRate := flag.Float64("failure-rate", 0, "fraction of /predict requests answered with HTTP 500")
	seed := flag.Uint64("seed", 0, "seed mixed into the generated pollutant values")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	srv := &http.Server{
		Addr: *addr,
		Handler: mockscorer.NewHandler(logger,
			mockscorer.WithSeed(*seed),
			mockscorer.WithLatency(*latency),
			mockscorer.WithFailureRate(*failureRate),
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("mock scoring service listening", "addr", *addr, "latency", *latency, "failure_rate", *failureRate)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
