package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/aqi-map-service/internal/domain"
	"github.com/couchcryptid/aqi-map-service/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
)

const (
	maxExportAttempts = 3
	exportQueueSize   = 16
)

// BatchLoader writes the results of a settled batch to a destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, results []domain.LocationResult) error
}

// Exporter publishes every settled batch that produced results. Batches are
// queued in settle order and written one at a time.
type Exporter struct {
	loader  BatchLoader
	logger  *slog.Logger
	metrics *observability.Metrics
	queue   chan BatchState
}

// NewExporter creates an Exporter writing to loader.
func NewExporter(loader BatchLoader, logger *slog.Logger, metrics *observability.Metrics) *Exporter {
	return &Exporter{
		loader:  loader,
		logger:  logger,
		metrics: metrics,
		queue:   make(chan BatchState, exportQueueSize),
	}
}

// Enqueue hands a settled batch to the exporter. It never blocks: states that
// are not settled or carry no results are ignored, and a batch arriving while
// the queue is full is dropped.
func (e *Exporter) Enqueue(s BatchState) {
	if s.Phase != PhaseSettled || len(s.Results) == 0 {
		return
	}
	select {
	case e.queue <- s:
	default:
		e.metrics.ExportedResults.WithLabelValues("dropped").Add(float64(len(s.Results)))
		e.logger.Error("export queue full, dropping batch", "run", s.Run, "results", len(s.Results))
	}
}

// Run exports queued batches until ctx is cancelled.
func (e *Exporter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-e.queue:
			e.export(ctx, s)
		}
	}
}

func (e *Exporter) export(ctx context.Context, s BatchState) {
	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for attempt := 1; ; attempt++ {
		err := e.loader.LoadBatch(ctx, s.Results)
		if err == nil {
			e.metrics.ExportedResults.WithLabelValues("success").Add(float64(len(s.Results)))
			e.logger.Info("batch exported", "run", s.Run, "results", len(s.Results))
			return
		}
		if ctx.Err() != nil {
			return
		}
		if attempt >= maxExportAttempts {
			e.metrics.ExportedResults.WithLabelValues("error").Add(float64(len(s.Results)))
			e.logger.Error("batch export failed", "run", s.Run, "attempts", attempt, "error", err)
			return
		}
		e.logger.Warn("batch export failed, retrying", "run", s.Run, "attempt", attempt, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}
