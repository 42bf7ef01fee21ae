package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/aqi-map-service/internal/domain"
	"github.com/couchcryptid/aqi-map-service/internal/observability"
	"github.com/go-co-op/gocron"
)

// BatchStarter begins a reference batch in the background.
type BatchStarter interface {
	Start(ctx context.Context, locs []domain.ReferenceLocation) error
}

// Scheduler periodically starts a fresh reference batch.
type Scheduler struct {
	scheduler *gocron.Scheduler
	starter   BatchStarter
	locations []domain.ReferenceLocation
	interval  time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Scheduler that refreshes locs every interval.
func New(starter BatchStarter, locs []domain.ReferenceLocation, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		starter:   starter,
		locations: locs,
		interval:  interval,
		logger:    logger,
		metrics:   metrics,
	}
}

// Start schedules the refresh job. The first refresh fires one interval from
// now. Batches inherit ctx, so cancelling it aborts a refresh in flight.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		s.logger.Info("scheduled refresh disabled")
		return nil
	}
	if len(s.locations) == 0 {
		s.logger.Info("scheduler: no reference locations configured; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(func() {
		s.trigger(ctx)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduled refresh enabled", "interval", s.interval)
	return nil
}

func (s *Scheduler) trigger(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	err := s.starter.Start(ctx, s.locations)
	switch {
	case err == nil:
		s.metrics.RefreshTriggers.WithLabelValues("started").Inc()
		s.logger.Info("scheduled refresh started", "locations", len(s.locations))
	case errors.Is(err, domain.ErrAlreadyRunning):
		s.metrics.RefreshTriggers.WithLabelValues("skipped").Inc()
		s.logger.Info("scheduled refresh skipped, batch still running")
	default:
		s.metrics.RefreshTriggers.WithLabelValues("error").Inc()
		s.logger.Error("scheduled refresh failed", "error", err)
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
