// Package ondemand runs single-point queries (map clicks and "my location")
// independently of the reference batch. Only the most recently issued query
// may update the current selection.
package ondemand

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/aqi-map-service/internal/domain"
	"github.com/couchcryptid/aqi-map-service/internal/observability"
	"github.com/couchcryptid/aqi-map-service/internal/watch"
	"github.com/google/uuid"
)

const adhocPrefix = "adhoc-"

// State is an immutable snapshot of the on-demand selection. Current is the
// last successful result and is nil until one completes. Err holds the
// failure of the latest query, if it failed. Forecast always belongs to
// Current and is empty until its lookup succeeds.
type State struct {
	Seq             uint64
	Current         *domain.LocationResult
	Pending         bool
	Err             error
	Forecast        []domain.DailyForecast
	ForecastPending bool
}

// Lane serializes on-demand queries with last-issued-wins semantics.
type Lane struct {
	scorer     domain.Scorer
	forecaster domain.Forecaster
	location   *time.Location
	logger     *slog.Logger
	metrics    *observability.Metrics
	hub        *watch.Hub[State]
	newID      func() string

	mu             sync.Mutex
	seq            uint64
	cancel         context.CancelFunc
	forecastCancel context.CancelFunc
	state          State
}

// Option configures a Lane.
type Option func(*Lane)

// WithForecaster fetches a daily forecast for every new selection. Forecast
// days are calendar dates in loc; nil means UTC.
func WithForecaster(f domain.Forecaster, loc *time.Location) Option {
	return func(l *Lane) {
		l.forecaster = f
		if loc != nil {
			l.location = loc
		}
	}
}

// New creates a Lane backed by scorer.
func New(scorer domain.Scorer, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Lane {
	l := &Lane{
		scorer:   scorer,
		location: time.UTC,
		logger:   logger,
		metrics:  metrics,
		hub:      watch.NewHub[State](),
		newID:    func() string { return adhocPrefix + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Snapshot returns the current selection state.
func (l *Lane) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Subscribe returns a channel of state updates and a function that ends the subscription.
func (l *Lane) Subscribe() (<-chan State, func()) {
	return l.hub.Subscribe()
}

// Close abandons any forecast lookup in flight and ends all subscriptions.
func (l *Lane) Close() {
	l.mu.Lock()
	if l.forecastCancel != nil {
		l.forecastCancel()
		l.forecastCancel = nil
	}
	l.mu.Unlock()
	l.hub.Close()
}

// Query issues a scoring query for the point, cancelling any query still
// pending. If a newer query is issued before this one completes, the result
// is discarded and domain.ErrSuperseded is returned. On failure the previous
// selection is kept.
func (l *Lane) Query(ctx context.Context, lat, lon float64) (domain.LocationResult, error) {
	qctx, cancel := context.WithCancel(ctx)
	defer cancel()

	seq := l.issue(cancel)
	l.logger.Debug("on-demand query issued", "seq", seq, "lat", lat, "lon", lon)

	res, err := l.scorer.Query(qctx, lat, lon)

	l.mu.Lock()
	defer l.mu.Unlock()

	if seq != l.seq {
		l.metrics.OnDemandQueries.WithLabelValues("superseded").Inc()
		l.logger.Debug("on-demand query superseded", "seq", seq, "latest", l.seq)
		return domain.LocationResult{}, domain.ErrSuperseded
	}

	l.cancel = nil
	next := l.state
	next.Pending = false

	if err != nil {
		// issue cancelled any forecast still loading for the kept selection.
		next.Err = err
		next.ForecastPending = false
		l.commit(next)
		l.metrics.OnDemandQueries.WithLabelValues("error").Inc()
		l.logger.Warn("on-demand query failed", "seq", seq, "lat", lat, "lon", lon, "error", err)
		return domain.LocationResult{}, err
	}

	res = res.Identify(l.newID(), domain.CoordinateName(lat, lon))
	next.Current = &res
	next.Err = nil
	next.Forecast = nil
	next.ForecastPending = l.forecaster != nil
	l.commit(next)
	l.metrics.OnDemandQueries.WithLabelValues("success").Inc()

	if l.forecaster != nil {
		fctx, fcancel := context.WithCancel(context.WithoutCancel(ctx))
		l.forecastCancel = fcancel
		go l.fetchForecast(fctx, fcancel, seq, lat, lon)
	}
	return res, nil
}

// fetchForecast looks up the forecast for the selection made by query seq.
// The outcome is dropped if a newer query has been issued meanwhile.
func (l *Lane) fetchForecast(ctx context.Context, cancel context.CancelFunc, seq uint64, lat, lon float64) {
	defer cancel()

	entries, err := l.forecaster.Forecast(ctx, lat, lon)

	l.mu.Lock()
	defer l.mu.Unlock()

	if seq != l.seq {
		l.metrics.ForecastRequests.WithLabelValues("superseded").Inc()
		return
	}
	l.forecastCancel = nil
	next := l.state
	next.ForecastPending = false

	if err != nil {
		l.commit(next)
		l.metrics.ForecastRequests.WithLabelValues("error").Inc()
		l.logger.Warn("forecast lookup failed", "seq", seq, "lat", lat, "lon", lon, "error", err)
		return
	}

	next.Forecast = domain.DailyOutlook(entries, domain.ForecastDays, l.location)
	l.commit(next)
	l.metrics.ForecastRequests.WithLabelValues("success").Inc()
}

// Locate queries the position reported by g.
func (l *Lane) Locate(ctx context.Context, g domain.Geolocator) (domain.LocationResult, error) {
	lat, lon, err := g.Locate(ctx)
	if err != nil {
		return domain.LocationResult{}, fmt.Errorf("locate: %w", err)
	}
	return l.Query(ctx, lat, lon)
}

// issue registers a new latest query and cancels the one it supersedes.
func (l *Lane) issue(cancel context.CancelFunc) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		l.cancel()
	}
	if l.forecastCancel != nil {
		l.forecastCancel()
		l.forecastCancel = nil
	}
	l.cancel = cancel
	l.seq++

	next := l.state
	next.Seq = l.seq
	next.Pending = true
	l.commit(next)
	return l.seq
}

// commit stores and publishes next. Callers hold l.mu.
func (l *Lane) commit(next State) {
	l.state = next
	l.hub.Publish(next)
}
