package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/aqi-map-service/internal/domain"
	"github.com/couchcryptid/aqi-map-service/internal/observability"
	"github.com/couchcryptid/aqi-map-service/internal/watch"
	"github.com/jonboulle/clockwork"
)

const (
	// DefaultChunkSize is the number of locations queried concurrently.
	DefaultChunkSize = 5

	// DefaultPacing is the pause between consecutive chunks.
	DefaultPacing = 300 * time.Millisecond
)

// Orchestrator fetches readings for a set of reference locations in
// sequential chunks, querying every location of a chunk concurrently.
// Failed locations are dropped; the run fails only if nothing succeeded.
type Orchestrator struct {
	scorer    domain.Scorer
	clock     clockwork.Clock
	chunkSize int
	pacing    time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
	hub       *watch.Hub[BatchState]
	ready     atomic.Bool

	mu      sync.Mutex
	state   BatchState
	running bool
	settled []func(BatchState)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock sets the clock used for pacing and timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithChunkSize sets how many locations are queried concurrently. Values
// below one are ignored.
func WithChunkSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithPacing sets the pause between chunks. Zero disables pacing.
func WithPacing(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.pacing = d
		}
	}
}

// New creates an idle Orchestrator.
func New(scorer domain.Scorer, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		scorer:    scorer,
		clock:     clockwork.NewRealClock(),
		chunkSize: DefaultChunkSize,
		pacing:    DefaultPacing,
		logger:    logger,
		metrics:   metrics,
		hub:       watch.NewHub[BatchState](),
		state:     BatchState{Phase: PhaseIdle},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CheckReadiness returns nil once a batch run has produced at least one result.
func (o *Orchestrator) CheckReadiness(_ context.Context) error {
	if !o.ready.Load() {
		return errors.New("no reference results obtained yet")
	}
	return nil
}

// Snapshot returns the current batch state.
func (o *Orchestrator) Snapshot() BatchState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Subscribe returns a channel that receives every new batch state, keeping
// only the newest undelivered one, and a function that ends the subscription.
func (o *Orchestrator) Subscribe() (<-chan BatchState, func()) {
	return o.hub.Subscribe()
}

// OnSettled registers fn to receive every run's final state exactly once.
// fn is called synchronously from the run goroutine and must not block.
func (o *Orchestrator) OnSettled(fn func(BatchState)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.settled = append(o.settled, fn)
}

// Close ends all subscriptions.
func (o *Orchestrator) Close() {
	o.hub.Close()
}

// Run executes a batch over locs and blocks until it settles. It returns
// domain.ErrAlreadyRunning without touching state if a run is in flight,
// domain.ErrNoResults if every query failed, or the context error if ctx was
// cancelled first.
func (o *Orchestrator) Run(ctx context.Context, locs []domain.ReferenceLocation) error {
	if err := o.begin(len(locs)); err != nil {
		return err
	}
	return o.run(ctx, locs)
}

// Start begins a batch over locs in the background. The outcome is reported
// through Snapshot and Subscribe.
func (o *Orchestrator) Start(ctx context.Context, locs []domain.ReferenceLocation) error {
	if err := o.begin(len(locs)); err != nil {
		return err
	}
	go func() {
		_ = o.run(ctx, locs)
	}()
	return nil
}

func (o *Orchestrator) begin(total int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return domain.ErrAlreadyRunning
	}
	o.running = true
	o.state = begin(o.state, total, o.clock.Now())
	o.hub.Publish(o.state)

	o.metrics.BatchRunning.Set(1)
	o.metrics.BatchTotal.Set(float64(total))
	o.metrics.BatchCompleted.Set(0)
	return nil
}

func (o *Orchestrator) run(ctx context.Context, locs []domain.ReferenceLocation) error {
	start := o.clock.Now()
	chunks := partition(locs, o.chunkSize)
	run := o.Snapshot().Run

	o.logger.Info("batch run started",
		"run", run,
		"locations", len(locs),
		"chunks", len(chunks),
		"chunk_size", o.chunkSize,
		"pacing", o.pacing,
	)

	for i, chunk := range chunks {
		if ctx.Err() != nil {
			return o.finish(ctx.Err(), start)
		}

		chunkStart := o.clock.Now()
		arrived, ok := o.fetchChunk(ctx, chunk)
		if !ok {
			return o.finish(ctx.Err(), start)
		}
		o.metrics.ChunkDuration.Observe(o.clock.Since(chunkStart).Seconds())
		o.apply(arrived)

		o.logger.Debug("chunk settled",
			"run", run,
			"chunk", i+1,
			"succeeded", len(arrived),
			"failed", len(chunk)-len(arrived),
		)

		if i < len(chunks)-1 && !o.pause(ctx) {
			return o.finish(ctx.Err(), start)
		}
	}

	return o.finish(nil, start)
}

type chunkOutcome struct {
	loc    domain.ReferenceLocation
	result domain.LocationResult
	err    error
}

// fetchChunk queries every location of chunk concurrently and waits for all
// of them. Successes are returned in completion order. It returns false if
// ctx is cancelled before the chunk settles; late results are discarded.
func (o *Orchestrator) fetchChunk(ctx context.Context, chunk []domain.ReferenceLocation) ([]domain.LocationResult, bool) {
	out := make(chan chunkOutcome, len(chunk))
	for _, loc := range chunk {
		go func() {
			res, err := o.scorer.Query(ctx, loc.Latitude, loc.Longitude)
			out <- chunkOutcome{loc: loc, result: res, err: err}
		}()
	}

	arrived := make([]domain.LocationResult, 0, len(chunk))
	for range chunk {
		select {
		case <-ctx.Done():
			return nil, false
		case oc := <-out:
			if oc.err != nil {
				o.logger.Warn("reference query failed, dropping location",
					"location", oc.loc.ID,
					"name", oc.loc.Name,
					"error", oc.err,
				)
				o.metrics.BatchDropped.Inc()
				continue
			}
			arrived = append(arrived, oc.result.Identify(oc.loc.ID, oc.loc.Name))
		}
	}

	if ctx.Err() != nil {
		return nil, false
	}
	return arrived, true
}

func (o *Orchestrator) apply(arrived []domain.LocationResult) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.state = withChunk(o.state, arrived)
	o.hub.Publish(o.state)
	o.metrics.BatchCompleted.Set(float64(o.state.Completed))
	if o.state.Completed > 0 {
		o.ready.Store(true)
	}
}

// pause waits out the inter-chunk pacing. Returns false if ctx is cancelled.
func (o *Orchestrator) pause(ctx context.Context) bool {
	if o.pacing <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-o.clock.After(o.pacing):
		return true
	}
}

func (o *Orchestrator) finish(err error, start time.Time) error {
	o.mu.Lock()
	o.state = settle(o.state, err, o.clock.Now())
	o.running = false
	o.hub.Publish(o.state)
	s := o.state
	hooks := o.settled
	o.mu.Unlock()

	for _, fn := range hooks {
		fn(s)
	}

	o.metrics.BatchRunning.Set(0)
	o.metrics.BatchRunSeconds.Observe(o.clock.Since(start).Seconds())

	switch {
	case s.Err == nil:
		o.metrics.BatchRuns.WithLabelValues("success").Inc()
		o.logger.Info("batch run settled", "run", s.Run, "completed", s.Completed, "total", s.Total)
	case errors.Is(s.Err, domain.ErrNoResults):
		o.metrics.BatchRuns.WithLabelValues("no_results").Inc()
		o.logger.Error("batch run settled without results", "run", s.Run, "total", s.Total, "error", s.Err)
	default:
		o.metrics.BatchRuns.WithLabelValues("cancelled").Inc()
		o.logger.Info("batch run aborted", "run", s.Run, "completed", s.Completed, "reason", s.Err)
	}
	return s.Err
}
