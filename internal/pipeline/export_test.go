package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/aqi-map-service/internal/domain"
	"github.com/couchcryptid/aqi-map-service/internal/observability"
	"github.com/couchcryptid/aqi-map-service/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLoader struct {
	mu       sync.Mutex
	failures int
	attempts int
	loaded   [][]domain.LocationResult
}

func (m *mockLoader) LoadBatch(_ context.Context, results []domain.LocationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if m.attempts <= m.failures {
		return errors.New("broker unavailable")
	}
	m.loaded = append(m.loaded, results)
	return nil
}

// gatedLoader blocks every call until gate is closed.
type gatedLoader struct {
	mockLoader
	gate    chan struct{}
	entered chan struct{}
}

func (g *gatedLoader) LoadBatch(ctx context.Context, results []domain.LocationResult) error {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.gate
	return g.mockLoader.LoadBatch(ctx, results)
}

func (m *mockLoader) batches() [][]domain.LocationResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]domain.LocationResult(nil), m.loaded...)
}

func settledState(run uint64, n int) pipeline.BatchState {
	results := make([]domain.LocationResult, n)
	for i := range results {
		results[i] = reading(float64(i+1), 0)
	}
	return pipeline.BatchState{Run: run, Phase: pipeline.PhaseSettled, Results: results, Completed: n}
}

func startExporter(t *testing.T, e *pipeline.Exporter) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestExporter_ExportsSettledRunsWithResults(t *testing.T) {
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	e := pipeline.NewExporter(ldr, discardLogger, metrics)

	e.Enqueue(pipeline.BatchState{Run: 1, Phase: pipeline.PhaseRunning})
	e.Enqueue(settledState(1, 3))
	e.Enqueue(settledState(2, 0))
	e.Enqueue(settledState(3, 2))
	startExporter(t, e)

	require.Eventually(t, func() bool { return len(ldr.batches()) == 2 }, 5*time.Second, 10*time.Millisecond)
	batches := ldr.batches()
	assert.Len(t, batches[0], 3)
	assert.Len(t, batches[1], 2)
	assert.InDelta(t, 5.0, testutil.ToFloat64(metrics.ExportedResults.WithLabelValues("success")), 1e-9)
}

func TestExporter_RetriesThenSucceeds(t *testing.T) {
	ldr := &mockLoader{failures: 1}
	e := pipeline.NewExporter(ldr, discardLogger, observability.NewMetricsForTesting())
	e.Enqueue(settledState(1, 2))
	startExporter(t, e)

	require.Eventually(t, func() bool { return len(ldr.batches()) == 1 }, 5*time.Second, 10*time.Millisecond)
	ldr.mu.Lock()
	defer ldr.mu.Unlock()
	assert.Equal(t, 2, ldr.attempts)
}

func TestExporter_GivesUpAfterMaxAttempts(t *testing.T) {
	ldr := &mockLoader{failures: 10}
	metrics := observability.NewMetricsForTesting()
	e := pipeline.NewExporter(ldr, discardLogger, metrics)
	e.Enqueue(settledState(1, 4))
	startExporter(t, e)

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.ExportedResults.WithLabelValues("error")) == 4
	}, 5*time.Second, 10*time.Millisecond)
	assert.Empty(t, ldr.batches())
	ldr.mu.Lock()
	defer ldr.mu.Unlock()
	assert.Equal(t, 3, ldr.attempts)
}

func TestExporter_DropsWhenQueueFull(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	e := pipeline.NewExporter(&mockLoader{}, discardLogger, metrics)

	for run := uint64(1); run <= 17; run++ {
		e.Enqueue(settledState(run, 1))
	}
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.ExportedResults.WithLabelValues("dropped")), 1e-9)
}

func TestExporter_StopsOnContextCancel(t *testing.T) {
	e := pipeline.NewExporter(&mockLoader{}, discardLogger, observability.NewMetricsForTesting())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("exporter did not stop")
	}
}

func TestExporter_WithOrchestrator(t *testing.T) {
	ctx := testContext(t)
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	o := pipeline.New(&fakeScorer{}, discardLogger, metrics, pipeline.WithPacing(0))
	e := pipeline.NewExporter(ldr, discardLogger, metrics)
	o.OnSettled(e.Enqueue)
	startExporter(t, e)

	require.NoError(t, o.Run(ctx, locations(4)))

	require.Eventually(t, func() bool { return len(ldr.batches()) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Len(t, ldr.batches()[0], 4)
}

func TestExporter_KeepsRunsSettledWhileBusy(t *testing.T) {
	ctx := testContext(t)
	ldr := &gatedLoader{gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	metrics := observability.NewMetricsForTesting()
	o := pipeline.New(&fakeScorer{}, discardLogger, metrics, pipeline.WithPacing(0))
	e := pipeline.NewExporter(ldr, discardLogger, metrics)
	o.OnSettled(e.Enqueue)
	startExporter(t, e)

	require.NoError(t, o.Run(ctx, locations(1)))
	select {
	case <-ldr.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first export never started")
	}

	// Two more runs settle while the first export is still blocked.
	require.NoError(t, o.Run(ctx, locations(2)))
	require.NoError(t, o.Run(ctx, locations(3)))
	close(ldr.gate)

	require.Eventually(t, func() bool { return len(ldr.batches()) == 3 }, 5*time.Second, 10*time.Millisecond)
	batches := ldr.batches()
	assert.Len(t, batches[0], 1)
	assert.Len(t, batches[1], 2)
	assert.Len(t, batches[2], 3)
}

func TestOrchestrator_OnSettledCalledOncePerRun(t *testing.T) {
	ctx := testContext(t)
	o := pipeline.New(&fakeScorer{}, discardLogger, observability.NewMetricsForTesting(), pipeline.WithPacing(0))

	var got []pipeline.BatchState
	o.OnSettled(func(s pipeline.BatchState) { got = append(got, s) })

	require.NoError(t, o.Run(ctx, locations(2)))
	require.ErrorIs(t, o.Run(ctx, nil), domain.ErrNoResults)

	require.Len(t, got, 2)
	assert.Equal(t, pipeline.PhaseSettled, got[0].Phase)
	assert.Equal(t, 2, got[0].Completed)
	assert.ErrorIs(t, got[1].Err, domain.ErrNoResults)
}
