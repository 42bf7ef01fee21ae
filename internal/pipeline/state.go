package pipeline

import (
	"time"

	"github.com/couchcryptid/aqi-map-service/internal/domain"
)

// Phase is the lifecycle stage of a reference batch run.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseRunning Phase = "running"
	PhaseSettled Phase = "settled"
)

// BatchState is an immutable snapshot of the reference batch. Results are in
// arrival order and must not be modified by readers.
type BatchState struct {
	Run       uint64
	Phase     Phase
	Total     int
	Completed int
	Results   []domain.LocationResult
	Summary   domain.Summary
	Err       error
	StartedAt time.Time
	SettledAt time.Time
}

// Progress returns the completed fraction of the run in [0, 1].
func (s BatchState) Progress() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total)
}

// begin resets prev for a fresh run over total locations.
func begin(prev BatchState, total int, now time.Time) BatchState {
	return BatchState{
		Run:       prev.Run + 1,
		Phase:     PhaseRunning,
		Total:     total,
		StartedAt: now,
	}
}

// withChunk appends the successes of one settled chunk. The returned state
// owns a new Results slice so earlier snapshots stay untouched.
func withChunk(s BatchState, arrived []domain.LocationResult) BatchState {
	if len(arrived) == 0 {
		return s
	}
	results := make([]domain.LocationResult, 0, len(s.Results)+len(arrived))
	results = append(results, s.Results...)
	results = append(results, arrived...)

	s.Results = results
	s.Completed = len(results)
	s.Summary = domain.Summarize(results)
	return s
}

// settle marks the run finished. A run that ends without error but with no
// results settles with domain.ErrNoResults.
func settle(s BatchState, err error, now time.Time) BatchState {
	if err == nil && s.Completed == 0 {
		err = domain.ErrNoResults
	}
	s.Phase = PhaseSettled
	s.Err = err
	s.SettledAt = now
	return s
}

// partition splits locs into consecutive chunks of at most size elements.
func partition(locs []domain.ReferenceLocation, size int) [][]domain.ReferenceLocation {
	chunks := make([][]domain.ReferenceLocation, 0, (len(locs)+size-1)/size)
	for start := 0; start < len(locs); start += size {
		end := min(start+size, len(locs))
		chunks = append(chunks, locs[start:end])
	}
	return chunks
}
