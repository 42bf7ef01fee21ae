package domain

import (
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		index float64
		want  string
	}{
		{"zero", 0, "Good"},
		{"upper bound of good", 50, "Good"},
		{"just above good", 50.01, "Satisfactory"},
		{"upper bound of satisfactory", 100, "Satisfactory"},
		{"moderate", 150, "Moderate"},
		{"upper bound of moderate", 200, "Moderate"},
		{"poor", 250.5, "Poor"},
		{"very poor", 400, "Very Poor"},
		{"just above very poor", 400.0001, "Severe"},
		{"far above every bound", 9999, "Severe"},
		{"negative clamps to zero", -12, "Good"},
		{"NaN clamps to zero", math.NaN(), "Good"},
		{"positive infinity", math.Inf(1), "Severe"},
		{"negative infinity", math.Inf(-1), "Good"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.index).Label)
		})
	}
}

func TestClassify_AttachesColorAndAdvice(t *testing.T) {
	sev := Classify(320)
	assert.Equal(t, "Very Poor", sev.Label)
	assert.Equal(t, "#FF0000", sev.Color)
	assert.Contains(t, sev.Advice, "Stay indoors")
}

func TestClassifier_CustomTable(t *testing.T) {
	c := NewClassifier([]Band{
		{UpperBound: 10, Severity: Severity{Label: "low"}},
		{UpperBound: 0, Severity: Severity{Label: "high"}},
	})

	assert.Equal(t, "low", c.Classify(10).Label)
	assert.Equal(t, "high", c.Classify(10.5).Label)
	assert.Len(t, c.Bands(), 2)
}

func TestClassifier_SingleBandIsCatchAll(t *testing.T) {
	c := NewClassifier([]Band{{UpperBound: 1, Severity: Severity{Label: "only"}}})
	assert.Equal(t, "only", c.Classify(500).Label)
}

func TestNewClassifier_PanicsOnEmptyTable(t *testing.T) {
	assert.Panics(t, func() { NewClassifier(nil) })
}

func TestSeverity_NotRecomputedAfterTableChange(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)))
	t.Cleanup(func() { SetClock(nil) })

	bands := []Band{
		{UpperBound: 100, Severity: Severity{Label: "fine"}},
		{UpperBound: 0, Severity: Severity{Label: "bad"}},
	}
	c := NewClassifier(bands)
	res := NewLocationResult(1, 2, Reading{Index: 80}, c.Classify(80))

	bands[0].Severity.Label = "edited"
	stricter := NewClassifier([]Band{
		{UpperBound: 50, Severity: Severity{Label: "fine"}},
		{UpperBound: 0, Severity: Severity{Label: "bad"}},
	})

	assert.Equal(t, "fine", c.Classify(80).Label)
	assert.Equal(t, "bad", stricter.Classify(res.Index).Label)
	assert.Equal(t, "fine", res.Severity.Label)
}
