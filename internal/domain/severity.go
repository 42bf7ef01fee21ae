package domain

import (
	"math"
	"slices"
)

// Severity is the user-facing classification attached to a reading.
type Severity struct {
	Label  string `json:"label"`
	Color  string `json:"color"`
	Advice string `json:"advice"`
}

// Band is one row of a classification table. Readings at or below UpperBound
// fall into the band. The last band of a table acts as the catch-all and its
// UpperBound is ignored.
type Band struct {
	UpperBound float64
	Severity   Severity
}

// Classifier maps an index onto an ordered table of bands.
type Classifier struct {
	bands []Band
}

// DefaultBands is the CPCB AQI table used by the map.
var DefaultBands = []Band{
	{UpperBound: 50, Severity: Severity{Label: "Good", Color: "#00B050", Advice: "Good air. Safe for all activities."}},
	{UpperBound: 100, Severity: Severity{Label: "Satisfactory", Color: "#92D050", Advice: "Satisfactory. Sensitive groups be cautious."}},
	{UpperBound: 200, Severity: Severity{Label: "Moderate", Color: "#E6B800", Advice: "Moderate. Reduce prolonged outdoor exposure."}},
	{UpperBound: 300, Severity: Severity{Label: "Poor", Color: "#FF9900", Advice: "Poor. Wear a mask outdoors."}},
	{UpperBound: 400, Severity: Severity{Label: "Very Poor", Color: "#FF0000", Advice: "Very Poor. Stay indoors and close windows."}},
	{UpperBound: math.Inf(1), Severity: Severity{Label: "Severe", Color: "#C00000", Advice: "Severe! Health emergency, avoid going outside."}},
}

// NewClassifier builds a Classifier over a copy of bands. Bands must be in
// ascending UpperBound order and non-empty.
func NewClassifier(bands []Band) *Classifier {
	if len(bands) == 0 {
		panic("domain: classifier needs at least one band")
	}
	return &Classifier{bands: slices.Clone(bands)}
}

// DefaultClassifier returns a Classifier over DefaultBands.
func DefaultClassifier() *Classifier {
	return NewClassifier(DefaultBands)
}

// Classify returns the severity of the first band whose upper bound is at
// least index. Negative and NaN values are treated as zero.
func (c *Classifier) Classify(index float64) Severity {
	if math.IsNaN(index) || index < 0 {
		index = 0
	}
	last := len(c.bands) - 1
	for _, b := range c.bands[:last] {
		if index <= b.UpperBound {
			return b.Severity
		}
	}
	return c.bands[last].Severity
}

// Bands returns a copy of the classification table.
func (c *Classifier) Bands() []Band {
	return slices.Clone(c.bands)
}

// Classify classifies index with the default table.
func Classify(index float64) Severity {
	return defaultClassifier.Classify(index)
}

var defaultClassifier = DefaultClassifier()
