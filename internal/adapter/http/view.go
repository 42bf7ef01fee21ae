package http

import (
	"time"

	"github.com/couchcryptid/aqi-map-service/internal/domain"
	"github.com/couchcryptid/aqi-map-service/internal/ondemand"
	"github.com/couchcryptid/aqi-map-service/internal/pipeline"
)

type batchView struct {
	Run       uint64                  `json:"run"`
	Phase     pipeline.Phase          `json:"phase"`
	Total     int                     `json:"total"`
	Completed int                     `json:"completed"`
	Progress  float64                 `json:"progress"`
	Results   []domain.LocationResult `json:"results"`
	Summary   domain.Summary          `json:"summary"`
	Error     string                  `json:"error,omitempty"`
	StartedAt *time.Time              `json:"started_at,omitempty"`
	SettledAt *time.Time              `json:"settled_at,omitempty"`
}

func newBatchView(s pipeline.BatchState) batchView {
	v := batchView{
		Run:       s.Run,
		Phase:     s.Phase,
		Total:     s.Total,
		Completed: s.Completed,
		Progress:  s.Progress(),
		Results:   s.Results,
		Summary:   s.Summary,
		StartedAt: optionalTime(s.StartedAt),
		SettledAt: optionalTime(s.SettledAt),
	}
	if v.Results == nil {
		v.Results = []domain.LocationResult{}
	}
	if s.Err != nil {
		v.Error = s.Err.Error()
	}
	return v
}

type selectionView struct {
	Seq             uint64                 `json:"seq"`
	Pending         bool                   `json:"pending"`
	Current         *domain.LocationResult `json:"current"`
	Error           string                 `json:"error,omitempty"`
	Forecast        []domain.DailyForecast `json:"forecast"`
	ForecastPending bool                   `json:"forecast_pending"`
}

func newSelectionView(s ondemand.State) selectionView {
	v := selectionView{
		Seq:             s.Seq,
		Pending:         s.Pending,
		Current:         s.Current,
		Forecast:        s.Forecast,
		ForecastPending: s.ForecastPending,
	}
	if v.Forecast == nil {
		v.Forecast = []domain.DailyForecast{}
	}
	if s.Err != nil {
		v.Error = s.Err.Error()
	}
	return v
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
