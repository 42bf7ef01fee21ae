package domain

import (
	"context"
	"maps"
	"time"
)

// ForecastDays is the number of calendar days kept from a forecast.
const ForecastDays = 3

// ForecastEntry is one point of an hourly air-quality forecast. Index is the
// provider's own scale (1 = good through 5 = very poor for OpenWeather).
type ForecastEntry struct {
	Time       time.Time
	Index      int
	Pollutants Pollutants
}

// DailyForecast is the first forecast point of a calendar day.
type DailyForecast struct {
	Date       string     `json:"date"`
	Index      int        `json:"aqi"`
	Pollutants Pollutants `json:"pollutants"`
}

// Forecaster returns the hourly air-quality forecast for a point.
type Forecaster interface {
	Forecast(ctx context.Context, lat, lon float64) ([]ForecastEntry, error)
}

// DailyOutlook keeps the first entry of each of the first days distinct
// calendar dates in loc, in input order.
func DailyOutlook(entries []ForecastEntry, days int, loc *time.Location) []DailyForecast {
	if loc == nil {
		loc = time.UTC
	}
	out := make([]DailyForecast, 0, days)
	seen := make(map[string]struct{}, days)
	for _, e := range entries {
		if len(out) >= days {
			break
		}
		date := e.Time.In(loc).Format(time.DateOnly)
		if _, ok := seen[date]; ok {
			continue
		}
		seen[date] = struct{}{}
		out = append(out, DailyForecast{Date: date, Index: e.Index, Pollutants: maps.Clone(e.Pollutants)})
	}
	return out
}
