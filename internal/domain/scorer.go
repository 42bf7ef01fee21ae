package domain

import "context"

// Scorer fetches a single reading for a coordinate pair.
type Scorer interface {
	Query(ctx context.Context, lat, lon float64) (LocationResult, error)
}

// Geolocator provides the caller's current position.
type Geolocator interface {
	Locate(ctx context.Context) (lat, lon float64, err error)
}

// FixedGeolocator always reports the same position.
type FixedGeolocator struct {
	Lat, Lon float64
}

// Locate returns the fixed position.
func (g FixedGeolocator) Locate(_ context.Context) (float64, float64, error) {
	return g.Lat, g.Lon, nil
}
