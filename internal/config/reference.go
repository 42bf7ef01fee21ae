package config

import (
	"fmt"
	"os"
	"slices"

	"github.com/couchcryptid/aqi-map-service/internal/domain"
)

// ReferenceLocations returns the locations for the reference batch: the
// contents of REFERENCE_LOCATIONS_FILE when set, otherwise the built-in list.
func (c *Config) ReferenceLocations() ([]domain.ReferenceLocation, error) {
	if c.ReferenceLocationsFile == "" {
		return slices.Clone(domain.DefaultReferenceLocations), nil
	}
	f, err := os.Open(c.ReferenceLocationsFile)
	if err != nil {
		return nil, fmt.Errorf("open REFERENCE_LOCATIONS_FILE: %w", err)
	}
	defer f.Close()
	return domain.ParseReferenceLocations(f)
}
