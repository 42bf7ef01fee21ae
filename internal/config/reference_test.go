package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/aqi-map-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceLocations_Default(t *testing.T) {
	cfg := &Config{}
	locs, err := cfg.ReferenceLocations()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultReferenceLocations, locs)

	locs[0].Name = "changed"
	assert.Equal(t, "Delhi", domain.DefaultReferenceLocations[0].Name)
}

func TestReferenceLocations_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cities.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"x","name":"Leh","lat":34.1526,"lon":77.5771}]`), 0o600))

	cfg := &Config{ReferenceLocationsFile: path}
	locs, err := cfg.ReferenceLocations()
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, "Leh", locs[0].Name)
}

func TestReferenceLocations_MissingFile(t *testing.T) {
	cfg := &Config{ReferenceLocationsFile: filepath.Join(t.TempDir(), "missing.json")}
	_, err := cfg.ReferenceLocations()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REFERENCE_LOCATIONS_FILE")
}
