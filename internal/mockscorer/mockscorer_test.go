package mockscorer

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/aqi-map-service/internal/adapter/scoring"
	"github.com/couchcryptid/aqi-map-service/internal/domain"
	"github.com/couchcryptid/aqi-map-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestCPCBIndex(t *testing.T) {
	tests := []struct {
		name string
		in   domain.Pollutants
		want float64
	}{
		{"empty", domain.Pollutants{}, 0},
		{"pm25 second band", domain.Pollutants{domain.PM25: 45}, 75.5},
		{"band edge uses lower band", domain.Pollutants{domain.PM25: 30}, 50},
		{"co converted to mg", domain.Pollutants{domain.CO: 1500}, 75.5},
		{"highest sub-index wins", domain.Pollutants{domain.PM25: 45, domain.PM10: 300}, 250.5},
		{"above every band", domain.Pollutants{domain.PM25: 900}, 500},
		{"unscored pollutants ignored", domain.Pollutants{domain.O3: 400, domain.NH3: 400}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CPCBIndex(tt.in), 0.005)
		})
	}
}

func TestHandler_PredictIsDeterministic(t *testing.T) {
	h := NewHandler(discardLogger)
	a := h.Predict(28.6139, 77.209)
	b := h.Predict(28.6139, 77.209)
	assert.Equal(t, a, b)

	other := h.Predict(19.076, 72.8777)
	assert.NotEqual(t, a.Pollutants, other.Pollutants)

	seeded := NewHandler(discardLogger, WithSeed(7)).Predict(28.6139, 77.209)
	assert.NotEqual(t, a.Pollutants, seeded.Pollutants)
}

func TestHandler_PredictConsistentIndex(t *testing.T) {
	h := NewHandler(discardLogger)
	p := h.Predict(12.9716, 77.5946)

	pollutants := domain.Pollutants{}
	for k, v := range p.Pollutants {
		pollutants[domain.Pollutant(k)] = v
	}
	assert.InDelta(t, CPCBIndex(pollutants), p.CPCBAQI, 1e-9)
	assert.Equal(t, domain.Classify(p.MLAQI).Label, p.Category)
	assert.Contains(t, p.Pollutants, "nox")
}

func TestHandler_MissingCoordinates(t *testing.T) {
	h := NewHandler(discardLogger)
	for _, target := range []string{"/predict", "/predict?lat=1", "/predict?lon=1"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Latitude and Longitude are required", body["error"])
	}
}

func TestHandler_NonNumericCoordinates(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(discardLogger).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/predict?lat=abc&lon=1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_InjectedFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(discardLogger, WithFailureRate(1)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/predict?lat=1&lon=1", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandler_Home(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(discardLogger).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Online")
}

func TestHandler_LatencyHonoursCancellation(t *testing.T) {
	h := NewHandler(discardLogger, WithLatency(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/predict?lat=1&lon=1", nil).WithContext(ctx))
	assert.Empty(t, rec.Body.String())
}

func TestHandler_ServesScoringClient(t *testing.T) {
	h := NewHandler(discardLogger)
	srv := httptest.NewServer(h)
	defer srv.Close()

	client := scoring.NewClient(srv.URL, 5*time.Second, observability.NewMetricsForTesting(), discardLogger)
	res, err := client.Query(context.Background(), 22.5726, 88.3639)
	require.NoError(t, err)

	want := h.Predict(22.5726, 88.3639)
	assert.InDelta(t, want.CPCBAQI, res.Index, 1e-9)
	require.NotNil(t, res.SecondaryIndex)
	assert.InDelta(t, want.MLAQI, *res.SecondaryIndex, 1e-9)
	assert.InDelta(t, want.Pollutants["pm2_5"], res.Pollutants[domain.PM25], 1e-9)
	assert.NotContains(t, res.Pollutants, domain.Pollutant("nox"))
	assert.Equal(t, domain.Classify(want.CPCBAQI).Label, res.Severity.Label)
}
