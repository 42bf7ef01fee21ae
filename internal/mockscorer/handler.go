package mockscorer

import (
	"hash/fnv"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/aqi-map-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// Handler serves GET /predict.
type Handler struct {
	seed     uint64
	failRate float64
	latency  time.Duration
	logger   *slog.Logger
	mux      *http.ServeMux
}

// Option configures a Handler.
type Option func(*Handler)

// WithSeed changes the pollutant values generated for every coordinate.
func WithSeed(seed uint64) Option {
	return func(h *Handler) { h.seed = seed }
}

// WithFailureRate makes a fraction of requests fail with HTTP 500.
func WithFailureRate(rate float64) Option {
	return func(h *Handler) { h.failRate = math.Min(math.Max(rate, 0), 1) }
}

// WithLatency delays every response.
func WithLatency(d time.Duration) Option {
	return func(h *Handler) { h.latency = d }
}

// NewHandler creates a mock scoring handler.
func NewHandler(logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{logger: logger, mux: http.NewServeMux()}
	for _, opt := range opts {
		opt(h)
	}
	h.mux.HandleFunc("GET /predict", h.handlePredict)
	h.mux.HandleFunc("GET /{$}", h.handleHome)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Prediction is the /predict response body.
type Prediction struct {
	CPCBAQI    float64            `json:"cpcb_aqi"`
	MLAQI      float64            `json:"ml_aqi"`
	Category   string             `json:"category"`
	Color      string             `json:"color"`
	Pollutants map[string]float64 `json:"pollutants"`
}

// Predict returns the deterministic prediction for a coordinate pair.
func (h *Handler) Predict(lat, lon float64) Prediction {
	rng := rand.New(rand.NewPCG(coordinateHash(lat, lon), h.seed))
	between := func(lo, hi float64) float64 {
		return math.Round((lo+rng.Float64()*(hi-lo))*100) / 100
	}

	pm25 := between(5, 300)
	no := between(0, 40)
	no2 := between(5, 150)
	p := domain.Pollutants{
		domain.PM25: pm25,
		domain.PM10: math.Round(pm25*between(1.2, 2.0)*100) / 100,
		domain.NO:   no,
		domain.NO2:  no2,
		domain.NH3:  between(1, 60),
		domain.CO:   between(200, 3000),
		domain.SO2:  between(2, 120),
		domain.O3:   between(10, 180),
	}

	aqi := CPCBIndex(p)
	ml := math.Round(aqi*between(0.85, 1.15)*100) / 100
	sev := domain.Classify(ml)

	pollutants := make(map[string]float64, len(p)+1)
	for k, v := range p {
		pollutants[string(k)] = v
	}
	pollutants["nox"] = math.Round((no+no2)*100) / 100

	return Prediction{
		CPCBAQI:    aqi,
		MLAQI:      ml,
		Category:   sev.Label,
		Color:      sev.Color,
		Pollutants: pollutants,
	}
}

func (h *Handler) handleHome(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "Online",
		"message":   "mock AQI scoring service",
		"endpoints": map[string]string{"predict": "/predict?lat=LAT&lon=LON"},
	})
}

func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	latStr, lonStr := r.URL.Query().Get("lat"), r.URL.Query().Get("lon")
	if latStr == "" || lonStr == "" {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "Latitude and Longitude are required"})
		return
	}
	lat, errLat := strconv.ParseFloat(latStr, 64)
	lon, errLon := strconv.ParseFloat(lonStr, 64)
	if errLat != nil || errLon != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "Latitude and Longitude must be numbers"})
		return
	}

	if h.latency > 0 {
		timer := time.NewTimer(h.latency)
		defer timer.Stop()
		select {
		case <-r.Context().Done():
			return
		case <-timer.C:
		}
	}

	if h.failRate > 0 && rand.Float64() < h.failRate {
		h.logger.Debug("injected failure", "lat", lat, "lon", lon)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "injected failure"})
		return
	}

	sharedobs.WriteJSON(w, http.StatusOK, h.Predict(lat, lon))
}

func coordinateHash(lat, lon float64) uint64 {
	f := fnv.New64a()
	_, _ = f.Write([]byte(strconv.FormatFloat(lat, 'f', 4, 64) + "," + strconv.FormatFloat(lon, 'f', 4, 64)))
	return f.Sum64()
}
