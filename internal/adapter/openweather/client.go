// Package openweather fetches hourly air-quality forecasts from the
// OpenWeather air pollution API.
package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/aqi-map-service/internal/domain"
	"github.com/sony/gobreaker"
)

const (
	forecastPath = "/data/2.5/air_pollution/forecast"
	maxErrorBody = 512
)

// Client implements domain.Forecaster.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	circuit    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewClient creates a forecast client authenticating with apiKey.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		logger:     logger,
	}
	c.circuit = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// Forecast returns the hourly forecast for a point in the order the API
// lists it. Failures are *domain.TransportError or *domain.MalformedResponseError.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) ([]domain.ForecastEntry, error) {
	if c.apiKey == "" {
		return nil, errors.New("openweather api key is not configured")
	}

	params := url.Values{
		"lat":   {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":   {strconv.FormatFloat(lon, 'f', -1, 64)},
		"appid": {c.apiKey},
	}
	fullURL := c.baseURL + forecastPath + "?" + params.Encode()

	v, err := c.circuit.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, fullURL)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &domain.TransportError{Err: err}
		}
		return nil, err
	}
	return v.([]domain.ForecastEntry), nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]domain.ForecastEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, &domain.TransportError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &domain.TransportError{StatusCode: resp.StatusCode, Err: errors.New(msg)}
	}

	var fr forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		return nil, &domain.MalformedResponseError{Err: fmt.Errorf("decode forecast: %w", err)}
	}
	if fr.List == nil {
		return nil, &domain.MalformedResponseError{Err: errors.New("missing forecast list")}
	}
	return fr.entries(), nil
}

// OpenWeather response types.

type forecastResponse struct {
	List []forecastItem `json:"list"`
}

type forecastItem struct {
	Dt   int64 `json:"dt"`
	Main struct {
		AQI int `json:"aqi"`
	} `json:"main"`
	Components map[string]float64 `json:"components"`
}

func (fr forecastResponse) entries() []domain.ForecastEntry {
	out := make([]domain.ForecastEntry, 0, len(fr.List))
	for _, item := range fr.List {
		pollutants := make(domain.Pollutants, len(item.Components))
		for k, v := range item.Components {
			if p := domain.Pollutant(k); p.Known() {
				pollutants[p] = v
			}
		}
		out = append(out, domain.ForecastEntry{
			Time:       time.Unix(item.Dt, 0).UTC(),
			Index:      item.Main.AQI,
			Pollutants: pollutants,
		})
	}
	return out
}
