package scoring

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
	"github.com/couchcryptid/aqi-map-service/internal/observability"
	"github.com/sony/gobreaker"
)

const maxErrorBody = 512

// Client implements domain.Scorer against the scoring service's /predict endpoint.
// Each Query makes at most one outbound request. Results are never cached.
type Client struct {
	httpClient *http.Client
	baseURL    string
	classifier *domain.Classifier
	breaker    *gobreaker.CircuitBreaker
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBreaker guards requests with a circuit breaker that opens after the
// given number of consecutive failures and stays open for cooldown.
// Requests abandoned by their caller do not count as failures.
// A zero failure count leaves the breaker disabled.
func WithBreaker(failures uint32, cooldown time.Duration) Option {
	return func(c *Client) {
		if failures == 0 {
			return
		}
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "scoring",
			MaxRequests: 1,
			Timeout:     cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			},
		})
	}
}

// WithClassifier overrides the severity table attached to results.
func WithClassifier(cl *domain.Classifier) Option {
	return func(c *Client) { c.classifier = cl }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a scoring client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		classifier: domain.DefaultClassifier(),
		metrics:    metrics,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query fetches the reading for a coordinate pair. Coordinates are sent as
// given. Failures are *domain.TransportError or *domain.MalformedResponseError.
func (c *Client) Query(ctx context.Context, lat, lon float64) (domain.LocationResult, error) {
	params := url.Values{
		"lat": {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon": {strconv.FormatFloat(lon, 'f', -1, 64)},
	}
	fullURL := c.baseURL + "/predict?" + params.Encode()

	start := time.Now()
	reading, err := c.execute(ctx, fullURL)
	c.metrics.ScoringDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ScoringRequests.WithLabelValues(outcome(err)).Inc()
		c.logger.Debug("scoring request failed", "lat", lat, "lon", lon, "error", err)
		return domain.LocationResult{}, err
	}
	c.metrics.ScoringRequests.WithLabelValues("success").Inc()

	return domain.NewLocationResult(lat, lon, reading, c.classifier.Classify(reading.Index)), nil
}

func (c *Client) execute(ctx context.Context, fullURL string) (domain.Reading, error) {
	if c.breaker == nil {
		return c.doRequest(ctx, fullURL)
	}
	v, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, fullURL)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.Reading{}, &domain.TransportError{Err: err}
		}
		return domain.Reading{}, err
	}
	return v.(domain.Reading), nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.Reading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.Reading{}, &domain.TransportError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Reading{}, &domain.TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return domain.Reading{}, &domain.TransportError{StatusCode: resp.StatusCode, Err: errors.New(msg)}
	}

	var pr predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return domain.Reading{}, &domain.MalformedResponseError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if pr.CPCBAQI == nil {
		return domain.Reading{}, &domain.MalformedResponseError{Err: errors.New("missing cpcb_aqi")}
	}
	return pr.reading(), nil
}

func outcome(err error) string {
	var malformed *domain.MalformedResponseError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	case errors.As(err, &malformed):
		return "malformed"
	default:
		return "transport_error"
	}
}

// Scoring service response types.

type predictResponse struct {
	CPCBAQI    *float64            `json:"cpcb_aqi"`
	MLAQI      *float64            `json:"ml_aqi"`
	Pollutants map[string]*float64 `json:"pollutants"`
}

func (pr predictResponse) reading() domain.Reading {
	pollutants := make(domain.Pollutants, len(pr.Pollutants))
	for k, v := range pr.Pollutants {
		p := domain.Pollutant(k)
		if v == nil || !p.Known() {
			continue
		}
		pollutants[p] = *v
	}
	return domain.Reading{
		Index:          *pr.CPCBAQI,
		SecondaryIndex: pr.MLAQI,
		Pollutants:     pollutants,
	}
}
