package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
)

const (
	openMeteoDefaultURL = "https://api.open-meteo.com/v1/forecast"
	defaultTimeout      = 10 * time.Second
	maxBodyBytes        = 1 << 20
)

// ErrMalformed is returned when the provider body lacks required fields.
var ErrMalformed = errors.New("malformed weather payload")

// Client fetches current weather from Open-Meteo.
// Calls pass through a circuit breaker; there are no retries.
type Client struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewClient constructs a Client using the production Open-Meteo URL.
func NewClient(timeout time.Duration) *Client {
	return NewClientWithURL(openMeteoDefaultURL, timeout)
}

// NewClientWithURL constructs a Client pointing at a custom base URL (for tests).
func NewClientWithURL(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "open-meteo",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

type currentResponse struct {
	CurrentWeather *struct {
		Temperature *float64 `json:"temperature"`
		WeatherCode *int     `json:"weathercode"`
		WindSpeed   *float64 `json:"windspeed"`
	} `json:"current_weather"`
}

// Current retrieves the current weather at lat, lon.
func (c *Client) Current(ctx context.Context, lat, lon float64) (*Reading, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("current_weather", "true")
	endpoint := c.baseURL + "?" + q.Encode()

	out, err := c.breaker.Execute(func() (any, error) {
		return c.fetch(ctx, endpoint)
	})
	if err != nil {
		return nil, fmt.Errorf("open-meteo current weather: %w", err)
	}
	return out.(*Reading), nil
}

func (c *Client) fetch(ctx context.Context, endpoint string) (*Reading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s returned status %d", req.URL.Host, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var raw currentResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	cw := raw.CurrentWeather
	if cw == nil || cw.Temperature == nil || cw.WeatherCode == nil || cw.WindSpeed == nil {
		return nil, fmt.Errorf("%w: missing current_weather fields", ErrMalformed)
	}

	return &Reading{
		Temperature: *cw.Temperature,
		WeatherCode: *cw.WeatherCode,
		WindSpeed:   *cw.WindSpeed,
		Raw:         json.RawMessage(body),
	}, nil
}
