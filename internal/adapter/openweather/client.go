// Package openweather looks up current conditions from the OpenWeatherMap
// current weather API.
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

	"github.com/couchcryptid/water-quality-etl/internal/domain"
	"github.com/couchcryptid/water-quality-etl/internal/observability"
)

// Client implements domain.WeatherProvider.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an OpenWeatherMap client.
func NewClient(apiKey, baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		metrics:    metrics,
		logger:     logger,
	}
}

// CurrentConditions returns metric-unit conditions at lat, lon.
func (c *Client) CurrentConditions(ctx context.Context, lat, lon float64) (domain.Conditions, error) {
	params := url.Values{
		"lat":   {strconv.FormatFloat(lat, 'f', 4, 64)},
		"lon":   {strconv.FormatFloat(lon, 'f', 4, 64)},
		"appid": {c.apiKey},
		"units": {"metric"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Conditions{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.WeatherRequests.WithLabelValues("error").Inc()
		err = c.redact(err)
		c.logger.Debug("weather request failed", "error", err)
		return domain.Conditions{}, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.WeatherRequests.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Debug("weather API error", "status", resp.StatusCode)
		return domain.Conditions{}, fmt.Errorf("weather API error: status %d: %s", resp.StatusCode, body)
	}

	var wr response
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		c.metrics.WeatherRequests.WithLabelValues("error").Inc()
		c.logger.Debug("weather response undecodable", "error", err)
		return domain.Conditions{}, fmt.Errorf("decode response: %w", err)
	}
	c.metrics.WeatherRequests.WithLabelValues("success").Inc()

	out := domain.Conditions{
		Temperature: wr.Main.Temp,
		Humidity:    wr.Main.Humidity,
		Pressure:    wr.Main.Pressure,
		WindSpeed:   wr.Wind.Speed,
	}
	if len(wr.Weather) > 0 {
		out.Summary = wr.Weather[0].Main
	}
	return out, nil
}

// redact strips the API key from transport errors, whose *url.Error carries
// the full request URL.
func (c *Client) redact(err error) error {
	var ue *url.Error
	if c.apiKey == "" || !errors.As(err, &ue) {
		return err
	}
	ue.URL = strings.ReplaceAll(ue.URL, url.QueryEscape(c.apiKey), "REDACTED")
	ue.URL = strings.ReplaceAll(ue.URL, c.apiKey, "REDACTED")
	return err
}

// OpenWeatherMap API response types.

type response struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
		Pressure float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
}
