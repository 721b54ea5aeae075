package openweather

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/water-quality-etl/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "owm-test-key"

func testClient(baseURL string) *Client {
	return NewClient(testAPIKey, baseURL, 5*time.Second, observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_CurrentConditions_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "25.3176", q.Get("lat"))
		assert.Equal(t, "82.9739", q.Get("lon"))
		assert.Equal(t, testAPIKey, q.Get("appid"))
		assert.Equal(t, "metric", q.Get("units"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"weather":[{"id":721,"main":"Haze","description":"haze"}],
			"main":{"temp":33.2,"feels_like":36.1,"pressure":1002,"humidity":48},
			"wind":{"speed":2.57,"deg":290},
			"name":"Varanasi"
		}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	got, err := c.CurrentConditions(context.Background(), 25.3176, 82.9739)
	require.NoError(t, err)

	assert.Equal(t, 33.2, got.Temperature)
	assert.Equal(t, 48.0, got.Humidity)
	assert.Equal(t, 1002.0, got.Pressure)
	assert.Equal(t, 2.57, got.WindSpeed)
	assert.Equal(t, "Haze", got.Summary)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.WeatherRequests.WithLabelValues("success")), 0)
}

func TestClient_CurrentConditions_NoWeatherArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"main":{"temp":20}}`))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).CurrentConditions(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Empty(t, got.Summary)
	assert.Equal(t, 20.0, got.Temperature)
}

func TestClient_CurrentConditions_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"cod":401,"message":"Invalid API key"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.CurrentConditions(context.Background(), 1, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.WeatherRequests.WithLabelValues("error")), 0)
}

func TestClient_CurrentConditions_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).CurrentConditions(context.Background(), 1, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestClient_CurrentConditions_TransportErrorRedactsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := testClient(url)
	_, err := c.CurrentConditions(context.Background(), 25.3176, 82.9739)

	require.Error(t, err)
	assert.NotContains(t, err.Error(), testAPIKey)
	assert.Contains(t, err.Error(), "REDACTED")
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.WeatherRequests.WithLabelValues("error")), 0)
}
