package mapbox

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/shelter-data-etl/internal/observability"
)

const (
	testToken         = "test-token"
	testAddress       = "서울특별시 마포구 월드컵로 243-60"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string, metrics *observability.Metrics) *Client {
	return &Client{
		token:      testToken,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		metrics:    metrics,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_Geocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, testAddress)
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "kr", r.URL.Query().Get("country"))
		assert.Equal(t, testToken, r.URL.Query().Get("access_token"))

		resp := response{
			Features: []feature{
				{
					Center:    []float64{126.8966, 37.5683},
					PlaceName: "월드컵로 243-60, 마포구, 서울특별시, 대한민국",
					Text:      "월드컵로",
					Relevance: 0.9,
				},
			},
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	metrics := observability.NewMetricsForTesting()
	c := testClient(srv.URL, metrics)
	result, err := c.Geocode(context.Background(), testAddress)
	require.NoError(t, err)

	assert.True(t, result.Found())
	assert.Equal(t, 37.5683, result.Lat)
	assert.Equal(t, 126.8966, result.Lon)
	assert.Equal(t, "월드컵로", result.PlaceName)
	assert.Equal(t, 0.9, result.Confidence)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.GeocodeRequests.WithLabelValues(provider, "success")))
}

func TestClient_Geocode_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(response{Features: []feature{}}))
	}))
	defer srv.Close()

	metrics := observability.NewMetricsForTesting()
	c := testClient(srv.URL, metrics)
	result, err := c.Geocode(context.Background(), "없는 주소")
	require.NoError(t, err)
	assert.False(t, result.Found())
	assert.Empty(t, result.FormattedAddress)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.GeocodeRequests.WithLabelValues(provider, "empty")))
}

func TestClient_Geocode_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Not Authorized"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, nil)
	c.token = "bad-token"

	_, err := c.Geocode(context.Background(), testAddress)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestClient_Geocode_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL, nil)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}

	_, err := c.Geocode(context.Background(), testAddress)
	require.Error(t, err)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(testToken, 3*time.Second, 10, nil, slog.Default())

	assert.Equal(t, "https://api.mapbox.com/geocoding/v5/mapbox.places", c.baseURL)
	assert.Equal(t, 3*time.Second, c.httpClient.Timeout)
	require.NotNil(t, c.limiter)
}
