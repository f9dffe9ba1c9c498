package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/shelter-data-etl/internal/domain"
	"github.com/couchcryptid/shelter-data-etl/internal/observability"
)

const provider = "mapbox"

// Client implements domain.Geocoder using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client. ratePerSec caps outgoing requests.
func NewClient(token string, timeout time.Duration, ratePerSec float64, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.mapbox.com/geocoding/v5/mapbox.places",
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1),
		metrics: metrics,
		logger:  logger,
	}
}

// Geocode converts a Korean street or lot address to coordinates.
func (c *Client) Geocode(ctx context.Context, address string) (domain.GeocodingResult, error) {
	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(address))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"country":      {"kr"},
		"language":     {"ko"},
		"types":        {"address,poi,place,locality"},
	}

	return c.doRequest(ctx, u+"?"+params.Encode())
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.GeocodingResult, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return domain.GeocodingResult{}, eris.Wrap(err, "mapbox: rate limit wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.GeocodingResult{}, eris.Wrap(err, "mapbox: create request")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.observeDuration(start)
	if err != nil {
		c.countRequest("error")
		return domain.GeocodingResult{}, eris.Wrap(err, "mapbox: geocode request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.countRequest("error")
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.GeocodingResult{}, eris.Errorf("mapbox: API error: status %d: %s", resp.StatusCode, body)
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		c.countRequest("error")
		return domain.GeocodingResult{}, eris.Wrap(err, "mapbox: decode response")
	}

	if len(mapboxResp.Features) == 0 {
		c.countRequest("empty")
		return domain.GeocodingResult{}, nil
	}

	f := mapboxResp.Features[0]
	result := domain.GeocodingResult{
		FormattedAddress: f.PlaceName,
		PlaceName:        f.Text,
		Confidence:       f.Relevance,
	}
	if len(f.Center) == 2 {
		result.Lon = f.Center[0]
		result.Lat = f.Center[1]
	}
	c.countRequest("success")
	return result, nil
}

func (c *Client) countRequest(outcome string) {
	if c.metrics != nil {
		c.metrics.GeocodeRequests.WithLabelValues(provider, outcome).Inc()
	}
}

func (c *Client) observeDuration(start time.Time) {
	if c.metrics != nil {
		c.metrics.GeocodeAPIDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	}
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}
