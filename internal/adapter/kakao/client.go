// Package kakao geocodes Korean addresses with the Kakao Local address search API.
package kakao

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/shelter-data-etl/internal/domain"
	"github.com/couchcryptid/shelter-data-etl/internal/observability"
)

const provider = "kakao"

// Client implements domain.Geocoder using the Kakao Local API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Kakao geocoding client. ratePerSec caps outgoing requests.
func NewClient(apiKey string, timeout time.Duration, ratePerSec float64, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://dapi.kakao.com/v2/local/search/address.json",
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1),
		metrics: metrics,
		logger:  logger,
	}
}

// Geocode resolves an address to the coordinates of its first match.
// No match returns an empty result and a nil error.
func (c *Client) Geocode(ctx context.Context, address string) (domain.GeocodingResult, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return domain.GeocodingResult{}, eris.Wrap(err, "kakao: rate limit wait")
		}
	}

	u := c.baseURL + "?" + url.Values{"query": {address}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.GeocodingResult{}, eris.Wrap(err, "kakao: create request")
	}
	req.Header.Set("Authorization", "KakaoAK "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.observeDuration(start)
	if err != nil {
		c.countRequest("error")
		return domain.GeocodingResult{}, eris.Wrap(err, "kakao: geocode request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.countRequest("error")
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.GeocodingResult{}, eris.Errorf("kakao: API error: status %d: %s", resp.StatusCode, body)
	}

	var kr response
	if err := json.NewDecoder(resp.Body).Decode(&kr); err != nil {
		c.countRequest("error")
		return domain.GeocodingResult{}, eris.Wrap(err, "kakao: decode response")
	}

	if len(kr.Documents) == 0 {
		c.countRequest("empty")
		return domain.GeocodingResult{}, nil
	}

	doc := kr.Documents[0]
	lat, err := strconv.ParseFloat(doc.Y, 64)
	if err != nil {
		c.countRequest("error")
		return domain.GeocodingResult{}, eris.Wrapf(err, "kakao: parse latitude %q", doc.Y)
	}
	lon, err := strconv.ParseFloat(doc.X, 64)
	if err != nil {
		c.countRequest("error")
		return domain.GeocodingResult{}, eris.Wrapf(err, "kakao: parse longitude %q", doc.X)
	}

	c.countRequest("success")
	return domain.GeocodingResult{
		Lat:              lat,
		Lon:              lon,
		FormattedAddress: doc.AddressName,
		PlaceName:        doc.placeName(),
	}, nil
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

// Kakao API response types.

type response struct {
	Documents []document `json:"documents"`
}

type document struct {
	AddressName string       `json:"address_name"`
	X           string       `json:"x"` // longitude
	Y           string       `json:"y"` // latitude
	RoadAddress *roadAddress `json:"road_address"`
}

type roadAddress struct {
	BuildingName string `json:"building_name"`
}

func (d document) placeName() string {
	if d.RoadAddress != nil {
		return d.RoadAddress.BuildingName
	}
	return ""
}
