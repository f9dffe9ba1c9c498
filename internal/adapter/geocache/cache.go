// Package geocache decorates a geocoder with a process-wide LRU cache so that
// periodic runs do not re-resolve addresses seen in earlier runs.
package geocache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotisserie/eris"

	"github.com/couchcryptid/shelter-data-etl/internal/domain"
	"github.com/couchcryptid/shelter-data-etl/internal/observability"
)

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *lru.Cache[string, domain.GeocodingResult]
	metrics *observability.Metrics
}

// New creates a cache decorator around a geocoder holding at most maxEntries results.
func New(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) (*CachedGeocoder, error) {
	cache, err := lru.New[string, domain.GeocodingResult](maxEntries)
	if err != nil {
		return nil, eris.Wrap(err, "geocache: create lru")
	}
	return &CachedGeocoder{inner: inner, cache: cache, metrics: metrics}, nil
}

func (c *CachedGeocoder) Geocode(ctx context.Context, address string) (domain.GeocodingResult, error) {
	if result, ok := c.cache.Get(address); ok {
		c.count("hit")
		return result, nil
	}
	c.count("miss")

	result, err := c.inner.Geocode(ctx, address)
	if err != nil {
		return result, err
	}
	// Only matches are cached so a later run can retry addresses that missed.
	if result.Found() {
		c.cache.Add(address, result)
	}
	return result, nil
}

// Len returns the number of cached addresses.
func (c *CachedGeocoder) Len() int {
	return c.cache.Len()
}

func (c *CachedGeocoder) count(result string) {
	if c.metrics != nil {
		c.metrics.GeocodeCache.WithLabelValues(result).Inc()
	}
}
