package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // 0.0–1.0 provider confidence score, 0 when unreported
}

// Found reports whether the provider matched the address.
func (r GeocodingResult) Found() bool {
	return r.Lat != 0 || r.Lon != 0
}

// Geocoder resolves a free-text address to coordinates.
// An empty result with a nil error means no match.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (GeocodingResult, error)
}
