package domain

import (
	"context"
	"log/slog"
)

// addressLookup resolves addresses through a geocoder, remembering every
// answer (misses included) so each distinct address is looked up once.
type addressLookup struct {
	geocoder Geocoder
	logger   *slog.Logger
	cache    map[string]*Geo
	calls    int
}

func newAddressLookup(geocoder Geocoder, logger *slog.Logger) *addressLookup {
	return &addressLookup{
		geocoder: geocoder,
		logger:   logger,
		cache:    make(map[string]*Geo),
	}
}

// resolve returns the coordinates for address, or nil when unresolved.
// Lookup failures are logged and treated as no match (graceful degradation).
func (l *addressLookup) resolve(ctx context.Context, address string) *Geo {
	if l.geocoder == nil || address == "" {
		return nil
	}
	if geo, ok := l.cache[address]; ok {
		return geo
	}

	l.calls++
	result, err := l.geocoder.Geocode(ctx, address)
	if err != nil {
		l.logger.Warn("geocoding failed", "address", address, "error", err)
		l.cache[address] = nil
		return nil
	}
	if !result.Found() {
		l.logger.Info("no geocoding match", "address", address)
		l.cache[address] = nil
		return nil
	}

	geo := &Geo{Lat: result.Lat, Lon: result.Lon}
	l.cache[address] = geo
	return geo
}
