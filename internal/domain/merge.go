package domain

import (
	"context"
	"log/slog"
)

// MergeOptions tunes Merger behavior.
type MergeOptions struct {
	// DefaultUnresolvedToOrigin stores (0, 0) for shelters whose address could
	// not be geocoded instead of leaving them unresolved.
	DefaultUnresolvedToOrigin bool
}

// MergeStats describes what one Merge call did.
type MergeStats struct {
	Joined         int // shelters present in both inputs
	AnimalsOnly    int
	RegistryOnly   int
	GeocodeLookups int // distinct addresses sent to the geocoder
	Geocoded       int // shelters whose coordinates came from the geocoder
	Unresolved     int // shelters left without coordinates
}

// Merger combines aggregated shelters with the shelter registry.
type Merger struct {
	geocoder Geocoder
	logger   *slog.Logger
	opts     MergeOptions
}

// NewMerger creates a Merger. A nil geocoder leaves coordinate gaps unresolved.
func NewMerger(geocoder Geocoder, logger *slog.Logger, opts MergeOptions) *Merger {
	return &Merger{geocoder: geocoder, logger: logger, opts: opts}
}

// Merge full-outer-joins summaries and registry on exact shelter name.
// Registry address and coordinates win; remaining gaps are geocoded once per
// distinct address. Aggregated rows come first in input order, followed by
// registry-only rows in registry order. Duplicate registry names keep the
// first entry.
func (m *Merger) Merge(ctx context.Context, summaries []ShelterSummary, registry []RegistryEntry) ([]ShelterSummary, MergeStats) {
	var stats MergeStats

	byName := make(map[string]int, len(registry))
	entries := make([]RegistryEntry, 0, len(registry))
	for _, e := range registry {
		if e.Name == "" {
			continue
		}
		if _, dup := byName[e.Name]; dup {
			continue
		}
		byName[e.Name] = len(entries)
		entries = append(entries, e)
	}

	used := make([]bool, len(entries))
	out := make([]ShelterSummary, 0, len(summaries)+len(entries))

	for _, s := range summaries {
		i, ok := byName[s.Name]
		if !ok {
			stats.AnimalsOnly++
			out = append(out, s)
			continue
		}
		used[i] = true
		stats.Joined++
		out = append(out, applyRegistry(s, entries[i]))
	}

	for i, e := range entries {
		if used[i] {
			continue
		}
		stats.RegistryOnly++
		out = append(out, applyRegistry(ShelterSummary{Name: e.Name}, e))
	}

	lookup := newAddressLookup(m.geocoder, m.logger)
	for i := range out {
		s := &out[i]
		if s.Geo != nil {
			if s.GeoSource == "" {
				s.GeoSource = GeoSourceRegistry
			}
			continue
		}
		if geo := lookup.resolve(ctx, s.Address); geo != nil {
			g := *geo
			s.Geo = &g
			s.GeoSource = GeoSourceGeocoded
			stats.Geocoded++
			continue
		}
		stats.Unresolved++
		s.GeoSource = GeoSourceUnresolved
		if m.opts.DefaultUnresolvedToOrigin {
			s.Geo = &Geo{}
		}
	}
	stats.GeocodeLookups = lookup.calls

	return out, stats
}

// applyRegistry overlays registry details onto a summary.
func applyRegistry(s ShelterSummary, e RegistryEntry) ShelterSummary {
	if e.Address != "" {
		s.Address = e.Address
	}
	if e.Geo != nil {
		g := *e.Geo
		s.Geo = &g
		s.GeoSource = GeoSourceRegistry
	}
	s.RegNo = e.RegNo
	s.Phone = e.Phone
	s.DataStdDate = e.DataStdDate
	s.Region = RegionOf(s.Address)
	if s.Species == "" {
		s.Species = Unknown
	}
	return s
}
