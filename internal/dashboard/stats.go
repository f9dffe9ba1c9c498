package dashboard

import (
	"cmp"
	"slices"

	"github.com/couchcryptid/shelter-data-etl/internal/domain"
)

// Bucket is one bar or slice of a chart.
type Bucket struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// Stats holds the chart series of a view.
type Stats struct {
	// BySpecies sums animal counts per shelter main species.
	BySpecies []Bucket `json:"by_species"`
	// LongTermBySido sums long-term counts per sido (first address token).
	LongTermBySido []Bucket `json:"long_term_by_sido"`
	// MultiRegion reports whether more than one sido is present, which is
	// when a regional comparison is meaningful.
	MultiRegion bool `json:"multi_region"`
}

// ComputeStats builds the chart series from shelter rows. Buckets are
// ordered by value descending, then label.
func ComputeStats(shelters []domain.ShelterSummary) Stats {
	species := make(map[string]int)
	sido := make(map[string]int)
	for _, s := range shelters {
		label := s.Species
		if label == "" {
			label = domain.Unknown
		}
		species[label] += s.Count
		sido[domain.RegionOf(s.Address)] += s.LongTerm
	}
	return Stats{
		BySpecies:      buckets(species),
		LongTermBySido: buckets(sido),
		MultiRegion:    len(sido) > 1,
	}
}

func buckets(m map[string]int) []Bucket {
	out := make([]Bucket, 0, len(m))
	for label, v := range m {
		out = append(out, Bucket{Label: label, Value: v})
	}
	slices.SortFunc(out, func(a, b Bucket) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})
	return out
}
