package domain

import "time"

// Aggregate groups records by shelter name and derives per-shelter counts.
// Output order follows the first appearance of each shelter in records.
// Coordinates are left unresolved; the Merger fills them.
func Aggregate(records []AnimalRecord, now time.Time) []ShelterSummary {
	if len(records) == 0 {
		return nil
	}

	index := make(map[string]int)
	groups := make([][]AnimalRecord, 0)
	for _, rec := range records {
		i, ok := index[rec.ShelterName]
		if !ok {
			i = len(groups)
			index[rec.ShelterName] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], rec)
	}

	out := make([]ShelterSummary, 0, len(groups))
	for _, group := range groups {
		out = append(out, summarize(group, now))
	}
	return out
}

func summarize(group []AnimalRecord, now time.Time) ShelterSummary {
	s := ShelterSummary{
		Name:    group[0].ShelterName,
		Count:   len(group),
		Species: modeSpecies(group),
	}

	for _, rec := range group {
		if rec.LongTerm(now) {
			s.LongTerm++
		}
		if rec.Adopted() {
			s.Adopted++
		}
		if s.Address == "" && rec.CareAddr != "" {
			s.Address = rec.CareAddr
		}
		if s.ImageURL == "" && rec.ImageURL != "" {
			s.ImageURL = rec.ImageURL
		}
	}
	s.Region = RegionOf(s.Address)
	return s
}

// modeSpecies returns the most frequent species, ties broken by first seen.
func modeSpecies(group []AnimalRecord) string {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, rec := range group {
		if rec.Species == "" {
			continue
		}
		if _, seen := counts[rec.Species]; !seen {
			order = append(order, rec.Species)
		}
		counts[rec.Species]++
	}

	best, bestCount := Unknown, 0
	for _, sp := range order {
		if counts[sp] > bestCount {
			best, bestCount = sp, counts[sp]
		}
	}
	return best
}
