package dashboard

import "github.com/couchcryptid/shelter-data-etl/internal/domain"

// ShelterAnimals lists the animals of one shelter, in stored order.
func ShelterAnimals(animals []domain.AnimalRecord, shelter string) []domain.AnimalRecord {
	out := []domain.AnimalRecord{}
	for _, a := range animals {
		if a.ShelterName == shelter {
			out = append(out, a)
		}
	}
	return out
}

// Favorites looks up animals by desertion number, in the order of ids.
// Unknown and empty ids are skipped.
func Favorites(animals []domain.AnimalRecord, ids []string) []domain.AnimalRecord {
	byID := make(map[string]domain.AnimalRecord, len(animals))
	for _, a := range animals {
		if a.DesertionNo == "" {
			continue
		}
		if _, dup := byID[a.DesertionNo]; !dup {
			byID[a.DesertionNo] = a
		}
	}

	out := []domain.AnimalRecord{}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if a, ok := byID[id]; ok {
			out = append(out, a)
		}
	}
	return out
}
