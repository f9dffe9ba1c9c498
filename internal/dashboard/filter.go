// Package dashboard derives the dashboard views (KPIs, map markers, stats,
// exports) from a stored snapshot. Everything here is pure computation over
// the animals and shelters tables.
package dashboard

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/couchcryptid/shelter-data-etl/internal/domain"
)

// AllRegions is the region selector value meaning "no region filter".
const AllRegions = "전체"

// Sort orders for the shelter list.
const (
	SortName     = "name"
	SortCount    = "count"
	SortLongTerm = "long_term"
)

// DefaultCenter is the map center used when no shelter has coordinates (Seoul City Hall).
var DefaultCenter = domain.Geo{Lat: 37.5665, Lon: 126.9780}

// Filter selects a subset of the snapshot. Zero values disable each criterion.
type Filter struct {
	From    time.Time
	To      time.Time
	Query   string
	Sido    string
	Sigungu string
	Species []string
	Sort    string
}

// KPIs are the headline numbers of a view.
type KPIs struct {
	Shelters int `json:"shelters"`
	Animals  int `json:"animals"`
	LongTerm int `json:"long_term"`
	Adopted  int `json:"adopted"`
}

// View is the filtered snapshot.
type View struct {
	KPIs     KPIs                    `json:"kpis"`
	Center   domain.Geo              `json:"center"`
	Shelters []domain.ShelterSummary `json:"shelters"`
	Animals  []domain.AnimalRecord   `json:"animals"`
}

// EmptyView is the view shown when there is nothing to display.
func EmptyView() View {
	return View{
		Center:   DefaultCenter,
		Shelters: []domain.ShelterSummary{},
		Animals:  []domain.AnimalRecord{},
	}
}

// Apply filters animals by date, name, and species, keeps the shelters that
// still have animals, narrows them by region, and finally keeps the animals
// of the surviving shelters. Long-term and adopted KPIs sum the shelter rows.
func Apply(animals []domain.AnimalRecord, shelters []domain.ShelterSummary, f Filter) View {
	if len(animals) == 0 || len(shelters) == 0 {
		return EmptyView()
	}

	fold := cases.Fold()
	query := fold.String(strings.TrimSpace(f.Query))
	fromDay, toDay := dayKey(f.From), dayKey(f.To)
	dated := fromDay != "" || toDay != ""

	var kept []domain.AnimalRecord
	for _, a := range animals {
		if dated {
			if a.NoticeDate == nil {
				continue
			}
			day := dayKey(*a.NoticeDate)
			if (fromDay != "" && day < fromDay) || (toDay != "" && day > toDay) {
				continue
			}
		}
		if query != "" && !strings.Contains(fold.String(a.AnimalName), query) {
			continue
		}
		if len(f.Species) > 0 && !slices.Contains(f.Species, a.Species) {
			continue
		}
		kept = append(kept, a)
	}

	withAnimals := make(map[string]bool, len(kept))
	for _, a := range kept {
		withAnimals[a.ShelterName] = true
	}

	sido, sigungu := regionValue(f.Sido), regionValue(f.Sigungu)
	var prefix string
	switch {
	case sido != "" && sigungu != "":
		prefix = sido + " " + sigungu
	case sido != "":
		prefix = sido
	}

	view := View{Shelters: []domain.ShelterSummary{}, Animals: []domain.AnimalRecord{}}
	remaining := make(map[string]bool)
	for _, s := range shelters {
		if !withAnimals[s.Name] {
			continue
		}
		if prefix != "" && !strings.HasPrefix(s.Address, prefix) {
			continue
		}
		view.Shelters = append(view.Shelters, s)
		remaining[s.Name] = true
		view.KPIs.LongTerm += s.LongTerm
		view.KPIs.Adopted += s.Adopted
	}
	for _, a := range kept {
		if remaining[a.ShelterName] {
			view.Animals = append(view.Animals, a)
		}
	}

	view.KPIs.Shelters = len(remaining)
	view.KPIs.Animals = len(view.Animals)
	view.Center = center(view.Shelters)
	sortShelters(view.Shelters, f.Sort)
	return view
}

func regionValue(v string) string {
	v = strings.TrimSpace(v)
	if v == AllRegions {
		return ""
	}
	return v
}

// dayKey renders t as a Korean calendar day; the zero time is "".
func dayKey(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(domain.KST).Format(time.DateOnly)
}

// center averages the coordinates of the shelters that have them.
func center(shelters []domain.ShelterSummary) domain.Geo {
	var lat, lon float64
	n := 0
	for _, s := range shelters {
		if s.Geo == nil {
			continue
		}
		lat += s.Geo.Lat
		lon += s.Geo.Lon
		n++
	}
	if n == 0 {
		return DefaultCenter
	}
	return domain.Geo{Lat: lat / float64(n), Lon: lon / float64(n)}
}

func sortShelters(shelters []domain.ShelterSummary, key string) {
	switch key {
	case SortCount:
		slices.SortStableFunc(shelters, func(a, b domain.ShelterSummary) int { return b.Count - a.Count })
	case SortLongTerm:
		slices.SortStableFunc(shelters, func(a, b domain.ShelterSummary) int { return b.LongTerm - a.LongTerm })
	default:
		slices.SortStableFunc(shelters, func(a, b domain.ShelterSummary) int { return strings.Compare(a.Name, b.Name) })
	}
}
