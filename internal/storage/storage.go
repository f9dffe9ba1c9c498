// Package storage defines the snapshot store shared by the Postgres and
// SQLite backends: table layout, column order, and the Store contract.
package storage

import (
	"context"
	"time"

	"github.com/couchcryptid/shelter-data-etl/internal/domain"
)

// Table names.
const (
	TableShelters = "shelters"
	TableAnimals  = "animals"
)

// ShelterColumns is the column order of the shelters table.
var ShelterColumns = []string{
	"shelter_name", "care_addr", "region", "lat", "lon", "geo_source",
	"count", "long_term", "adopted", "species", "image_url",
	"care_reg_no", "care_tel", "data_std_dt",
}

// AnimalColumns is the column order of the animals table.
var AnimalColumns = []string{
	"desertion_no", "shelter_name", "animal_name", "species", "age",
	"image_url", "personality", "story", "notice_date", "sex",
	"process_state", "care_addr",
}

// DateLayout is the storage format of animal notice dates.
const DateLayout = "2006-01-02"

// Store persists the latest snapshot. ReplaceSnapshot replaces each table
// wholesale; an empty slice leaves its table untouched.
type Store interface {
	Migrate(ctx context.Context) error
	ReplaceSnapshot(ctx context.Context, animals []domain.AnimalRecord, shelters []domain.ShelterSummary) error
	Shelters(ctx context.Context) ([]domain.ShelterSummary, error)
	Animals(ctx context.Context) ([]domain.AnimalRecord, error)
	Columns(ctx context.Context, table string) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}

// LatLon splits g into nullable column values.
func LatLon(g *domain.Geo) (lat, lon *float64) {
	if g == nil {
		return nil, nil
	}
	la, lo := g.Lat, g.Lon
	return &la, &lo
}

// GeoFrom rebuilds a coordinate pair from nullable columns.
func GeoFrom(lat, lon *float64) *domain.Geo {
	if lat == nil || lon == nil {
		return nil
	}
	return &domain.Geo{Lat: *lat, Lon: *lon}
}

// ParseDate parses a stored notice date. Empty or malformed values are nil.
func ParseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{DateLayout, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, domain.KST); err == nil {
			return &t
		}
	}
	return nil
}

// FormatDate renders a notice date for storage. Nil stays nil.
func FormatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.In(domain.KST).Format(DateLayout)
	return &s
}
