package domain

import "strings"

// GeoSource records where a shelter's coordinates came from.
type GeoSource string

const (
	GeoSourceRegistry   GeoSource = "registry"
	GeoSourceGeocoded   GeoSource = "geocoded"
	GeoSourceUnresolved GeoSource = "unresolved"
)

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ShelterSummary is one row of the shelters table: aggregated animal counts
// merged with registry details.
type ShelterSummary struct {
	Name        string    `json:"shelter_name"`
	Address     string    `json:"care_addr,omitempty"`
	Region      string    `json:"region"`
	Geo         *Geo      `json:"geo,omitempty"`
	GeoSource   GeoSource `json:"geo_source,omitempty"`
	Count       int       `json:"count"`
	LongTerm    int       `json:"long_term"`
	Adopted     int       `json:"adopted"`
	Species     string    `json:"species,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	RegNo       string    `json:"care_reg_no,omitempty"`
	Phone       string    `json:"care_tel,omitempty"`
	DataStdDate string    `json:"data_std_dt,omitempty"`
}

// RegistryEntry is a shelter as listed by the registry API.
type RegistryEntry struct {
	Name        string
	RegNo       string
	Phone       string
	Address     string
	Geo         *Geo
	DataStdDate string
}

// Region is a sido or sigungu entry from the region lookup API.
type Region struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	ParentCode string `json:"parent_code,omitempty"`
}

// Kind is a species kind from the kind lookup API.
type Kind struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Upkind codes accepted by the abandonment API.
const (
	UpkindDog   = "417000"
	UpkindCat   = "422400"
	UpkindOther = "429900"
)

// Upkinds lists every upkind code in fetch order.
var Upkinds = []string{UpkindDog, UpkindCat, UpkindOther}

// RegionOf returns the first whitespace-delimited token of addr, or Unknown.
func RegionOf(addr string) string {
	fields := strings.Fields(addr)
	if len(fields) == 0 {
		return Unknown
	}
	return fields[0]
}
