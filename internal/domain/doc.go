// Package domain models shelter-animal adoption data published by the Korean
// Animal and Plant Quarantine Agency.
//
// # Data Sources
//
// Animal records arrive in two shapes. The public abandonment API
// (apis.data.go.kr/1543061/abandonmentPublicService_v2) returns XML items
// with camelCase field names (careNm, kindCd, noticeSdt, ...). The bulk
// export files (cat_info.json, dog_info.json) carry either the same camelCase
// keys or the snake_case names used by the destination tables. [Normalize]
// folds both into [AnimalRecord] through a fixed alias table.
//
// The shelter registry (shelter_v2) is fetched independently, per sido, and
// carries the authoritative address, phone and coordinates of each shelter.
//
// # Conventions
//
// Dates:
//
//	noticeSdt is a YYYYMMDD digit string in Korea Standard Time, e.g. "20240512".
//	The export schema may use ISO dates ("2024-05-12"). Anything else is
//	treated as unknown and the record is kept with a nil date.
//
// Lifecycle states:
//
//	processState is free text such as "보호중" (in care) or "종료(입양)"
//	(closed, adopted). Only the exact adopted literal counts as adopted.
//
// Unknown values:
//
//	"정보 없음" ([Unknown]) fills display fields the source did not provide.
//
// Regions:
//
//	The region of a shelter is the first whitespace-delimited token of its
//	address, which for Korean addresses is the sido ("서울특별시", "경기도").
//
// # Coordinates
//
// A nil [Geo] means unresolved. Registry coordinates win over anything
// derived; gaps are filled by a [Geocoder] at most once per distinct address
// per merge. See [Merger].
package domain
