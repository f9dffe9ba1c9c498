package domain

import (
	"strings"
	"time"
)

// Canonical field names, matching the animals table columns.
const (
	FieldDesertionNo  = "desertion_no"
	FieldShelterName  = "shelter_name"
	FieldAnimalName   = "animal_name"
	FieldSpecies      = "species"
	FieldAge          = "age"
	FieldImageURL     = "image_url"
	FieldPersonality  = "personality"
	FieldStory        = "story"
	FieldNoticeDate   = "notice_date"
	FieldSex          = "sex"
	FieldProcessState = "process_state"
	FieldCareAddr     = "care_addr"
)

// fieldAliases maps each canonical field to the source keys that carry it,
// in priority order. The API schema comes first.
var fieldAliases = map[string][]string{
	FieldDesertionNo:  {"desertionNo", FieldDesertionNo},
	FieldShelterName:  {"careNm", FieldShelterName},
	FieldAnimalName:   {FieldAnimalName},
	FieldSpecies:      {"kindCd", "kindFullNm", FieldSpecies},
	FieldAge:          {FieldAge},
	FieldImageURL:     {"popfile", "popfile1", FieldImageURL},
	FieldPersonality:  {FieldPersonality},
	FieldStory:        {"specialMark", FieldStory},
	FieldNoticeDate:   {"noticeSdt", FieldNoticeDate},
	FieldSex:          {"sexCd", FieldSex},
	FieldProcessState: {"processState", FieldProcessState},
	FieldCareAddr:     {"careAddr", FieldCareAddr},
}

// noticeDateLayouts are tried in order when parsing a notice date.
var noticeDateLayouts = []string{"20060102", "2006-01-02", time.RFC3339}

// KST is the zone notice dates are published in.
var KST = time.FixedZone("KST", 9*60*60)

// Get returns the trimmed value of the first non-empty alias of field.
func (r RawRecord) Get(field string) (string, bool) {
	for _, key := range fieldAliases[field] {
		if v := strings.TrimSpace(r[key]); v != "" {
			return v, true
		}
	}
	return "", false
}

// Normalize folds raw records from either source schema into canonical
// AnimalRecords. Records without a shelter name are dropped; malformed fields
// are nulled and the record is kept.
func Normalize(raws []RawRecord) []AnimalRecord {
	out := make([]AnimalRecord, 0, len(raws))
	for _, raw := range raws {
		rec, ok := normalizeOne(raw)
		if !ok {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func normalizeOne(raw RawRecord) (AnimalRecord, bool) {
	shelter, ok := raw.Get(FieldShelterName)
	if !ok {
		return AnimalRecord{}, false
	}

	rec := AnimalRecord{
		ShelterName:  shelter,
		DesertionNo:  valueOr(raw, FieldDesertionNo, ""),
		Species:      valueOr(raw, FieldSpecies, Unknown),
		Age:          valueOr(raw, FieldAge, Unknown),
		ImageURL:     valueOr(raw, FieldImageURL, ""),
		Personality:  valueOr(raw, FieldPersonality, Unknown),
		Story:        valueOr(raw, FieldStory, ""),
		Sex:          valueOr(raw, FieldSex, Unknown),
		ProcessState: valueOr(raw, FieldProcessState, Unknown),
		CareAddr:     valueOr(raw, FieldCareAddr, ""),
	}

	if s, ok := raw.Get(FieldNoticeDate); ok {
		rec.NoticeDate = parseNoticeDate(s)
	}

	rec.AnimalName = displayName(raw)
	return rec, true
}

// displayName uses an explicit name when present, otherwise "species (sex)".
func displayName(raw RawRecord) string {
	if name, ok := raw.Get(FieldAnimalName); ok {
		return name
	}
	species, hasSpecies := raw.Get(FieldSpecies)
	sex, hasSex := raw.Get(FieldSex)
	if hasSpecies && hasSex {
		return species + " (" + sex + ")"
	}
	return Unknown
}

func valueOr(raw RawRecord, field, fallback string) string {
	if v, ok := raw.Get(field); ok {
		return v
	}
	return fallback
}

// parseNoticeDate returns nil for anything that is not a recognized date.
func parseNoticeDate(s string) *time.Time {
	for _, layout := range noticeDateLayouts {
		t, err := time.ParseInLocation(layout, s, KST)
		if err == nil {
			return &t
		}
	}
	return nil
}
