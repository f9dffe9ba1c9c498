package domain

import "time"

const (
	// Unknown is the display sentinel for fields the source did not provide.
	Unknown = "정보 없음"

	// StateAdopted is the lifecycle state of an animal whose case closed by adoption.
	StateAdopted = "종료(입양)"

	// LongTermThreshold is how long an animal must have been posted to count as long-term.
	LongTermThreshold = 30 * 24 * time.Hour
)

// RawRecord is one source row as decoded from the API or a bulk export file.
// Keys are the source's own field names.
type RawRecord map[string]string

// AnimalRecord is the canonical animal shape produced by Normalize.
type AnimalRecord struct {
	DesertionNo  string     `json:"desertion_no"`
	ShelterName  string     `json:"shelter_name"`
	AnimalName   string     `json:"animal_name"`
	Species      string     `json:"species"`
	Age          string     `json:"age"`
	ImageURL     string     `json:"image_url,omitempty"`
	Personality  string     `json:"personality"`
	Story        string     `json:"story,omitempty"`
	NoticeDate   *time.Time `json:"notice_date,omitempty"`
	Sex          string     `json:"sex"`
	ProcessState string     `json:"process_state"`
	CareAddr     string     `json:"care_addr,omitempty"`
}

// Adopted reports whether the animal's case closed by adoption.
func (a AnimalRecord) Adopted() bool {
	return a.ProcessState == StateAdopted
}

// LongTerm reports whether the animal was posted more than LongTermThreshold before now.
// Records without a notice date are never long-term.
func (a AnimalRecord) LongTerm(now time.Time) bool {
	if a.NoticeDate == nil {
		return false
	}
	return a.NoticeDate.Before(now.Add(-LongTermThreshold))
}
