package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_APISchema(t *testing.T) {
	raws := []RawRecord{{
		"desertionNo":  "448548202400512",
		"careNm":       "서울동물복지지원센터",
		"kindCd":       "[개] 믹스견",
		"age":          "2022(년생)",
		"popfile":      "http://www.animal.go.kr/files/shelter/2024/05/202405121205.jpg",
		"specialMark":  "온순함",
		"sexCd":        "M",
		"noticeSdt":    "20240512",
		"processState": "보호중",
		"careAddr":     "서울특별시 마포구 월드컵로 243-60",
	}}

	got := Normalize(raws)
	require.Len(t, got, 1)
	rec := got[0]

	assert.Equal(t, "448548202400512", rec.DesertionNo)
	assert.Equal(t, "서울동물복지지원센터", rec.ShelterName)
	assert.Equal(t, "[개] 믹스견", rec.Species)
	assert.Equal(t, "[개] 믹스견 (M)", rec.AnimalName)
	assert.Equal(t, "2022(년생)", rec.Age)
	assert.Equal(t, "온순함", rec.Story)
	assert.Equal(t, Unknown, rec.Personality)
	assert.Equal(t, "보호중", rec.ProcessState)
	assert.Equal(t, "서울특별시 마포구 월드컵로 243-60", rec.CareAddr)
	require.NotNil(t, rec.NoticeDate)
	assert.Equal(t, time.Date(2024, 5, 12, 0, 0, 0, 0, KST), *rec.NoticeDate)
}

func TestNormalize_ExportSchema(t *testing.T) {
	raws := []RawRecord{{
		"desertion_no":  "A-1",
		"shelter_name":  "부산 보호소",
		"animal_name":   "콩이",
		"species":       "개",
		"personality":   "활발함",
		"notice_date":   "2024-05-01",
		"process_state": "종료(입양)",
	}}

	got := Normalize(raws)
	require.Len(t, got, 1)
	rec := got[0]

	assert.Equal(t, "콩이", rec.AnimalName)
	assert.Equal(t, "활발함", rec.Personality)
	assert.Equal(t, Unknown, rec.Sex)
	assert.Equal(t, Unknown, rec.Age)
	assert.True(t, rec.Adopted())
	require.NotNil(t, rec.NoticeDate)
	assert.Equal(t, 2024, rec.NoticeDate.Year())
}

func TestNormalize_UnparseableDateIsNil(t *testing.T) {
	raws := []RawRecord{{"careNm": "A", "noticeSdt": "2024/05/12"}}

	got := Normalize(raws)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].NoticeDate)
}

func TestNormalize_DisplayNameNeedsSpeciesAndSex(t *testing.T) {
	got := Normalize([]RawRecord{{"careNm": "A", "kindCd": "[고양이] 코리안숏헤어"}})
	require.Len(t, got, 1)
	assert.Equal(t, Unknown, got[0].AnimalName)
}

func TestNormalize_DropsRecordsWithoutShelter(t *testing.T) {
	raws := []RawRecord{
		{"desertionNo": "1", "kindCd": "[개] 진돗개"},
		{"desertionNo": "2", "careNm": "   "},
		{"desertionNo": "3", "careNm": "B"},
	}

	got := Normalize(raws)
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].DesertionNo)
}

func TestNormalize_NoShelterFieldAnywhere(t *testing.T) {
	raws := []RawRecord{{"desertionNo": "1"}, {"desertionNo": "2"}}
	assert.Empty(t, Normalize(raws))
	assert.Empty(t, Normalize(nil))
}

func TestNormalize_APIKeyWinsOverExportKey(t *testing.T) {
	got := Normalize([]RawRecord{{"careNm": "API", "shelter_name": "EXPORT"}})
	require.Len(t, got, 1)
	assert.Equal(t, "API", got[0].ShelterName)
}
