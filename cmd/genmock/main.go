// Command genmock writes deterministic cat_info.json and dog_info.json
// fixtures in the local export schema, then runs them through the domain
// normalizer and aggregator so the printed stats can seed test assertions.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock -animals 120 -seed 7
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/shelter-data-etl/internal/domain"
)

// asOf is the fixed "now" used for notice dates and long-term counts.
var asOf = time.Date(2024, time.June, 15, 9, 0, 0, 0, domain.KST)

type shelterDef struct {
	name string
	addr string
}

var shelters = []shelterDef{
	{"강남구동물보호센터", "서울특별시 강남구 역삼로 1"},
	{"마포구동물보호센터", "서울특별시 마포구 월드컵로 212"},
	{"해운대동물보호소", "부산광역시 해운대구 좌동순환로 20"},
	{"수원시동물보호센터", "경기도 수원시 권선구 서호로 89"},
	{"제주동물보호센터", "제주특별자치도 제주시 용강동 1"},
}

var (
	dogKinds  = []string{"[개] 믹스견", "[개] 진돗개", "[개] 푸들", "[개] 말티즈"}
	catKinds  = []string{"[고양이] 코리안숏헤어", "[고양이] 페르시안"}
	states    = []string{"보호중", "보호중", "보호중", "종료(입양)", "종료(반환)"}
	sexes     = []string{"M", "F", "Q"}
	dogNames  = []string{"초코", "보리", "콩이", "해피", "정보 없음"}
	catNames  = []string{"나비", "치즈", "모모", "정보 없음"}
	traits    = []string{"온순함", "활발함", "겁이 많음", "사람을 좋아함"}
	maxPosted = 90 // days before asOf
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory for cat_info.json and dog_info.json")
	n := flag.Int("animals", 120, "number of animals per file")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *out == "" || *n <= 0 {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x5eed))
	dogs := generate(rng, "D", *n, dogKinds, dogNames)
	cats := generate(rng, "C", *n, catKinds, catNames)

	if err := writeJSON(filepath.Join(*out, "dog_info.json"), dogs); err != nil {
		return fmt.Errorf("writing dog fixture: %w", err)
	}
	if err := writeJSON(filepath.Join(*out, "cat_info.json"), cats); err != nil {
		return fmt.Errorf("writing cat fixture: %w", err)
	}
	log.Printf("wrote %d dogs and %d cats to %s", len(dogs), len(cats), *out)

	raws := make([]domain.RawRecord, 0, len(dogs)+len(cats))
	for _, rec := range slices.Concat(dogs, cats) {
		raws = append(raws, domain.RawRecord(rec))
	}
	printStats(raws, clockwork.NewFakeClockAt(asOf))
	return nil
}

func generate(rng *rand.Rand, prefix string, n int, kinds, names []string) []map[string]string {
	recs := make([]map[string]string, 0, n)
	for i := range n {
		s := shelters[rng.IntN(len(shelters))]
		posted := asOf.AddDate(0, 0, -rng.IntN(maxPosted))
		recs = append(recs, map[string]string{
			domain.FieldDesertionNo:  fmt.Sprintf("%s%06d", prefix, i+1),
			domain.FieldShelterName:  s.name,
			domain.FieldAnimalName:   pick(rng, names),
			domain.FieldSpecies:      pick(rng, kinds),
			domain.FieldAge:          fmt.Sprintf("%d(년생)", 2015+rng.IntN(10)),
			domain.FieldPersonality:  pick(rng, traits),
			domain.FieldNoticeDate:   posted.Format(time.DateOnly),
			domain.FieldSex:          pick(rng, sexes),
			domain.FieldProcessState: pick(rng, states),
			domain.FieldCareAddr:     s.addr,
		})
	}
	return recs
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.IntN(len(values))]
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(raws []domain.RawRecord, clock clockwork.Clock) {
	animals := domain.Normalize(raws)
	summaries := domain.Aggregate(animals, clock.Now())

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Raw: %d, normalized: %d, shelters: %d\n", len(raws), len(animals), len(summaries))

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Count > summaries[j].Count })
	var longTerm, adopted int
	for _, s := range summaries {
		fmt.Printf("  %s (%s): count=%d long_term=%d adopted=%d species=%s\n",
			s.Name, s.Region, s.Count, s.LongTerm, s.Adopted, s.Species)
		longTerm += s.LongTerm
		adopted += s.Adopted
	}
	fmt.Printf("Long-term: %d, adopted: %d\n", longTerm, adopted)
}
