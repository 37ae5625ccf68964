// Package analytics derives aggregate views from a record collection. Every
// function is pure: inputs are never mutated and no state is retained.
package analytics

import (
	"sort"
	"strings"

	"carbonledger/pkg/domain"
)

// Total sums co2Kg over all records; 0 for an empty collection.
func Total(records []domain.Record) float64 {
	var sum float64
	for _, r := range records {
		sum += r.CO2Kg
	}
	return sum
}

// MonthlyAverage averages the per-month co2 sums over the months that have at
// least one record. Records with an unparseable date share one bucket.
func MonthlyAverage(records []domain.Record) float64 {
	if len(records) == 0 {
		return 0
	}
	sums := monthSums(records)
	var total float64
	for _, v := range sums {
		total += v
	}
	return total / float64(len(sums))
}

// HighestSource returns the record with the largest co2Kg. The first record in
// collection order wins ties; ok is false for an empty collection.
func HighestSource(records []domain.Record) (domain.Record, bool) {
	if len(records) == 0 {
		return domain.Record{}, false
	}
	best := records[0]
	for _, r := range records[1:] {
		if r.CO2Kg > best.CO2Kg {
			best = r
		}
	}
	return best, true
}

// Trend compares the co2Kg of the two latest records by date. Dates compare
// lexically and equal dates keep collection order. Only the last two points
// are considered.
func Trend(records []domain.Record) domain.Direction {
	if len(records) < 2 {
		return domain.DirectionNone
	}
	sorted := domain.CloneRecords(records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })
	prev, last := sorted[len(sorted)-2].CO2Kg, sorted[len(sorted)-1].CO2Kg
	switch {
	case last > prev:
		return domain.DirectionUp
	case last < prev:
		return domain.DirectionDown
	default:
		return domain.DirectionFlat
	}
}

// MonthTotal is one point of the monthly chart series.
type MonthTotal struct {
	Month   domain.Month `json:"-"`
	Label   string       `json:"month"`
	TotalKg float64      `json:"totalKg"`
}

// MonthlyTotals returns per-month co2 sums in chronological order. The
// unknown-date bucket, when present, comes first.
func MonthlyTotals(records []domain.Record) []MonthTotal {
	sums := monthSums(records)
	out := make([]MonthTotal, 0, len(sums))
	for m, total := range sums {
		out = append(out, MonthTotal{Month: m, Label: m.Label(), TotalKg: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

func monthSums(records []domain.Record) map[domain.Month]float64 {
	sums := make(map[domain.Month]float64)
	for _, r := range records {
		m, _ := domain.MonthOf(r.Date)
		sums[m] += r.CO2Kg
	}
	return sums
}

// CategoryTotal is the co2 sum of one category.
type CategoryTotal struct {
	Category domain.Category `json:"category"`
	TotalKg  float64         `json:"totalKg"`
	Count    int             `json:"count"`
}

// ByCategory sums co2 per category in domain.Categories order. Categories
// outside the closed set are ignored.
func ByCategory(records []domain.Record) []CategoryTotal {
	cats := domain.Categories()
	idx := make(map[domain.Category]int, len(cats))
	out := make([]CategoryTotal, len(cats))
	for i, c := range cats {
		idx[c] = i
		out[i].Category = c
	}
	for _, r := range records {
		i, ok := idx[r.Category]
		if !ok {
			continue
		}
		out[i].TotalKg += r.CO2Kg
		out[i].Count++
	}
	return out
}

// Summary bundles the dashboard figures.
type Summary struct {
	Count          int              `json:"count"`
	TotalKg        float64          `json:"totalKg"`
	MonthlyAverage float64          `json:"monthlyAverageKg"`
	Highest        *domain.Record   `json:"highestSource,omitempty"`
	Trend          domain.Direction `json:"trend"`
}

// Summarize computes every dashboard figure from one snapshot.
func Summarize(records []domain.Record) Summary {
	s := Summary{
		Count:          len(records),
		TotalKg:        Total(records),
		MonthlyAverage: MonthlyAverage(records),
		Trend:          Trend(records),
	}
	if h, ok := HighestSource(records); ok {
		s.Highest = &h
	}
	return s
}

// SortField selects the table ordering.
type SortField string

const (
	SortByDate SortField = "date"
	SortByCO2  SortField = "co2"
)

// AllCategories is the filter value matching every category.
const AllCategories = "All"

// Filter describes a table query. The zero value lists every record newest first.
type Filter struct {
	Category  string
	Search    string
	SortField SortField
	Ascending bool
}

// Query filters by category and case-insensitive activity substring, then
// stable-sorts by date or co2. The input slice is left untouched.
func Query(records []domain.Record, f Filter) []domain.Record {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]domain.Record, 0, len(records))
	for _, r := range records {
		if f.Category != "" && f.Category != AllCategories && string(r.Category) != f.Category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(r.Activity), search) {
			continue
		}
		out = append(out, r)
	}
	less := func(a, b domain.Record) bool { return a.Date < b.Date }
	if f.SortField == SortByCO2 {
		less = func(a, b domain.Record) bool { return a.CO2Kg < b.CO2Kg }
	}
	sort.SliceStable(out, func(i, j int) bool {
		if f.Ascending {
			return less(out[i], out[j])
		}
		return less(out[j], out[i])
	})
	return out
}
