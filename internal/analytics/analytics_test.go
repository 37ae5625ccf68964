package analytics

import (
	"math"
	"testing"

	"carbonledger/pkg/domain"
)

func rec(id string, cat domain.Category, date string, co2 float64) domain.Record {
	return domain.Record{ID: id, Category: cat, Activity: "activity " + id, Date: date, CO2Kg: co2}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestTotal(t *testing.T) {
	if Total(nil) != 0 {
		t.Fatalf("expected 0 for empty collection")
	}
	records := []domain.Record{rec("a", domain.CategoryTransport, "2024-01-01", 2.25), rec("b", domain.CategoryEnergy, "2024-01-02", 38)}
	if got := Total(records); !near(got, 40.25) {
		t.Fatalf("expected 40.25, got %v", got)
	}
}

func TestMonthlyAverageOverPopulatedMonths(t *testing.T) {
	if MonthlyAverage(nil) != 0 {
		t.Fatalf("expected 0 for empty collection")
	}
	records := []domain.Record{
		rec("a", domain.CategoryFood, "2024-01-03T00:00:00Z", 1),
		rec("b", domain.CategoryFood, "2024-01-20T00:00:00Z", 2),
		rec("c", domain.CategoryFood, "2024-01-31", 3),
		rec("d", domain.CategoryWaste, "2024-03-05T10:00:00.000Z", 10),
	}
	// January sums to 6, March to 10; February is absent, not zero.
	if got := MonthlyAverage(records); !near(got, 8) {
		t.Fatalf("expected (6+10)/2 = 8, got %v", got)
	}
}

func TestMonthlyAverageUnknownDatesShareBucket(t *testing.T) {
	records := []domain.Record{
		rec("a", domain.CategoryFood, "yesterday", 4),
		rec("b", domain.CategoryFood, "", 2),
		rec("c", domain.CategoryFood, "2024-02-01", 3),
	}
	if got := MonthlyAverage(records); !near(got, 4.5) {
		t.Fatalf("expected (6+3)/2 = 4.5, got %v", got)
	}
}

func TestMonthlyFiguresAcceptPartialTimestamps(t *testing.T) {
	records := []domain.Record{
		rec("a", domain.CategoryFood, "2024-01-15T10:00:00", 5),
		rec("b", domain.CategoryFood, "2024-02-15T10:00:00", 8),
		rec("c", domain.CategoryFood, "2024-03-15T10:00Z", 2),
	}
	if got := MonthlyAverage(records); !near(got, 5) {
		t.Fatalf("expected 5, got %v", got)
	}
	series := MonthlyTotals(records)
	if len(series) != 3 || series[0].Label != "Jan 2024" || series[2].Label != "Mar 2024" {
		t.Fatalf("unexpected series %+v", series)
	}
}

func TestHighestSourceFirstWinsTies(t *testing.T) {
	if _, ok := HighestSource(nil); ok {
		t.Fatalf("expected no highest source for empty collection")
	}
	records := []domain.Record{
		rec("low", domain.CategoryFood, "2024-01-01", 1),
		rec("first", domain.CategoryEnergy, "2024-01-02", 9),
		rec("second", domain.CategoryWaste, "2024-01-03", 9),
	}
	h, ok := HighestSource(records)
	if !ok || h.ID != "first" {
		t.Fatalf("expected first tied record, got %+v", h)
	}
}

func TestTrend(t *testing.T) {
	jan := rec("jan", domain.CategoryFood, "2024-01-15", 5)
	feb := rec("feb", domain.CategoryFood, "2024-02-15", 8)
	cases := []struct {
		name    string
		records []domain.Record
		want    domain.Direction
	}{
		{name: "empty", want: domain.DirectionNone},
		{name: "single", records: []domain.Record{jan}, want: domain.DirectionNone},
		{name: "chronological insert", records: []domain.Record{jan, feb}, want: domain.DirectionUp},
		{name: "reverse insert", records: []domain.Record{feb, jan}, want: domain.DirectionUp},
		{name: "down", records: []domain.Record{rec("x", domain.CategoryFood, "2024-01-15", 8), rec("y", domain.CategoryFood, "2024-02-15", 5)}, want: domain.DirectionDown},
		{name: "flat", records: []domain.Record{rec("x", domain.CategoryFood, "2024-01-15", 5), rec("y", domain.CategoryFood, "2024-02-15", 5)}, want: domain.DirectionFlat},
		{name: "equal dates keep insertion order", records: []domain.Record{
			rec("x", domain.CategoryFood, "2024-01-15", 1),
			rec("y", domain.CategoryFood, "2024-02-15", 7),
			rec("z", domain.CategoryFood, "2024-02-15", 3),
		}, want: domain.DirectionDown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Trend(tc.records); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestTrendDoesNotReorderInput(t *testing.T) {
	records := []domain.Record{rec("feb", domain.CategoryFood, "2024-02-15", 8), rec("jan", domain.CategoryFood, "2024-01-15", 5)}
	_ = Trend(records)
	if records[0].ID != "feb" {
		t.Fatalf("input reordered: %+v", records)
	}
}

func TestMonthlyTotalsChronological(t *testing.T) {
	records := []domain.Record{
		rec("a", domain.CategoryFood, "2024-12-01T00:00:00Z", 1),
		rec("b", domain.CategoryFood, "2024-09-10T00:00:00Z", 2),
		rec("c", domain.CategoryFood, "2024-12-24T00:00:00Z", 3),
		rec("d", domain.CategoryFood, "2023-12-24T00:00:00Z", 4),
	}
	got := MonthlyTotals(records)
	want := []struct {
		label string
		total float64
	}{{"Dec 2023", 4}, {"Sep 2024", 2}, {"Dec 2024", 4}}
	if len(got) != len(want) {
		t.Fatalf("expected %d months, got %+v", len(want), got)
	}
	for i, w := range want {
		if got[i].Label != w.label || !near(got[i].TotalKg, w.total) {
			t.Fatalf("month %d: expected %s/%v, got %+v", i, w.label, w.total, got[i])
		}
	}
	if len(MonthlyTotals(nil)) != 0 {
		t.Fatalf("expected empty series")
	}
}

func TestByCategory(t *testing.T) {
	records := []domain.Record{
		rec("a", domain.CategoryWaste, "2024-01-01", 1.5),
		rec("b", domain.CategoryTransport, "2024-01-01", 2),
		rec("c", domain.CategoryWaste, "2024-01-01", 0.5),
		rec("d", domain.Category("Water"), "2024-01-01", 100),
	}
	got := ByCategory(records)
	if len(got) != 4 || got[0].Category != domain.CategoryTransport || got[3].Category != domain.CategoryWaste {
		t.Fatalf("unexpected category order %+v", got)
	}
	if !near(got[0].TotalKg, 2) || !near(got[3].TotalKg, 2) || got[3].Count != 2 || got[1].Count != 0 {
		t.Fatalf("unexpected sums %+v", got)
	}
}

func TestSummarize(t *testing.T) {
	empty := Summarize(nil)
	if empty.Count != 0 || empty.Highest != nil || empty.Trend != domain.DirectionNone {
		t.Fatalf("unexpected empty summary %+v", empty)
	}
	records := []domain.Record{rec("a", domain.CategoryFood, "2024-01-15", 5), rec("b", domain.CategoryFood, "2024-02-15", 8)}
	s := Summarize(records)
	if s.Count != 2 || !near(s.TotalKg, 13) || !near(s.MonthlyAverage, 6.5) || s.Highest == nil || s.Highest.ID != "b" || s.Trend != domain.DirectionUp {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestQuery(t *testing.T) {
	records := []domain.Record{
		{ID: "1", Category: domain.CategoryTransport, Activity: "Car commute", Date: "2024-09-01", CO2Kg: 3},
		{ID: "2", Category: domain.CategoryEnergy, Activity: "Electricity", Date: "2024-09-03", CO2Kg: 30},
		{ID: "3", Category: domain.CategoryTransport, Activity: "Bus commute", Date: "2024-09-02", CO2Kg: 1},
		{ID: "4", Category: domain.CategoryFood, Activity: "Beef", Date: "2024-09-02", CO2Kg: 12},
	}
	ids := func(rs []domain.Record) string {
		s := ""
		for _, r := range rs {
			s += r.ID
		}
		return s
	}
	cases := []struct {
		name   string
		filter Filter
		want   string
	}{
		{name: "default newest first", filter: Filter{}, want: "2341"},
		{name: "all categories alias", filter: Filter{Category: AllCategories, Ascending: true}, want: "1342"},
		{name: "category", filter: Filter{Category: "Transport"}, want: "31"},
		{name: "search trimmed and case insensitive", filter: Filter{Search: "  COMMUTE "}, want: "31"},
		{name: "co2 descending", filter: Filter{SortField: SortByCO2}, want: "2413"},
		{name: "co2 ascending", filter: Filter{SortField: SortByCO2, Ascending: true}, want: "3142"},
		{name: "no match", filter: Filter{Category: "Waste"}, want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ids(Query(records, tc.filter)); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
	if records[0].ID != "1" || records[3].ID != "4" {
		t.Fatalf("query mutated input")
	}
}
