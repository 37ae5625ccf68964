package core

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"carbonledger/internal/analytics"
	"carbonledger/pkg/domain"
)

// memoryPersister keeps the last saved collection and logs calls into an
// optional shared event log.
type memoryPersister struct {
	mu       sync.Mutex
	records  []domain.Record
	restored bool
	saves    int
	events   *[]string
}

func (p *memoryPersister) Load(context.Context) ([]domain.Record, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.restored {
		return nil, false
	}
	return domain.CloneRecords(p.records), true
}

func (p *memoryPersister) Save(_ context.Context, records []domain.Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = domain.CloneRecords(records)
	p.restored = true
	p.saves++
	if p.events != nil {
		*p.events = append(*p.events, "save")
	}
}

func (p *memoryPersister) saveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

func sequentialIDs() Option {
	n := 0
	return WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})
}

func draft(cat domain.Category, amount float64, unit domain.Unit, date string) domain.Draft {
	return domain.Draft{Category: cat, Activity: string(cat) + " activity", Amount: amount, Unit: unit, Date: date}
}

func newEmptyEngine(t *testing.T, p Persister) *Engine {
	t.Helper()
	e := NewEngine(context.Background(), p, WithoutSeed(), sequentialIDs())
	t.Cleanup(e.Close)
	return e
}

func TestBootstrapInstallsAndPersistsSeed(t *testing.T) {
	p := &memoryPersister{}
	e := NewEngine(context.Background(), p)
	defer e.Close()

	records := e.Records()
	if len(records) != 21 || len(records) != len(SeedDrafts()) {
		t.Fatalf("expected 21 seed records, got %d", len(records))
	}
	if p.saveCount() != 1 || len(p.records) != 21 {
		t.Fatalf("expected seed to be persisted once, saves=%d", p.saveCount())
	}
	ids := map[string]struct{}{}
	for _, r := range records {
		if _, dup := ids[r.ID]; dup || r.ID == "" {
			t.Fatalf("seed ids must be unique and set: %q", r.ID)
		}
		ids[r.ID] = struct{}{}
	}
	first := records[0]
	if first.Activity != "Car commute to office" || first.CO2Kg != 2.25 || first.Date != "2024-09-15T00:00:00Z" {
		t.Fatalf("unexpected first seed record %+v", first)
	}
	if flight := records[1]; flight.CO2Kg != 225 {
		t.Fatalf("expected 1500 km flight to be 225 kg, got %v", flight.CO2Kg)
	}
	cats := map[domain.Category]bool{}
	for _, r := range records {
		cats[r.Category] = true
		if m, ok := domain.MonthOf(r.Date); !ok || m.Year != 2024 || m.Month < 9 {
			t.Fatalf("seed date out of range: %s", r.Date)
		}
	}
	if len(cats) != 4 {
		t.Fatalf("seed must cover every category, got %v", cats)
	}
}

func TestBootstrapRestoresVerbatim(t *testing.T) {
	persisted := []domain.Record{
		{ID: "b", Category: domain.CategoryEnergy, Activity: "Heating", Amount: 10, Unit: domain.UnitKilowattHour, Date: "2024-02-01", CO2Kg: 99},
		{ID: "a", Category: domain.CategoryFood, Activity: "Lunch", Amount: 1, Unit: domain.UnitKilogram, Date: "2024-01-01", CO2Kg: 2},
	}
	p := &memoryPersister{records: persisted, restored: true}
	e := NewEngine(context.Background(), p)
	defer e.Close()

	got := e.Records()
	if len(got) != 2 || got[0] != persisted[0] || got[1] != persisted[1] {
		t.Fatalf("expected verbatim restore in stored order, got %+v", got)
	}
	if p.saveCount() != 0 {
		t.Fatalf("restore must not write back, saves=%d", p.saveCount())
	}
}

func TestBootstrapReplacesMissingAndDuplicateIDs(t *testing.T) {
	p := &memoryPersister{restored: true, records: []domain.Record{
		{ID: "", Activity: "no id"},
		{ID: "x", Activity: "first x"},
		{ID: "x", Activity: "second x"},
	}}
	e := NewEngine(context.Background(), p, sequentialIDs())
	defer e.Close()
	got := e.Records()
	if got[0].ID != "id-1" || got[1].ID != "x" || got[2].ID != "id-2" {
		t.Fatalf("unexpected ids %q %q %q", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestBootstrapEmptyRestoreSeeds(t *testing.T) {
	p := &memoryPersister{restored: true, records: []domain.Record{}}
	e := NewEngine(context.Background(), p)
	defer e.Close()
	if len(e.Records()) != 21 {
		t.Fatalf("empty persisted collection must fall back to seed")
	}
}

func TestWithoutSeedStartsEmpty(t *testing.T) {
	p := &memoryPersister{}
	e := newEmptyEngine(t, p)
	if len(e.Records()) != 0 || p.saveCount() != 0 {
		t.Fatalf("expected empty engine without writes")
	}
}

func TestAddDerivesCO2AndAppends(t *testing.T) {
	p := &memoryPersister{}
	e := newEmptyEngine(t, p)
	ctx := context.Background()

	a := e.Add(ctx, draft(domain.CategoryTransport, 15, domain.UnitKilometre, "2024-09-15"))
	b := e.Add(ctx, draft(domain.CategoryEnergy, 95, domain.UnitKilowattHour, "2024-09-20"))
	if a.ID != "id-1" || a.CO2Kg != 2.25 || b.CO2Kg != 38 {
		t.Fatalf("unexpected records %+v %+v", a, b)
	}
	records := e.Records()
	if len(records) != 2 || records[0].ID != a.ID || records[1].ID != b.ID {
		t.Fatalf("expected insertion order, got %+v", records)
	}
	if p.saveCount() != 2 || len(p.records) != 2 {
		t.Fatalf("expected every add to persist the whole collection")
	}
}

func TestAddInvalidPairAndNonFiniteAmount(t *testing.T) {
	e := newEmptyEngine(t, nil)
	ctx := context.Background()
	bad := e.Add(ctx, draft(domain.CategoryTransport, 10, domain.UnitKilogram, "2024-01-01"))
	if bad.CO2Kg != 0 {
		t.Fatalf("invalid pair must yield 0, got %v", bad.CO2Kg)
	}
	nan := e.Add(ctx, draft(domain.CategoryFood, math.NaN(), domain.UnitKilogram, "2024-01-01"))
	if nan.Amount != 0 || nan.CO2Kg != 0 {
		t.Fatalf("non-finite amount must be stored as 0, got %+v", nan)
	}
	if total := analytics.Total(e.Records()); math.IsNaN(total) {
		t.Fatalf("total must stay finite")
	}
}

func TestUpdateKeepsPositionAndID(t *testing.T) {
	p := &memoryPersister{}
	e := newEmptyEngine(t, p)
	ctx := context.Background()
	e.Add(ctx, draft(domain.CategoryFood, 1, domain.UnitKilogram, "2024-01-01"))
	mid := e.Add(ctx, draft(domain.CategoryFood, 2, domain.UnitKilogram, "2024-01-02"))
	e.Add(ctx, draft(domain.CategoryFood, 3, domain.UnitKilogram, "2024-01-03"))

	updated, ok := e.Update(ctx, mid.ID, draft(domain.CategoryWaste, 4, domain.UnitKilogram, "2025-06-01"))
	if !ok || updated.ID != mid.ID || updated.CO2Kg != 6 {
		t.Fatalf("unexpected update result %+v %v", updated, ok)
	}
	records := e.Records()
	if len(records) != 3 || records[1] != updated {
		t.Fatalf("update must replace in place without reordering, got %+v", records)
	}
	if p.saveCount() != 4 {
		t.Fatalf("expected update to persist, saves=%d", p.saveCount())
	}
}

func TestUpdateUnknownIDIsSilentNoop(t *testing.T) {
	p := &memoryPersister{}
	e := newEmptyEngine(t, p)
	ctx := context.Background()
	e.Add(ctx, draft(domain.CategoryFood, 1, domain.UnitKilogram, "2024-01-01"))
	emissions := 0
	e.Subscribe(func([]domain.Record) { emissions++ })

	if _, ok := e.Update(ctx, "missing", draft(domain.CategoryFood, 9, domain.UnitKilogram, "2024-01-01")); ok {
		t.Fatalf("expected ok=false for unknown id")
	}
	if emissions != 1 || p.saveCount() != 1 {
		t.Fatalf("unknown id must not emit or persist: emissions=%d saves=%d", emissions, p.saveCount())
	}
}

func TestRemoveUnknownIDReemitsEqualCollection(t *testing.T) {
	p := &memoryPersister{}
	e := newEmptyEngine(t, p)
	ctx := context.Background()
	e.Add(ctx, draft(domain.CategoryFood, 1, domain.UnitKilogram, "2024-01-01"))
	before := e.Records()
	var last []domain.Record
	emissions := 0
	e.Subscribe(func(rs []domain.Record) {
		emissions++
		last = rs
	})

	if e.Remove(ctx, "missing") {
		t.Fatalf("expected removed=false")
	}
	if emissions != 2 || len(last) != 1 || last[0] != before[0] {
		t.Fatalf("expected re-emission of an equal collection, emissions=%d last=%+v", emissions, last)
	}
	if p.saveCount() != 2 {
		t.Fatalf("expected harmless persist, saves=%d", p.saveCount())
	}
}

func TestAddRemoveRoundTrip(t *testing.T) {
	e := newEmptyEngine(t, nil)
	ctx := context.Background()
	e.Add(ctx, draft(domain.CategoryEnergy, 10, domain.UnitKilowattHour, "2024-01-01"))
	before := e.Records()
	r := e.Add(ctx, draft(domain.CategoryFood, 1, domain.UnitKilogram, "2024-01-02"))
	if !e.Remove(ctx, r.ID) {
		t.Fatalf("expected removal")
	}
	after := e.Records()
	if len(after) != len(before) || after[0] != before[0] {
		t.Fatalf("round trip changed collection: %+v vs %+v", before, after)
	}
	if _, ok := e.Get(r.ID); ok {
		t.Fatalf("removed record still retrievable")
	}
}

func TestTotalEqualsSumOfAdds(t *testing.T) {
	e := newEmptyEngine(t, nil)
	ctx := context.Background()
	drafts := []domain.Draft{
		draft(domain.CategoryWaste, 0.5, domain.UnitKilogram, "2024-01-01"),
		draft(domain.CategoryTransport, 2200, domain.UnitKilometre, "2024-02-01"),
		draft(domain.CategoryEnergy, 1.2345, domain.UnitKilowattHour, "2024-03-01"),
		draft(domain.CategoryFood, 0.15, domain.UnitKilogram, "2024-03-02"),
	}
	var want float64
	for _, d := range drafts {
		want += e.Add(ctx, d).CO2Kg
	}
	var streamed float64
	e.SubscribeTotal(func(v float64) { streamed = v })
	if got := analytics.Total(e.Records()); got != want || streamed != want {
		t.Fatalf("expected total %v, got %v streamed %v", want, got, streamed)
	}
}

func TestClearEmptiesAndPersists(t *testing.T) {
	p := &memoryPersister{}
	e := newEmptyEngine(t, p)
	ctx := context.Background()
	e.Add(ctx, draft(domain.CategoryFood, 1, domain.UnitKilogram, "2024-01-01"))
	e.Clear(ctx)
	if len(e.Records()) != 0 || len(p.records) != 0 || p.saveCount() != 2 {
		t.Fatalf("expected cleared and persisted collection")
	}
}

func TestEmitBeforePersist(t *testing.T) {
	var events []string
	p := &memoryPersister{events: &events}
	e := newEmptyEngine(t, p)
	e.Subscribe(func([]domain.Record) { events = append(events, "emit") })
	events = nil
	e.Add(context.Background(), draft(domain.CategoryFood, 1, domain.UnitKilogram, "2024-01-01"))
	if len(events) != 2 || events[0] != "emit" || events[1] != "save" {
		t.Fatalf("expected emit then save, got %v", events)
	}
}

func TestSnapshotsAreImmutable(t *testing.T) {
	e := newEmptyEngine(t, nil)
	ctx := context.Background()
	r := e.Add(ctx, draft(domain.CategoryFood, 1, domain.UnitKilogram, "2024-01-01"))
	var snapshots [][]domain.Record
	e.Subscribe(func(rs []domain.Record) { snapshots = append(snapshots, rs) })
	e.Update(ctx, r.ID, draft(domain.CategoryFood, 5, domain.UnitKilogram, "2024-01-01"))
	e.Clear(ctx)

	if len(snapshots) != 3 || snapshots[0][0].CO2Kg != 2 || snapshots[1][0].CO2Kg != 10 || len(snapshots[2]) != 0 {
		t.Fatalf("earlier snapshots changed: %+v", snapshots)
	}
	copyOut := e.Records()
	copyOut = append(copyOut, domain.Record{ID: "intruder"})
	if _, ok := e.Get("intruder"); ok || len(copyOut) != 1 {
		t.Fatalf("Records must return a detached copy")
	}
}

func TestPreview(t *testing.T) {
	e := newEmptyEngine(t, nil)
	if got := e.Preview(domain.CategoryTransport, domain.UnitKilometre, 15); got != 2.25 {
		t.Fatalf("expected 2.25, got %v", got)
	}
	if got := e.Preview(domain.CategoryEnergy, domain.UnitKilogram, 15); got != 0 {
		t.Fatalf("expected 0 for invalid pair, got %v", got)
	}
}

func TestDerivedStreams(t *testing.T) {
	e := newEmptyEngine(t, nil)
	ctx := context.Background()

	var trend domain.Direction
	var highest domain.Record
	var hasHighest bool
	var average float64
	var months []analytics.MonthTotal
	e.SubscribeTrend(func(d domain.Direction) { trend = d })
	e.SubscribeHighestSource(func(r domain.Record, ok bool) { highest, hasHighest = r, ok })
	e.SubscribeMonthlyAverage(func(v float64) { average = v })
	e.SubscribeMonthlyTotals(func(m []analytics.MonthTotal) { months = m })

	if trend != domain.DirectionNone || hasHighest || average != 0 || len(months) != 0 {
		t.Fatalf("unexpected replay on empty engine")
	}

	// Inserted newest first; trend sorts by date.
	feb := e.Add(ctx, domain.Draft{Category: domain.CategoryFood, Amount: 4, Unit: domain.UnitKilogram, Date: "2024-02-10"})
	e.Add(ctx, domain.Draft{Category: domain.CategoryFood, Amount: 2.5, Unit: domain.UnitKilogram, Date: "2024-01-10"})

	if trend != domain.DirectionUp {
		t.Fatalf("expected up trend, got %s", trend)
	}
	if !hasHighest || highest.ID != feb.ID {
		t.Fatalf("expected feb record as highest, got %+v", highest)
	}
	if average != 6.5 {
		t.Fatalf("expected (8+5)/2 = 6.5, got %v", average)
	}
	if len(months) != 2 || months[0].Label != "Jan 2024" || months[1].Label != "Feb 2024" {
		t.Fatalf("unexpected monthly series %+v", months)
	}
	if e.Observers() != 4 {
		t.Fatalf("expected 4 observers, got %d", e.Observers())
	}
	e.Close()
	if e.Observers() != 0 {
		t.Fatalf("Close must unsubscribe everything")
	}
}

func TestConcurrentMutationsAreSerialized(t *testing.T) {
	p := &memoryPersister{}
	e := NewEngine(context.Background(), p, WithoutSeed())
	defer e.Close()
	var lengths []int
	e.Subscribe(func(rs []domain.Record) { lengths = append(lengths, len(rs)) })

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Add(context.Background(), draft(domain.CategoryWaste, 1, domain.UnitKilogram, "2024-01-01"))
		}()
	}
	wg.Wait()

	if len(e.Records()) != 40 || p.saveCount() != 40 || len(p.records) != 40 {
		t.Fatalf("expected 40 records persisted, got %d (saves=%d)", len(e.Records()), p.saveCount())
	}
	for i, n := range lengths {
		if n != i {
			t.Fatalf("emissions out of order: %v", lengths)
		}
	}
}
