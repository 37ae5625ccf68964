// Package core owns the emissions record collection: it derives co2 values,
// publishes every new collection to observers and hands it to a Persister.
package core

import (
	"context"
	"sync"
	"time"

	"carbonledger/pkg/domain"
)

// Persister restores and stores the whole record collection. Implementations
// absorb their own failures: Load reports false when nothing usable exists and
// Save never fails from the engine's point of view.
type Persister interface {
	Load(ctx context.Context) ([]domain.Record, bool)
	Save(ctx context.Context, records []domain.Record)
}

type nopPersister struct{}

func (nopPersister) Load(context.Context) ([]domain.Record, bool) { return nil, false }
func (nopPersister) Save(context.Context, []domain.Record)        {}

// Engine is the single source of truth for records. Construct one per process
// or session with NewEngine and Close it at the end.
//
// Mutations hold one lock across read, modify, emit and persist, so two calls
// apply in order and observers never see a partial collection. Observers run
// under that lock and must not call back into mutations.
type Engine struct {
	mu        sync.Mutex
	persister Persister
	subject   *Subject[[]domain.Record]
	logger    Logger
	metrics   MetricsRecorder
	tracer    Tracer
	newID     func() string
}

// NewEngine restores the persisted collection through p, or installs and
// persists the seed dataset when nothing was restored (unless WithoutSeed).
// A nil p runs without durable storage.
func NewEngine(ctx context.Context, p Persister, opts ...Option) *Engine {
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if p == nil {
		p = nopPersister{}
	}
	e := &Engine{
		persister: p,
		subject:   newSubject([]domain.Record{}, cfg.logger),
		logger:    cfg.logger,
		metrics:   cfg.metrics,
		tracer:    cfg.tracer,
		newID:     cfg.newID,
	}
	e.bootstrap(ctx, cfg.seed)
	return e
}

func (e *Engine) bootstrap(ctx context.Context, seed bool) {
	ctx, span := e.tracer.Start(ctx, "engine.bootstrap")
	start := time.Now()
	e.mu.Lock()
	defer func() {
		e.mu.Unlock()
		span.End(nil)
		e.metrics.Observe(ctx, "engine.bootstrap", true, time.Since(start))
	}()

	if restored, ok := e.persister.Load(ctx); ok && len(restored) > 0 {
		records := e.ensureIDs(restored)
		e.subject.Next(records)
		e.logger.Info("restored records", "count", len(records))
		return
	}
	if !seed {
		e.logger.Debug("nothing restored, starting empty")
		return
	}
	drafts := SeedDrafts()
	records := make([]domain.Record, 0, len(drafts))
	for _, d := range drafts {
		records = append(records, domain.NewRecord(e.newID(), d))
	}
	e.subject.Next(records)
	e.persister.Save(ctx, records)
	e.logger.Info("installed seed dataset", "count", len(records))
}

// ensureIDs keeps persisted records verbatim except for missing or duplicate
// ids, which are replaced so ids stay unique.
func (e *Engine) ensureIDs(restored []domain.Record) []domain.Record {
	records := domain.CloneRecords(restored)
	seen := make(map[string]struct{}, len(records))
	for i := range records {
		if _, dup := seen[records[i].ID]; records[i].ID == "" || dup {
			fresh := e.newID()
			e.logger.Warn("replacing unusable restored id", "index", i, "old", records[i].ID, "new", fresh)
			records[i].ID = fresh
		}
		seen[records[i].ID] = struct{}{}
	}
	return records
}

// mutate runs fn on the current collection inside the critical section. When
// fn reports a change the result is emitted first and persisted second.
func (e *Engine) mutate(ctx context.Context, op string, fn func(current []domain.Record) ([]domain.Record, bool)) bool {
	ctx, span := e.tracer.Start(ctx, op)
	start := time.Now()
	e.mu.Lock()
	next, changed := fn(e.subject.Value())
	if changed {
		e.subject.Next(next)
		e.persister.Save(ctx, next)
	}
	e.mu.Unlock()
	span.End(nil)
	e.metrics.Observe(ctx, op, true, time.Since(start))
	return changed
}

// Add derives the co2 value, assigns a fresh id and appends the record.
func (e *Engine) Add(ctx context.Context, draft domain.Draft) domain.Record {
	var created domain.Record
	e.mutate(ctx, "engine.add", func(current []domain.Record) ([]domain.Record, bool) {
		created = domain.NewRecord(e.newID(), draft)
		next := make([]domain.Record, len(current), len(current)+1)
		copy(next, current)
		return append(next, created), true
	})
	e.logger.Debug("record added", "id", created.ID, "category", created.Category, "co2_kg", created.CO2Kg)
	return created
}

// Update replaces the record with id in place, keeping its position and id and
// recomputing co2. An unknown id is a silent no-op: nothing is emitted or
// persisted and ok is false.
func (e *Engine) Update(ctx context.Context, id string, draft domain.Draft) (domain.Record, bool) {
	var updated domain.Record
	ok := e.mutate(ctx, "engine.update", func(current []domain.Record) ([]domain.Record, bool) {
		idx := indexOf(current, id)
		if idx == -1 {
			return nil, false
		}
		updated = domain.NewRecord(id, draft)
		next := domain.CloneRecords(current)
		next[idx] = updated
		return next, true
	})
	if !ok {
		e.logger.Debug("update ignored, unknown id", "id", id)
		return domain.Record{}, false
	}
	return updated, true
}

// Remove drops the record with id. The filtered collection is emitted and
// persisted even when id was unknown; removed reports whether a record went.
func (e *Engine) Remove(ctx context.Context, id string) bool {
	var removed bool
	e.mutate(ctx, "engine.remove", func(current []domain.Record) ([]domain.Record, bool) {
		next := make([]domain.Record, 0, len(current))
		for _, r := range current {
			if r.ID == id {
				removed = true
				continue
			}
			next = append(next, r)
		}
		return next, true
	})
	e.logger.Debug("remove", "id", id, "removed", removed)
	return removed
}

// Clear empties the collection.
func (e *Engine) Clear(ctx context.Context) {
	e.mutate(ctx, "engine.clear", func([]domain.Record) ([]domain.Record, bool) {
		return []domain.Record{}, true
	})
	e.logger.Debug("records cleared")
}

// Records returns a copy of the current collection in insertion order.
func (e *Engine) Records() []domain.Record {
	return domain.CloneRecords(e.subject.Value())
}

// Get returns the record with id.
func (e *Engine) Get(id string) (domain.Record, bool) {
	current := e.subject.Value()
	if idx := indexOf(current, id); idx != -1 {
		return current[idx], true
	}
	return domain.Record{}, false
}

// Preview computes the co2 value an uncommitted draft would receive.
func (e *Engine) Preview(category domain.Category, unit domain.Unit, amount float64) float64 {
	return domain.CO2Kg(category, unit, amount)
}

// Subscribe delivers the current collection immediately and every new one
// afterwards. Each call of fn receives its own copy.
func (e *Engine) Subscribe(fn func([]domain.Record)) *Subscription {
	return e.subject.Subscribe(func(records []domain.Record) {
		fn(domain.CloneRecords(records))
	})
}

// Observers returns the number of active subscriptions.
func (e *Engine) Observers() int { return e.subject.Len() }

// Close unsubscribes every observer.
func (e *Engine) Close() {
	e.subject.Close()
}

func indexOf(records []domain.Record, id string) int {
	for i, r := range records {
		if r.ID == id {
			return i
		}
	}
	return -1
}
