// Package persistence moves the record collection between the engine and a
// blob store. It is the only layer that swallows storage failures: a failed
// load means "nothing to restore" and a failed save is logged and dropped.
package persistence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"carbonledger/internal/blob"
	"carbonledger/internal/config"
	"carbonledger/internal/core"
	"carbonledger/pkg/domain"
)

var _ core.Persister = (*Bridge)(nil)

const contentTypeJSON = "application/json"

// Bridge implements core.Persister over one key of a blob.Store.
type Bridge struct {
	store   blob.Store
	key     string
	logger  core.Logger
	metrics core.MetricsRecorder
	tracer  core.Tracer
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithKey overrides the storage key (default carbon-footprint-emissions).
func WithKey(key string) Option {
	return func(b *Bridge) {
		if key != "" {
			b.key = key
		}
	}
}

// WithLogger sets the logger receiving swallowed failures.
func WithLogger(l core.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithMetricsRecorder records persistence.load and persistence.save outcomes.
func WithMetricsRecorder(m core.MetricsRecorder) Option {
	return func(b *Bridge) {
		if m != nil {
			b.metrics = m
		}
	}
}

// WithTracer wraps loads and saves in spans.
func WithTracer(t core.Tracer) Option {
	return func(b *Bridge) {
		if t != nil {
			b.tracer = t
		}
	}
}

// NewBridge returns a bridge over store. A nil store behaves as an unavailable
// medium: loads find nothing and saves are dropped.
func NewBridge(store blob.Store, opts ...Option) *Bridge {
	b := &Bridge{
		store:   store,
		key:     config.DefaultStorageKey,
		logger:  core.NoopLogger{},
		metrics: core.NoopMetricsRecorder{},
		tracer:  core.NoopTracer{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Key returns the blob key holding the collection.
func (b *Bridge) Key() string { return b.key }

// Load reads and decodes the stored collection. ok is false when the medium is
// unavailable, the key is missing or the payload is not a record sequence.
// Individual malformed elements are skipped.
func (b *Bridge) Load(ctx context.Context) (records []domain.Record, ok bool) {
	ctx, span := b.tracer.Start(ctx, "persistence.load")
	start := time.Now()
	var failure error
	defer func() {
		if r := recover(); r != nil {
			failure = fmt.Errorf("blob store panic: %v", r)
			b.logger.Warn("load failed", "key", b.key, "error", failure)
			records, ok = nil, false
		}
		span.End(failure)
		b.metrics.Observe(ctx, "persistence.load", failure == nil, time.Since(start))
	}()

	if b.store == nil {
		b.logger.Debug("no blob store configured, nothing to restore")
		return nil, false
	}
	_, rc, err := b.store.Get(ctx, b.key)
	if errors.Is(err, blob.ErrNotFound) {
		b.logger.Debug("no stored records", "key", b.key)
		return nil, false
	}
	if err != nil {
		failure = err
		b.logger.Warn("read stored records", "key", b.key, "error", err)
		return nil, false
	}
	defer func() { _ = rc.Close() }()
	payload, err := io.ReadAll(rc)
	if err != nil {
		failure = err
		b.logger.Warn("read stored records", "key", b.key, "error", err)
		return nil, false
	}
	decoded, report, err := domain.DecodeRecords(payload)
	if err != nil {
		failure = err
		b.logger.Warn("discarding unreadable stored records", "key", b.key, "error", err)
		return nil, false
	}
	if report.Skipped > 0 || report.Reset > 0 {
		b.logger.Warn("repaired malformed stored records", "key", b.key, "skipped", report.Skipped, "reset_fields", report.Reset, "total", report.Total)
	}
	b.logger.Debug("loaded stored records", "key", b.key, "count", len(decoded))
	return decoded, true
}

// Save overwrites the key with the whole collection. Failures are logged and
// dropped; the next save is the only retry.
func (b *Bridge) Save(ctx context.Context, records []domain.Record) {
	ctx, span := b.tracer.Start(ctx, "persistence.save")
	start := time.Now()
	var failure error
	defer func() {
		if r := recover(); r != nil {
			failure = fmt.Errorf("blob store panic: %v", r)
		}
		if failure != nil {
			b.logger.Warn("save failed", "key", b.key, "error", failure)
		}
		span.End(failure)
		b.metrics.Observe(ctx, "persistence.save", failure == nil, time.Since(start))
	}()

	if b.store == nil {
		failure = errStoreUnavailable
		return
	}
	payload, err := domain.EncodeRecords(records)
	if err != nil {
		failure = fmt.Errorf("encode records: %w", err)
		return
	}
	if _, err := b.store.Put(ctx, b.key, bytes.NewReader(payload), blob.PutOptions{ContentType: contentTypeJSON}); err != nil {
		failure = err
		return
	}
	b.logger.Debug("saved records", "key", b.key, "count", len(records), "bytes", len(payload))
}

var errStoreUnavailable = errors.New("blob store unavailable")
