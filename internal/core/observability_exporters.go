package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var expvarSeq uint64

// OperationStats aggregates the observations of one operation name.
type OperationStats struct {
	Calls    int64   `json:"calls"`
	Failures int64   `json:"failures"`
	TotalMS  float64 `json:"total_ms"`
	MaxMS    float64 `json:"max_ms"`
}

// MeanMS is the average duration per call.
func (s OperationStats) MeanMS() float64 {
	if s.Calls == 0 {
		return 0
	}
	return s.TotalMS / float64(s.Calls)
}

// ExpvarMetricsRecorder keeps per-operation call statistics and publishes
// them as one expvar variable.
type ExpvarMetricsRecorder struct {
	name string
	mu   sync.Mutex
	ops  map[string]OperationStats
}

// NewExpvarMetricsRecorder publishes a recorder under name, or under a
// generated carbonledger_engine_metrics_N name when empty. expvar names are
// process global, so a name may only be used once.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("carbonledger_engine_metrics_%d", atomic.AddUint64(&expvarSeq, 1))
	}
	r := &ExpvarMetricsRecorder{name: name, ops: make(map[string]OperationStats)}
	expvar.Publish(name, expvar.Func(func() any { return r.Snapshot() }))
	return r
}

// Name is the expvar variable name.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Snapshot copies the current statistics keyed by operation.
func (r *ExpvarMetricsRecorder) Snapshot() map[string]OperationStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]OperationStats, len(r.ops))
	for op, s := range r.ops {
		out[op] = s
	}
	return out
}

// Observe folds one outcome into the operation's statistics. Unnamed
// operations are dropped.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	ms := float64(duration) / float64(time.Millisecond)
	r.mu.Lock()
	s := r.ops[operation]
	s.Calls++
	if !success {
		s.Failures++
	}
	s.TotalMS += ms
	s.MaxMS = max(s.MaxMS, ms)
	r.ops[operation] = s
	r.mu.Unlock()
}

// Span is one finished operation as written by JSONTraceTracer.
type Span struct {
	Operation  string    `json:"operation"`
	Status     string    `json:"status"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// JSONTraceTracer writes every finished span as a JSON line and keeps it for
// Spans.
type JSONTraceTracer struct {
	mu    sync.Mutex
	spans []Span
	enc   *json.Encoder
	now   func() time.Time
}

// NewJSONTracer returns a tracer writing to w. A nil w only retains spans.
func NewJSONTracer(w io.Writer) *JSONTraceTracer {
	t := &JSONTraceTracer{now: func() time.Time { return time.Now().UTC() }}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Spans returns the finished spans in end order.
func (t *JSONTraceTracer) Spans() []Span {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Span(nil), t.spans...)
}

// Start implements Tracer.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonSpan{tracer: t, span: Span{Operation: operation, StartedAt: t.now()}}
}

type jsonSpan struct {
	tracer *JSONTraceTracer
	span   Span
	once   sync.Once
}

func (s *jsonSpan) End(err error) {
	s.once.Do(func() {
		sp := s.span
		sp.EndedAt = s.tracer.now()
		sp.DurationMS = float64(sp.EndedAt.Sub(sp.StartedAt)) / float64(time.Millisecond)
		sp.Status = "success"
		if err != nil {
			sp.Status = "error"
			sp.Error = err.Error()
		}
		s.tracer.record(sp)
	})
}

func (t *JSONTraceTracer) record(sp Span) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spans = append(t.spans, sp)
	if t.enc != nil {
		_ = t.enc.Encode(sp)
	}
}
