package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Logger is the structured logger consumed by the engine. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NoopLogger drops every message.
type NoopLogger struct{}

func (NoopLogger) Debug(string, ...any) {}
func (NoopLogger) Info(string, ...any)  {}
func (NoopLogger) Warn(string, ...any)  {}
func (NoopLogger) Error(string, ...any) {}

// MetricsRecorder receives one observation per engine operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// NoopMetricsRecorder drops every observation.
type NoopMetricsRecorder struct{}

func (NoopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

// TraceSpan is ended exactly once with the operation outcome.
type TraceSpan interface {
	End(err error)
}

// Tracer starts spans around engine operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// NoopTracer hands out spans that record nothing.
type NoopTracer struct{}

func (NoopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	newID   func() string
	seed    bool
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		logger:  NoopLogger{},
		metrics: NoopMetricsRecorder{},
		tracer:  NoopTracer{},
		newID:   uuid.NewString,
		seed:    true,
	}
}

// WithLogger sets the engine logger. Nil keeps the no-op logger.
func WithLogger(l Logger) Option {
	return func(c *engineConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetricsRecorder sets the recorder observing every mutation and the bootstrap.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(c *engineConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracer sets the tracer wrapping every mutation and the bootstrap.
func WithTracer(t Tracer) Option {
	return func(c *engineConfig) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithIDGenerator replaces the uuid record id source.
func WithIDGenerator(fn func() string) Option {
	return func(c *engineConfig) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// WithoutSeed starts empty instead of installing the demo dataset when nothing was restored.
func WithoutSeed() Option {
	return func(c *engineConfig) { c.seed = false }
}
