package core

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Subject holds the latest value and broadcasts every new value to its
// observers. Subscribe replays the current value before returning.
//
// Delivery is synchronous on the emitting goroutine and emissions are
// serialized, so every observer sees values in the same order. An observer may
// Unsubscribe from inside its callback but must not Subscribe or emit.
type Subject[T any] struct {
	emitMu    sync.Mutex
	mu        sync.Mutex
	observers []*observer[T]
	current   atomic.Pointer[T]
	logger    Logger
}

type observer[T any] struct {
	id     string
	fn     func(T)
	active atomic.Bool
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	id   string
	once sync.Once
	stop func()
}

// ID returns the subscription identifier.
func (s *Subscription) ID() string { return s.id }

// Unsubscribe stops delivery. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.stop)
}

// NewSubject returns a subject holding initial.
func NewSubject[T any](initial T) *Subject[T] {
	return newSubject(initial, NoopLogger{})
}

func newSubject[T any](initial T, logger Logger) *Subject[T] {
	s := &Subject[T]{logger: logger}
	s.current.Store(&initial)
	return s
}

// Value returns the latest value.
func (s *Subject[T]) Value() T {
	return *s.current.Load()
}

// Next stores v as the latest value and delivers it to every active observer
// in subscription order.
func (s *Subject[T]) Next(v T) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.current.Store(&v)
	s.mu.Lock()
	targets := append([]*observer[T](nil), s.observers...)
	s.mu.Unlock()
	for _, o := range targets {
		if o.active.Load() {
			s.deliver(o, v)
		}
	}
}

// Subscribe registers fn, delivers the current value to it, then forwards
// every later value until Unsubscribe.
func (s *Subject[T]) Subscribe(fn func(T)) *Subscription {
	o := &observer[T]{id: uuid.NewString(), fn: fn}
	o.active.Store(true)

	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()
	s.deliver(o, s.Value())

	return &Subscription{id: o.id, stop: func() { s.remove(o) }}
}

// Len returns the number of active observers.
func (s *Subject[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}

// Close unsubscribes every observer. The subject keeps its value and accepts
// new subscriptions afterwards.
func (s *Subject[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.observers {
		o.active.Store(false)
	}
	s.observers = nil
}

func (s *Subject[T]) remove(target *observer[T]) {
	target.active.Store(false)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.observers {
		if o == target {
			s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
			return
		}
	}
}

func (s *Subject[T]) deliver(o *observer[T], v T) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("observer panicked", "subscription", o.id, "panic", r)
		}
	}()
	o.fn(v)
}
