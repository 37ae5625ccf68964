package core

import (
	"carbonledger/internal/analytics"
	"carbonledger/pkg/domain"
)

// Derive subscribes observer to fn applied to every emitted collection,
// including the replayed current one.
func Derive[T any](e *Engine, fn func([]domain.Record) T, observer func(T)) *Subscription {
	return e.subject.Subscribe(func(records []domain.Record) {
		observer(fn(records))
	})
}

// SubscribeTotal streams the total co2.
func (e *Engine) SubscribeTotal(fn func(float64)) *Subscription {
	return Derive(e, analytics.Total, fn)
}

// SubscribeMonthlyAverage streams the average of per-month co2 sums.
func (e *Engine) SubscribeMonthlyAverage(fn func(float64)) *Subscription {
	return Derive(e, analytics.MonthlyAverage, fn)
}

// SubscribeHighestSource streams the largest emitter; ok is false while the collection is empty.
func (e *Engine) SubscribeHighestSource(fn func(r domain.Record, ok bool)) *Subscription {
	return e.subject.Subscribe(func(records []domain.Record) {
		fn(analytics.HighestSource(records))
	})
}

// SubscribeTrend streams the direction between the two latest records.
func (e *Engine) SubscribeTrend(fn func(domain.Direction)) *Subscription {
	return Derive(e, analytics.Trend, fn)
}

// SubscribeMonthlyTotals streams the chronological monthly chart series.
func (e *Engine) SubscribeMonthlyTotals(fn func([]analytics.MonthTotal)) *Subscription {
	return Derive(e, analytics.MonthlyTotals, fn)
}
