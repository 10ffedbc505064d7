package store

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arthur-debert/hivdash/hivdash/types"
)

var (
	storeOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hivdash_store_operations_total",
		Help: "Store calls by operation and outcome",
	}, []string{"operation", "outcome"})

	storeOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hivdash_store_operation_duration_seconds",
		Help:    "Duration of store calls",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"operation"})
)

// instrumented records a counter and a latency histogram for every call.
type instrumented struct {
	next types.Store
}

// Instrument wraps s so its calls are exported as Prometheus metrics.
func Instrument(s types.Store) types.Store {
	if _, ok := s.(*instrumented); ok {
		return s
	}
	return &instrumented{next: s}
}

func observe(op string, start time.Time, err error) {
	storeOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	storeOperationsTotal.WithLabelValues(op, outcome).Inc()
}

func (i *instrumented) Create(ctx context.Context, rec types.Record) (id string, err error) {
	defer func(start time.Time) { observe("create", start, err) }(time.Now())
	return i.next.Create(ctx, rec)
}

func (i *instrumented) ListAll(ctx context.Context) (recs []types.Record, err error) {
	defer func(start time.Time) { observe("list", start, err) }(time.Now())
	return i.next.ListAll(ctx)
}

func (i *instrumented) Get(ctx context.Context, id string) (rec types.Record, err error) {
	defer func(start time.Time) { observe("get", start, err) }(time.Now())
	return i.next.Get(ctx, id)
}

func (i *instrumented) Update(ctx context.Context, id string, upd types.RecordUpdate) (err error) {
	defer func(start time.Time) { observe("update", start, err) }(time.Now())
	return i.next.Update(ctx, id, upd)
}

func (i *instrumented) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { observe("delete", start, err) }(time.Now())
	return i.next.Delete(ctx, id)
}

func (i *instrumented) Close() error {
	return i.next.Close()
}
