// Package dataset shares one loaded copy of the record set between views.
//
// A Dataset wraps a store and implements types.Store itself: ListAll is
// served from a cached snapshot, concurrent misses share a single fetch, and
// every successful mutation through the Dataset invalidates the snapshot.
// Writes that bypass the Dataset are only seen after Invalidate.
package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"

	"github.com/arthur-debert/hivdash/hivdash/storage"
	"github.com/arthur-debert/hivdash/hivdash/types"
)

var cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "hivdash_dataset_lookups_total",
	Help: "Dataset snapshot lookups by result",
}, []string{"result"})

// Dataset is safe for concurrent use.
type Dataset struct {
	store  types.Store
	logger *slog.Logger
	group  singleflight.Group

	mu         sync.RWMutex
	records    []types.Record
	valid      bool
	generation uint64
}

// New wraps store.
func New(store types.Store, logger *slog.Logger) *Dataset {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dataset{store: store, logger: logger}
}

// Snapshot returns the cached records, loading them if needed. The returned
// slice is shared and must not be modified; use ListAll for a private copy.
func (d *Dataset) Snapshot(ctx context.Context) ([]types.Record, error) {
	d.mu.RLock()
	if d.valid {
		records := d.records
		d.mu.RUnlock()
		cacheLookups.WithLabelValues("hit").Inc()
		return records, nil
	}
	gen := d.generation
	d.mu.RUnlock()
	cacheLookups.WithLabelValues("miss").Inc()

	// the fetch is shared, so one caller going away must not fail the others
	fetchCtx := context.WithoutCancel(ctx)
	ch := d.group.DoChan(strconv.FormatUint(gen, 10), func() (interface{}, error) {
		records, err := d.store.ListAll(fetchCtx)
		if err != nil {
			return nil, err
		}

		d.mu.Lock()
		defer d.mu.Unlock()
		// an invalidation during the fetch means these records may be stale
		if d.generation == gen {
			d.records = records
			d.valid = true
		}
		d.logger.Debug("dataset loaded", "records", len(records), "generation", gen)
		return records, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to load dataset: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("failed to load dataset: %w", res.Err)
		}
		return res.Val.([]types.Record), nil
	}
}

// Invalidate drops the cached snapshot.
func (d *Dataset) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.valid = false
	d.records = nil
	d.generation++
}

// ListAll returns a private copy of the snapshot.
func (d *Dataset) ListAll(ctx context.Context) ([]types.Record, error) {
	records, err := d.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.Record, len(records))
	for i, r := range records {
		out[i] = storage.CloneRecord(r)
	}
	return out, nil
}

func (d *Dataset) Get(ctx context.Context, id string) (types.Record, error) {
	return d.store.Get(ctx, id)
}

func (d *Dataset) Create(ctx context.Context, rec types.Record) (string, error) {
	id, err := d.store.Create(ctx, rec)
	if err == nil {
		d.Invalidate()
	}
	return id, err
}

func (d *Dataset) Update(ctx context.Context, id string, upd types.RecordUpdate) error {
	err := d.store.Update(ctx, id, upd)
	if err == nil {
		d.Invalidate()
	}
	return err
}

func (d *Dataset) Delete(ctx context.Context, id string) error {
	err := d.store.Delete(ctx, id)
	if err == nil {
		d.Invalidate()
	}
	return err
}

// Close closes the underlying store.
func (d *Dataset) Close() error {
	return d.store.Close()
}
