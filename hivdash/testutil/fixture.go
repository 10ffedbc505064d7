// Package testutil provides a shared case dataset and store doubles for
// hivdash tests.
package testutil

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/arthur-debert/hivdash/hivdash/store"
	"github.com/arthur-debert/hivdash/hivdash/types"
)

// Dataset gives typed access to the fixture records after they are loaded.
type Dataset struct {
	USA1990    types.Record // first record, year 1990
	France1990 types.Record
	USA1991    types.Record
	Kenya1991  types.Record // largest incidence in 1991
	France1989 types.Record // out of insertion order by year
	Brazil1995 types.Record

	// All records in insertion order
	All []types.Record
}

type fixtureData struct {
	Records []types.Record `json:"records"`
}

// FixtureRecords returns the fixture records without ids, in file order.
func FixtureRecords(t *testing.T) []types.Record {
	t.Helper()

	_, file, _, _ := runtime.Caller(0)
	content, err := os.ReadFile(filepath.Join(filepath.Dir(file), "testdata", "cases.json"))
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}

	var data fixtureData
	if err := json.Unmarshal(content, &data); err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}
	return data.Records
}

// LoadDataset returns an in-memory store populated with the fixture.
func LoadDataset(t *testing.T) (types.Store, *Dataset) {
	t.Helper()
	s := store.NewMemory()
	t.Cleanup(func() { _ = s.Close() })
	return s, Populate(t, s)
}

// Populate creates the fixture records in s.
func Populate(t *testing.T, s types.Store) *Dataset {
	t.Helper()
	ctx := context.Background()

	for _, rec := range FixtureRecords(t) {
		if _, err := s.Create(ctx, rec); err != nil {
			t.Fatalf("failed to create fixture record %s/%d: %v", rec.Entity, rec.Year, err)
		}
	}

	all, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("failed to list fixture: %v", err)
	}
	if len(all) != 6 {
		t.Fatalf("fixture: expected 6 records, got %d", len(all))
	}

	return &Dataset{
		USA1990:    all[0],
		France1990: all[1],
		USA1991:    all[2],
		Kenya1991:  all[3],
		France1989: all[4],
		Brazil1995: all[5],
		All:        all,
	}
}

// FlakyStore wraps a store and fails selected operations on demand.
// It also counts calls so tests can assert how often the store was hit.
type FlakyStore struct {
	types.Store

	mu    sync.Mutex
	fail  map[string]error
	calls map[string]int
	// FailCreateOn makes the n-th Create call (1-based) fail with CreateErr
	FailCreateOn map[int]bool
	CreateErr    error
}

// NewFlakyStore wraps s.
func NewFlakyStore(s types.Store) *FlakyStore {
	return &FlakyStore{
		Store:        s,
		fail:         make(map[string]error),
		calls:        make(map[string]int),
		FailCreateOn: make(map[int]bool),
	}
}

// FailOn makes every call of op ("create", "list", "get", "update",
// "delete") return err. A nil err clears it.
func (f *FlakyStore) FailOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, op)
		return
	}
	f.fail[op] = err
}

// Calls returns how many times op was invoked.
func (f *FlakyStore) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *FlakyStore) enter(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	if op == "create" && f.FailCreateOn[f.calls[op]] {
		return f.CreateErr
	}
	return f.fail[op]
}

func (f *FlakyStore) Create(ctx context.Context, rec types.Record) (string, error) {
	if err := f.enter("create"); err != nil {
		return "", err
	}
	return f.Store.Create(ctx, rec)
}

func (f *FlakyStore) ListAll(ctx context.Context) ([]types.Record, error) {
	if err := f.enter("list"); err != nil {
		return nil, err
	}
	return f.Store.ListAll(ctx)
}

func (f *FlakyStore) Get(ctx context.Context, id string) (types.Record, error) {
	if err := f.enter("get"); err != nil {
		return types.Record{}, err
	}
	return f.Store.Get(ctx, id)
}

func (f *FlakyStore) Update(ctx context.Context, id string, upd types.RecordUpdate) error {
	if err := f.enter("update"); err != nil {
		return err
	}
	return f.Store.Update(ctx, id, upd)
}

func (f *FlakyStore) Delete(ctx context.Context, id string) error {
	if err := f.enter("delete"); err != nil {
		return err
	}
	return f.Store.Delete(ctx, id)
}
