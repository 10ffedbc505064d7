package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/arthur-debert/hivdash/hivdash/types"
)

// backends returns a fresh instance of every store implementation.
func backends(t *testing.T) map[string]types.Store {
	t.Helper()
	dir := t.TempDir()

	jsonStore, err := NewJSON(filepath.Join(dir, "cases.json"))
	if err != nil {
		t.Fatalf("failed to open json store: %v", err)
	}
	sqliteStore, err := NewSQLite(filepath.Join(dir, "cases.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}

	stores := map[string]types.Store{
		"memory": NewMemory(),
		"json":   jsonStore,
		"sqlite": sqliteStore,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

var ignoreTimestamps = cmpopts.IgnoreFields(types.Record{}, "ID", "CreatedAt", "UpdatedAt")

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	prevalence := 2000.0

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			inputs := []types.Record{
				{Entity: "USA", Code: "US", Year: 2000, Deaths: 500, Incidence: 1000, Prevalence: &prevalence},
				{Entity: "France", Code: "FR", Year: 1990, Deaths: 10, Incidence: 20},
				{Entity: "Kenya", Code: "KE", Year: 1995, Deaths: 70, Incidence: 90},
			}

			var ids []string
			for _, in := range inputs {
				id, err := s.Create(ctx, in)
				if err != nil {
					t.Fatalf("create failed: %v", err)
				}
				if id == "" {
					t.Fatal("create returned an empty id")
				}
				ids = append(ids, id)
			}

			got, err := s.ListAll(ctx)
			if err != nil {
				t.Fatalf("list failed: %v", err)
			}
			if diff := cmp.Diff(inputs, got, ignoreTimestamps); diff != "" {
				t.Errorf("ListAll mismatch (-want +got):\n%s", diff)
			}

			// whole-record overwrite keeps prevalence when not supplied
			upd := types.RecordUpdate{Entity: "United States", Code: "USA", Year: 2001, Deaths: 600, Incidence: 1100}
			if err := s.Update(ctx, ids[0], upd); err != nil {
				t.Fatalf("update failed: %v", err)
			}
			rec, err := s.Get(ctx, ids[0])
			if err != nil {
				t.Fatalf("get failed: %v", err)
			}
			want := types.Record{Entity: "United States", Code: "USA", Year: 2001, Deaths: 600, Incidence: 1100, Prevalence: &prevalence}
			if diff := cmp.Diff(want, rec, ignoreTimestamps); diff != "" {
				t.Errorf("updated record mismatch (-want +got):\n%s", diff)
			}

			// delete removes exactly one record
			if err := s.Delete(ctx, ids[1]); err != nil {
				t.Fatalf("delete failed: %v", err)
			}
			got, err = s.ListAll(ctx)
			if err != nil {
				t.Fatalf("list failed: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("expected 2 records after delete, got %d", len(got))
			}
			for _, r := range got {
				if r.ID == ids[1] {
					t.Error("deleted record is still listed")
				}
			}
			if got[0].ID != ids[0] || got[1].ID != ids[2] {
				t.Error("delete disturbed the order of the remaining records")
			}
		})
	}
}

func TestStoreNotFound(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Get(ctx, "missing"); !errors.Is(err, types.ErrNotFound) {
				t.Errorf("Get: expected ErrNotFound, got %v", err)
			}
			if err := s.Update(ctx, "missing", types.RecordUpdate{}); !errors.Is(err, types.ErrNotFound) {
				t.Errorf("Update: expected ErrNotFound, got %v", err)
			}
			if err := s.Delete(ctx, "missing"); !errors.Is(err, types.ErrNotFound) {
				t.Errorf("Delete: expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			id, err := s.Create(ctx, types.Record{Entity: "USA"})
			if err != nil {
				t.Fatalf("create failed: %v", err)
			}
			got, _ := s.ListAll(ctx)
			got[0].Entity = "mutated"

			rec, err := s.Get(ctx, id)
			if err != nil {
				t.Fatalf("get failed: %v", err)
			}
			if rec.Entity != "USA" {
				t.Errorf("store state changed through a listed copy: %q", rec.Entity)
			}
		})
	}
}

func TestParseDSN(t *testing.T) {
	tests := []struct {
		dsn      string
		wantKind Kind
		wantPath string
		wantErr  bool
	}{
		{dsn: "memory://", wantKind: KindMemory},
		{dsn: "json:///tmp/a.json", wantKind: KindJSON, wantPath: "/tmp/a.json"},
		{dsn: "sqlite://cases.db", wantKind: KindSQLite, wantPath: "cases.db"},
		{dsn: "cases.sqlite", wantKind: KindSQLite, wantPath: "cases.sqlite"},
		{dsn: "cases.json", wantKind: KindJSON, wantPath: "cases.json"},
		{dsn: "data/cases", wantKind: KindJSON, wantPath: "data/cases"},
		{dsn: "", wantErr: true},
		{dsn: "json://", wantErr: true},
		{dsn: "postgres://x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.dsn), func(t *testing.T) {
			kind, path, err := ParseDSN(tt.dsn)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.dsn)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if kind != tt.wantKind || path != tt.wantPath {
				t.Errorf("got (%s, %q), want (%s, %q)", kind, path, tt.wantKind, tt.wantPath)
			}
		})
	}
}

func TestOpenAndInstrument(t *testing.T) {
	s, err := Open("memory://")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	wrapped := Instrument(s)
	if Instrument(wrapped) != wrapped {
		t.Error("Instrument should not double wrap")
	}

	ctx := context.Background()
	id, err := wrapped.Create(ctx, types.Record{Entity: "USA"})
	if err != nil {
		t.Fatalf("create through wrapper failed: %v", err)
	}
	if _, err := wrapped.Get(ctx, id); err != nil {
		t.Fatalf("get through wrapper failed: %v", err)
	}
	if err := wrapped.Delete(ctx, "missing"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("wrapper should pass errors through, got %v", err)
	}
}
