package store

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/arthur-debert/hivdash/hivdash/storage"
	"github.com/arthur-debert/hivdash/hivdash/types"
)

func newMockJSONStore(t *testing.T, fs *MockFileSystem, locks *MockFileLockFactory, opts ...Option) types.Store {
	t.Helper()
	opts = append([]Option{WithFileSystem(fs), WithFileLockFactory(locks)}, opts...)
	s, err := NewJSON("cases.json", opts...)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// TestJSONStoreWithMockFS exercises the JSON backend against an in-memory file system
func TestJSONStoreWithMockFS(t *testing.T) {
	ctx := context.Background()

	t.Run("creates file lazily on first write", func(t *testing.T) {
		fs := NewMockFileSystem()
		s := newMockJSONStore(t, fs, NewMockFileLockFactory())

		if fs.Exists("cases.json") {
			t.Error("expected file not to exist before the first write")
		}

		id, err := s.Create(ctx, types.Record{Entity: "USA", Code: "US", Year: 2000, Deaths: 500, Incidence: 1000})
		if err != nil {
			t.Fatalf("failed to create record: %v", err)
		}

		content, ok := fs.Content("cases.json")
		if !ok {
			t.Fatal("expected file to exist after create")
		}

		var data storage.StoreData
		if err := json.Unmarshal(content, &data); err != nil {
			t.Fatalf("failed to parse JSON: %v", err)
		}
		if len(data.Records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(data.Records))
		}
		if data.Records[0].ID != id {
			t.Errorf("expected id %s, got %s", id, data.Records[0].ID)
		}
		if data.Metadata.Version != storage.CurrentVersion {
			t.Errorf("expected version %s, got %s", storage.CurrentVersion, data.Metadata.Version)
		}
	})

	t.Run("load failure surfaces from constructor", func(t *testing.T) {
		fs := NewMockFileSystem()
		_ = fs.WriteFile("cases.json", []byte(`{"records":[]}`), 0644)
		readErr := errors.New("disk read error")
		fs.FailOn(OpRead, readErr)

		_, err := NewJSON("cases.json", WithFileSystem(fs), WithFileLockFactory(NewMockFileLockFactory()))
		if !errors.Is(err, readErr) {
			t.Errorf("expected read error, got: %v", err)
		}
	})

	t.Run("corrupt file is reported", func(t *testing.T) {
		fs := NewMockFileSystem()
		_ = fs.WriteFile("cases.json", []byte(`{not json`), 0644)

		_, err := NewJSON("cases.json", WithFileSystem(fs), WithFileLockFactory(NewMockFileLockFactory()))
		if err == nil || !strings.Contains(err.Error(), "parse JSON") {
			t.Errorf("expected parse error, got: %v", err)
		}
	})

	t.Run("failed save leaves state unchanged", func(t *testing.T) {
		fs := NewMockFileSystem()
		s := newMockJSONStore(t, fs, NewMockFileLockFactory())

		id, err := s.Create(ctx, types.Record{Entity: "USA", Year: 2000})
		if err != nil {
			t.Fatalf("failed to create record: %v", err)
		}

		fs.FailOn(OpRename, errors.New("rename failed"))

		if _, err := s.Create(ctx, types.Record{Entity: "FRA"}); err == nil {
			t.Error("expected create to fail")
		}
		if err := s.Update(ctx, id, types.RecordUpdate{Entity: "CHANGED"}); err == nil {
			t.Error("expected update to fail")
		}
		if err := s.Delete(ctx, id); err == nil {
			t.Error("expected delete to fail")
		}
		if fs.Exists("cases.json.tmp") {
			t.Error("temp file should be cleaned up after rename failure")
		}

		fs.FailOn(OpRename, nil)
		records, err := s.ListAll(ctx)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(records) != 1 || records[0].Entity != "USA" {
			t.Errorf("expected the original single record, got %+v", records)
		}
	})

	t.Run("lock is taken per write and released", func(t *testing.T) {
		fs := NewMockFileSystem()
		locks := NewMockFileLockFactory()
		s := newMockJSONStore(t, fs, locks)
		lock := locks.Lock("cases.json.lock")

		if lock.Attempts() != 1 {
			t.Errorf("expected 1 lock attempt during initialization, got %d", lock.Attempts())
		}

		if _, err := s.Create(ctx, types.Record{Entity: "USA"}); err != nil {
			t.Fatalf("failed to create: %v", err)
		}
		if lock.Attempts() < 2 {
			t.Errorf("expected another lock attempt for the write, got %d", lock.Attempts())
		}
		if lock.Held() {
			t.Error("lock should be released after the write")
		}
	})

	t.Run("held lock makes writes fail", func(t *testing.T) {
		fs := NewMockFileSystem()
		locks := NewMockFileLockFactory()
		s := newMockJSONStore(t, fs, locks)
		locks.Lock("cases.json.lock").Hold()

		ctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if _, err := s.Create(ctx, types.Record{Entity: "USA"}); err == nil {
			t.Error("expected create to fail while another process holds the lock")
		}
	})

	t.Run("sees writes from another store on the same file", func(t *testing.T) {
		fs := NewMockFileSystem()
		locks := NewMockFileLockFactory()
		a := newMockJSONStore(t, fs, locks)
		b := newMockJSONStore(t, fs, locks)

		if _, err := a.Create(ctx, types.Record{Entity: "USA"}); err != nil {
			t.Fatalf("create via a failed: %v", err)
		}
		if _, err := b.Create(ctx, types.Record{Entity: "FRA"}); err != nil {
			t.Fatalf("create via b failed: %v", err)
		}

		records, err := a.ListAll(ctx)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected both records to be visible, got %d", len(records))
		}
	})

	t.Run("NaN numbers survive persistence", func(t *testing.T) {
		fs := NewMockFileSystem()
		locks := NewMockFileLockFactory()
		s := newMockJSONStore(t, fs, locks)

		if _, err := s.Create(ctx, types.Record{Entity: "USA", Deaths: math.NaN(), Incidence: 5}); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		reopened := newMockJSONStore(t, fs, locks)
		records, err := reopened.ListAll(ctx)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if !math.IsNaN(records[0].Deaths) {
			t.Errorf("expected NaN deaths, got %v", records[0].Deaths)
		}
	})

	t.Run("timestamps come from the time func", func(t *testing.T) {
		fixed := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
		s := newMockJSONStore(t, NewMockFileSystem(), NewMockFileLockFactory(),
			WithTimeFunc(func() time.Time { return fixed }),
			WithIDFunc(func() string { return "fixed-id" }),
		)

		id, err := s.Create(ctx, types.Record{Entity: "USA"})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if id != "fixed-id" {
			t.Errorf("expected fixed-id, got %s", id)
		}
		rec, err := s.Get(ctx, id)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if !rec.CreatedAt.Equal(fixed) || !rec.UpdatedAt.Equal(fixed) {
			t.Errorf("unexpected timestamps: %v %v", rec.CreatedAt, rec.UpdatedAt)
		}
	})

	t.Run("cancelled context stops writes", func(t *testing.T) {
		fs := NewMockFileSystem()
		s := newMockJSONStore(t, fs, NewMockFileLockFactory())

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := s.Create(cctx, types.Record{Entity: "USA"}); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if fs.Writes() != 0 {
			t.Errorf("expected no writes, got %d", fs.Writes())
		}
	})
}
