package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/arthur-debert/hivdash/hivdash/storage"
	"github.com/arthur-debert/hivdash/hivdash/types"
)

// Constants for file locking
const (
	lockTimeout    = 3 * time.Second
	lockMaxRetries = 3
	lockRetryDelay = 100 * time.Millisecond
)

// jsonFileStore implements types.Store on top of a single JSON file.
//
// The whole collection is kept in memory. Every write reloads the file while
// holding the cross-process lock, applies the change, and writes the file back
// atomically, so two processes sharing a file never lose each other's records.
// Reads reload only when the file's modification time moved since the last
// load.
type jsonFileStore struct {
	filePath    string
	lockManager *storage.LockManager
	fs          FileSystem
	fileLock    FileLock // Cross-process file locking
	timeFunc    func() time.Time
	idFunc      func() string

	data    *storage.StoreData
	modTime time.Time
}

// NewJSON opens (or lazily creates) a JSON file store at filePath.
func NewJSON(filePath string, opts ...Option) (types.Store, error) {
	s, err := newJSONFileStore(filePath, opts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func newJSONFileStore(filePath string, opts ...Option) (*jsonFileStore, error) {
	o := newOptions(opts)

	s := &jsonFileStore{
		filePath:    filePath,
		lockManager: storage.NewLockManager(),
		fs:          o.fs,
		fileLock:    o.lockFactory.New(filePath + ".lock"),
		timeFunc:    o.timeFunc,
		idFunc:      o.idFunc,
		data:        storage.NewStoreData(o.timeFunc()),
	}

	if err := s.withFileLock(context.Background(), s.load); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	return s, nil
}

// acquireLock attempts to acquire an exclusive file lock with retry logic
func (s *jsonFileStore) acquireLock(ctx context.Context) error {
	for i := 0; i < lockMaxRetries; i++ {
		locked, err := s.fileLock.TryLockContext(ctx, lockRetryDelay)
		if err != nil {
			return fmt.Errorf("failed to acquire lock: %w", err)
		}
		if locked {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}

	return fmt.Errorf("failed to acquire lock after %d attempts", lockMaxRetries)
}

// withFileLock runs fn while holding the cross-process lock. The caller's
// context bounds the wait; without a deadline, lockTimeout applies.
func (s *jsonFileStore) withFileLock(ctx context.Context, fn func() error) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, lockTimeout)
		defer cancel()
	}

	if err := s.acquireLock(ctx); err != nil {
		return err
	}
	defer func() { _ = s.fileLock.Unlock() }()

	return fn()
}

// load reads the JSON file into memory. Caller holds both locks.
func (s *jsonFileStore) load() error {
	info, err := s.fs.Stat(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	data, err := s.fs.ReadFile(s.filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	s.modTime = info.ModTime()

	if len(data) == 0 {
		return nil
	}

	var storeData storage.StoreData
	if err := json.Unmarshal(data, &storeData); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	if storeData.Records == nil {
		storeData.Records = []types.Record{}
	}

	s.data = &storeData
	return nil
}

// save writes the in-memory data to the JSON file. Caller holds both locks.
func (s *jsonFileStore) save() error {
	s.data.Metadata.UpdatedAt = s.timeFunc()
	if s.data.Metadata.Version == "" {
		s.data.Metadata.Version = storage.CurrentVersion
	}

	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	// Write to a temp file, then rename over the real one
	tmpFile := s.filePath + ".tmp"
	if err := s.fs.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := s.fs.Rename(tmpFile, s.filePath); err != nil {
		_ = s.fs.Remove(tmpFile)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	if info, err := s.fs.Stat(s.filePath); err == nil {
		s.modTime = info.ModTime()
	}
	return nil
}

// refresh reloads the file if another writer touched it since the last load.
func (s *jsonFileStore) refresh(ctx context.Context) error {
	info, err := s.fs.Stat(s.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if info.ModTime().Equal(s.modTime) {
		return nil
	}
	return s.withFileLock(ctx, s.load)
}

// mutate runs a read-modify-write cycle under both locks.
func (s *jsonFileStore) mutate(ctx context.Context, fn func() (rollback func(), err error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.lockManager.Execute(storage.WriteOperation, func() error {
		return s.withFileLock(ctx, func() error {
			if err := s.load(); err != nil {
				return fmt.Errorf("failed to load data: %w", err)
			}
			rollback, err := fn()
			if err != nil {
				return err
			}
			if err := s.save(); err != nil {
				rollback()
				return fmt.Errorf("failed to save: %w", err)
			}
			return nil
		})
	})
}

// Create appends a record and returns its new id.
func (s *jsonFileStore) Create(ctx context.Context, rec types.Record) (string, error) {
	var id string
	err := s.mutate(ctx, func() (func(), error) {
		now := s.timeFunc()
		rec = storage.CloneRecord(rec)
		rec.ID = s.idFunc()
		rec.CreatedAt = now
		rec.UpdatedAt = now

		s.data.Records = append(s.data.Records, rec)
		id = rec.ID

		return func() {
			s.data.Records = s.data.Records[:len(s.data.Records)-1]
		}, nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListAll returns every record in insertion order.
func (s *jsonFileStore) ListAll(ctx context.Context) ([]types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return storage.ExecuteWithResult(s.lockManager, storage.WriteOperation, func() ([]types.Record, error) {
		if err := s.refresh(ctx); err != nil {
			return nil, fmt.Errorf("failed to refresh data: %w", err)
		}
		return s.data.Snapshot(), nil
	})
}

// Get returns the record with the given id.
func (s *jsonFileStore) Get(ctx context.Context, id string) (types.Record, error) {
	if err := ctx.Err(); err != nil {
		return types.Record{}, err
	}
	return storage.ExecuteWithResult(s.lockManager, storage.WriteOperation, func() (types.Record, error) {
		if err := s.refresh(ctx); err != nil {
			return types.Record{}, fmt.Errorf("failed to refresh data: %w", err)
		}
		idx := s.data.IndexOf(id)
		if idx < 0 {
			return types.Record{}, fmt.Errorf("%w: %s", types.ErrNotFound, id)
		}
		return storage.CloneRecord(s.data.Records[idx]), nil
	})
}

// Update overwrites the editable fields of a record.
func (s *jsonFileStore) Update(ctx context.Context, id string, upd types.RecordUpdate) error {
	return s.mutate(ctx, func() (func(), error) {
		idx := s.data.IndexOf(id)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", types.ErrNotFound, id)
		}

		previous := storage.CloneRecord(s.data.Records[idx])
		rec := &s.data.Records[idx]
		upd.Apply(rec)
		rec.UpdatedAt = s.timeFunc()

		return func() { s.data.Records[idx] = previous }, nil
	})
}

// Delete removes a record.
func (s *jsonFileStore) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, func() (func(), error) {
		idx := s.data.IndexOf(id)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", types.ErrNotFound, id)
		}

		previous := make([]types.Record, len(s.data.Records))
		copy(previous, s.data.Records)
		s.data.Records = append(s.data.Records[:idx], s.data.Records[idx+1:]...)

		return func() { s.data.Records = previous }, nil
	})
}

// Close removes the lock file; data is saved on every write.
func (s *jsonFileStore) Close() error {
	return s.lockManager.Execute(storage.WriteOperation, func() error {
		_ = s.fs.Remove(s.filePath + ".lock")
		return nil
	})
}
