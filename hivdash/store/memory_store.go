package store

import (
	"context"
	"fmt"
	"time"

	"github.com/arthur-debert/hivdash/hivdash/storage"
	"github.com/arthur-debert/hivdash/hivdash/types"
)

// memoryStore keeps records in process memory. It backs "memory://" and the
// tests of every package that needs a working store.
type memoryStore struct {
	lockManager *storage.LockManager
	data        *storage.StoreData
	timeFunc    func() time.Time
	idFunc      func() string
}

// NewMemory returns an empty in-memory store.
func NewMemory(opts ...Option) types.Store {
	o := newOptions(opts)
	return &memoryStore{
		lockManager: storage.NewLockManager(),
		data:        storage.NewStoreData(o.timeFunc()),
		timeFunc:    o.timeFunc,
		idFunc:      o.idFunc,
	}
}

func (m *memoryStore) Create(ctx context.Context, rec types.Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return storage.ExecuteWithResult(m.lockManager, storage.WriteOperation, func() (string, error) {
		now := m.timeFunc()
		rec = storage.CloneRecord(rec)
		rec.ID = m.idFunc()
		rec.CreatedAt = now
		rec.UpdatedAt = now
		m.data.Records = append(m.data.Records, rec)
		return rec.ID, nil
	})
}

func (m *memoryStore) ListAll(ctx context.Context) ([]types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return storage.ExecuteWithResult(m.lockManager, storage.ReadOperation, func() ([]types.Record, error) {
		return m.data.Snapshot(), nil
	})
}

func (m *memoryStore) Get(ctx context.Context, id string) (types.Record, error) {
	if err := ctx.Err(); err != nil {
		return types.Record{}, err
	}
	return storage.ExecuteWithResult(m.lockManager, storage.ReadOperation, func() (types.Record, error) {
		idx := m.data.IndexOf(id)
		if idx < 0 {
			return types.Record{}, fmt.Errorf("%w: %s", types.ErrNotFound, id)
		}
		return storage.CloneRecord(m.data.Records[idx]), nil
	})
}

func (m *memoryStore) Update(ctx context.Context, id string, upd types.RecordUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.lockManager.Execute(storage.WriteOperation, func() error {
		idx := m.data.IndexOf(id)
		if idx < 0 {
			return fmt.Errorf("%w: %s", types.ErrNotFound, id)
		}
		upd.Apply(&m.data.Records[idx])
		m.data.Records[idx].UpdatedAt = m.timeFunc()
		return nil
	})
}

func (m *memoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.lockManager.Execute(storage.WriteOperation, func() error {
		idx := m.data.IndexOf(id)
		if idx < 0 {
			return fmt.Errorf("%w: %s", types.ErrNotFound, id)
		}
		m.data.Records = append(m.data.Records[:idx], m.data.Records[idx+1:]...)
		return nil
	})
}

func (m *memoryStore) Close() error { return nil }
