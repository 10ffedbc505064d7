package storage

import (
	"sync"
)

// OperationType defines whether an operation is read or write.
// Read operations share the lock; write operations hold it exclusively.
type OperationType int

const (
	// ReadOperation indicates an operation that only reads data.
	ReadOperation OperationType = iota

	// WriteOperation indicates an operation that modifies data.
	WriteOperation
)

// LockManager provides centralized lock management for thread-safe store operations.
// Every store method runs its body through Execute so the read/write discipline
// lives in one place instead of scattered Lock/Unlock pairs.
type LockManager struct {
	mu *sync.RWMutex
}

// NewLockManager creates a new lock manager instance.
func NewLockManager() *LockManager {
	return &LockManager{
		mu: &sync.RWMutex{},
	}
}

// Execute runs fn holding the lock that matches opType.
// The lock is released via defer, so a panicking fn does not leave it held.
//
// Example:
//
//	err := lockManager.Execute(ReadOperation, func() error {
//	    // Safe to read data here
//	    return nil
//	})
func (lm *LockManager) Execute(opType OperationType, fn func() error) error {
	switch opType {
	case ReadOperation:
		lm.mu.RLock()
		defer lm.mu.RUnlock()
	case WriteOperation:
		lm.mu.Lock()
		defer lm.mu.Unlock()
	}
	return fn()
}

// ExecuteWithResult is Execute for functions that also produce a value.
func ExecuteWithResult[T any](lm *LockManager, opType OperationType, fn func() (T, error)) (T, error) {
	var result T
	err := lm.Execute(opType, func() error {
		var err error
		result, err = fn()
		return err
	})
	return result, err
}
