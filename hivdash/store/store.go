// Package store provides the record store backends for hivdash.
// All of them implement types.Store: a JSON file guarded by a cross-process
// file lock, a SQLite database, and an in-memory map used by tests.
package store

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/hivdash/hivdash/types"
)

// Kind names a store backend.
type Kind string

const (
	KindJSON   Kind = "json"
	KindSQLite Kind = "sqlite"
	KindMemory Kind = "memory"
)

// ParseDSN splits a store location into its backend kind and path.
//
// Accepted forms are "json://path", "sqlite://path", "memory://" and a bare
// path, whose extension picks the backend (.db, .sqlite, .sqlite3 -> sqlite,
// anything else -> json).
func ParseDSN(dsn string) (Kind, string, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return "", "", fmt.Errorf("store location is empty")
	}

	if scheme, rest, ok := strings.Cut(dsn, "://"); ok {
		switch Kind(strings.ToLower(scheme)) {
		case KindMemory:
			return KindMemory, "", nil
		case KindJSON:
			if rest == "" {
				return "", "", fmt.Errorf("json store needs a file path")
			}
			return KindJSON, rest, nil
		case KindSQLite:
			if rest == "" {
				return "", "", fmt.Errorf("sqlite store needs a file path")
			}
			return KindSQLite, rest, nil
		default:
			return "", "", fmt.Errorf("unknown store scheme %q", scheme)
		}
	}

	switch strings.ToLower(filepath.Ext(dsn)) {
	case ".db", ".sqlite", ".sqlite3":
		return KindSQLite, dsn, nil
	}
	return KindJSON, dsn, nil
}

// Open creates the store described by dsn. Options that do not apply to the
// selected backend are ignored.
func Open(dsn string, opts ...Option) (types.Store, error) {
	kind, path, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindMemory:
		return NewMemory(opts...), nil
	case KindSQLite:
		return NewSQLite(path, opts...)
	default:
		return NewJSON(path, opts...)
	}
}
