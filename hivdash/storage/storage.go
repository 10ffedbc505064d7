// Package storage provides the persistence envelope for hivdash stores.
// It defines the on-disk data shape and the lock manager shared by the
// file-backed store implementations.
package storage

import (
	"time"

	"github.com/arthur-debert/hivdash/hivdash/types"
)

// CurrentVersion is written into the metadata of every saved file.
const CurrentVersion = "1.0"

// StoreData represents the complete data structure stored in the backend
type StoreData struct {
	Records  []types.Record `json:"records" yaml:"records"`
	Metadata Metadata       `json:"metadata" yaml:"metadata"`
}

// Metadata contains storage metadata
type Metadata struct {
	Version   string    `json:"version" yaml:"version"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// NewStoreData returns an empty data set stamped with now.
func NewStoreData(now time.Time) *StoreData {
	return &StoreData{
		Records: []types.Record{},
		Metadata: Metadata{
			Version:   CurrentVersion,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// IndexOf returns the position of the record with the given id, or -1.
func (d *StoreData) IndexOf(id string) int {
	for i := range d.Records {
		if d.Records[i].ID == id {
			return i
		}
	}
	return -1
}

// Snapshot returns a deep copy of the records so callers can mutate the
// result without touching the stored state.
func (d *StoreData) Snapshot() []types.Record {
	out := make([]types.Record, len(d.Records))
	for i, rec := range d.Records {
		out[i] = CloneRecord(rec)
	}
	return out
}

// CloneRecord copies a record including its optional prevalence pointer.
func CloneRecord(rec types.Record) types.Record {
	if rec.Prevalence != nil {
		p := *rec.Prevalence
		rec.Prevalence = &p
	}
	return rec
}
