// Package types defines the record model and the store contract shared by every
// hivdash package. It exists so that store backends, the importer, the table
// and the aggregation views agree on one definition without importing each other.
package types

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"
)

// ErrNotFound is returned (wrapped with the id) when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Record is one row of the case dataset.
//
// Deaths and Incidence are float64 because malformed input is coerced to NaN
// rather than rejected; callers must tolerate NaN in both fields.
type Record struct {
	ID         string    `json:"id" yaml:"id"`
	Entity     string    `json:"entity" yaml:"entity"`
	Code       string    `json:"code" yaml:"code"`
	Year       int       `json:"year" yaml:"year"`
	Deaths     float64   `json:"deaths" yaml:"deaths"`
	Incidence  float64   `json:"incidence" yaml:"incidence"`
	Prevalence *float64  `json:"prevalence,omitempty" yaml:"prevalence,omitempty"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"updated_at"`
}

// recordJSON is the wire shape of Record. Numbers are pointers so NaN can be
// written as null, which encoding/json refuses to emit for a bare float.
type recordJSON struct {
	ID         string    `json:"id"`
	Entity     string    `json:"entity"`
	Code       string    `json:"code"`
	Year       int       `json:"year"`
	Deaths     *float64  `json:"deaths"`
	Incidence  *float64  `json:"incidence"`
	Prevalence *float64  `json:"prevalence,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// MarshalJSON writes NaN numbers as null.
func (r Record) MarshalJSON() ([]byte, error) {
	w := recordJSON{
		ID:        r.ID,
		Entity:    r.Entity,
		Code:      r.Code,
		Year:      r.Year,
		Deaths:    finitePtr(r.Deaths),
		Incidence: finitePtr(r.Incidence),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Prevalence != nil {
		w.Prevalence = finitePtr(*r.Prevalence)
		if w.Prevalence == nil {
			// a NaN prevalence is still present, so it is written as null
			return marshalWithNullPrevalence(w)
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads null numbers back as NaN.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var w recordJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Record{
		ID:        w.ID,
		Entity:    w.Entity,
		Code:      w.Code,
		Year:      w.Year,
		Deaths:    nanIfNil(w.Deaths),
		Incidence: nanIfNil(w.Incidence),
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
	if msg, ok := raw["prevalence"]; ok {
		v := math.NaN()
		if string(msg) != "null" {
			v = *w.Prevalence
		}
		r.Prevalence = &v
	}
	return nil
}

func marshalWithNullPrevalence(w recordJSON) ([]byte, error) {
	type withNull struct {
		recordJSON
		Prevalence *float64 `json:"prevalence"`
	}
	return json.Marshal(withNull{recordJSON: w})
}

// Nullable returns nil for NaN and infinities and &v otherwise, the JSON
// encoding of a number that may be missing.
func Nullable(v float64) *float64 {
	return finitePtr(v)
}

func finitePtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func nanIfNil(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// Value returns the record's value for a metric.
func (r Record) Value(m Metric) float64 {
	if m == Deaths {
		return r.Deaths
	}
	return r.Incidence
}

// RecordUpdate is a whole-record overwrite of the user-editable fields.
// Prevalence is only changed when non-nil.
type RecordUpdate struct {
	Entity     string
	Code       string
	Year       int
	Deaths     float64
	Incidence  float64
	Prevalence *float64
}

// UpdateFrom builds the overwrite that turns the stored record into r.
func UpdateFrom(r Record) RecordUpdate {
	return RecordUpdate{
		Entity:     r.Entity,
		Code:       r.Code,
		Year:       r.Year,
		Deaths:     r.Deaths,
		Incidence:  r.Incidence,
		Prevalence: r.Prevalence,
	}
}

// Apply overwrites the editable fields of r.
func (u RecordUpdate) Apply(r *Record) {
	r.Entity = u.Entity
	r.Code = u.Code
	r.Year = u.Year
	r.Deaths = u.Deaths
	r.Incidence = u.Incidence
	if u.Prevalence != nil {
		p := *u.Prevalence
		r.Prevalence = &p
	}
}

// Creator is the subset of Store used by the importer and the entry form.
type Creator interface {
	Create(ctx context.Context, rec Record) (string, error)
}

// Lister is the subset of Store used by read-only views.
type Lister interface {
	ListAll(ctx context.Context) ([]Record, error)
}

// Store is the record store contract. Every backend (JSON file, SQLite,
// memory) implements it; every view receives it as an injected collaborator.
type Store interface {
	Creator
	Lister

	// Get returns a single record by id.
	Get(ctx context.Context, id string) (Record, error)

	// Update overwrites the editable fields of the record with the given id.
	Update(ctx context.Context, id string, upd RecordUpdate) error

	// Delete removes the record with the given id.
	Delete(ctx context.Context, id string) error

	// Close releases any resources held by the store.
	Close() error
}
