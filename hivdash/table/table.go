// Package table holds the state of the editable record table: a local copy
// of the records plus search, sort and single-row edit state. Mutations go
// straight to the store and are mirrored locally only when the store call
// succeeds.
package table

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/arthur-debert/hivdash/hivdash/types"
)

var (
	ErrNotEditing    = errors.New("no row is being edited")
	ErrUnknownColumn = errors.New("unknown column")
	ErrRowNotFound   = errors.New("row not found")
)

// Column names a sortable and editable table column.
type Column string

const (
	ColEntity    Column = "entity"
	ColCode      Column = "code"
	ColYear      Column = "year"
	ColDeaths    Column = "deaths"
	ColIncidence Column = "incidence"
)

// Columns lists the table columns in display order.
var Columns = []Column{ColEntity, ColCode, ColYear, ColDeaths, ColIncidence}

// ParseColumn validates a column name.
func ParseColumn(s string) (Column, error) {
	c := Column(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Columns, c) {
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownColumn, s)
}

// Direction is a sort direction.
type Direction string

const (
	Ascending  Direction = "ascending"
	Descending Direction = "descending"
)

// SortState is the active sort.
type SortState struct {
	Column    Column    `json:"column"`
	Direction Direction `json:"direction"`
}

// Draft is the text of a row being edited.
type Draft struct {
	Entity    string `json:"entity"`
	Code      string `json:"code"`
	Year      string `json:"year"`
	Deaths    string `json:"deaths"`
	Incidence string `json:"incidence"`
}

// DraftOf renders a record as editable text.
func DraftOf(r types.Record) Draft {
	return Draft{
		Entity:    r.Entity,
		Code:      r.Code,
		Year:      strconv.Itoa(r.Year),
		Deaths:    types.FormatNumber(r.Deaths),
		Incidence: types.FormatNumber(r.Incidence),
	}
}

// Update converts the draft to a whole-record overwrite.
func (d Draft) Update() types.RecordUpdate {
	return types.RecordUpdate{
		Entity:    d.Entity,
		Code:      d.Code,
		Year:      types.ParseYear(d.Year),
		Deaths:    types.ParseNumber(d.Deaths),
		Incidence: types.ParseNumber(d.Incidence),
	}
}

type editState struct {
	id       string
	snapshot types.Record
	draft    Draft
}

// Table is safe for concurrent use.
type Table struct {
	store  types.Store
	logger *slog.Logger

	mu      sync.Mutex
	rows    []types.Record
	query   string
	sort    *SortState
	editing *editState
}

// New creates an empty table over store. Call Load to fill it.
func New(store types.Store, logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}
	return &Table{store: store, logger: logger}
}

// Load replaces the local rows with the store's records. Any edit in
// progress is dropped.
func (t *Table) Load(ctx context.Context) error {
	records, err := t.store.ListAll(ctx)
	if err != nil {
		t.logger.Error("failed to load records", "error", err)
		return fmt.Errorf("failed to load records: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = records
	t.editing = nil
	return nil
}

// SetSearch sets the filter text. Empty text matches every row.
func (t *Table) SetSearch(query string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.query = query
}

// SortBy sorts by column. Sorting by the active column flips its direction;
// any other column starts ascending.
func (t *Table) SortBy(column Column) error {
	if !slices.Contains(Columns, column) {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	dir := Ascending
	if t.sort != nil && t.sort.Column == column && t.sort.Direction == Ascending {
		dir = Descending
	}
	t.sort = &SortState{Column: column, Direction: dir}
	return nil
}

// SetSort sets the sort explicitly.
func (t *Table) SetSort(s SortState) error {
	if !slices.Contains(Columns, s.Column) {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, s.Column)
	}
	if s.Direction != Descending {
		s.Direction = Ascending
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.sort = &s
	return nil
}

// Sort returns the active sort, if any.
func (t *Table) Sort() (SortState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sort == nil {
		return SortState{}, false
	}
	return *t.sort, true
}

// Rows returns the filtered and sorted rows. It is recomputed on every call.
func (t *Table) Rows() []types.Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return View(t.rows, t.query, t.sort)
}

// View filters rows by query and sorts them with s (nil keeps input order).
func View(rows []types.Record, query string, s *SortState) []types.Record {
	out := make([]types.Record, 0, len(rows))
	for _, r := range rows {
		if Matches(r, query) {
			out = append(out, r)
		}
	}
	if s != nil {
		desc := s.Direction == Descending
		slices.SortStableFunc(out, func(a, b types.Record) int {
			return compare(a, b, s.Column, desc)
		})
	}
	return out
}

// Matches reports whether a record contains query. Entity and code match
// case-insensitively; numbers match against their displayed text.
func Matches(r types.Record, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(r.Entity), q) ||
		strings.Contains(strings.ToLower(r.Code), q) ||
		strings.Contains(strconv.Itoa(r.Year), query) ||
		strings.Contains(types.FormatNumber(r.Deaths), query) ||
		strings.Contains(types.FormatNumber(r.Incidence), query)
}

func compare(a, b types.Record, c Column, desc bool) int {
	var r int
	switch c {
	case ColEntity:
		r = strings.Compare(a.Entity, b.Entity)
	case ColCode:
		r = strings.Compare(a.Code, b.Code)
	case ColYear:
		r = cmp.Compare(a.Year, b.Year)
	case ColDeaths:
		return compareNumbers(a.Deaths, b.Deaths, desc)
	case ColIncidence:
		return compareNumbers(a.Incidence, b.Incidence, desc)
	}
	if desc {
		return -r
	}
	return r
}

// compareNumbers orders NaN after every number in either direction.
func compareNumbers(a, b float64, desc bool) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	}
	if desc {
		return cmp.Compare(b, a)
	}
	return cmp.Compare(a, b)
}
