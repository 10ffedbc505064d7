package imports

import (
	"errors"
	"log/slog"
)

var (
	// ErrMalformed is returned when the input cannot be parsed as CSV.
	ErrMalformed = errors.New("malformed CSV")

	// ErrEmpty is returned when the input has no data rows.
	ErrEmpty = errors.New("no data rows to import")
)

// Columns are the CSV header names a row must carry, in export order.
var Columns = []string{"Entity", "Code", "Year", "Deaths", "Incidence", "Prevalence"}

// Row is one parsed CSV data row keyed by header name.
type Row map[string]string

// Progress is published after every processed row.
type Progress struct {
	Done    int `json:"done"`
	Total   int `json:"total"`
	Percent int `json:"percent"`
}

// ProgressFunc receives import progress. It is called synchronously from the
// importing goroutine.
type ProgressFunc func(Progress)

// Options configures an import
type Options struct {
	// DryRun validates and counts rows without writing anything
	DryRun bool `json:"dry_run,omitempty"`

	// OnProgress, if set, is called after every row
	OnProgress ProgressFunc `json:"-"`

	// Logger defaults to slog.Default()
	Logger *slog.Logger `json:"-"`
}

// Result contains the outcome of an import
type Result struct {
	// Total is the number of data rows in the input
	Total int `json:"total"`

	// Imported rows, with the ids the store assigned
	Imported []ImportedRow `json:"imported"`

	// Skipped rows that were missing required columns
	Skipped []SkippedRow `json:"skipped"`

	// Failed rows that were valid but the store rejected
	Failed []FailedRow `json:"failed"`

	DryRun bool `json:"dry_run,omitempty"`
}

// ImportedRow is a row that was written (or would be, in a dry run)
type ImportedRow struct {
	Row    int    `json:"row"`
	ID     string `json:"id"`
	Entity string `json:"entity"`
}

// SkippedRow is a row left out because required columns were empty
type SkippedRow struct {
	Row     int      `json:"row"`
	Missing []string `json:"missing"`
}

// FailedRow is a valid row whose create call failed
type FailedRow struct {
	Row    int    `json:"row"`
	Entity string `json:"entity"`
	Error  string `json:"error"`
}

// Summary holds the counts of a Result.
type Summary struct {
	Total    int `json:"total"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Summary returns the row counts.
func (r *Result) Summary() Summary {
	return Summary{
		Total:    r.Total,
		Imported: len(r.Imported),
		Skipped:  len(r.Skipped),
		Failed:   len(r.Failed),
	}
}
