// Package imports loads case records from CSV into a store.
package imports

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arthur-debert/hivdash/hivdash/types"
)

var importRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "hivdash_import_rows_total",
	Help: "CSV rows processed by outcome",
}, []string{"outcome"})

// Import parses CSV from r and creates one record per valid row.
//
// Parsing finishes before the first write, so a malformed or empty input
// writes nothing. Rows are written sequentially; a rejected row is recorded
// in Result.Failed and the import goes on. Cancellation is checked between
// rows and returns the partial result along with ctx.Err().
func Import(ctx context.Context, creator types.Creator, r io.Reader, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rows, err := ReadRows(r)
	if err != nil {
		logger.Error("csv parse failed", "error", err)
		return nil, err
	}

	return ImportRows(ctx, creator, rows, opts)
}

// ImportRows writes already-parsed rows. See Import.
func ImportRows(ctx context.Context, creator types.Creator, rows []Row, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	result := &Result{
		Total:    len(rows),
		Imported: make([]ImportedRow, 0),
		Skipped:  make([]SkippedRow, 0),
		Failed:   make([]FailedRow, 0),
		DryRun:   opts.DryRun,
	}
	if len(rows) == 0 {
		return result, ErrEmpty
	}

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			logger.Warn("import cancelled", "done", i, "total", len(rows))
			return result, err
		}

		processRow(ctx, creator, i+1, row, opts, logger, result)

		if opts.OnProgress != nil {
			opts.OnProgress(Progress{
				Done:    i + 1,
				Total:   len(rows),
				Percent: percent(i+1, len(rows)),
			})
		}
	}

	s := result.Summary()
	logger.Info("import finished",
		"total", s.Total, "imported", s.Imported, "skipped", s.Skipped, "failed", s.Failed, "dry_run", opts.DryRun)
	return result, nil
}

func processRow(ctx context.Context, creator types.Creator, n int, row Row, opts Options, logger *slog.Logger, result *Result) {
	if missing := Missing(row); len(missing) > 0 {
		logger.Warn("skipping incomplete row", "row", n, "missing", missing)
		result.Skipped = append(result.Skipped, SkippedRow{Row: n, Missing: missing})
		importRowsTotal.WithLabelValues("skipped").Inc()
		return
	}

	rec := ToRecord(row)
	if opts.DryRun {
		result.Imported = append(result.Imported, ImportedRow{Row: n, ID: "[dry-run]", Entity: rec.Entity})
		importRowsTotal.WithLabelValues("dry_run").Inc()
		return
	}

	id, err := creator.Create(ctx, rec)
	if err != nil {
		logger.Error("failed to create record", "row", n, "entity", rec.Entity, "error", err)
		result.Failed = append(result.Failed, FailedRow{Row: n, Entity: rec.Entity, Error: err.Error()})
		importRowsTotal.WithLabelValues("failed").Inc()
		return
	}

	result.Imported = append(result.Imported, ImportedRow{Row: n, ID: id, Entity: rec.Entity})
	importRowsTotal.WithLabelValues("imported").Inc()
}

// ToRecord converts a row to a record. Numbers that do not parse become NaN
// and a non-numeric year becomes 0.
func ToRecord(row Row) types.Record {
	rec := types.Record{
		Entity:    row["Entity"],
		Code:      row["Code"],
		Year:      types.ParseYear(row["Year"]),
		Deaths:    types.ParseNumber(row["Deaths"]),
		Incidence: types.ParseNumber(row["Incidence"]),
	}
	if v, ok := row["Prevalence"]; ok {
		p := types.ParseNumber(v)
		rec.Prevalence = &p
	}
	return rec
}

func percent(done, total int) int {
	if total == 0 {
		return 100
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}

// String renders a one-line summary.
func (s Summary) String() string {
	return fmt.Sprintf("%d rows: %d imported, %d skipped, %d failed", s.Total, s.Imported, s.Skipped, s.Failed)
}
