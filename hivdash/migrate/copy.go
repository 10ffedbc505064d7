package migrate

import (
	"context"
	"log/slog"
	"time"

	"github.com/arthur-debert/hivdash/hivdash/storage"
	"github.com/arthur-debert/hivdash/hivdash/types"
)

// Copy creates every record in dst, in order. The destination assigns new
// ids; Affected lists them. A failed create is reported and the copy goes on,
// as the CSV import does. With DryRun nothing is written.
func Copy(ctx context.Context, records []types.Record, dst types.Creator, opts Options, logger *slog.Logger) *Result {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	result := newResult(len(records))
	result.add(LevelInfo, nil, "Copying %d records", len(records))

	for i, r := range records {
		if err := ctx.Err(); err != nil {
			result.Success = false
			result.Code = CodeExecutionError
			result.add(LevelError, nil, "copy cancelled after %d of %d records: %v", i, len(records), err)
			break
		}

		if opts.DryRun {
			if opts.Verbose {
				result.add(LevelDebug, nil, "would copy %s (%s %d)", r.ID, r.Entity, r.Year)
			}
			continue
		}

		id, err := dst.Create(ctx, storage.CloneRecord(r))
		if err != nil {
			logger.Error("failed to copy record", "id", r.ID, "error", err)
			result.Stats.FailedRecords++
			result.Success = false
			result.Code = CodePartialFailure
			result.add(LevelError, map[string]interface{}{"id": r.ID}, "record %s: %v", r.ID, err)
			continue
		}
		result.Affected = append(result.Affected, id)
		if opts.Verbose {
			result.add(LevelDebug, nil, "copied %s as %s", r.ID, id)
		}
	}

	result.Stats.AffectedRecords = len(result.Affected)
	result.Stats.Duration = time.Since(start)
	logger.Info("copy finished",
		"total", len(records), "copied", result.Stats.AffectedRecords,
		"failed", result.Stats.FailedRecords, "dry_run", opts.DryRun)
	return result
}
