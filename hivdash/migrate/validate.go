package migrate

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/arthur-debert/hivdash/hivdash/types"
)

// Validate reports data-quality problems the store itself does not enforce.
//
// Errors: empty entity or code. Warnings: a zero year (what a non-numeric
// year becomes on import), NaN or negative deaths and incidence, and
// several records for the same entity and year. Only errors make the result
// unsuccessful.
func Validate(records []types.Record, opts Options) *Result {
	start := time.Now()
	result := newResult(len(records))
	result.add(LevelInfo, nil, "Validating %d records", len(records))

	seen := make(map[string]string)
	for _, r := range records {
		var problems []string
		level := LevelWarning

		if strings.TrimSpace(r.Entity) == "" {
			problems = append(problems, "entity is empty")
			level = LevelError
		}
		if strings.TrimSpace(r.Code) == "" {
			problems = append(problems, "code is empty")
			level = LevelError
		}
		if r.Year == 0 {
			problems = append(problems, "year is missing or not a number")
		}
		for _, m := range types.Metrics {
			v := r.Value(m)
			switch {
			case math.IsNaN(v):
				problems = append(problems, fmt.Sprintf("%s is not a number", m))
			case v < 0:
				problems = append(problems, fmt.Sprintf("%s is negative", m))
			}
		}

		key := fmt.Sprintf("%s\x00%d", r.Entity, r.Year)
		if first, dup := seen[key]; dup {
			problems = append(problems, fmt.Sprintf("duplicate of %s for %s %d", first, r.Entity, r.Year))
		} else {
			seen[key] = r.ID
		}

		if len(problems) == 0 {
			if opts.Verbose {
				result.add(LevelDebug, nil, "%s ok", r.ID)
			}
			continue
		}

		result.Affected = append(result.Affected, r.ID)
		result.add(level, map[string]interface{}{"id": r.ID, "entity": r.Entity, "year": r.Year},
			"record %s: %s", r.ID, strings.Join(problems, "; "))
		if level == LevelError {
			result.Success = false
			result.Code = CodeValidationError
		}
	}

	result.Stats.AffectedRecords = len(result.Affected)
	result.Stats.Duration = time.Since(start)
	return result
}
