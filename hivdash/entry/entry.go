// Package entry implements the single-record entry form.
package entry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/arthur-debert/hivdash/hivdash/types"
)

// Form holds the raw text of one record as typed by the user.
type Form struct {
	Entity    string `json:"entity"`
	Code      string `json:"code"`
	Year      string `json:"year"`
	Deaths    string `json:"deaths"`
	Incidence string `json:"incidence"`
}

// ValidationError lists the required fields left empty.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Missing, ", "))
}

// Validate reports every blank field, in form order.
func (f *Form) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"entity", f.Entity},
		{"code", f.Code},
		{"year", f.Year},
		{"deaths", f.Deaths},
		{"incidence", f.Incidence},
	}

	var missing []string
	for _, field := range fields {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// Record converts the form to a record using the importer's number rules.
func (f *Form) Record() types.Record {
	return types.Record{
		Entity:    f.Entity,
		Code:      f.Code,
		Year:      types.ParseYear(f.Year),
		Deaths:    types.ParseNumber(f.Deaths),
		Incidence: types.ParseNumber(f.Incidence),
	}
}

// Reset clears every field.
func (f *Form) Reset() {
	*f = Form{}
}

// Submit validates the form and creates one record. The form is cleared only
// when the create succeeds; on failure it keeps what the user typed.
func (f *Form) Submit(ctx context.Context, creator types.Creator, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := f.Validate(); err != nil {
		return "", err
	}

	rec := f.Record()
	id, err := creator.Create(ctx, rec)
	if err != nil {
		logger.Error("failed to add record", "entity", rec.Entity, "year", rec.Year, "error", err)
		return "", fmt.Errorf("failed to add record: %w", err)
	}

	logger.Info("record added", "id", id, "entity", rec.Entity, "year", rec.Year)
	f.Reset()
	return id, nil
}
