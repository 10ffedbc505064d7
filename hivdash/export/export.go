// Package export writes the case dataset as CSV, JSON or YAML.
//
// CSV output uses the import header. The importer only accepts rows with all
// six columns filled, so a record without prevalence (anything entered by hand)
// is exported with an empty Prevalence and is skipped if the file is imported
// again; Summary.Unimportable counts those rows. JSON output has the same shape
// as the JSON store file.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	imports "github.com/arthur-debert/hivdash/hivdash/import"
	"github.com/arthur-debert/hivdash/hivdash/storage"
	"github.com/arthur-debert/hivdash/hivdash/types"
)

// Format is an export encoding.
type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat parses a format name; empty selects CSV.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return "", fmt.Errorf("unsupported export format %q (want csv, json or yaml)", s)
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case JSON:
		return "application/json"
	case YAML:
		return "application/yaml"
	default:
		return "text/csv"
	}
}

// Filename returns a timestamped file name for an export taken at now.
func Filename(f Format, now time.Time) string {
	return fmt.Sprintf("hivdash-export-%s.%s", now.Format("2006-01-02T15-04-05"), f)
}

// Summary describes a finished export.
type Summary struct {
	Records int `json:"records"`
	// Unimportable is the number of CSV rows the importer would skip
	Unimportable int `json:"unimportable"`
}

// Export reads every record from lister and writes them to w.
func Export(ctx context.Context, lister types.Lister, w io.Writer, f Format) (Summary, error) {
	records, err := lister.ListAll(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list records: %w", err)
	}
	if err := WriteRecords(w, records, f, time.Now()); err != nil {
		return Summary{}, err
	}
	summary := Summary{Records: len(records)}
	if f == CSV {
		summary.Unimportable = Unimportable(records)
	}
	return summary, nil
}

// Unimportable counts the records whose CSV row the importer would skip.
func Unimportable(records []types.Record) int {
	n := 0
	for _, r := range records {
		fields := csvRow(r)
		row := make(imports.Row, len(fields))
		for i, col := range imports.Columns {
			row[col] = fields[i]
		}
		if len(imports.Missing(row)) > 0 {
			n++
		}
	}
	return n
}

// WriteRecords encodes records in the given format.
func WriteRecords(w io.Writer, records []types.Record, f Format, now time.Time) error {
	switch f {
	case CSV:
		return writeCSV(w, records)
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(envelope(records, now)); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(envelope(records, now)); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported export format %q", f)
}

func envelope(records []types.Record, now time.Time) *storage.StoreData {
	data := storage.NewStoreData(now)
	data.Records = records
	if data.Records == nil {
		data.Records = []types.Record{}
	}
	return data
}

func writeCSV(w io.Writer, records []types.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(imports.Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(csvRow(r)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// csvRow renders r in imports.Columns order.
func csvRow(r types.Record) []string {
	prevalence := ""
	if r.Prevalence != nil {
		prevalence = types.FormatNumber(*r.Prevalence)
	}
	return []string{
		r.Entity,
		r.Code,
		strconv.Itoa(r.Year),
		types.FormatNumber(r.Deaths),
		types.FormatNumber(r.Incidence),
		prevalence,
	}
}
