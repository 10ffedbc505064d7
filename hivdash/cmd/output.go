package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/hivdash/hivdash/export"
	"github.com/arthur-debert/hivdash/hivdash/table"
	"github.com/arthur-debert/hivdash/hivdash/types"
)

// OutputFormatter handles formatting command results for different output formats
type OutputFormatter struct {
	format string
	quiet  bool
}

// NewOutputFormatter creates a new output formatter
func NewOutputFormatter(format string, quiet bool) *OutputFormatter {
	return &OutputFormatter{format: strings.ToLower(format), quiet: quiet}
}

func (of *OutputFormatter) validate() error {
	switch of.format {
	case "table", "json", "yaml", "csv":
		return nil
	}
	return NewValidationError("format output", "format", of.format, "Use one of: table, json, yaml, csv")
}

// Records writes records in the configured format
func (of *OutputFormatter) Records(w io.Writer, records []types.Record) error {
	if err := of.validate(); err != nil {
		return err
	}
	switch of.format {
	case "json":
		return of.writeJSON(w, records)
	case "yaml":
		return of.writeYAML(w, records)
	case "csv":
		return export.WriteRecords(w, records, export.CSV, time.Now())
	default:
		return of.recordTable(w, records)
	}
}

// Value writes an arbitrary result. Tables are only defined for records, so
// table output falls back to YAML.
func (of *OutputFormatter) Value(w io.Writer, v interface{}) error {
	if err := of.validate(); err != nil {
		return err
	}
	if of.format == "json" {
		return of.writeJSON(w, v)
	}
	return of.writeYAML(w, v)
}

func (of *OutputFormatter) writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// writeYAML goes through JSON so the JSON encoders (NaN as null, GeoJSON)
// shape the document.
func (of *OutputFormatter) writeYAML(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = w.Write(buf.Bytes())
	return err
}

func (of *OutputFormatter) recordTable(w io.Writer, records []types.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if !of.quiet {
		caser := cases.Title(language.Und)
		headers := []string{"ID"}
		for _, c := range table.Columns {
			headers = append(headers, caser.String(string(c)))
		}
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
	}

	for _, r := range records {
		d := table.DraftOf(r)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, d.Entity, d.Code, d.Year, d.Deaths, d.Incidence)
	}
	return tw.Flush()
}
