package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gopkg.in/yaml.v3"

	imports "github.com/arthur-debert/hivdash/hivdash/import"
	"github.com/arthur-debert/hivdash/hivdash/storage"
	"github.com/arthur-debert/hivdash/hivdash/store"
	"github.com/arthur-debert/hivdash/hivdash/testutil"
	"github.com/arthur-debert/hivdash/hivdash/types"
)

func TestExportCSV(t *testing.T) {
	s, _ := testutil.LoadDataset(t)

	var buf bytes.Buffer
	summary, err := Export(context.Background(), s, &buf, CSV)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	// the fixture has no prevalence, so no row would import again
	if diff := cmp.Diff(Summary{Records: 6, Unimportable: 6}, summary); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "Entity,Code,Year,Deaths,Incidence,Prevalence" {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if lines[1] != "USA,US,1990,500,1000," {
		t.Errorf("unexpected first row: %q", lines[1])
	}
}

func TestExportCSVRoundTripsThroughImport(t *testing.T) {
	prev := 42.5
	src := []types.Record{
		{Entity: "Côte d'Ivoire", Code: "CI", Year: 2001, Deaths: 10, Incidence: 20, Prevalence: &prev},
		{Entity: "Bosnia, Herzegovina", Code: "BA", Year: 2002, Deaths: 1.5, Incidence: 3, Prevalence: &prev},
	}

	var buf bytes.Buffer
	if err := WriteRecords(&buf, src, CSV, time.Now()); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	dst := store.NewMemory()
	res, err := imports.Import(context.Background(), dst, &buf, imports.Options{})
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if res.Summary().Imported != 2 {
		t.Fatalf("expected 2 imported rows, got %+v", res.Summary())
	}

	got, _ := dst.ListAll(context.Background())
	if diff := cmp.Diff(src, got, cmpopts.IgnoreFields(types.Record{}, "ID", "CreatedAt", "UpdatedAt")); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestExportCSVWithoutPrevalenceIsSkippedOnImport(t *testing.T) {
	prev := 7.0
	src := []types.Record{
		{Entity: "Chile", Code: "CL", Year: 2001, Deaths: 12, Incidence: 340},
		{Entity: "Peru", Code: "PE", Year: 2001, Deaths: 3, Incidence: 40, Prevalence: &prev},
	}
	if got := Unimportable(src); got != 1 {
		t.Errorf("expected 1 unimportable record, got %d", got)
	}

	var buf bytes.Buffer
	if err := WriteRecords(&buf, src, CSV, time.Now()); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Chile,CL,2001,12,340,\n") {
		t.Errorf("expected an empty prevalence column, got:\n%s", buf.String())
	}

	res, err := imports.Import(context.Background(), store.NewMemory(), &buf, imports.Options{})
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	summary := res.Summary()
	if summary.Imported != 1 || summary.Skipped != 1 {
		t.Errorf("expected 1 imported and 1 skipped, got %+v", summary)
	}
}

func TestExportSummaryCountsOnlyCSV(t *testing.T) {
	s, _ := testutil.LoadDataset(t)

	summary, err := Export(context.Background(), s, &bytes.Buffer{}, JSON)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if summary.Records != 6 || summary.Unimportable != 0 {
		t.Errorf("unexpected JSON summary %+v", summary)
	}
}

func TestExportJSONMatchesStoreFileShape(t *testing.T) {
	s, ds := testutil.LoadDataset(t)

	var buf bytes.Buffer
	if _, err := Export(context.Background(), s, &buf, JSON); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var data storage.StoreData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("failed to parse export: %v", err)
	}
	if diff := cmp.Diff(ds.All, data.Records, cmpopts.EquateApproxTime(time.Millisecond)); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	if data.Metadata.Version != storage.CurrentVersion {
		t.Errorf("unexpected version %q", data.Metadata.Version)
	}
}

func TestExportYAML(t *testing.T) {
	s, _ := testutil.LoadDataset(t)

	var buf bytes.Buffer
	if _, err := Export(context.Background(), s, &buf, YAML); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var doc struct {
		Records []struct {
			Entity string  `yaml:"entity"`
			Year   int     `yaml:"year"`
			Deaths float64 `yaml:"deaths"`
		} `yaml:"records"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("failed to parse YAML: %v", err)
	}
	if len(doc.Records) != 6 {
		t.Fatalf("expected 6 records, got %d", len(doc.Records))
	}
	if doc.Records[3].Entity != "Kenya" || doc.Records[3].Deaths != 2000 {
		t.Errorf("unexpected record: %+v", doc.Records[3])
	}
}

func TestExportListFailure(t *testing.T) {
	s := testutil.NewFlakyStore(store.NewMemory())
	s.FailOn("list", errors.New("offline"))

	var buf bytes.Buffer
	if _, err := Export(context.Background(), s, &buf, CSV); err == nil {
		t.Error("expected error")
	}
	if buf.Len() != 0 {
		t.Error("nothing should be written when listing fails")
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": CSV, "CSV": CSV, "json": JSON, "yml": YAML} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
	if got := Filename(JSON, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)); got != "hivdash-export-2024-03-01T10-00-00.json" {
		t.Errorf("unexpected filename %q", got)
	}
}
