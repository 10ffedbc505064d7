package types

import (
	"encoding/json"
	"math"
	"testing"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		nan  bool
	}{
		{in: "12", want: 12},
		{in: "  42 ", want: 42},
		{in: "", want: 0},
		{in: "   ", want: 0},
		{in: "1.5", want: 1.5},
		{in: "-3", want: -3},
		{in: "1e3", want: 1000},
		{in: "0x10", want: 16},
		{in: "abc", nan: true},
		{in: "12abc", nan: true},
		{in: "nan", nan: true},
		{in: "inf", nan: true},
		{in: "Infinity", nan: true},
		{in: "-Infinity", nan: true},
		{in: "1e999", nan: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseNumber(tt.in)
			if tt.nan {
				if !math.IsNaN(got) {
					t.Errorf("ParseNumber(%q) = %v, want NaN", tt.in, got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseNumber(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseYear(t *testing.T) {
	if got := ParseYear("1990"); got != 1990 {
		t.Errorf("expected 1990, got %d", got)
	}
	if got := ParseYear("nope"); got != 0 {
		t.Errorf("expected 0 for malformed year, got %d", got)
	}
	if got := ParseYear("2001.7"); got != 2001 {
		t.Errorf("expected truncation to 2001, got %d", got)
	}
}

func TestFormatNumber(t *testing.T) {
	cases := map[float64]string{
		1000:       "1000",
		1.25:       "1.25",
		math.NaN(): "NaN",
	}
	for in, want := range cases {
		if got := FormatNumber(in); got != want {
			t.Errorf("FormatNumber(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestRecordJSONRoundTripKeepsNaN(t *testing.T) {
	prev := math.NaN()
	rec := Record{ID: "a", Entity: "USA", Code: "US", Year: 2000, Deaths: math.NaN(), Incidence: 10, Prevalence: &prev}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var back Record
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !math.IsNaN(back.Deaths) {
		t.Errorf("expected NaN deaths after round trip, got %v", back.Deaths)
	}
	if back.Incidence != 10 {
		t.Errorf("expected incidence 10, got %v", back.Incidence)
	}
	if back.Prevalence == nil || !math.IsNaN(*back.Prevalence) {
		t.Errorf("expected NaN prevalence to survive, got %v", back.Prevalence)
	}
}

func TestRecordJSONOmitsMissingPrevalence(t *testing.T) {
	data, err := json.Marshal(Record{ID: "b", Entity: "FRA", Deaths: 1, Incidence: 2})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if _, ok := raw["prevalence"]; ok {
		t.Error("prevalence should be omitted for manually entered records")
	}

	var back Record
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if back.Prevalence != nil {
		t.Errorf("expected nil prevalence, got %v", *back.Prevalence)
	}
}

func TestRecordUpdateApply(t *testing.T) {
	prev := 7.0
	rec := Record{ID: "x", Entity: "A", Code: "AA", Year: 1990, Deaths: 1, Incidence: 2, Prevalence: &prev}

	RecordUpdate{Entity: "B", Code: "BB", Year: 1991, Deaths: 3, Incidence: 4}.Apply(&rec)

	if rec.Entity != "B" || rec.Code != "BB" || rec.Year != 1991 || rec.Deaths != 3 || rec.Incidence != 4 {
		t.Errorf("fields not overwritten: %+v", rec)
	}
	if rec.Prevalence == nil || *rec.Prevalence != 7 {
		t.Error("prevalence should be preserved when the update leaves it nil")
	}
	if rec.ID != "x" {
		t.Error("id must never change on update")
	}
}

func TestParseMetric(t *testing.T) {
	for in, want := range map[string]Metric{"": Incidence, "Deaths": Deaths, "INCIDENCE": Incidence} {
		got, err := ParseMetric(in)
		if err != nil {
			t.Fatalf("ParseMetric(%q) failed: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseMetric(%q) = %s, want %s", in, got, want)
		}
	}
	if _, err := ParseMetric("prevalence"); err == nil {
		t.Error("expected error for unsupported metric")
	}
	if Incidence.Toggle() != Deaths || Deaths.Toggle() != Incidence {
		t.Error("Toggle should switch between the two metrics")
	}
}
