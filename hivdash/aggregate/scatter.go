package aggregate

import (
	"math"

	"github.com/arthur-debert/hivdash/hivdash/types"
)

// Point is one scatter point: deaths on X, incidence on Y.
type Point struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Year  int     `json:"year"`
	Color string  `json:"color"`
}

// ScatterPoints maps every record to a point colored by its year.
func ScatterPoints(records []types.Record) []Point {
	out := make([]Point, len(records))
	for i, r := range records {
		out[i] = Point{X: r.Deaths, Y: r.Incidence, Year: r.Year, Color: YearColor(r.Year)}
	}
	return out
}

// EntityTotals sums both metrics per entity over all years, in
// first-appearance order. Records without an entity are skipped and missing
// numbers count as 0.
func EntityTotals(records []types.Record) []EntityTotal {
	index := make(map[string]int)
	out := make([]EntityTotal, 0)
	for _, r := range records {
		if r.Entity == "" {
			continue
		}
		i, ok := index[r.Entity]
		if !ok {
			i = len(out)
			index[r.Entity] = i
			out = append(out, EntityTotal{Entity: r.Entity})
		}
		out[i].Incidence += zeroIfNaN(r.Incidence)
		out[i].Deaths += zeroIfNaN(r.Deaths)
	}
	return out
}

// EntityTotalsMap indexes totals by entity.
func EntityTotalsMap(totals []EntityTotal) map[string]EntityTotal {
	m := make(map[string]EntityTotal, len(totals))
	for _, t := range totals {
		m[t.Entity] = t
	}
	return m
}

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
