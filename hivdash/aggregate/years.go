package aggregate

import (
	"fmt"
	"slices"
	"strings"

	"github.com/arthur-debert/hivdash/hivdash/types"
)

// Order selects how year groups are ordered.
type Order string

const (
	// OrderInsertion keeps years in the order they first appear. The line
	// chart uses it.
	OrderInsertion Order = "insertion"

	// OrderNumeric sorts years ascending. The bar chart uses it.
	OrderNumeric Order = "numeric"
)

// ParseOrder parses an order name; empty selects OrderInsertion.
func ParseOrder(s string) (Order, error) {
	switch Order(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderInsertion:
		return OrderInsertion, nil
	case OrderNumeric:
		return OrderNumeric, nil
	}
	return "", fmt.Errorf("unknown order %q (want insertion or numeric)", s)
}

// YearTotal is the sum of both metrics over all records of one year.
type YearTotal struct {
	Year      int     `json:"year"`
	Incidence float64 `json:"incidence"`
	Deaths    float64 `json:"deaths"`
}

// YearTotals groups records by year in first-appearance order.
type YearTotals []YearTotal

// GroupByYear sums incidence and deaths per year.
func GroupByYear(records []types.Record) YearTotals {
	index := make(map[int]int)
	out := make(YearTotals, 0)
	for _, r := range records {
		i, ok := index[r.Year]
		if !ok {
			i = len(out)
			index[r.Year] = i
			out = append(out, YearTotal{Year: r.Year})
		}
		out[i].Incidence += r.Incidence
		out[i].Deaths += r.Deaths
	}
	return out
}

// Sorted returns a copy ordered by year.
func (yt YearTotals) Sorted() YearTotals {
	out := slices.Clone(yt)
	slices.SortFunc(out, func(a, b YearTotal) int { return a.Year - b.Year })
	return out
}

// In returns the totals in the requested order.
func (yt YearTotals) In(o Order) YearTotals {
	if o == OrderNumeric {
		return yt.Sorted()
	}
	return yt
}

// Series splits the totals into chart labels and the two value series.
func (yt YearTotals) Series() (years []int, incidence, deaths []float64) {
	years = make([]int, len(yt))
	incidence = make([]float64, len(yt))
	deaths = make([]float64, len(yt))
	for i, t := range yt {
		years[i] = t.Year
		incidence[i] = t.Incidence
		deaths[i] = t.Deaths
	}
	return years, incidence, deaths
}
