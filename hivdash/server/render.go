package server

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/arthur-debert/hivdash/hivdash/aggregate"
	"github.com/arthur-debert/hivdash/hivdash/charts"
	"github.com/arthur-debert/hivdash/hivdash/types"
)

var errMissingExtension = errors.New("chart name needs a .png or .svg extension")

// ChartNames lists the renderable charts.
var ChartNames = []string{"comparison-line", "comparison-bar", "distribution", "relationship", "composition"}

// RenderChart draws a named chart of records.
func RenderChart(w io.Writer, name string, records []types.Record, p ViewParams, f charts.Format, size charts.Size) error {
	switch name {
	case "comparison-line":
		return charts.ComparisonLine(w, aggregate.GroupByYear(records).In(p.Order), f, size)
	case "comparison-bar":
		order := p.Order
		if order == aggregate.OrderInsertion {
			order = aggregate.OrderNumeric
		}
		return charts.ComparisonBar(w, aggregate.GroupByYear(records).In(order), f, size)
	case "distribution":
		curve := aggregate.Density(aggregate.Values(records, p.Metric), aggregate.DefaultSamples, aggregate.DefaultBandwidth)
		return charts.Distribution(w, curve, p.Metric, f, size)
	case "relationship":
		return charts.Relationship(w, aggregate.ScatterPoints(records), f, size)
	case "composition":
		return charts.Composition(w, aggregate.EntityTotalsForYear(records, p.year(), p.Search), p.Metric, f, size)
	}
	return invalid(fmt.Errorf("unknown chart %q (want one of %s)", name, strings.Join(ChartNames, ", ")))
}
