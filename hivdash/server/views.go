package server

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/errgroup"

	"github.com/arthur-debert/hivdash/hivdash/aggregate"
	"github.com/arthur-debert/hivdash/hivdash/geo"
	"github.com/arthur-debert/hivdash/hivdash/types"
)

// View names accepted by BuildView.
const (
	ViewComparison   = "comparison"
	ViewDistribution = "distribution"
	ViewComposition  = "composition"
	ViewWordCloud    = "wordcloud"
	ViewRelationship = "relationship"
	ViewChoropleth   = "choropleth"
	ViewBubbles      = "bubbles"
)

// ViewNames lists every view in dashboard order.
var ViewNames = []string{
	ViewComparison, ViewDistribution, ViewComposition, ViewWordCloud,
	ViewRelationship, ViewChoropleth, ViewBubbles,
}

// ViewParams are the optional inputs of the views. Each view reads only the
// fields it needs.
type ViewParams struct {
	Order  aggregate.Order
	Metric types.Metric
	// WordMetric is the word cloud metric; it starts on deaths
	WordMetric types.Metric
	// Year is the composition year; nil means aggregate.DefaultYear
	Year *int
	// WordYear filters the word cloud; nil means all years
	WordYear *int
	Search   string
	// Merge sums word cloud entries that share an entity
	Merge bool
}

// DefaultParams mirror the initial state of each view.
func DefaultParams() ViewParams {
	y := aggregate.DefaultYear
	return ViewParams{
		Order:      aggregate.OrderInsertion,
		Metric:     types.Incidence,
		WordMetric: types.Deaths,
		WordYear:   &y,
	}
}

// ParseParams reads view parameters from a query string.
func ParseParams(q url.Values) (ViewParams, error) {
	p := DefaultParams()
	var err error

	if p.Order, err = aggregate.ParseOrder(q.Get("order")); err != nil {
		return p, err
	}

	metric := q.Get("metric")
	if metric == "" {
		metric = q.Get("field")
	}
	if p.Metric, err = types.ParseMetric(metric); err != nil {
		return p, err
	}
	if metric != "" {
		p.WordMetric = p.Metric
	}

	if q.Has("year") {
		if p.WordYear, err = aggregate.ParseYearFilter(q.Get("year")); err != nil {
			return p, err
		}
		if p.WordYear != nil {
			y := *p.WordYear
			p.Year = &y
		}
	}

	p.Search = q.Get("q")

	if q.Has("merge") {
		if p.Merge, err = strconv.ParseBool(q.Get("merge")); err != nil {
			return p, fmt.Errorf("invalid merge value %q", q.Get("merge"))
		}
	}
	return p, nil
}

func (p ViewParams) year() int {
	if p.Year == nil {
		return aggregate.DefaultYear
	}
	return *p.Year
}

// ComparisonView is the year totals payload.
type ComparisonView struct {
	Order aggregate.Order      `json:"order"`
	Years aggregate.YearTotals `json:"years"`
}

// DistributionView is a density curve payload.
type DistributionView struct {
	Field types.Metric           `json:"field"`
	Curve aggregate.DensityCurve `json:"curve"`
}

// CompositionView is the per-entity totals of one year.
type CompositionView struct {
	Year     int                     `json:"year"`
	Search   string                  `json:"q"`
	Entities []aggregate.EntityTotal `json:"entities"`
	// Years are the selectable years, oldest first
	Years []int `json:"years"`
}

// WordCloudView is the word cloud payload; Year is "All" or a year.
type WordCloudView struct {
	Year   string           `json:"year"`
	Metric types.Metric     `json:"metric"`
	Merged bool             `json:"merged"`
	Words  []aggregate.Word `json:"words"`
}

// RelationshipView is the scatter payload.
type RelationshipView struct {
	Points []aggregate.Point `json:"points"`
}

// BubblesView is the bubble map payload.
type BubblesView struct {
	Metric  types.Metric `json:"metric"`
	Bubbles []geo.Bubble `json:"bubbles"`
}

// BuildView computes one named view from records.
func BuildView(name string, records []types.Record, world *geo.World, p ViewParams) (interface{}, error) {
	switch name {
	case ViewComparison:
		return ComparisonView{Order: p.Order, Years: aggregate.GroupByYear(records).In(p.Order)}, nil
	case ViewDistribution:
		values := aggregate.Values(records, p.Metric)
		return DistributionView{
			Field: p.Metric,
			Curve: aggregate.Density(values, aggregate.DefaultSamples, aggregate.DefaultBandwidth),
		}, nil
	case ViewComposition:
		return compositionView(records, p), nil
	case ViewWordCloud:
		label := "All"
		if p.WordYear != nil {
			label = strconv.Itoa(*p.WordYear)
		}
		words := aggregate.WordWeights(records, p.WordYear, p.WordMetric)
		if p.Merge {
			words = aggregate.AggregateWords(words)
		}
		return WordCloudView{Year: label, Metric: p.WordMetric, Merged: p.Merge, Words: words}, nil
	case ViewRelationship:
		return RelationshipView{Points: aggregate.ScatterPoints(records)}, nil
	case ViewChoropleth:
		return geo.Join(world, aggregate.EntityTotals(records), p.Metric), nil
	case ViewBubbles:
		return BubblesView{Metric: p.Metric, Bubbles: geo.Bubbles(world, records, p.Metric)}, nil
	}
	return nil, invalid(fmt.Errorf("unknown view %q (want one of %s)", name, strings.Join(ViewNames, ", ")))
}

func compositionView(records []types.Record, p ViewParams) CompositionView {
	return CompositionView{
		Year:     p.year(),
		Search:   p.Search,
		Entities: aggregate.EntityTotalsForYear(records, p.year(), p.Search),
		Years:    aggregate.SelectableYears(),
	}
}

// Dashboard holds every view computed from one snapshot.
type Dashboard struct {
	Records      int                         `json:"records"`
	Comparison   ComparisonView              `json:"comparison"`
	Sorted       ComparisonView              `json:"comparison_sorted"`
	Distribution map[string]DistributionView `json:"distribution"`
	Composition  CompositionView             `json:"composition"`
	WordCloud    WordCloudView               `json:"wordcloud"`
	Relationship RelationshipView            `json:"relationship"`
	Choropleth   *geojson.FeatureCollection  `json:"choropleth"`
	Bubbles      BubblesView                 `json:"bubbles"`
}

// BuildDashboard computes all views in parallel over the same records.
func BuildDashboard(ctx context.Context, records []types.Record, world *geo.World, p ViewParams) (*Dashboard, error) {
	d := &Dashboard{Records: len(records)}
	var incidence, deaths DistributionView

	g, ctx := errgroup.WithContext(ctx)
	build := func(fn func()) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn()
			return nil
		})
	}

	build(func() {
		totals := aggregate.GroupByYear(records)
		d.Comparison = ComparisonView{Order: aggregate.OrderInsertion, Years: totals}
		d.Sorted = ComparisonView{Order: aggregate.OrderNumeric, Years: totals.Sorted()}
	})
	build(func() {
		incidence = DistributionView{Field: types.Incidence, Curve: aggregate.Density(aggregate.Values(records, types.Incidence), 0, 0)}
	})
	build(func() {
		deaths = DistributionView{Field: types.Deaths, Curve: aggregate.Density(aggregate.Values(records, types.Deaths), 0, 0)}
	})
	build(func() {
		d.Composition = compositionView(records, p)
	})
	build(func() {
		v, _ := BuildView(ViewWordCloud, records, world, p)
		d.WordCloud = v.(WordCloudView)
	})
	build(func() {
		d.Relationship = RelationshipView{Points: aggregate.ScatterPoints(records)}
	})
	build(func() {
		d.Choropleth = geo.Join(world, aggregate.EntityTotals(records), p.Metric)
	})
	build(func() {
		d.Bubbles = BubblesView{Metric: p.Metric, Bubbles: geo.Bubbles(world, records, p.Metric)}
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	d.Distribution = map[string]DistributionView{
		string(types.Incidence): incidence,
		string(types.Deaths):    deaths,
	}
	return d, nil
}
