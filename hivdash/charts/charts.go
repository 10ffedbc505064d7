// Package charts renders the dashboard views as PNG or SVG images with
// go-chart.
package charts

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/arthur-debert/hivdash/hivdash/aggregate"
	"github.com/arthur-debert/hivdash/hivdash/types"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no data to chart")

// Format is an image encoding.
type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
)

// ParseFormat parses an image format name or file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(s), ".") {
	case "", "png":
		return PNG, nil
	case "svg":
		return SVG, nil
	}
	return "", fmt.Errorf("unsupported image format %q (want png or svg)", s)
}

// ContentType is the MIME type of the format.
func (f Format) ContentType() string {
	if f == SVG {
		return "image/svg+xml"
	}
	return "image/png"
}

func (f Format) renderer() chart.RendererProvider {
	if f == SVG {
		return chart.SVG
	}
	return chart.PNG
}

// Size is the image size in pixels.
type Size struct {
	Width  int
	Height int
}

// DefaultSize is used when a dimension is zero.
var DefaultSize = Size{Width: 1024, Height: 512}

func (s Size) orDefault() Size {
	if s.Width <= 0 {
		s.Width = DefaultSize.Width
	}
	if s.Height <= 0 {
		s.Height = DefaultSize.Height
	}
	return s
}

var (
	incidenceColor = drawing.Color{R: 45, G: 206, B: 137, A: 255}
	deathsColor    = drawing.Color{R: 245, G: 54, B: 92, A: 255}
)

func metricColor(m types.Metric) drawing.Color {
	if m == types.Deaths {
		return deathsColor
	}
	return incidenceColor
}

// ComparisonLine draws yearly incidence and deaths as two lines, one x slot
// per year in the order given.
func ComparisonLine(w io.Writer, totals aggregate.YearTotals, f Format, size Size) error {
	if len(totals) == 0 {
		return ErrNoData
	}
	size = size.orDefault()
	years, incidence, deaths := totals.Series()

	xs := make([]float64, len(years))
	ticks := make([]chart.Tick, len(years))
	for i, y := range years {
		xs[i] = float64(i)
		ticks[i] = chart.Tick{Value: float64(i), Label: strconv.Itoa(y)}
	}

	ch := chart.Chart{
		Title:      "Incidence and deaths by year",
		Width:      size.Width,
		Height:     size.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: "Year", Ticks: ticks, Range: axisRange(xs)},
		YAxis:      chart.YAxis{Name: "Cases", Range: axisRange(incidence, deaths)},
		Series: []chart.Series{
			lineSeries(types.Incidence.Label(), xs, incidence, incidenceColor),
			lineSeries(types.Deaths.Label(), xs, deaths, deathsColor),
		},
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return ch.Render(f.renderer(), w)
}

// ComparisonBar draws yearly incidence and deaths as stacked bars in the
// order given.
func ComparisonBar(w io.Writer, totals aggregate.YearTotals, f Format, size Size) error {
	if len(totals) == 0 {
		return ErrNoData
	}
	size = size.orDefault()

	bars := make([]chart.StackedBar, 0, len(totals))
	for _, t := range totals {
		bars = append(bars, chart.StackedBar{
			Name: strconv.Itoa(t.Year),
			Values: []chart.Value{
				{Label: types.Incidence.Label(), Value: finite(t.Incidence), Style: chart.Style{FillColor: incidenceColor, StrokeColor: incidenceColor}},
				{Label: types.Deaths.Label(), Value: finite(t.Deaths), Style: chart.Style{FillColor: deathsColor, StrokeColor: deathsColor}},
			},
		})
	}

	ch := chart.StackedBarChart{
		Title:      "Incidence and deaths by year",
		Width:      size.Width,
		Height:     size.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		Bars:       bars,
	}
	return ch.Render(f.renderer(), w)
}

// Distribution draws a density curve.
func Distribution(w io.Writer, curve aggregate.DensityCurve, m types.Metric, f Format, size Size) error {
	if len(curve.X) == 0 {
		return ErrNoData
	}
	size = size.orDefault()

	ch := chart.Chart{
		Title:      m.Label() + " density",
		Width:      size.Width,
		Height:     size.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: m.Label(), Range: axisRange(curve.X)},
		YAxis:      chart.YAxis{Name: "Density", Range: axisRange(curve.Y)},
		Series: []chart.Series{
			lineSeries(m.Label(), curve.X, curve.Y, metricColor(m)),
		},
	}
	return ch.Render(f.renderer(), w)
}

// Relationship draws deaths against incidence, one dot per record colored by
// year.
func Relationship(w io.Writer, points []aggregate.Point, f Format, size Size) error {
	var xs, ys []float64
	var colors []drawing.Color
	for _, p := range points {
		if !isFinite(p.X) || !isFinite(p.Y) {
			continue
		}
		xs = append(xs, p.X)
		ys = append(ys, p.Y)
		colors = append(colors, ParseColor(p.Color))
	}
	if len(xs) == 0 {
		return ErrNoData
	}
	size = size.orDefault()

	ch := chart.Chart{
		Title:      "Deaths vs incidence",
		Width:      size.Width,
		Height:     size.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: types.Deaths.Label(), Range: axisRange(xs)},
		YAxis:      chart.YAxis{Name: types.Incidence.Label(), Range: axisRange(ys)},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name: "HIV cases",
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    4,
					DotColorProvider: func(_, _ chart.Range, index int, _, _ float64) drawing.Color {
						if index < len(colors) {
							return colors[index]
						}
						return colors[len(colors)-1]
					},
				},
				XValues: xs,
				YValues: ys,
			},
		},
	}
	return ch.Render(f.renderer(), w)
}

// Composition draws one metric's share per entity as a pie.
func Composition(w io.Writer, totals []aggregate.EntityTotal, m types.Metric, f Format, size Size) error {
	values := make([]chart.Value, 0, len(totals))
	for _, t := range totals {
		v := t.Incidence
		if m == types.Deaths {
			v = t.Deaths
		}
		if !isFinite(v) || v <= 0 {
			continue
		}
		values = append(values, chart.Value{Label: t.Entity, Value: v})
	}
	if len(values) == 0 {
		return ErrNoData
	}
	size = size.orDefault()

	pie := chart.PieChart{
		Title:  m.Label() + " by entity",
		Width:  size.Height,
		Height: size.Height,
		Values: values,
	}
	return pie.Render(f.renderer(), w)
}

func lineSeries(name string, xs, ys []float64, color drawing.Color) chart.ContinuousSeries {
	cx := make([]float64, 0, len(xs))
	cy := make([]float64, 0, len(ys))
	for i := range xs {
		if isFinite(xs[i]) && isFinite(ys[i]) {
			cx = append(cx, xs[i])
			cy = append(cy, ys[i])
		}
	}
	if len(cx) == 0 {
		cx, cy = []float64{0}, []float64{0}
	}
	return chart.ContinuousSeries{
		Name:    name,
		XValues: cx,
		YValues: cy,
		Style:   chart.Style{StrokeColor: color, StrokeWidth: 2},
	}
}

// axisRange returns a fixed range around the values when they have no
// spread, since go-chart rejects a zero-width axis. Otherwise it returns nil
// and the axis is fitted to the data.
func axisRange(values ...[]float64) chart.Range {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, vs := range values {
		for _, v := range vs {
			if isFinite(v) {
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
			}
		}
	}
	if lo < hi || math.IsInf(lo, 1) {
		return nil
	}
	return &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finite(v float64) float64 {
	if isFinite(v) {
		return v
	}
	return 0
}

// ParseColor reads "rgba(r, g, b, a)", "rgb(r, g, b)" or "#rrggbb". Anything
// else is gray.
func ParseColor(s string) drawing.Color {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		return drawing.ColorFromHex(strings.TrimPrefix(s, "#"))
	}

	open, end := strings.IndexByte(s, '('), strings.LastIndexByte(s, ')')
	if open < 0 || end < open {
		return chart.ColorAlternateGray
	}
	parts := strings.Split(s[open+1:end], ",")
	if len(parts) < 3 {
		return chart.ColorAlternateGray
	}

	channel := func(p string) uint8 {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 {
			return 0
		}
		if v > 255 {
			return 255
		}
		return uint8(v)
	}
	c := drawing.Color{R: channel(parts[0]), G: channel(parts[1]), B: channel(parts[2]), A: 255}
	if len(parts) > 3 {
		if a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64); err == nil {
			c.A = uint8(math.Round(math.Max(0, math.Min(1, a)) * 255))
		}
	}
	return c
}
