package charts

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/arthur-debert/hivdash/hivdash/aggregate"
	"github.com/arthur-debert/hivdash/hivdash/testutil"
	"github.com/arthur-debert/hivdash/hivdash/types"
)

var pngMagic = []byte("\x89PNG")

func TestRenderViews(t *testing.T) {
	records := testutil.FixtureRecords(t)
	totals := aggregate.GroupByYear(records)
	small := Size{Width: 400, Height: 300}

	renders := map[string]func(*bytes.Buffer, Format) error{
		"comparison-line": func(b *bytes.Buffer, f Format) error { return ComparisonLine(b, totals, f, small) },
		"comparison-bar":  func(b *bytes.Buffer, f Format) error { return ComparisonBar(b, totals.Sorted(), f, small) },
		"distribution": func(b *bytes.Buffer, f Format) error {
			curve := aggregate.Density(aggregate.Values(records, types.Incidence), 100, 1)
			return Distribution(b, curve, types.Incidence, f, small)
		},
		"relationship": func(b *bytes.Buffer, f Format) error {
			return Relationship(b, aggregate.ScatterPoints(records), f, small)
		},
		"composition": func(b *bytes.Buffer, f Format) error {
			return Composition(b, aggregate.EntityTotalsForYear(records, 1990, ""), types.Incidence, f, small)
		},
	}

	for name, render := range renders {
		t.Run(name+"/png", func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, render(&buf, PNG))
			assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
		})
		t.Run(name+"/svg", func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, render(&buf, SVG))
			assert.True(t, strings.Contains(buf.String(), "<svg"))
		})
	}
}

func TestNoData(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, ComparisonLine(&buf, nil, PNG, Size{}), ErrNoData)
	assert.ErrorIs(t, ComparisonBar(&buf, nil, PNG, Size{}), ErrNoData)
	assert.ErrorIs(t, Distribution(&buf, aggregate.DensityCurve{}, types.Deaths, PNG, Size{}), ErrNoData)
	assert.ErrorIs(t, Relationship(&buf, nil, PNG, Size{}), ErrNoData)
	assert.ErrorIs(t, Composition(&buf, []aggregate.EntityTotal{{Entity: "A"}}, types.Deaths, PNG, Size{}), ErrNoData)
	assert.Zero(t, buf.Len())
}

func TestSinglePoint(t *testing.T) {
	var buf bytes.Buffer
	curve := aggregate.Density([]float64{5, 5}, 100, 1)
	require.Len(t, curve.X, 1)
	assert.NoError(t, Distribution(&buf, curve, types.Incidence, PNG, Size{Width: 200, Height: 200}))
}

func TestParseColor(t *testing.T) {
	assert.Equal(t, drawing.Color{R: 255, G: 99, B: 132, A: 153}, ParseColor("rgba(255, 99, 132, 0.6)"))
	assert.Equal(t, drawing.Color{R: 1, G: 2, B: 3, A: 255}, ParseColor("rgb(1,2,3)"))
	assert.Equal(t, drawing.Color{R: 0x2d, G: 0xce, B: 0x89, A: 255}, ParseColor("#2dce89"))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(".SVG")
	require.NoError(t, err)
	assert.Equal(t, SVG, f)
	assert.Equal(t, "image/svg+xml", f.ContentType())
	_, err = ParseFormat("gif")
	assert.Error(t, err)
}
