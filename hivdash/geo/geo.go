// Package geo joins case totals onto world country shapes for the
// choropleth and bubble maps.
package geo

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/arthur-debert/hivdash/hivdash/aggregate"
	"github.com/arthur-debert/hivdash/hivdash/types"
)

// NameProperty is the feature property matched against record entities.
const NameProperty = "ADMIN"

// Bubble fill colors per metric.
const (
	IncidenceBubbleColor = "#2dce89"
	DeathsBubbleColor    = "#ff0000"
)

//go:embed world_sample.geojson
var sampleWorld []byte

// World is a country FeatureCollection indexed by name.
type World struct {
	fc     *geojson.FeatureCollection
	byName map[string]*geojson.Feature
}

// Load reads a world FeatureCollection from path, or the embedded sample
// when path is empty.
func Load(path string) (*World, error) {
	if path == "" {
		return Parse(sampleWorld)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read world file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a GeoJSON FeatureCollection.
func Parse(data []byte) (*World, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse world GeoJSON: %w", err)
	}

	w := &World{fc: fc, byName: make(map[string]*geojson.Feature, len(fc.Features))}
	for _, f := range fc.Features {
		name := f.Properties.MustString(NameProperty, "")
		if name == "" {
			continue
		}
		if _, dup := w.byName[name]; !dup {
			w.byName[name] = f
		}
	}
	return w, nil
}

// Len is the number of features.
func (w *World) Len() int { return len(w.fc.Features) }

// Feature returns the first feature with the given name.
func (w *World) Feature(name string) (*geojson.Feature, bool) {
	f, ok := w.byName[name]
	return f, ok
}

// Join returns a copy of the world with incidence, deaths and fill
// properties on every feature. Features with no matching entity get 0 and
// the lowest fill; fill follows the selected metric.
func Join(w *World, totals []aggregate.EntityTotal, m types.Metric) *geojson.FeatureCollection {
	byEntity := aggregate.EntityTotalsMap(totals)

	out := geojson.NewFeatureCollection()
	for _, f := range w.fc.Features {
		t := byEntity[f.Properties.MustString(NameProperty, "")]

		props := f.Properties.Clone()
		if props == nil {
			props = geojson.Properties{}
		}
		props["incidence"] = t.Incidence
		props["deaths"] = t.Deaths
		value := t.Incidence
		if m == types.Deaths {
			value = t.Deaths
		}
		props["fill"] = aggregate.FillColor(value)

		nf := geojson.NewFeature(f.Geometry)
		nf.ID = f.ID
		nf.BBox = f.BBox
		nf.Properties = props
		out.Append(nf)
	}
	return out
}

// Bubble is one circle marker of the bubble map.
type Bubble struct {
	Entity string  `json:"entity"`
	Year   int     `json:"year"`
	Lon    float64 `json:"lon"`
	Lat    float64 `json:"lat"`
	Value  float64 `json:"value"`
	Radius float64 `json:"radius"`
	Color  string  `json:"color"`
}

// Bubbles places one bubble per record whose entity names a feature and
// whose metric value is positive, at the centroid of that feature. Records
// are not summed: an entity with several years gets overlapping bubbles.
func Bubbles(w *World, records []types.Record, m types.Metric) []Bubble {
	color := IncidenceBubbleColor
	if m == types.Deaths {
		color = DeathsBubbleColor
	}

	centers := make(map[string]orb.Point)
	out := make([]Bubble, 0)
	for _, r := range records {
		f, ok := w.byName[r.Entity]
		if !ok {
			continue
		}
		value := r.Value(m)
		if !(value > 0) || math.IsInf(value, 1) {
			continue
		}

		c, ok := centers[r.Entity]
		if !ok {
			c = Centroid(f.Geometry)
			centers[r.Entity] = c
		}
		out = append(out, Bubble{
			Entity: r.Entity,
			Year:   r.Year,
			Lon:    c.Lon(),
			Lat:    c.Lat(),
			Value:  value,
			Radius: aggregate.BubbleRadius(value),
			Color:  color,
		})
	}
	return out
}

// Centroid returns the area-weighted centroid of g. Geometries without area
// fall back to the centroid orb computes for lines and points.
func Centroid(g orb.Geometry) orb.Point {
	if g == nil {
		return orb.Point{}
	}
	c, _ := planar.CentroidArea(g)
	return c
}
