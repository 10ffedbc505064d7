package geo

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/hivdash/hivdash/aggregate"
	"github.com/arthur-debert/hivdash/hivdash/testutil"
	"github.com/arthur-debert/hivdash/hivdash/types"
)

func sample(t *testing.T) *World {
	t.Helper()
	w, err := Load("")
	require.NoError(t, err)
	return w
}

func TestLoad(t *testing.T) {
	w := sample(t)
	assert.Equal(t, 6, w.Len())
	_, ok := w.Feature("France")
	assert.True(t, ok)
	_, ok = w.Feature("Atlantis")
	assert.False(t, ok)

	path := filepath.Join(t.TempDir(), "world.geojson")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"FeatureCollection","features":[]}`), 0644))
	w, err := Load(path)
	require.NoError(t, err)
	assert.Zero(t, w.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.geojson"))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"type":`))
	assert.Error(t, err)
}

func TestJoin(t *testing.T) {
	w := sample(t)
	totals := aggregate.EntityTotals(testutil.FixtureRecords(t))

	fc := Join(w, totals, types.Incidence)
	require.Len(t, fc.Features, 6)

	props := map[string]map[string]interface{}{}
	for _, f := range fc.Features {
		props[f.Properties.MustString(NameProperty)] = f.Properties
	}

	assert.Equal(t, 60000.0, props["Kenya"]["incidence"])
	assert.Equal(t, 2000.0, props["Kenya"]["deaths"])
	assert.Equal(t, "#FF0000", props["Kenya"]["fill"])
	assert.Equal(t, 230.0, props["France"]["incidence"])
	assert.Equal(t, "#00FFFF", props["France"]["fill"])

	// unmatched features get zeros
	assert.Equal(t, 0.0, props["South Africa"]["incidence"])
	assert.Equal(t, "#FFFFFF", props["South Africa"]["fill"])
	// "USA" records match only the feature literally named USA
	assert.Equal(t, 0.0, props["United States of America"]["incidence"])
	assert.Equal(t, 1900.0, props["USA"]["incidence"])

	deaths := Join(w, totals, types.Deaths)
	for _, f := range deaths.Features {
		if f.Properties.MustString(NameProperty) == "Brazil" {
			assert.Equal(t, "#FFA500", f.Properties["fill"])
		}
	}

	// the source world is not modified
	f, _ := w.Feature("Kenya")
	_, has := f.Properties["incidence"]
	assert.False(t, has)

	_, err := json.Marshal(fc)
	assert.NoError(t, err)
}

func TestBubbles(t *testing.T) {
	w := sample(t)
	records := testutil.FixtureRecords(t)
	records = append(records,
		types.Record{Entity: "Atlantis", Year: 1990, Incidence: 100},
		types.Record{Entity: "Kenya", Year: 1992, Incidence: 0})

	bubbles := Bubbles(w, records, types.Incidence)
	require.Len(t, bubbles, 6, "one bubble per matching record with a positive value")

	var kenya Bubble
	for _, b := range bubbles {
		if b.Entity == "Kenya" {
			kenya = b
		}
	}
	assert.InDelta(t, 38, kenya.Lon, 1e-9)
	assert.InDelta(t, 0, kenya.Lat, 1e-9)
	assert.Equal(t, 30.0, kenya.Radius)
	assert.Equal(t, IncidenceBubbleColor, kenya.Color)

	var usa []Bubble
	for _, b := range bubbles {
		if b.Entity == "USA" {
			usa = append(usa, b)
		}
	}
	require.Len(t, usa, 2, "records are not summed per entity")
	assert.Equal(t, -98.0, usa[0].Lon)
	assert.Equal(t, 39.0, usa[0].Lat)

	deaths := Bubbles(w, records, types.Deaths)
	assert.Equal(t, DeathsBubbleColor, deaths[0].Color)
}
