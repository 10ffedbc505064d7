package aggregate

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/hivdash/hivdash/types"
)

func TestMissingNumbersEncodeAsNull(t *testing.T) {
	records := []types.Record{
		{Entity: "A", Year: 1990, Deaths: math.NaN(), Incidence: 5},
		{Entity: "B", Year: 1990, Deaths: 2, Incidence: 3},
	}

	data, err := json.Marshal(map[string]interface{}{
		"years":  GroupByYear(records),
		"points": ScatterPoints(records),
		"words":  WordWeights(records, nil, types.Deaths),
		"shares": EntityTotalsForYear(records, 1990, ""),
	})
	require.NoError(t, err)

	var got struct {
		Years  []map[string]interface{} `json:"years"`
		Points []map[string]interface{} `json:"points"`
		Words  []map[string]interface{} `json:"words"`
		Shares []map[string]interface{} `json:"shares"`
	}
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Nil(t, got.Years[0]["deaths"])
	assert.Equal(t, 8.0, got.Years[0]["incidence"])
	assert.Nil(t, got.Points[0]["x"])
	assert.Equal(t, 2.0, got.Points[1]["x"])
	assert.Nil(t, got.Words[0]["value"])
	assert.Equal(t, "B", got.Words[1]["text"])
	assert.Nil(t, got.Shares[0]["deaths"])
	assert.Equal(t, 2.0, got.Shares[1]["deaths"])

	pie := got.Shares[1]["shares"].(map[string]interface{})
	assert.InDelta(t, 0.6, pie["incidence"], 1e-9)
	assert.InDelta(t, 0.4, pie["deaths"], 1e-9)
	assert.Nil(t, got.Shares[0]["shares"].(map[string]interface{})["deaths"])
}
