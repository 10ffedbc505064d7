package aggregate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arthur-debert/hivdash/hivdash/types"
)

// Word is one weighted word of the word cloud.
type Word struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"`
}

// ParseYearFilter parses a year picker value. "All" (any case) or empty
// returns nil, meaning every year.
func ParseYearFilter(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return nil, nil
	}
	y, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("invalid year %q", s)
	}
	return &y, nil
}

// WordWeights emits one word per record, weighted by the metric. An entity
// with several records in range appears several times; the word cloud draws
// each one.
func WordWeights(records []types.Record, year *int, m types.Metric) []Word {
	out := make([]Word, 0, len(records))
	for _, r := range records {
		if year != nil && r.Year != *year {
			continue
		}
		out = append(out, Word{Text: r.Entity, Value: r.Value(m)})
	}
	return out
}

// AggregateWords merges words with the same text, summing their values, in
// first-appearance order.
func AggregateWords(words []Word) []Word {
	index := make(map[string]int)
	out := make([]Word, 0, len(words))
	for _, w := range words {
		if i, ok := index[w.Text]; ok {
			out[i].Value += w.Value
			continue
		}
		index[w.Text] = len(out)
		out = append(out, w)
	}
	return out
}
