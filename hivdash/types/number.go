package types

import (
	"math"
	"strconv"
	"strings"
)

// ParseNumber converts user text to a number the way a loosely typed form
// field does: surrounding space is ignored, empty text is 0, and anything
// that is not a finite number becomes NaN instead of an error. Infinities
// are NaN too, since the stores can only keep finite numbers or a missing
// value.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "0x") {
		if v, err := strconv.ParseUint(s[2:], 16, 64); err == nil {
			return float64(v)
		}
		return math.NaN()
	}
	// strconv accepts spellings such as "inf" and "nan" that a form field does not
	if strings.Contains(lower, "inf") || strings.Contains(lower, "nan") {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// ParseYear converts text to a year. Non-numeric text yields 0.
func ParseYear(s string) int {
	v := ParseNumber(s)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(v)
}

// FormatNumber renders a number the way it is shown in tables and search:
// integral values without a fraction, NaN as "NaN".
func FormatNumber(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	if v == math.Trunc(v) && !math.IsInf(v, 0) && math.Abs(v) < 1e21 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
