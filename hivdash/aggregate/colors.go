package aggregate

import "math"

// NeutralColor is used for years outside the palette range.
const NeutralColor = "rgba(200, 200, 200, 0.6)"

const (
	paletteFirstYear = 1990
	paletteLastYear  = 2019
)

var yearPalette = []string{
	"rgba(255, 99, 132, 0.6)",  // red
	"rgba(255, 159, 64, 0.6)",  // orange
	"rgba(255, 205, 86, 0.6)",  // yellow
	"rgba(75, 192, 192, 0.6)",  // teal
	"rgba(54, 162, 235, 0.6)",  // blue
	"rgba(153, 102, 255, 0.6)", // purple
}

// YearColor returns the scatter color of a year: the palette cycles every six
// years from 1990 through 2019, anything else is neutral gray.
func YearColor(year int) string {
	if year < paletteFirstYear || year > paletteLastYear {
		return NeutralColor
	}
	return YearColorExtended(year)
}

// YearColorExtended continues the palette cycle in both directions.
func YearColorExtended(year int) string {
	i := (year - paletteFirstYear) % len(yearPalette)
	if i < 0 {
		i += len(yearPalette)
	}
	return yearPalette[i]
}

type step[T any] struct {
	above float64
	value T
}

var fillLadder = []step[string]{
	{200000, "#2C003E"},
	{100000, "#800026"},
	{50000, "#FF0000"},
	{10000, "#FFA500"},
	{5000, "#FFFF00"},
	{1000, "#00FF00"},
	{100, "#00FFFF"},
	{10, "#0000FF"},
}

var radiusLadder = []step[float64]{
	{200000, 50},
	{100000, 40},
	{50000, 30},
	{10000, 20},
	{5000, 15},
	{1000, 10},
	{100, 5},
}

const (
	lowestFill   = "#FFFFFF"
	lowestRadius = 3
)

func climb[T any](ladder []step[T], v float64, floor T) T {
	if math.IsNaN(v) {
		return floor
	}
	for _, s := range ladder {
		if v > s.above {
			return s.value
		}
	}
	return floor
}

// FillColor maps a value to its choropleth color.
func FillColor(v float64) string {
	return climb(fillLadder, v, lowestFill)
}

// BubbleRadius maps a value to its bubble radius in pixels.
func BubbleRadius(v float64) float64 {
	return climb(radiusLadder, v, lowestRadius)
}
