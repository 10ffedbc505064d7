package aggregate

import (
	"math"

	"github.com/arthur-debert/hivdash/hivdash/types"
)

const (
	// DefaultSamples is the number of steps between the smallest and largest
	// value; the curve has DefaultSamples+1 points.
	DefaultSamples = 100

	// DefaultBandwidth is the Gaussian kernel width.
	DefaultBandwidth = 1.0
)

// DensityCurve is a kernel density estimate sampled at X.
type DensityCurve struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// Density estimates the distribution of values with a Gaussian kernel.
//
// The curve is sampled at min + i*(max-min)/samples for i = 0..samples and
// normalized by n*h*sqrt(2*pi). NaN values are ignored. When every value is
// equal the curve is a single point; with no values it is empty. A
// non-positive samples or bandwidth falls back to the default.
func Density(values []float64, samples int, bandwidth float64) DensityCurve {
	if samples <= 0 {
		samples = DefaultSamples
	}
	if bandwidth <= 0 || math.IsNaN(bandwidth) {
		bandwidth = DefaultBandwidth
	}

	data := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			data = append(data, v)
		}
	}
	if len(data) == 0 {
		return DensityCurve{X: []float64{}, Y: []float64{}}
	}

	lo, hi := data[0], data[0]
	for _, v := range data[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	points := samples + 1
	if lo == hi {
		points = 1
	}
	step := (hi - lo) / float64(samples)
	norm := float64(len(data)) * bandwidth * math.Sqrt(2*math.Pi)

	curve := DensityCurve{X: make([]float64, points), Y: make([]float64, points)}
	for i := 0; i < points; i++ {
		x := lo + float64(i)*step
		if i == points-1 {
			x = hi
		}
		var sum float64
		for _, v := range data {
			u := (x - v) / bandwidth
			sum += math.Exp(-0.5 * u * u)
		}
		curve.X[i] = x
		curve.Y[i] = sum / norm
	}
	return curve
}

// Values extracts one metric from every record.
func Values(records []types.Record, m types.Metric) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.Value(m)
	}
	return out
}
