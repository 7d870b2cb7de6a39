package stats

import "math"

// niceSteps are the step mantissas offered for axis divisions.
var niceSteps = []float64{1, 2, 2.5, 5, 10}

// RoundInterval widens [lower, upper] outward to multiples of the largest
// power of ten not exceeding its span, e.g. (0.13, 0.87) → (0.1, 0.9).
// A degenerate interval is rounded using the magnitude of its bounds.
func RoundInterval(lower, upper float64) (float64, float64) {
	if lower > upper {
		lower, upper = upper, lower
	}
	span := upper - lower
	if span == 0 {
		span = math.Max(math.Abs(lower), math.Abs(upper))
		if span == 0 {
			return lower, upper
		}
	}
	mag := math.Pow(10, math.Floor(math.Log10(span)))
	return math.Floor(lower/mag) * mag, math.Ceil(upper/mag) * mag
}

// ReasonableDivisions returns the division points inside [lower, upper]
// for the smallest step from {1, 2, 2.5, 5}×10ⁿ that yields at most
// maxDivisions divisions.
func ReasonableDivisions(lower, upper float64, maxDivisions int) []float64 {
	if lower > upper {
		lower, upper = upper, lower
	}
	span := upper - lower
	if span == 0 || maxDivisions < 1 {
		return []float64{lower}
	}

	raw := span / float64(maxDivisions)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	step := 10 * mag
	for _, m := range niceSteps {
		if m*mag >= raw {
			step = m * mag
			break
		}
	}

	first := math.Ceil(lower/step) * step
	var points []float64
	for i := 0; ; i++ {
		v := first + float64(i)*step
		if v > upper+step*1e-9 {
			break
		}
		points = append(points, v)
	}
	return points
}
