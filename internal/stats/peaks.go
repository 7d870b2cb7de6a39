package stats

import "math"

// Histogram sorts samples into numBins equal-width bins spanning
// [min, max] of the finite samples. The maximum lands in the last bin. When
// every sample is equal they all land in bin 0. Infinities and NaN are not
// counted.
func Histogram(samples []float64, numBins int) []int {
	if numBins < 1 {
		return nil
	}
	bins := make([]int, numBins)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, x := range samples {
		if finite(x) {
			lo, hi = min(lo, x), max(hi, x)
		}
	}
	if lo > hi {
		return bins
	}

	n := float64(numBins)
	width := (hi - lo) / n
	for _, x := range samples {
		if !finite(x) {
			continue
		}
		var pos float64
		switch {
		case math.IsInf(width, 0):
			// hi-lo overflows; compare halves instead.
			pos = (x/2 - lo/2) / (hi/2 - lo/2) * n
		case width > 0:
			pos = (x - lo) / width
		}
		bins[max(0, min(int(pos), numBins-1))]++
	}
	return bins
}

func finite(x float64) bool {
	return !math.IsInf(x, 0) && !math.IsNaN(x)
}

// CountPeaks counts the modes of samples as the number of maximal rising
// runs in their histogram. The bin before the first counts as empty, and a
// bin equal to its predecessor continues the current run without starting a
// new rise.
func CountPeaks(samples []float64, numBins int) int {
	peaks := 0
	rising := false
	prev := 0
	for _, count := range Histogram(samples, numBins) {
		switch {
		case count > prev:
			if !rising {
				peaks++
				rising = true
			}
		case count < prev:
			rising = false
		}
		prev = count
	}
	return peaks
}
