// Package stats implements the per-voxel statistics kernel: moment
// estimators, Gaussian and Gaussian-mixture densities, Expectation-
// Maximization, information-criterion model selection, and a few
// presentation helpers for sizing display ranges.
//
// Every function is a pure function of its arguments except where a
// *rand.Rand is passed in, so the kernel can run on many goroutines at once
// without coordination.
package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/nvandessel/enstat/internal/errkind"
)

// ErrNoSamples indicates an estimator was handed an empty sample set.
var ErrNoSamples = fmt.Errorf("stats: no samples: %w", errkind.InvalidArgument)

// varianceEpsilon is the single-precision machine epsilon. A fitted
// variance at or below it is treated as a collapsed component.
const varianceEpsilon = 0x1p-23

// Mean returns the arithmetic mean of samples, or 0 for an empty slice.
func Mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	return stat.Mean(samples, nil)
}

// Variance returns the population variance of samples around mean,
// Σ(x-mean)²/N. It is not Bessel-corrected, and mean need not be the
// sample mean.
func Variance(samples []float64, mean float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	return stat.MomentAbout(2, samples, mean, nil)
}

// NormalDensity evaluates the Gaussian pdf at x. A zero variance yields 0
// rather than an infinite or NaN density.
func NormalDensity(x, mean, variance float64) float64 {
	if variance == 0 {
		return 0
	}
	return distuv.Normal{Mu: mean, Sigma: math.Sqrt(variance)}.Prob(x)
}

// Component is one weighted Gaussian of a mixture.
type Component struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	Weight   float64 `json:"weight"`
}

// Deviation returns the component's standard deviation.
func (c Component) Deviation() float64 { return math.Sqrt(c.Variance) }

// Density returns the unweighted density of c at x.
func (c Component) Density(x float64) float64 {
	return NormalDensity(x, c.Mean, c.Variance)
}

// GMMDensity returns the mixture density Σ weight·density at x.
func GMMDensity(x float64, components []Component) float64 {
	var sum float64
	for _, c := range components {
		sum += c.Weight * c.Density(x)
	}
	return sum
}

// LogLikelihood returns Σ ln(GMMDensity(x)) over samples. It is -Inf when
// any sample has zero density.
func LogLikelihood(samples []float64, components []Component) float64 {
	var ll float64
	for _, x := range samples {
		ll += math.Log(GMMDensity(x, components))
	}
	return ll
}
