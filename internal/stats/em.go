package stats

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// EMStep runs one Expectation-Maximization iteration over samples and
// returns the updated components. The input slice is not modified.
//
// A component whose updated variance collapses to varianceEpsilon or below
// is reseeded: its mean moves to the first sample (rng == nil) or to a
// uniformly drawn sample, and its variance is recomputed around that seed
// over all samples.
func EMStep(samples []float64, components []Component, rng *rand.Rand) []Component {
	n, k := len(samples), len(components)
	next := make([]Component, k)
	if n == 0 || k == 0 {
		copy(next, components)
		return next
	}

	// E-step: resp[c*n+j] is the responsibility of component c for sample j.
	resp := make([]float64, k*n)
	for j, x := range samples {
		var total float64
		for c, comp := range components {
			p := comp.Weight * comp.Density(x)
			resp[c*n+j] = p
			total += p
		}
		for c := 0; c < k; c++ {
			if total > 0 {
				resp[c*n+j] /= total
			} else {
				resp[c*n+j] = 1 / float64(k)
			}
		}
	}

	// M-step.
	for c := 0; c < k; c++ {
		r := resp[c*n : (c+1)*n]
		mass := floats.Sum(r)

		comp := Component{Weight: mass / float64(n)}
		if mass > 0 {
			comp.Mean = stat.Mean(samples, r)
			comp.Variance = stat.MomentAbout(2, samples, comp.Mean, r)
		}
		if mass == 0 || comp.Variance <= varianceEpsilon {
			seed := samples[0]
			if rng != nil {
				seed = samples[rng.IntN(n)]
			}
			comp.Mean = seed
			comp.Variance = Variance(samples, seed)
		}
		next[c] = comp
	}
	return next
}
