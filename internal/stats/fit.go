package stats

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/nvandessel/enstat/internal/constants"
	"github.com/nvandessel/enstat/internal/errkind"
)

// FitOptions controls the mixture search of FitGMM.
type FitOptions struct {
	// MaxIterations caps EM iterations per candidate component count.
	MaxIterations int
	// Epsilon is the log-likelihood change that counts as converged.
	Epsilon float64
	// KBias scales the parameter-count penalty of the information criterion.
	KBias float64
	// RandomInit seeds candidates from the best of Restarts random draws
	// instead of evenly spaced quantiles. Results are then only reproducible
	// for a fixed Rand.
	RandomInit bool
	// Restarts is the number of random initializations scored per k.
	Restarts int
	// Rand is the source for random initialization and reseeding. When nil
	// and RandomInit is set, a time-seeded source is created per call.
	Rand *rand.Rand
}

// DefaultFitOptions returns deterministic fitting options.
func DefaultFitOptions() FitOptions {
	return FitOptions{
		MaxIterations: constants.DefaultMaxIterations,
		Epsilon:       constants.DefaultEpsilon,
		KBias:         constants.DefaultKBias,
		Restarts:      constants.DefaultRestarts,
	}
}

// FitResult is the outcome of FitGMM for one sample column.
type FitResult struct {
	// Components holds exactly maxComponents entries sorted ascending by
	// mean. When the selected model has fewer components, the tail is
	// zero-valued.
	Components []Component
	// K is the number of components of the selected model.
	K int
	// AIC is the criterion value of the selected model.
	AIC float64
	// LogLikelihood is the log-likelihood of the selected model.
	LogLikelihood float64
	// Iterations counts EM iterations across every candidate k.
	Iterations int
}

// ParameterCount returns the free parameters of a k-component univariate
// mixture: k means, k variances and k-1 independent weights.
func ParameterCount(k int) int { return 3*k - 1 }

func aic(logLik float64, k int, kBias float64) float64 {
	return 2*kBias*float64(ParameterCount(k)) - 2*logLik
}

// AIC returns the Akaike Information Criterion of components over samples,
// 2·kBias·(3k-1) - 2·ln L.
func AIC(samples []float64, components []Component, kBias float64) float64 {
	return aic(LogLikelihood(samples, components), len(components), kBias)
}

// AICc returns the small-sample corrected AIC. It is +Inf when there are
// too few samples for the correction term.
func AICc(samples []float64, components []Component, kBias float64) float64 {
	p := kBias * float64(ParameterCount(len(components)))
	n := float64(len(samples))
	if n-p-1 <= 0 {
		return math.Inf(1)
	}
	return AIC(samples, components, kBias) + 2*p*(p+1)/(n-p-1)
}

// BIC returns the Bayesian Information Criterion,
// kBias·(3k-1)·ln N - 2·ln L.
func BIC(samples []float64, components []Component, kBias float64) float64 {
	p := kBias * float64(ParameterCount(len(components)))
	return p*math.Log(float64(len(samples))) - 2*LogLikelihood(samples, components)
}

// FitGMM fits Gaussian mixtures with k = 1..maxComponents components and
// keeps the model with the lowest AIC. The search is greedy: it stops at the
// first k that does not improve on k-1.
func FitGMM(samples []float64, maxComponents int, opts FitOptions) (FitResult, error) {
	if len(samples) == 0 {
		return FitResult{}, ErrNoSamples
	}
	if maxComponents < 1 {
		return FitResult{}, fmt.Errorf("max components %d: %w", maxComponents, errkind.InvalidArgument)
	}
	if opts.RandomInit && opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	var rng *rand.Rand
	if opts.RandomInit {
		rng = opts.Rand
	}

	mean := Mean(samples)
	best := []Component{{Mean: mean, Variance: Variance(samples, mean), Weight: 1}}
	bestLL := LogLikelihood(samples, best)
	bestAIC := aic(bestLL, 1, opts.KBias)
	iterations := 0

	for k := 2; k <= maxComponents; k++ {
		var comps []Component
		if opts.RandomInit {
			comps = randomSeeds(samples, k, opts.Restarts, rng)
		} else {
			comps = quantileSeeds(samples, k)
		}

		ll := LogLikelihood(samples, comps)
		for it := 0; it < opts.MaxIterations; it++ {
			comps = EMStep(samples, comps, rng)
			next := LogLikelihood(samples, comps)
			iterations++
			converged := math.Abs(next-ll) < opts.Epsilon || (math.IsInf(next, -1) && math.IsInf(ll, -1))
			ll = next
			if converged {
				break
			}
		}

		score := aic(ll, k, opts.KBias)
		if !(score < bestAIC) {
			break
		}
		best, bestLL, bestAIC = comps, ll, score
	}

	out := make([]Component, maxComponents)
	copy(out, best)
	slices.SortFunc(out[:len(best)], func(a, b Component) int {
		switch {
		case a.Mean < b.Mean:
			return -1
		case a.Mean > b.Mean:
			return 1
		}
		return 0
	})

	return FitResult{
		Components:    out,
		K:             len(best),
		AIC:           bestAIC,
		LogLikelihood: bestLL,
		Iterations:    iterations,
	}, nil
}

// quantileSeeds places k equally weighted components at evenly spaced
// quantiles of samples, each with the variance of its quantile band.
func quantileSeeds(samples []float64, k int) []Component {
	sorted := slices.Clone(samples)
	slices.Sort(sorted)
	n := len(sorted)
	overall := Variance(sorted, Mean(sorted))

	comps := make([]Component, k)
	for c := range comps {
		lo, hi := c*n/k, (c+1)*n/k
		if hi <= lo {
			lo = min(c, n-1)
			hi = lo + 1
		}
		band := sorted[lo:hi]
		v := Variance(band, Mean(band))
		if v <= varianceEpsilon {
			v = overall
		}
		comps[c] = Component{
			Mean:     sorted[(2*c+1)*n/(2*k)],
			Variance: v,
			Weight:   1 / float64(k),
		}
	}
	return comps
}

// randomSeeds draws restarts random initializations, each placing k
// components on uniformly chosen samples with the overall variance, and
// returns the one with the highest likelihood.
func randomSeeds(samples []float64, k, restarts int, rng *rand.Rand) []Component {
	restarts = max(restarts, 1)
	overall := Variance(samples, Mean(samples))

	var best []Component
	bestLL := math.Inf(-1)
	for r := 0; r < restarts; r++ {
		comps := make([]Component, k)
		for c := range comps {
			comps[c] = Component{
				Mean:     samples[rng.IntN(len(samples))],
				Variance: overall,
				Weight:   1 / float64(k),
			}
		}
		ll := LogLikelihood(samples, comps)
		if best == nil || ll > bestLL {
			best, bestLL = comps, ll
		}
	}
	return best
}
