// Package analysis computes per-voxel ensemble statistics.
//
// Analyze takes the ensemble sample set of one scalar field (one Field per
// member and aggregated timestep, all sharing a layout) and summarizes the
// column of values found at every voxel. The model is chosen by Kind from a
// table of strategies; each strategy fans the voxel range out over a
// fork-join worker set and packs its results channel-wise into output
// Fields.
package analysis

import (
	"fmt"
	"time"

	"github.com/nvandessel/enstat/internal/constants"
	"github.com/nvandessel/enstat/internal/errkind"
	"github.com/nvandessel/enstat/internal/field"
	"github.com/nvandessel/enstat/internal/stats"
)

var (
	// ErrNoSamples indicates an empty ensemble sample set.
	ErrNoSamples = fmt.Errorf("analysis: empty sample set: %w", errkind.InvalidArgument)
	// ErrSampleLayout indicates samples that are not scalar fields of one
	// shared layout.
	ErrSampleLayout = fmt.Errorf("analysis: inconsistent sample layout: %w", errkind.InvalidArgument)
)

// Options tunes an analysis run.
type Options struct {
	// Workers caps the goroutines used for the voxel loop. Zero means one per
	// CPU.
	Workers int
	// MaxComponents is the mixture size K written per voxel.
	MaxComponents int
	// Fit controls the mixture search. Fit.Rand is ignored; random
	// initialization draws from per-voxel sources derived from Seed.
	Fit stats.FitOptions
	// Seed feeds random initialization. Zero picks a time-based seed, so
	// results are only reproducible for a fixed non-zero Seed or with
	// quantile seeding.
	Seed uint64
}

// DefaultOptions returns deterministic options with K = 4.
func DefaultOptions() Options {
	return Options{
		MaxComponents: constants.DefaultMaxComponents,
		Fit:           stats.DefaultFitOptions(),
	}
}

// Summary describes a completed analysis.
type Summary struct {
	Kind       Kind          `json:"kind"`
	Voxels     int           `json:"voxels"`
	Members    int           `json:"members"`
	Workers    int           `json:"workers"`
	Iterations int           `json:"iterations,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
	// ComponentCounts[k] is the number of voxels whose selected mixture has
	// k components. Only set for GaussianMixture.
	ComponentCounts []int `json:"component_counts,omitempty"`
}

// Result holds the output Fields of one analysis, in a fixed order:
// mean, deviation and, for mixtures, weight.
type Result struct {
	Fields  []*field.Field
	Summary Summary
}

// strategy analyzes every voxel of cols and returns the output Fields.
type strategy func(cols *columns, name string, opts Options, sum *Summary) ([]*field.Field, error)

var strategies = map[Kind]strategy{
	GaussianSingle:  analyzeSingle,
	GaussianMixture: analyzeMixture,
}

// Analyze runs the kind strategy over samples and names the outputs
// "<name>_mean", "<name>_deviation" and, for mixtures, "<name>_weight".
// The result is all-or-nothing: on error no Fields are returned.
func Analyze(kind Kind, samples []*field.Field, name string, opts Options) (Result, error) {
	run, ok := strategies[kind]
	if !ok {
		return Result{}, fmt.Errorf("analysis kind %d: %w", int(kind), errkind.InvalidArgument)
	}
	cols, err := newColumns(samples)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	sum := Summary{Kind: kind, Voxels: cols.layout.Volume(), Members: len(cols.data)}
	fields, err := run(cols, name, opts, &sum)
	if err != nil {
		return Result{}, err
	}
	sum.Duration = time.Since(start)
	return Result{Fields: fields, Summary: sum}, nil
}

// columns gives per-voxel access to the ensemble sample set.
type columns struct {
	layout *field.Field
	data   [][]float64
}

func newColumns(samples []*field.Field) (*columns, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	first := samples[0]
	if first.PointDimension() != 1 {
		return nil, fmt.Errorf("%w: samples have %d channels, want 1", ErrSampleLayout, first.PointDimension())
	}
	cols := &columns{layout: first, data: make([][]float64, len(samples))}
	for i, s := range samples {
		if !s.EqualLayout(first) {
			return nil, fmt.Errorf("%w: sample %d is %v, sample 0 is %v", ErrSampleLayout, i, s.Layout(), first.Layout())
		}
		data, err := s.Data()
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		cols.data[i] = data
	}
	return cols, nil
}

// gather copies the samples of voxel i into buf.
func (c *columns) gather(i int, buf []float64) {
	for m, data := range c.data {
		buf[m] = data[i]
	}
}

// output allocates an initialized output Field of pd channels on the
// sample grid.
func (c *columns) output(pd int, name string) *field.Field {
	f, _ := field.New(pd, c.layout.Width(), c.layout.Height(), c.layout.Depth(), true)
	f.SetName(name)
	return f
}
