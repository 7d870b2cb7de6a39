package session

import (
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/nvandessel/enstat/internal/analysis"
	"github.com/nvandessel/enstat/internal/constants"
	"github.com/nvandessel/enstat/internal/ensemble"
	"github.com/nvandessel/enstat/internal/field"
	"github.com/nvandessel/enstat/internal/stats"
)

// Output describes one output field of an analysis.
type Output struct {
	Name   string       `json:"name"`
	Layout field.Layout `json:"layout"`
	Minima []float64    `json:"minima"`
	Maxima []float64    `json:"maxima"`
}

// Range is a display interval with its tick positions.
type Range struct {
	Lower float64   `json:"lower"`
	Upper float64   `json:"upper"`
	Ticks []float64 `json:"ticks"`
}

// Report is the outcome of Analyse.
type Report struct {
	RunID      int64              `json:"run_id,omitempty"`
	Field      string             `json:"field"`
	FieldIndex int                `json:"field_index"`
	Kind       string             `json:"kind"`
	Selection  ensemble.Selection `json:"selection"`
	Outputs    []Output           `json:"outputs"`
	// Display spans mean ± deviation over every voxel and channel, rounded
	// outward.
	Display Range            `json:"display"`
	Summary analysis.Summary `json:"summary"`
}

func newReport(res analysis.Result) (Report, error) {
	report := Report{Summary: res.Summary}
	for _, f := range res.Fields {
		if f.Volume() == 0 {
			report.Outputs = append(report.Outputs, Output{
				Name:   f.Name(),
				Layout: f.Layout(),
				Minima: []float64{},
				Maxima: []float64{},
			})
			continue
		}
		lo, err := f.Minima()
		if err != nil {
			return Report{}, err
		}
		hi, err := f.Maxima()
		if err != nil {
			return Report{}, err
		}
		report.Outputs = append(report.Outputs, Output{
			Name:   f.Name(),
			Layout: f.Layout(),
			Minima: lo,
			Maxima: hi,
		})
	}

	// Every strategy writes mean then deviation first. An empty grid has no
	// display range.
	if len(res.Fields) >= 2 && res.Fields[0].Volume() > 0 {
		lo, err := field.CombinedMinima(res.Fields[0], res.Fields[1])
		if err != nil {
			return Report{}, err
		}
		hi, err := field.CombinedMaxima(res.Fields[0], res.Fields[1])
		if err != nil {
			return Report{}, err
		}
		report.Display = newRange(slices.Min(lo), slices.Max(hi))
	}
	return report, nil
}

func newRange(lower, upper float64) Range {
	lower, upper = stats.RoundInterval(lower, upper)
	return Range{
		Lower: lower,
		Upper: upper,
		Ticks: stats.ReasonableDivisions(lower, upper, constants.DefaultDivisions),
	}
}

// PeakReport describes the sample distribution at one voxel.
type PeakReport struct {
	Field     string            `json:"field"`
	X         int               `json:"x"`
	Y         int               `json:"y"`
	Z         int               `json:"z"`
	Samples   []float64         `json:"samples"`
	Mean      float64           `json:"mean"`
	Deviation float64           `json:"deviation"`
	Histogram []int             `json:"histogram"`
	Peaks     int               `json:"peaks"`
	Display   Range             `json:"display"`
	Mixture   []stats.Component `json:"mixture"`
	K         int               `json:"k"`
	AIC       float64           `json:"aic"`
}

// PeakRequest selects a voxel for Peaks.
type PeakRequest struct {
	Field   string
	X, Y, Z int
	// Bins is the histogram resolution. Zero uses the session default.
	Bins    int
	Options analysis.Options
}

// Peaks inspects the raw ensemble column at one voxel: its histogram, its
// number of modes and the mixture selected for it.
func (s *Session) Peaks(req PeakRequest) (PeakReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.resolveField(req.Field)
	if err != nil {
		return PeakReport{}, err
	}
	col, err := s.ens.Column(idx, req.X, req.Y, req.Z)
	if err != nil {
		return PeakReport{}, err
	}
	bins := req.Bins
	if bins <= 0 {
		bins = s.cfg.PeakBins
	}

	fit := req.Options.Fit
	fit.Rand = nil
	if fit.RandomInit {
		seed := req.Options.Seed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		fit.Rand = rand.New(rand.NewPCG(seed, 0))
	}
	k := req.Options.MaxComponents
	if k < 1 {
		k = constants.DefaultMaxComponents
	}
	res, err := stats.FitGMM(col, k, fit)
	if err != nil {
		return PeakReport{}, err
	}

	mean := stats.Mean(col)
	dev := math.Sqrt(stats.Variance(col, mean))
	return PeakReport{
		Field:     s.ens.Headers()[idx].Name(),
		X:         req.X,
		Y:         req.Y,
		Z:         req.Z,
		Samples:   col,
		Mean:      mean,
		Deviation: dev,
		Histogram: stats.Histogram(col, bins),
		Peaks:     stats.CountPeaks(col, bins),
		Display:   newRange(slices.Min(col), slices.Max(col)),
		Mixture:   res.Components[:res.K],
		K:         res.K,
		AIC:       res.AIC,
	}, nil
}
