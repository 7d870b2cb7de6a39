package field

import (
	"fmt"
	"math"
)

// Box is an axis-aligned sub-region of a grid. Min is inclusive and Max is
// exclusive on every axis, ordered x, y, z.
type Box struct {
	Min [3]int
	Max [3]int
}

// Whole returns the Box covering every cell of f.
func Whole(f *Field) Box {
	return Box{Max: [3]int{f.width, f.height, f.depth}}
}

func (f *Field) checkBox(b Box) error {
	ext := [3]int{f.width, f.height, f.depth}
	for axis := 0; axis < 3; axis++ {
		if b.Min[axis] < 0 || b.Min[axis] > b.Max[axis] || b.Max[axis] > ext[axis] {
			return fmt.Errorf("%w: box %v..%v exceeds extents %v", ErrOutOfRange, b.Min, b.Max, ext)
		}
	}
	return nil
}

// reduce folds every channel of every point inside b with pick, one
// accumulator per channel.
func (f *Field) reduce(b Box, init float64, pick func(acc, v float64) float64) ([]float64, error) {
	if !f.initialized {
		return nil, f.notInitialized()
	}
	if err := f.checkBox(b); err != nil {
		return nil, err
	}
	if f.pointDimension == 0 || b.Min[0] == b.Max[0] || b.Min[1] == b.Max[1] || b.Min[2] == b.Max[2] {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, f)
	}

	acc := make([]float64, f.pointDimension)
	for d := range acc {
		acc[d] = init
	}
	for z := b.Min[2]; z < b.Max[2]; z++ {
		for y := b.Min[1]; y < b.Max[1]; y++ {
			row := (z*f.width*f.height + y*f.width) * f.pointDimension
			for x := b.Min[0]; x < b.Max[0]; x++ {
				base := row + x*f.pointDimension
				for d := 0; d < f.pointDimension; d++ {
					acc[d] = pick(acc[d], f.data[base+d])
				}
			}
		}
	}
	return acc, nil
}

func collapse(per []float64, err error, pick func(acc, v float64) float64) (float64, error) {
	if err != nil {
		return 0, err
	}
	out := per[0]
	for _, v := range per[1:] {
		out = pick(out, v)
	}
	return out, nil
}

// Minima returns the smallest value of each channel.
func (f *Field) Minima() ([]float64, error) {
	return f.PartialMinima(Whole(f))
}

// Maxima returns the largest value of each channel.
func (f *Field) Maxima() ([]float64, error) {
	return f.PartialMaxima(Whole(f))
}

// Minimum returns the smallest value over all channels and points.
func (f *Field) Minimum() (float64, error) {
	return f.PartialMinimum(Whole(f))
}

// Maximum returns the largest value over all channels and points.
func (f *Field) Maximum() (float64, error) {
	return f.PartialMaximum(Whole(f))
}

// PartialMinima returns the per-channel minima inside b.
func (f *Field) PartialMinima(b Box) ([]float64, error) {
	return f.reduce(b, math.Inf(1), math.Min)
}

// PartialMaxima returns the per-channel maxima inside b.
func (f *Field) PartialMaxima(b Box) ([]float64, error) {
	return f.reduce(b, math.Inf(-1), math.Max)
}

// PartialMinimum returns the smallest value inside b.
func (f *Field) PartialMinimum(b Box) (float64, error) {
	per, err := f.PartialMinima(b)
	return collapse(per, err, math.Min)
}

// PartialMaximum returns the largest value inside b.
func (f *Field) PartialMaximum(b Box) (float64, error) {
	per, err := f.PartialMaxima(b)
	return collapse(per, err, math.Max)
}

// CombinedMinima returns, per channel, the minimum of mean-|deviation| over
// all points. Renderers use it to size the display range of an uncertain
// field.
func CombinedMinima(mean, dev *Field) ([]float64, error) {
	return combined(mean, dev, -1, math.Inf(1), math.Min)
}

// CombinedMaxima returns, per channel, the maximum of mean+|deviation|.
func CombinedMaxima(mean, dev *Field) ([]float64, error) {
	return combined(mean, dev, 1, math.Inf(-1), math.Max)
}

func combined(mean, dev *Field, sign, init float64, pick func(acc, v float64) float64) ([]float64, error) {
	if !mean.EqualLayout(dev) {
		return nil, fmt.Errorf("%w: %s vs %s", ErrLayoutMismatch, mean, dev)
	}
	md, err := mean.Data()
	if err != nil {
		return nil, err
	}
	dd, err := dev.Data()
	if err != nil {
		return nil, err
	}
	if len(md) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, mean)
	}

	pd := mean.pointDimension
	acc := make([]float64, pd)
	for d := range acc {
		acc[d] = init
	}
	for i, m := range md {
		d := i % pd
		acc[d] = pick(acc[d], m+sign*math.Abs(dd[i]))
	}
	return acc, nil
}
