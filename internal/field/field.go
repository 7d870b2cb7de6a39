// Package field provides Field, a dense multi-channel scalar grid.
//
// A Field stores PointDimension channels for every cell of a
// Width×Height×Depth grid in a single flat buffer. Channels vary fastest,
// then x, then y, then z, so the buffer can be handed to a renderer as-is.
// The buffer is allocated lazily: a Field built as a layout placeholder
// carries its shape and name but no data until Initialize is called.
package field

import (
	"fmt"

	"github.com/nvandessel/enstat/internal/errkind"
)

// Field is a dense typed multi-dimensional array of float64 values.
// A Field is not safe for concurrent mutation of overlapping regions;
// disjoint points may be written from different goroutines once the
// Field is initialized.
type Field struct {
	pointDimension int
	width          int
	height         int
	depth          int
	name           string
	data           []float64
	initialized    bool
}

// Layout is the shape of a Field, independent of its name and data.
type Layout struct {
	PointDimension int `json:"point_dimension"`
	Width          int `json:"width"`
	Height         int `json:"height"`
	Depth          int `json:"depth"`
}

// New creates a Field with the given layout. When init is true the data
// buffer is allocated immediately.
func New(pointDimension, width, height, depth int, init bool) (*Field, error) {
	if pointDimension < 0 || width < 0 || height < 0 || depth < 0 {
		return nil, fmt.Errorf("%w: dimensions (%d, %d, %d, %d) must be non-negative",
			ErrNegativeDimension, pointDimension, width, height, depth)
	}
	f := &Field{
		pointDimension: pointDimension,
		width:          width,
		height:         height,
		depth:          depth,
	}
	if init {
		f.Initialize()
	}
	return f, nil
}

// NewLike creates a Field with the same layout as other. Name and data are
// not copied.
func NewLike(other *Field, init bool) *Field {
	f := &Field{
		pointDimension: other.pointDimension,
		width:          other.width,
		height:         other.height,
		depth:          other.depth,
	}
	if init {
		f.Initialize()
	}
	return f
}

// Initialize allocates Size() zeroed values. Calling it on an initialized
// Field is a no-op.
func (f *Field) Initialize() {
	if f.initialized {
		return
	}
	f.data = make([]float64, f.Size())
	f.initialized = true
}

// Initialized reports whether the data buffer has been allocated.
func (f *Field) Initialized() bool { return f.initialized }

func (f *Field) PointDimension() int { return f.pointDimension }
func (f *Field) Width() int          { return f.width }
func (f *Field) Height() int         { return f.height }
func (f *Field) Depth() int          { return f.depth }
func (f *Field) Name() string        { return f.name }

// SetName renames the Field.
func (f *Field) SetName(name string) { f.name = name }

// Layout returns the shape of the Field.
func (f *Field) Layout() Layout {
	return Layout{
		PointDimension: f.pointDimension,
		Width:          f.width,
		Height:         f.height,
		Depth:          f.depth,
	}
}

// Volume returns the number of grid cells.
func (f *Field) Volume() int { return f.width * f.height * f.depth }

// Size returns the number of scalar values, Volume()*PointDimension().
func (f *Field) Size() int { return f.Volume() * f.pointDimension }

// EqualLayout reports whether f and other have the same point dimension and
// extents. Names and data are ignored.
func (f *Field) EqualLayout(other *Field) bool {
	return f.Layout() == other.Layout()
}

// Data returns the contiguous backing buffer. Writes through the returned
// slice are visible to the Field.
func (f *Field) Data() ([]float64, error) {
	if !f.initialized {
		return nil, f.notInitialized()
	}
	return f.data, nil
}

// String implements fmt.Stringer.
func (f *Field) String() string {
	return fmt.Sprintf("Field{%q %dx%dx%d pd=%d}", f.name, f.width, f.height, f.depth, f.pointDimension)
}

func (f *Field) notInitialized() error {
	return fmt.Errorf("%w: %q", ErrNotInitialized, f.name)
}

// pointIndex converts grid coordinates to a flat point index.
func (f *Field) pointIndex(x, y, z int) (int, error) {
	if x < 0 || x >= f.width {
		return 0, fmt.Errorf("%w: x=%d not in [0,%d)", ErrOutOfRange, x, f.width)
	}
	if y < 0 || y >= f.height {
		return 0, fmt.Errorf("%w: y=%d not in [0,%d)", ErrOutOfRange, y, f.height)
	}
	if z < 0 || z >= f.depth {
		return 0, fmt.Errorf("%w: z=%d not in [0,%d)", ErrOutOfRange, z, f.depth)
	}
	return z*f.width*f.height + y*f.width + x, nil
}

// offset is the single validated mapping from (channel, point) to a position
// in the data buffer. Every public accessor funnels through it; whole
// addresses the first channel of the point and skips the channel check.
func (f *Field) offset(d, i int, whole bool) (int, error) {
	if !f.initialized {
		return 0, f.notInitialized()
	}
	if i < 0 || i >= f.Volume() {
		return 0, fmt.Errorf("%w: point %d not in [0,%d)", ErrOutOfRange, i, f.Volume())
	}
	if whole {
		return i * f.pointDimension, nil
	}
	if d < 0 || d >= f.pointDimension {
		return 0, fmt.Errorf("%w: channel %d not in [0,%d)", ErrOutOfRange, d, f.pointDimension)
	}
	return i*f.pointDimension + d, nil
}

func (f *Field) offsetAt(d, x, y, z int, whole bool) (int, error) {
	if !f.initialized {
		return 0, f.notInitialized()
	}
	i, err := f.pointIndex(x, y, z)
	if err != nil {
		return 0, err
	}
	return f.offset(d, i, whole)
}

// Point returns the channels of point i. The slice aliases the Field's data.
func (f *Field) Point(i int) ([]float64, error) {
	off, err := f.offset(0, i, true)
	if err != nil {
		return nil, err
	}
	return f.data[off : off+f.pointDimension], nil
}

// PointAt returns the channels of the point at (x, y, z).
func (f *Field) PointAt(x, y, z int) ([]float64, error) {
	off, err := f.offsetAt(0, x, y, z, true)
	if err != nil {
		return nil, err
	}
	return f.data[off : off+f.pointDimension], nil
}

// Value returns channel d of point i.
func (f *Field) Value(d, i int) (float64, error) {
	off, err := f.offset(d, i, false)
	if err != nil {
		return 0, err
	}
	return f.data[off], nil
}

// ValueAt returns channel d of the point at (x, y, z).
func (f *Field) ValueAt(d, x, y, z int) (float64, error) {
	off, err := f.offsetAt(d, x, y, z, false)
	if err != nil {
		return 0, err
	}
	return f.data[off], nil
}

// SetPoint copies p into point i. len(p) must equal PointDimension().
func (f *Field) SetPoint(i int, p []float64) error {
	off, err := f.offset(0, i, true)
	if err != nil {
		return err
	}
	return f.copyPoint(off, p)
}

// SetPointAt copies p into the point at (x, y, z).
func (f *Field) SetPointAt(x, y, z int, p []float64) error {
	off, err := f.offsetAt(0, x, y, z, true)
	if err != nil {
		return err
	}
	return f.copyPoint(off, p)
}

func (f *Field) copyPoint(off int, p []float64) error {
	if len(p) != f.pointDimension {
		return fmt.Errorf("%w: point has %d channels, field has %d",
			errkind.InvalidArgument, len(p), f.pointDimension)
	}
	copy(f.data[off:off+f.pointDimension], p)
	return nil
}

// SetValue sets channel d of point i.
func (f *Field) SetValue(d, i int, v float64) error {
	off, err := f.offset(d, i, false)
	if err != nil {
		return err
	}
	f.data[off] = v
	return nil
}

// SetValueAt sets channel d of the point at (x, y, z).
func (f *Field) SetValueAt(d, x, y, z int, v float64) error {
	off, err := f.offsetAt(d, x, y, z, false)
	if err != nil {
		return err
	}
	f.data[off] = v
	return nil
}
