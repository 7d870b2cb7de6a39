// Package export converts analysis output Fields into Apache Arrow records
// for renderers and notebooks.
//
// Each Field channel becomes one float64 column with one row per voxel, in
// flat point order (x fastest, then y, then z). The grid extents travel in
// the schema metadata so a consumer can reshape the columns.
package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/nvandessel/enstat/internal/errkind"
	"github.com/nvandessel/enstat/internal/field"
)

// Schema metadata keys.
const (
	MetaWidth  = "enstat.width"
	MetaHeight = "enstat.height"
	MetaDepth  = "enstat.depth"

	// Column metadata keys.
	MetaField   = "enstat.field"
	MetaChannel = "enstat.channel"
)

// ColumnName returns the column name of channel c of f: the field name for
// scalar fields, "<name>[c]" otherwise.
func ColumnName(f *field.Field, c int) string {
	if f.PointDimension() == 1 {
		return f.Name()
	}
	return fmt.Sprintf("%s[%d]", f.Name(), c)
}

// Schema builds the Arrow schema for fields without touching their data.
func Schema(fields []*field.Field) (*arrow.Schema, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("export: no fields: %w", errkind.InvalidArgument)
	}
	first := fields[0]
	var cols []arrow.Field
	for _, f := range fields {
		if f.Width() != first.Width() || f.Height() != first.Height() || f.Depth() != first.Depth() {
			return nil, fmt.Errorf("%w: %v and %v do not share a grid", field.ErrLayoutMismatch, first, f)
		}
		for c := 0; c < f.PointDimension(); c++ {
			md := arrow.NewMetadata(
				[]string{MetaField, MetaChannel},
				[]string{f.Name(), strconv.Itoa(c)},
			)
			cols = append(cols, arrow.Field{
				Name:     ColumnName(f, c),
				Type:     arrow.PrimitiveTypes.Float64,
				Metadata: md,
			})
		}
	}
	md := arrow.NewMetadata(
		[]string{MetaWidth, MetaHeight, MetaDepth},
		[]string{strconv.Itoa(first.Width()), strconv.Itoa(first.Height()), strconv.Itoa(first.Depth())},
	)
	return arrow.NewSchema(cols, &md), nil
}

// NewRecord packs fields into one Arrow record. All fields must share a
// grid. The caller must Release the record.
func NewRecord(mem memory.Allocator, fields []*field.Field) (arrow.Record, error) {
	schema, err := Schema(fields)
	if err != nil {
		return nil, err
	}
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	bldr := array.NewRecordBuilder(mem, schema)
	defer bldr.Release()

	col := 0
	for _, f := range fields {
		data, err := f.Data()
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", f.Name(), err)
		}
		pd := f.PointDimension()
		values := make([]float64, f.Volume())
		for c := 0; c < pd; c++ {
			for i := range values {
				values[i] = data[i*pd+c]
			}
			bldr.Field(col).(*array.Float64Builder).AppendValues(values, nil)
			col++
		}
	}
	return bldr.NewRecord(), nil
}

// WriteStream writes fields to w as an Arrow IPC stream holding a single
// record batch.
func WriteStream(w io.Writer, fields []*field.Field) error {
	rec, err := NewRecord(memory.DefaultAllocator, fields)
	if err != nil {
		return err
	}
	defer rec.Release()

	wr := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()))
	if err := wr.Write(rec); err != nil {
		wr.Close()
		return fmt.Errorf("writing arrow record: %w", err)
	}
	if err := wr.Close(); err != nil {
		return fmt.Errorf("closing arrow stream: %w", err)
	}
	return nil
}
