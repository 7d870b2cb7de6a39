package ensemble

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/nvandessel/enstat/internal/constants"
	"github.com/nvandessel/enstat/internal/field"
	"github.com/nvandessel/enstat/internal/textio"
)

// readHeaderFile parses the header of the timestep file at path.
func readHeaderFile(path string) ([]*field.Field, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	fields, err := parseHeader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fields, nil
}

// parseHeader reads the header records,
//
//	<width> <height> <depth> <total>
//	<fieldCount> <name_0> ... <name_{fieldCount-1}>
//	<reserved>
//
// and returns one uninitialized scalar Field per declared field. The
// reserved record is not interpreted beyond its length.
func parseHeader(r io.Reader) ([]*field.Field, error) {
	tr := textio.NewReader(r)

	line, err := tr.ReadLine()
	if err != nil {
		return nil, err
	}
	dims, err := textio.ParseInts(line)
	if err != nil {
		return nil, err
	}
	if len(dims) < 4 {
		return nil, fmt.Errorf("%w: line 1 has %d values, want width height depth total", textio.ErrMalformed, len(dims))
	}
	w, h, d, total := dims[0], dims[1], dims[2], dims[3]
	if w*h*d != total {
		return nil, fmt.Errorf("%w: %d*%d*%d != %d", ErrHeaderTotal, w, h, d, total)
	}

	line, err = tr.ReadLine()
	if err != nil {
		return nil, err
	}
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: line 2 is empty", textio.ErrMalformed)
	}
	count, err := strconv.Atoi(tokens[0])
	if err != nil || count < 0 {
		return nil, fmt.Errorf("%w: field count %q", textio.ErrMalformed, tokens[0])
	}
	names := tokens[1:]
	if len(names) < count {
		return nil, fmt.Errorf("%w: %d field names for %d fields", textio.ErrMalformed, len(names), count)
	}

	line, err = tr.ReadLine()
	if err != nil {
		return nil, err
	}
	if len(line) > constants.MaxReservedHeaderLen {
		return nil, fmt.Errorf("%w: line 3 is %d bytes, limit %d", textio.ErrMalformed, len(line), constants.MaxReservedHeaderLen)
	}

	fields := make([]*field.Field, count)
	for i := range fields {
		fld, err := field.New(1, w, h, d, false)
		if err != nil {
			return nil, err
		}
		fld.SetName(names[i])
		fields[i] = fld
	}
	return fields, nil
}

// sameHeaders reports the first difference between two header lists, or
// nil if they agree in length, layout and name order.
func sameHeaders(want, got []*field.Field) error {
	if len(want) != len(got) {
		return fmt.Errorf("%d fields, want %d", len(got), len(want))
	}
	for i := range want {
		if !want[i].EqualLayout(got[i]) {
			return fmt.Errorf("field %d layout %v, want %v", i, got[i].Layout(), want[i].Layout())
		}
		if want[i].Name() != got[i].Name() {
			return fmt.Errorf("field %d named %q, want %q", i, got[i].Name(), want[i].Name())
		}
	}
	return nil
}

// readFieldFile loads field fieldIndex of the timestep file at path into a
// new Field shaped like layout.
func readFieldFile(path string, fieldIndex int, layout *field.Field) (*field.Field, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	out, err := readField(f, fieldIndex, layout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// readField skips the header records and the data blocks of the fields
// before fieldIndex, each height*depth rows plus one separator record,
// then reads Volume() values.
func readField(r io.Reader, fieldIndex int, layout *field.Field) (*field.Field, error) {
	tr := textio.NewReader(r)
	if err := tr.SkipRecords(constants.HeaderRecords); err != nil {
		return nil, err
	}
	block := layout.Height()*layout.Depth() + 1
	if err := tr.SkipRecords(block * fieldIndex); err != nil {
		return nil, err
	}

	out := field.NewLike(layout, true)
	out.SetName(layout.Name())
	data, err := out.Data()
	if err != nil {
		return nil, err
	}
	if err := tr.ReadFloats(data); err != nil {
		return nil, fmt.Errorf("field %d: %w", fieldIndex, err)
	}
	return out, nil
}
