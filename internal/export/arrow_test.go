package export

import (
	"bytes"
	"errors"
	"testing"

	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/nvandessel/enstat/internal/errkind"
	"github.com/nvandessel/enstat/internal/field"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// outputs returns a scalar mean field and a two-channel weight field on a
// 3x1x1 grid.
func outputs(t *testing.T) []*field.Field {
	t.Helper()
	mean, err := field.New(1, 3, 1, 1, true)
	require.NoError(t, err)
	mean.SetName("rho_mean")
	for i := 0; i < 3; i++ {
		require.NoError(t, mean.SetValue(0, i, float64(i)+0.5))
	}

	weight, err := field.New(2, 3, 1, 1, true)
	require.NoError(t, err)
	weight.SetName("rho_weight")
	for i := 0; i < 3; i++ {
		require.NoError(t, weight.SetPoint(i, []float64{float64(10 + i), float64(20 + i)}))
	}
	return []*field.Field{mean, weight}
}

func TestNewRecord(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	rec, err := NewRecord(mem, outputs(t))
	require.NoError(t, err)
	defer rec.Release()

	assert.EqualValues(t, 3, rec.NumRows())
	require.EqualValues(t, 3, rec.NumCols())
	assert.Equal(t, "rho_mean", rec.ColumnName(0))
	assert.Equal(t, "rho_weight[0]", rec.ColumnName(1))
	assert.Equal(t, "rho_weight[1]", rec.ColumnName(2))

	assert.Equal(t, []float64{0.5, 1.5, 2.5}, rec.Column(0).(*array.Float64).Float64Values())
	assert.Equal(t, []float64{10, 11, 12}, rec.Column(1).(*array.Float64).Float64Values())
	assert.Equal(t, []float64{20, 21, 22}, rec.Column(2).(*array.Float64).Float64Values())

	md := rec.Schema().Metadata()
	width, ok := md.GetValue(MetaWidth)
	assert.True(t, ok)
	assert.Equal(t, "3", width)

	colMeta := rec.Schema().Field(2).Metadata
	name, _ := colMeta.GetValue(MetaField)
	channel, _ := colMeta.GetValue(MetaChannel)
	assert.Equal(t, "rho_weight", name)
	assert.Equal(t, "1", channel)
}

func TestWriteStream_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStream(&buf, outputs(t)))

	rdr, err := ipc.NewReader(&buf)
	require.NoError(t, err)
	defer rdr.Release()

	require.True(t, rdr.Next())
	rec := rdr.Record()
	assert.EqualValues(t, 3, rec.NumCols())
	assert.Equal(t, []float64{21, 22}, rec.Column(2).(*array.Float64).Float64Values()[1:])
	assert.False(t, rdr.Next())
}

func TestNewRecord_Errors(t *testing.T) {
	_, err := NewRecord(nil, nil)
	assert.ErrorIs(t, err, errkind.InvalidArgument)

	fields := outputs(t)
	other, err := field.New(1, 1, 3, 1, true)
	require.NoError(t, err)
	_, err = NewRecord(nil, append(fields, other))
	assert.True(t, errors.Is(err, field.ErrLayoutMismatch))

	placeholder, err := field.New(1, 3, 1, 1, false)
	require.NoError(t, err)
	_, err = NewRecord(nil, []*field.Field{placeholder})
	assert.ErrorIs(t, err, field.ErrNotInitialized)
}
