package dataset

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFrame(t *testing.T) *Frame {
	t.Helper()
	f, err := NewFrame(
		FloatColumn("t (s)", []float64{0, 1, 2, 3}),
		IntColumn("id", []int64{1, 1, 2, 2}),
		StringColumn("type", []string{"car", "truck", "car", "bus"}),
	)
	require.NoError(t, err)
	return f
}

func TestNewFrame(t *testing.T) {
	t.Run("mismatched lengths", func(t *testing.T) {
		_, err := NewFrame(
			FloatColumn("a", []float64{1, 2}),
			IntColumn("b", []int64{1}),
		)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("duplicate names", func(t *testing.T) {
		_, err := NewFrame(
			FloatColumn("a", []float64{1}),
			FloatColumn("a", []float64{2}),
		)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("names keep order", func(t *testing.T) {
		f := sampleFrame(t)
		assert.Equal(t, []string{"t (s)", "id", "type"}, f.Names())
		assert.Equal(t, 4, f.Len())
	})
}

func TestMissingColumn(t *testing.T) {
	f := sampleFrame(t)

	_, err := f.Floats("pos (m)")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumn))

	var mc *MissingColumnError
	require.True(t, errors.As(err, &mc))
	assert.Equal(t, "pos (m)", mc.Column)
	assert.Contains(t, err.Error(), "pos (m)")

	err = f.Require("t (s)", "fromln", "tolane")
	require.ErrorAs(t, err, &mc)
	assert.Equal(t, "fromln", mc.Column)
}

func TestWrongKind(t *testing.T) {
	f := sampleFrame(t)
	_, err := f.Ints("t (s)")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = f.Numeric("type")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNumericWidensInts(t *testing.T) {
	f := sampleFrame(t)
	got, err := f.Numeric("id")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 2, 2}, got)
}

func TestText(t *testing.T) {
	f := sampleFrame(t)
	got, err := f.Text("id")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "1", "2", "2"}, got)

	got, err = f.Text("t (s)")
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1", "2", "3"}, got)
}

func TestSelect(t *testing.T) {
	f := sampleFrame(t)

	out, err := f.Select([]bool{false, true, false, true})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())

	ts, _ := out.Floats("t (s)")
	ids, _ := out.Ints("id")
	types, _ := out.Strings("type")
	if diff := cmp.Diff([]float64{1, 3}, ts); diff != "" {
		t.Errorf("t (s) mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []int64{1, 2}, ids)
	assert.Equal(t, []string{"truck", "bus"}, types)

	// source untouched
	assert.Equal(t, 4, f.Len())
	srcTypes, _ := f.Strings("type")
	assert.Equal(t, []string{"car", "truck", "car", "bus"}, srcTypes)

	// no aliasing
	ts[0] = 99
	srcTs, _ := f.Floats("t (s)")
	assert.Equal(t, 1.0, srcTs[1])
}

func TestSelectMaskLength(t *testing.T) {
	f := sampleFrame(t)
	_, err := f.Select([]bool{true})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestEmpty(t *testing.T) {
	f := Empty()
	assert.Equal(t, 0, f.Len())
	assert.Empty(t, f.Names())
	assert.False(t, f.Has("id"))
}

func TestColumnValues(t *testing.T) {
	f := sampleFrame(t)
	cols := f.Columns()
	require.Len(t, cols, 3)

	assert.Equal(t, []float64{0, 1, 2, 3}, cols[0].Floats())
	assert.Nil(t, cols[0].Ints())
	assert.Equal(t, []int64{1, 1, 2, 2}, cols[1].Ints())
	assert.Nil(t, cols[1].Strings())
	assert.Equal(t, []string{"car", "truck", "car", "bus"}, cols[2].Strings())
	assert.Nil(t, cols[2].Floats())
}
