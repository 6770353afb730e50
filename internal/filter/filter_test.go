package filter

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tracestats/internal/dataset"
)

func vehicleFrame(t *testing.T) *dataset.Frame {
	t.Helper()
	f, err := dataset.NewFrame(
		dataset.FloatColumn(TimeColumn, []float64{0, 1, 2, 3, 1, 2, 5}),
		dataset.FloatColumn(PositionColumn, []float64{0, 10, 20, 30, 5, 15, 100}),
		dataset.IntColumn("id", []int64{1, 1, 1, 1, 2, 2, 3}),
		dataset.StringColumn("type", []string{"1", "1", "1", "1", "2", "2", "3"}),
	)
	require.NoError(t, err)
	return f
}

func TestNewRangeRejectsInvertedBounds(t *testing.T) {
	_, err := NewRange(TimeColumn, 3, 2)
	assert.ErrorIs(t, err, dataset.ErrInvalidArgument)

	r, err := NewRange(TimeColumn, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, TimeColumn, r.Column())
}

func TestRangeInclusivity(t *testing.T) {
	f := vehicleFrame(t)
	ts, _ := f.Floats(TimeColumn)

	for _, minIncl := range []bool{true, false} {
		for _, maxIncl := range []bool{true, false} {
			t.Run(fmt.Sprintf("min=%v/max=%v", minIncl, maxIncl), func(t *testing.T) {
				r, err := NewRange(TimeColumn, 1, 3, MinInclusive(minIncl), MaxInclusive(maxIncl))
				require.NoError(t, err)

				out, err := r.Apply(f)
				require.NoError(t, err)
				got, _ := out.Floats(TimeColumn)

				var want []float64
				for _, v := range ts {
					lo := v > 1 || (minIncl && v == 1)
					hi := v < 3 || (maxIncl && v == 3)
					if lo && hi {
						want = append(want, v)
					}
				}
				assert.Equal(t, want, got)
				for _, v := range got {
					assert.True(t, r.Contains(v))
				}
			})
		}
	}
}

func TestRangeDefaults(t *testing.T) {
	r, err := NewRange(TimeColumn, 1, 3)
	require.NoError(t, err)
	assert.True(t, r.Contains(1))
	assert.False(t, r.Contains(3))
	assert.Equal(t, "t (s) in [1, 3)", r.String())
}

func TestRangeOnIntColumn(t *testing.T) {
	r, err := NewRange("id", 2, 3, MaxInclusive(true))
	require.NoError(t, err)
	out, err := r.Apply(vehicleFrame(t))
	require.NoError(t, err)
	ids, _ := out.Ints("id")
	assert.Equal(t, []int64{2, 2, 3}, ids)
}

func TestRangeMissingColumn(t *testing.T) {
	r, err := NewRange("v (m/s)", 0, 1)
	require.NoError(t, err)
	_, err = r.Apply(vehicleFrame(t))
	assert.ErrorIs(t, err, dataset.ErrMissingColumn)
}

func TestInSetPreservesOrder(t *testing.T) {
	f := vehicleFrame(t)
	out, err := NewInSet("type", "2", "1").Apply(f)
	require.NoError(t, err)

	types, _ := out.Strings("type")
	assert.Equal(t, []string{"1", "1", "1", "1", "2", "2"}, types)
	ts, _ := out.Floats(TimeColumn)
	assert.Equal(t, []float64{0, 1, 2, 3, 1, 2}, ts)
}

func TestInSetOnIntColumn(t *testing.T) {
	out, err := NewInSet("id", "3").Apply(vehicleFrame(t))
	require.NoError(t, err)
	assert.Equal(t, 1, out.Len())
}

func TestArea(t *testing.T) {
	a := NewArea(0, 10, 0, 100)
	assert.Equal(t, 1000.0, a.Area())

	out, err := a.Apply(vehicleFrame(t))
	require.NoError(t, err)
	assert.Equal(t, 7, out.Len(), "bounds are inclusive on both ends")

	out, err = NewArea(1, 2, 10, 15).Apply(vehicleFrame(t))
	require.NoError(t, err)
	ids, _ := out.Ints("id")
	assert.Equal(t, []int64{1, 2}, ids)
}

func TestAreaInvertedIsPermissive(t *testing.T) {
	a := NewArea(10, 0, 0, 100)
	assert.Equal(t, -1000.0, a.Area())
	out, err := a.Apply(vehicleFrame(t))
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
}

func TestFiltersDoNotMutateAndAreIdempotent(t *testing.T) {
	r, err := NewRange(TimeColumn, 1, 3)
	require.NoError(t, err)
	filters := []Filter{r, NewInSet("type", "1", "2"), NewArea(0, 2, 0, 20)}

	for _, flt := range filters {
		t.Run(flt.String(), func(t *testing.T) {
			f := vehicleFrame(t)
			before, _ := f.Floats(TimeColumn)
			snapshot := append([]float64(nil), before...)

			once, err := flt.Apply(f)
			require.NoError(t, err)
			twice, err := flt.Apply(once)
			require.NoError(t, err)

			after, _ := f.Floats(TimeColumn)
			assert.Equal(t, snapshot, after)
			assert.Equal(t, 7, f.Len())

			a, _ := once.Floats(TimeColumn)
			b, _ := twice.Floats(TimeColumn)
			assert.Equal(t, a, b)
		})
	}
}

func TestChain(t *testing.T) {
	r, err := NewRange(TimeColumn, 1, 3)
	require.NoError(t, err)
	c := Chain{NewInSet("type", "1"), r}

	out, err := c.Apply(vehicleFrame(t))
	require.NoError(t, err)
	ts, _ := out.Floats(TimeColumn)
	assert.Equal(t, []float64{1, 2}, ts)
	assert.Equal(t, "type in {1} & t (s) in [1, 3)", c.String())

	f := vehicleFrame(t)
	same, err := Chain{}.Apply(f)
	require.NoError(t, err)
	assert.NotSame(t, f, same)
	assert.Equal(t, f.Len(), same.Len())
}

func TestColumns(t *testing.T) {
	r, err := NewRange(TimeColumn, 0, 10)
	require.NoError(t, err)
	chain := Chain{r, NewInSet("type", "1"), NewArea(0, 1, 0, 1)}

	assert.Equal(t, []string{"type"}, Columns(NewInSet("type", "1")))
	assert.Equal(t, []string{TimeColumn, "type", PositionColumn}, Columns(chain))
	assert.Empty(t, Columns(Chain{}))
}
