package chart

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/plotter"

	"github.com/banshee-data/tracestats/internal/dataset"
	"github.com/banshee-data/tracestats/internal/filter"
	"github.com/banshee-data/tracestats/internal/testutil"
)

func TestTrajectories(t *testing.T) {
	shuffled := "t (s),id,pos (m)\n2,7,20\n0,7,0\n5,3,1\n1,7,10\n4,3,0\n"
	tf := testutil.ParseTrace(t, "shuffled.trc", shuffled)

	trs, err := Trajectories(tf)
	require.NoError(t, err)
	require.Len(t, trs, 2)

	assert.Equal(t, int64(7), trs[0].ID, "first appearance order")
	assert.Equal(t, plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 10}, {X: 2, Y: 20}}, trs[0].Points)
	assert.Equal(t, int64(3), trs[1].ID)
	assert.Equal(t, plotter.XYs{{X: 4, Y: 0}, {X: 5, Y: 1}}, trs[1].Points)
}

func TestTrajectoriesMissingColumns(t *testing.T) {
	tf := testutil.ParseTrace(t, "lc.trc", "t (s),fromln,tolane\n1,1,2\n")
	_, err := Trajectories(tf)
	assert.ErrorIs(t, err, dataset.ErrMissingColumn)

	var b bytes.Buffer
	assert.ErrorIs(t, WritePNG(&b, tf, Options{}), dataset.ErrMissingColumn)
	assert.ErrorIs(t, WriteHTML(&b, tf, Options{}), dataset.ErrMissingColumn)
	assert.Zero(t, b.Len())
}

func TestNewTimeSpacePlot(t *testing.T) {
	tf := testutil.Samples(t)
	p, err := NewTimeSpacePlot(tf, Options{Area: filter.NewArea(0, 2, 0, 20)})
	require.NoError(t, err)

	assert.Equal(t, "samples.trc", p.Title.Text)
	assert.Equal(t, "Time (s)", p.X.Label.Text)
	assert.Equal(t, 0.0, p.X.Min)
	assert.Equal(t, 3.0, p.X.Max)
	assert.Equal(t, 30.0, p.Y.Max)
}

func TestWritePNG(t *testing.T) {
	var b bytes.Buffer
	require.NoError(t, WritePNG(&b, testutil.Samples(t), Options{Title: "Inv 21"}))
	assert.True(t, bytes.HasPrefix(b.Bytes(), []byte("\x89PNG\r\n\x1a\n")))
}

func TestWriteHTML(t *testing.T) {
	var b bytes.Buffer
	err := WriteHTML(&b, testutil.Samples(t), Options{
		Title: "Inv 21",
		Area:  filter.NewArea(0, 2, 0, 20),
	})
	require.NoError(t, err)

	html := b.String()
	assert.Contains(t, html, "Inv 21")
	assert.Contains(t, html, "vehicles=2 shown=2")
	assert.Contains(t, html, `"name":"area"`)
}

func TestMaxVehicles(t *testing.T) {
	scatter, err := NewTimeSpaceScatter(testutil.Samples(t), Options{MaxVehicles: 1})
	require.NoError(t, err)
	require.Len(t, scatter.MultiSeries, 1)
	assert.Equal(t, "1", scatter.MultiSeries[0].Name)
	assert.True(t, strings.HasSuffix(scatter.Title.Subtitle, "shown=1"))
}
