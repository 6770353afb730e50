// Package chart draws time-space diagrams of vehicle trajectories: a static
// PNG through gonum/plot and an interactive HTML page through go-echarts.
package chart

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/tracestats/internal/filter"
	"github.com/banshee-data/tracestats/internal/trace"
)

// DefaultMaxVehicles caps the number of trajectories drawn.
const DefaultMaxVehicles = 500

// Options control both renderers. Zero values pick defaults.
type Options struct {
	Title string
	// Area, when set, is outlined on the diagram.
	Area *filter.Area
	// MaxVehicles keeps the first N vehicles by first appearance.
	MaxVehicles int
	// Width and Height of the PNG.
	Width, Height vg.Length
}

func (o Options) withDefaults(tf *trace.TraceFile) Options {
	if o.Title == "" {
		o.Title = tf.Name()
	}
	if o.MaxVehicles <= 0 {
		o.MaxVehicles = DefaultMaxVehicles
	}
	if o.Width <= 0 {
		o.Width = 10 * vg.Inch
	}
	if o.Height <= 0 {
		o.Height = 6 * vg.Inch
	}
	return o
}

// Trajectory is one vehicle's samples ordered by time: X is t (s), Y is
// pos (m).
type Trajectory struct {
	ID     int64
	Points plotter.XYs
}

// Trajectories groups the samples by vehicle in order of first
// appearance.
func Trajectories(tf *trace.TraceFile) ([]Trajectory, error) {
	frame := tf.Frame()
	if err := frame.Require(trace.ColTime, trace.ColPosition, trace.ColID); err != nil {
		return nil, err
	}
	ts, err := frame.Numeric(trace.ColTime)
	if err != nil {
		return nil, err
	}
	pos, err := frame.Numeric(trace.ColPosition)
	if err != nil {
		return nil, err
	}
	ids, err := frame.Ints(trace.ColID)
	if err != nil {
		return nil, err
	}

	index := make(map[int64]int)
	var out []Trajectory
	for i, id := range ids {
		k, ok := index[id]
		if !ok {
			k = len(out)
			index[id] = k
			out = append(out, Trajectory{ID: id})
		}
		out[k].Points = append(out[k].Points, plotter.XY{X: ts[i], Y: pos[i]})
	}
	for _, tr := range out {
		pts := tr.Points
		sort.SliceStable(pts, func(a, b int) bool { return pts[a].X < pts[b].X })
	}
	return out, nil
}

func limit(trs []Trajectory, n int) []Trajectory {
	if len(trs) > n {
		return trs[:n]
	}
	return trs
}

// NewTimeSpacePlot builds the gonum plot without rendering it.
func NewTimeSpacePlot(tf *trace.TraceFile, o Options) (*plot.Plot, error) {
	o = o.withDefaults(tf)
	trs, err := Trajectories(tf)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = o.Title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Position (m)"
	p.Add(plotter.NewGrid())

	for i, tr := range limit(trs, o.MaxVehicles) {
		line, err := plotter.NewLine(tr.Points)
		if err != nil {
			return nil, fmt.Errorf("vehicle %d: %w", tr.ID, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)
	}

	if o.Area != nil {
		minT, maxT, minPos, maxPos := o.Area.Bounds()
		outline, err := plotter.NewLine(plotter.XYs{
			{X: minT, Y: minPos}, {X: maxT, Y: minPos},
			{X: maxT, Y: maxPos}, {X: minT, Y: maxPos},
			{X: minT, Y: minPos},
		})
		if err != nil {
			return nil, fmt.Errorf("area outline: %w", err)
		}
		outline.Width = vg.Points(2)
		outline.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
		p.Add(outline)
		p.Legend.Add("area", outline)
		p.Legend.Top = true
	}
	return p, nil
}

// WritePNG renders the time-space diagram as PNG.
func WritePNG(w io.Writer, tf *trace.TraceFile, o Options) error {
	o = o.withDefaults(tf)
	p, err := NewTimeSpacePlot(tf, o)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(o.Width, o.Height, "png")
	if err != nil {
		return fmt.Errorf("failed to create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write png: %w", err)
	}
	return nil
}

// NewTimeSpaceScatter builds the echarts scatter chart, one series per
// vehicle.
func NewTimeSpaceScatter(tf *trace.TraceFile, o Options) (*charts.Scatter, error) {
	o = o.withDefaults(tf)
	trs, err := Trajectories(tf)
	if err != nil {
		return nil, err
	}
	shown := limit(trs, o.MaxVehicles)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: o.Title, Width: "1000px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: o.Title, Subtitle: fmt.Sprintf("vehicles=%d shown=%d", len(trs), len(shown))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "t (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "pos (m)", NameLocation: "middle", NameGap: 40}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}),
	)

	for _, tr := range shown {
		data := make([]opts.ScatterData, len(tr.Points))
		for i, pt := range tr.Points {
			data[i] = opts.ScatterData{Value: []interface{}{pt.X, pt.Y}}
		}
		scatter.AddSeries(strconv.FormatInt(tr.ID, 10), data,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	}

	if o.Area != nil {
		minT, maxT, minPos, maxPos := o.Area.Bounds()
		corners := []opts.ScatterData{
			{Value: []interface{}{minT, minPos}},
			{Value: []interface{}{maxT, minPos}},
			{Value: []interface{}{maxT, maxPos}},
			{Value: []interface{}{minT, maxPos}},
		}
		scatter.AddSeries("area", corners,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	}
	return scatter, nil
}

// WriteHTML renders the time-space diagram as a standalone HTML page.
func WriteHTML(w io.Writer, tf *trace.TraceFile, o Options) error {
	scatter, err := NewTimeSpaceScatter(tf, o)
	if err != nil {
		return err
	}
	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
