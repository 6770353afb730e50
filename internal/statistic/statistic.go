// Package statistic computes aggregate traffic statistics from trace files.
//
// Values are available in SI units and in a preferred display unit; the
// preferred value is always a fixed rescale of the SI value. Statistics are
// not safe for concurrent use: the Total family keeps a cache.
package statistic

import (
	"github.com/banshee-data/tracestats/internal/filter"
	"github.com/banshee-data/tracestats/internal/trace"
	"github.com/banshee-data/tracestats/internal/units"
	"gonum.org/v1/gonum/floats"
)

// Statistic is a scalar metric over a trace file.
type Statistic interface {
	// Label names the statistic, e.g. in a table.
	Label() string
	// Unit is the preferred display unit.
	Unit() string
	// UnitSI is the SI unit.
	UnitSI() string
	// Get returns the value in the preferred unit.
	Get(tf *trace.TraceFile) (float64, error)
	// GetSI returns the value in the SI unit.
	GetSI(tf *trace.TraceFile) (float64, error)
}

// Total sums, over all vehicles, the difference between the maximum and the
// minimum of a column. The last result is cached against the trace file's
// version so composed statistics sharing one Total do not rescan the data.
type Total struct {
	label  string
	column string
	conv   units.Conversion

	valid   bool
	version uint64
	value   float64
	scans   int
}

func newTotal(label, column string, conv units.Conversion) Total {
	return Total{label: label, column: column, conv: conv}
}

// NewTotal creates a Total over any numeric column.
func NewTotal(label, column string, conv units.Conversion) *Total {
	t := newTotal(label, column, conv)
	return &t
}

func (t *Total) Label() string  { return t.label }
func (t *Total) Unit() string   { return t.conv.Preferred }
func (t *Total) UnitSI() string { return t.conv.SI }

// Column returns the summed column.
func (t *Total) Column() string { return t.column }

// Get implements Statistic.
func (t *Total) Get(tf *trace.TraceFile) (float64, error) {
	si, err := t.GetSI(tf)
	if err != nil {
		return 0, err
	}
	return t.conv.Apply(si), nil
}

// GetSI implements Statistic.
func (t *Total) GetSI(tf *trace.TraceFile) (float64, error) {
	frame := tf.Frame()
	if err := frame.Require(t.column, trace.ColID); err != nil {
		return 0, err
	}
	if t.valid && t.version == tf.Version() {
		return t.value, nil
	}

	values, err := frame.Numeric(t.column)
	if err != nil {
		return 0, err
	}
	ids, err := frame.Ints(trace.ColID)
	if err != nil {
		return 0, err
	}
	t.scans++

	order := make([]int64, 0)
	groups := make(map[int64][]float64)
	for i, id := range ids {
		if _, seen := groups[id]; !seen {
			order = append(order, id)
		}
		groups[id] = append(groups[id], values[i])
	}
	value := 0.0
	for _, id := range order {
		g := groups[id]
		value += floats.Max(g) - floats.Min(g)
	}

	t.valid, t.version, t.value = true, tf.Version(), value
	return value, nil
}

// Reset drops the cached value.
func (t *Total) Reset() {
	t.valid = false
	t.value = 0
}

// Scans reports how many times the dataset has been partitioned.
func (t *Total) Scans() int { return t.scans }

// TotalTimeSpent sums each vehicle's time in a vehicle samples trace.
type TotalTimeSpent struct{ Total }

// NewTotalTimeSpent creates the statistic over t (s).
func NewTotalTimeSpent() *TotalTimeSpent {
	return &TotalTimeSpent{newTotal("Total time spent", trace.ColTime, units.Time)}
}

// TotalDistanceTraveled sums each vehicle's distance in a vehicle samples
// trace.
type TotalDistanceTraveled struct{ Total }

// NewTotalDistanceTraveled creates the statistic over pos (m).
func NewTotalDistanceTraveled() *TotalDistanceTraveled {
	return &TotalDistanceTraveled{newTotal("Total distance traveled", trace.ColPosition, units.Distance)}
}

// MeanSpeed is total distance traveled over total time spent. Zero time
// yields +Inf or NaN.
type MeanSpeed struct {
	tts *TotalTimeSpent
	tdt *TotalDistanceTraveled
}

// NewMeanSpeed composes the two totals. Pass shared instances to reuse
// their caches.
func NewMeanSpeed(tts *TotalTimeSpent, tdt *TotalDistanceTraveled) *MeanSpeed {
	return &MeanSpeed{tts: tts, tdt: tdt}
}

func (m *MeanSpeed) Label() string  { return "Mean speed" }
func (m *MeanSpeed) Unit() string   { return units.Speed.Preferred }
func (m *MeanSpeed) UnitSI() string { return units.Speed.SI }

// Get implements Statistic.
func (m *MeanSpeed) Get(tf *trace.TraceFile) (float64, error) {
	si, err := m.GetSI(tf)
	if err != nil {
		return 0, err
	}
	return units.Speed.Apply(si), nil
}

// GetSI implements Statistic.
func (m *MeanSpeed) GetSI(tf *trace.TraceFile) (float64, error) {
	distance, err := m.tdt.GetSI(tf)
	if err != nil {
		return 0, err
	}
	time, err := m.tts.GetSI(tf)
	if err != nil {
		return 0, err
	}
	return distance / time, nil
}

// PerArea divides another statistic by the size of a space-time area.
type PerArea struct {
	label string
	stat  Statistic
	area  *filter.Area
	conv  units.Conversion
}

// NewPerArea creates a per-area statistic.
func NewPerArea(label string, stat Statistic, area *filter.Area, conv units.Conversion) *PerArea {
	return &PerArea{label: label, stat: stat, area: area, conv: conv}
}

// NewDensity is total time spent per area.
func NewDensity(tts *TotalTimeSpent, area *filter.Area) *PerArea {
	return NewPerArea("Density", tts, area, units.Density)
}

// NewFlow is total distance traveled per area.
func NewFlow(tdt *TotalDistanceTraveled, area *filter.Area) *PerArea {
	return NewPerArea("Flow", tdt, area, units.Flow)
}

func (p *PerArea) Label() string  { return p.label }
func (p *PerArea) Unit() string   { return p.conv.Preferred }
func (p *PerArea) UnitSI() string { return p.conv.SI }

// Area returns the normalizing window.
func (p *PerArea) Area() *filter.Area { return p.area }

// Get implements Statistic.
func (p *PerArea) Get(tf *trace.TraceFile) (float64, error) {
	si, err := p.GetSI(tf)
	if err != nil {
		return 0, err
	}
	return p.conv.Apply(si), nil
}

// GetSI implements Statistic.
func (p *PerArea) GetSI(tf *trace.TraceFile) (float64, error) {
	v, err := p.stat.GetSI(tf)
	if err != nil {
		return 0, err
	}
	return v / p.area.Area(), nil
}

// NumberOfLaneChanges counts the rows of a lane change trace.
type NumberOfLaneChanges struct{}

// NewNumberOfLaneChanges creates the statistic.
func NewNumberOfLaneChanges() *NumberOfLaneChanges { return &NumberOfLaneChanges{} }

func (n *NumberOfLaneChanges) Label() string  { return "Number of lane changes" }
func (n *NumberOfLaneChanges) Unit() string   { return units.Count.Preferred }
func (n *NumberOfLaneChanges) UnitSI() string { return units.Count.SI }

// Get implements Statistic.
func (n *NumberOfLaneChanges) Get(tf *trace.TraceFile) (float64, error) {
	if err := tf.Frame().Require(trace.ColFromLane, trace.ColToLane); err != nil {
		return 0, err
	}
	return float64(tf.Len()), nil
}

// GetSI implements Statistic.
func (n *NumberOfLaneChanges) GetSI(tf *trace.TraceFile) (float64, error) {
	return n.Get(tf)
}

var (
	_ Statistic = (*TotalTimeSpent)(nil)
	_ Statistic = (*TotalDistanceTraveled)(nil)
	_ Statistic = (*MeanSpeed)(nil)
	_ Statistic = (*PerArea)(nil)
	_ Statistic = (*NumberOfLaneChanges)(nil)
)
