// Package filter provides row selections over a trace dataset. Filters are
// stateless and may be applied to any number of frames.
package filter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/banshee-data/tracestats/internal/dataset"
)

// Well-known column names used by Area.
const (
	TimeColumn     = "t (s)"
	PositionColumn = "pos (m)"
)

// Filter selects a subsequence of rows. Apply never mutates its input and
// never reorders rows.
type Filter interface {
	Apply(f *dataset.Frame) (*dataset.Frame, error)
	String() string
}

// Range keeps rows whose column value lies between Min and Max.
type Range struct {
	column       string
	min, max     float64
	minInclusive bool
	maxInclusive bool
}

// RangeOption configures bound inclusivity.
type RangeOption func(*Range)

// MinInclusive sets whether the minimum is included (default true).
func MinInclusive(v bool) RangeOption {
	return func(r *Range) { r.minInclusive = v }
}

// MaxInclusive sets whether the maximum is included (default false).
func MaxInclusive(v bool) RangeOption {
	return func(r *Range) { r.maxInclusive = v }
}

// NewRange creates a range filter on column. It fails if min > max.
func NewRange(column string, min, max float64, opts ...RangeOption) (*Range, error) {
	if min > max {
		return nil, fmt.Errorf("range filter on %q: minimum %g is larger than maximum %g: %w",
			column, min, max, dataset.ErrInvalidArgument)
	}
	r := &Range{column: column, min: min, max: max, minInclusive: true}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Column returns the filtered column name.
func (r *Range) Column() string { return r.column }

// Contains reports whether v passes both bounds.
func (r *Range) Contains(v float64) bool {
	if r.minInclusive {
		if !(v >= r.min) {
			return false
		}
	} else if !(v > r.min) {
		return false
	}
	if r.maxInclusive {
		return v <= r.max
	}
	return v < r.max
}

// Apply implements Filter.
func (r *Range) Apply(f *dataset.Frame) (*dataset.Frame, error) {
	mask, err := r.mask(f)
	if err != nil {
		return nil, err
	}
	return f.Select(mask)
}

func (r *Range) mask(f *dataset.Frame) ([]bool, error) {
	values, err := f.Numeric(r.column)
	if err != nil {
		return nil, err
	}
	mask := make([]bool, len(values))
	for i, v := range values {
		mask[i] = r.Contains(v)
	}
	return mask, nil
}

func (r *Range) String() string {
	lo, hi := "(", ")"
	if r.minInclusive {
		lo = "["
	}
	if r.maxInclusive {
		hi = "]"
	}
	return fmt.Sprintf("%s in %s%g, %g%s", r.column, lo, r.min, r.max, hi)
}

// InSet keeps rows whose column value, rendered as text, is in a fixed set.
type InSet struct {
	column string
	values map[string]struct{}
}

// NewInSet creates a set membership filter on column.
func NewInSet(column string, values ...string) *InSet {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return &InSet{column: column, values: set}
}

// Column returns the filtered column name.
func (s *InSet) Column() string { return s.column }

// Apply implements Filter.
func (s *InSet) Apply(f *dataset.Frame) (*dataset.Frame, error) {
	values, err := f.Text(s.column)
	if err != nil {
		return nil, err
	}
	mask := make([]bool, len(values))
	for i, v := range values {
		_, mask[i] = s.values[v]
	}
	return f.Select(mask)
}

func (s *InSet) String() string {
	vals := make([]string, 0, len(s.values))
	for v := range s.values {
		vals = append(vals, v)
	}
	sort.Strings(vals)
	return fmt.Sprintf("%s in {%s}", s.column, strings.Join(vals, ", "))
}

// Area is a space-time window over t (s) and pos (m), inclusive on all
// bounds. Inverted bounds are accepted and yield a negative area and an
// empty selection.
type Area struct {
	minT, maxT     float64
	minPos, maxPos float64
	area           float64
}

// NewArea creates a space-time window filter.
func NewArea(minT, maxT, minPos, maxPos float64) *Area {
	return &Area{
		minT:   minT,
		maxT:   maxT,
		minPos: minPos,
		maxPos: maxPos,
		area:   (maxT - minT) * (maxPos - minPos),
	}
}

// Area returns (maxT - minT) * (maxPos - minPos) in s*m.
func (a *Area) Area() float64 { return a.area }

// Bounds returns the window as minT, maxT, minPos, maxPos.
func (a *Area) Bounds() (minT, maxT, minPos, maxPos float64) {
	return a.minT, a.maxT, a.minPos, a.maxPos
}

// Apply implements Filter. Both windows are evaluated in one pass so only
// the final selection is materialized.
func (a *Area) Apply(f *dataset.Frame) (*dataset.Frame, error) {
	ts, err := f.Numeric(TimeColumn)
	if err != nil {
		return nil, err
	}
	pos, err := f.Numeric(PositionColumn)
	if err != nil {
		return nil, err
	}
	mask := make([]bool, len(ts))
	for i := range ts {
		mask[i] = ts[i] >= a.minT && ts[i] <= a.maxT &&
			pos[i] >= a.minPos && pos[i] <= a.maxPos
	}
	return f.Select(mask)
}

func (a *Area) String() string {
	return fmt.Sprintf("area t=[%g, %g] pos=[%g, %g]", a.minT, a.maxT, a.minPos, a.maxPos)
}

// Chain applies filters in order.
type Chain []Filter

// Apply implements Filter.
func (c Chain) Apply(f *dataset.Frame) (*dataset.Frame, error) {
	out := f
	for _, flt := range c {
		var err error
		if out, err = flt.Apply(out); err != nil {
			return nil, err
		}
	}
	if out == f {
		// keep the copy-on-filter contract for an empty chain
		mask := make([]bool, f.Len())
		for i := range mask {
			mask[i] = true
		}
		return f.Select(mask)
	}
	return out, nil
}

func (c Chain) String() string {
	parts := make([]string, len(c))
	for i, flt := range c {
		parts[i] = flt.String()
	}
	return strings.Join(parts, " & ")
}

// Columns lists the columns a filter reads, in order and without
// duplicates.
func Columns(f Filter) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(names ...string) {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	var walk func(Filter)
	walk = func(f Filter) {
		switch v := f.(type) {
		case *Range:
			add(v.column)
		case *InSet:
			add(v.column)
		case *Area:
			add(TimeColumn, PositionColumn)
		case Chain:
			for _, inner := range v {
				walk(inner)
			}
		}
	}
	walk(f)
	return out
}
