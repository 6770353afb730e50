// Package dataset holds the typed, column-oriented table that trace files are
// parsed into. A Frame is treated as immutable once built: selections always
// produce a new Frame.
package dataset

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrInvalidArgument is returned for malformed construction arguments.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMissingColumn is matched by every MissingColumnError.
	ErrMissingColumn = errors.New("missing column")
)

// MissingColumnError reports a column that a filter or statistic needs but
// the frame does not carry.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("column %q is not in the provided trace file", e.Column)
}

// Is lets errors.Is(err, ErrMissingColumn) match.
func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingColumn
}

// Kind is the scalar type of a column.
type Kind int

const (
	Float Kind = iota
	Int
	String
)

func (k Kind) String() string {
	switch k {
	case Float:
		return "float"
	case Int:
		return "int"
	case String:
		return "string"
	default:
		return "unknown"
	}
}

// Column is a named, homogeneously typed sequence. Exactly one of the value
// slices is populated, matching Kind.
type Column struct {
	Name    string
	Kind    Kind
	floats  []float64
	ints    []int64
	strings []string
}

// FloatColumn builds a float column. The slice is owned by the column.
func FloatColumn(name string, values []float64) Column {
	return Column{Name: name, Kind: Float, floats: values}
}

// IntColumn builds an integer column. The slice is owned by the column.
func IntColumn(name string, values []int64) Column {
	return Column{Name: name, Kind: Int, ints: values}
}

// StringColumn builds a string column. The slice is owned by the column.
func StringColumn(name string, values []string) Column {
	return Column{Name: name, Kind: String, strings: values}
}

// Len returns the number of values in the column.
func (c Column) Len() int {
	switch c.Kind {
	case Float:
		return len(c.floats)
	case Int:
		return len(c.ints)
	default:
		return len(c.strings)
	}
}

// Floats returns the values of a float column, or nil for other kinds.
// The slice aliases the column's storage and must be treated as read-only.
func (c Column) Floats() []float64 { return c.floats }

// Ints returns the values of an integer column, or nil for other kinds.
// The slice aliases the column's storage and must be treated as read-only.
func (c Column) Ints() []int64 { return c.ints }

// Strings returns the values of a string column, or nil for other kinds.
// The slice aliases the column's storage and must be treated as read-only.
func (c Column) Strings() []string { return c.strings }

// Text renders the value at row i as a string.
func (c Column) Text(i int) string {
	switch c.Kind {
	case Float:
		return strconv.FormatFloat(c.floats[i], 'g', -1, 64)
	case Int:
		return strconv.FormatInt(c.ints[i], 10)
	default:
		return c.strings[i]
	}
}

func (c Column) selectRows(mask []bool, n int) Column {
	out := Column{Name: c.Name, Kind: c.Kind}
	switch c.Kind {
	case Float:
		out.floats = make([]float64, 0, n)
		for i, keep := range mask {
			if keep {
				out.floats = append(out.floats, c.floats[i])
			}
		}
	case Int:
		out.ints = make([]int64, 0, n)
		for i, keep := range mask {
			if keep {
				out.ints = append(out.ints, c.ints[i])
			}
		}
	default:
		out.strings = make([]string, 0, n)
		for i, keep := range mask {
			if keep {
				out.strings = append(out.strings, c.strings[i])
			}
		}
	}
	return out
}

// Frame is an ordered set of equal-length columns. Rows are aligned by
// position.
//
// Slices returned by the accessors alias the frame's storage and must be
// treated as read-only.
type Frame struct {
	columns []Column
	index   map[string]int
	rows    int
}

// NewFrame assembles columns into a frame. All columns must have the same
// length and distinct names.
func NewFrame(cols ...Column) (*Frame, error) {
	f := &Frame{
		columns: make([]Column, 0, len(cols)),
		index:   make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if _, dup := f.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q: %w", c.Name, ErrInvalidArgument)
		}
		if i == 0 {
			f.rows = c.Len()
		} else if c.Len() != f.rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d: %w", c.Name, c.Len(), f.rows, ErrInvalidArgument)
		}
		f.index[c.Name] = i
		f.columns = append(f.columns, c)
	}
	return f, nil
}

// Empty returns a frame with no columns and no rows.
func Empty() *Frame {
	return &Frame{index: map[string]int{}}
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.rows }

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.Name
	}
	return names
}

// Has reports whether the frame carries the named column.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Require returns a MissingColumnError for the first absent name.
func (f *Frame) Require(names ...string) error {
	for _, name := range names {
		if !f.Has(name) {
			return &MissingColumnError{Column: name}
		}
	}
	return nil
}

// Column returns the named column.
func (f *Frame) Column(name string) (Column, error) {
	i, ok := f.index[name]
	if !ok {
		return Column{}, &MissingColumnError{Column: name}
	}
	return f.columns[i], nil
}

// Columns returns the columns in order. The returned slice is a copy; the
// value slices inside each column are shared.
func (f *Frame) Columns() []Column {
	out := make([]Column, len(f.columns))
	copy(out, f.columns)
	return out
}

// Floats returns the values of a float column.
func (f *Frame) Floats(name string) ([]float64, error) {
	c, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	if c.Kind != Float {
		return nil, fmt.Errorf("column %q is %s, not float: %w", name, c.Kind, ErrInvalidArgument)
	}
	return c.floats, nil
}

// Ints returns the values of an integer column.
func (f *Frame) Ints(name string) ([]int64, error) {
	c, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	if c.Kind != Int {
		return nil, fmt.Errorf("column %q is %s, not int: %w", name, c.Kind, ErrInvalidArgument)
	}
	return c.ints, nil
}

// Strings returns the values of a string column.
func (f *Frame) Strings(name string) ([]string, error) {
	c, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	if c.Kind != String {
		return nil, fmt.Errorf("column %q is %s, not string: %w", name, c.Kind, ErrInvalidArgument)
	}
	return c.strings, nil
}

// Numeric returns a numeric column as float64. Float columns are returned
// as-is, integer columns are widened into a fresh slice.
func (f *Frame) Numeric(name string) ([]float64, error) {
	c, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	switch c.Kind {
	case Float:
		return c.floats, nil
	case Int:
		out := make([]float64, len(c.ints))
		for i, v := range c.ints {
			out[i] = float64(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("column %q is not numeric: %w", name, ErrInvalidArgument)
	}
}

// Text returns any column rendered as strings.
func (f *Frame) Text(name string) ([]string, error) {
	c, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	if c.Kind == String {
		return c.strings, nil
	}
	out := make([]string, c.Len())
	for i := range out {
		out[i] = c.Text(i)
	}
	return out, nil
}

// Select returns a new frame with the rows where mask is true, in their
// original order. The receiver is not modified.
func (f *Frame) Select(mask []bool) (*Frame, error) {
	if len(mask) != f.rows {
		return nil, fmt.Errorf("mask has %d entries, frame has %d rows: %w", len(mask), f.rows, ErrInvalidArgument)
	}
	n := 0
	for _, keep := range mask {
		if keep {
			n++
		}
	}
	out := &Frame{
		columns: make([]Column, len(f.columns)),
		index:   make(map[string]int, len(f.columns)),
		rows:    n,
	}
	for i, c := range f.columns {
		out.columns[i] = c.selectRows(mask, n)
		out.index[c.Name] = i
	}
	return out, nil
}
