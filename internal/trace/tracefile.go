// Package trace loads FOSIM trace files into typed datasets and derives
// filtered trace files from them.
package trace

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/banshee-data/tracestats/internal/dataset"
	"github.com/banshee-data/tracestats/internal/filter"
	"github.com/banshee-data/tracestats/internal/fsutil"
	"github.com/banshee-data/tracestats/internal/monitoring"
)

var (
	// ErrEmptyFile is returned when a trace has no header line.
	ErrEmptyFile = errors.New("trace file has no header")
	// ErrConversion is matched by every ConversionError.
	ErrConversion = errors.New("cell conversion failed")
)

// ConversionError reports the first bad cell of a strict parse. Column is
// empty when the row has the wrong number of cells.
type ConversionError struct {
	Line   int
	Column string
	Value  string
}

func (e *ConversionError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Value)
	}
	return fmt.Sprintf("line %d: column %q: cannot convert %q", e.Line, e.Column, e.Value)
}

func (e *ConversionError) Unwrap() error { return ErrConversion }

// nextVersion hands out cache validity tokens.
var nextVersion atomic.Uint64

// TraceFile owns one typed dataset. It is immutable; Filter derives new
// trace files.
type TraceFile struct {
	name    string
	format  Format
	frame   *dataset.Frame
	dropped int
	version uint64
}

func newTraceFile(name string, format Format, frame *dataset.Frame, dropped int) *TraceFile {
	return &TraceFile{
		name:    name,
		format:  format,
		frame:   frame,
		dropped: dropped,
		version: nextVersion.Add(1),
	}
}

// FromFrame wraps an existing frame. The frame must not be modified
// afterwards.
func FromFrame(name string, frame *dataset.Frame) *TraceFile {
	if frame == nil {
		frame = dataset.Empty()
	}
	return newTraceFile(name, FormatComma, frame, 0)
}

type options struct {
	fs       fsutil.FileSystem
	metadata string
	lookup   *Lookup
	sections []Section
	strict   bool
	name     string
}

// Option configures loading.
type Option func(*options)

// WithFileSystem reads files through fsys instead of the OS.
func WithFileSystem(fsys fsutil.FileSystem) Option {
	return func(o *options) { o.fs = fsys }
}

// WithMetadata resolves categorical columns through a FOSIM project file.
func WithMetadata(path string) Option {
	return func(o *options) { o.metadata = path }
}

// WithLookup resolves categorical columns through an already parsed lookup.
// It takes precedence over WithMetadata.
func WithLookup(l *Lookup) Option {
	return func(o *options) { o.lookup = l }
}

// WithSections sets which project file sections are resolved.
func WithSections(sections ...Section) Option {
	return func(o *options) { o.sections = sections }
}

// WithStrict makes any bad cell fail the parse instead of dropping the row.
func WithStrict(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// WithName sets the trace name used by Parse.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

func buildOptions(opts []Option) *options {
	o := &options{fs: fsutil.OSFileSystem{}, sections: DefaultSections}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) resolveLookup() (*Lookup, error) {
	if o.lookup != nil || o.metadata == "" {
		return o.lookup, nil
	}
	return LoadMetadata(o.fs, o.metadata, o.sections)
}

// Open loads a trace file. The whole file is read into memory.
func Open(path string, opts ...Option) (*TraceFile, error) {
	o := buildOptions(opts)
	if o.name == "" {
		o.name = path
	}
	lookup, err := o.resolveLookup()
	if err != nil {
		return nil, err
	}
	data, err := o.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace file: %w", err)
	}
	return parse(data, lookup, o)
}

// Parse loads a trace from r.
func Parse(r io.Reader, opts ...Option) (*TraceFile, error) {
	o := buildOptions(opts)
	lookup, err := o.resolveLookup()
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace data: %w", err)
	}
	return parse(data, lookup, o)
}

func parse(data []byte, lookup *Lookup, o *options) (*TraceFile, error) {
	format, records, err := splitRecords(data)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	header := records[0].cells
	rows := records[1:]
	builders := make([]columnBuilder, len(header))
	for i, name := range header {
		builders[i] = newBuilder(name, format.Decimal(), lookup, len(rows))
	}

	keep := make([]bool, len(rows))
	dropped := 0
	for r, rec := range rows {
		ok := true
		if len(rec.cells) != len(header) {
			if o.strict {
				return nil, &ConversionError{Line: rec.line, Value: fmt.Sprintf("expected %d cells, got %d", len(header), len(rec.cells))}
			}
			for _, b := range builders {
				b.appendMissing()
			}
			ok = false
		} else {
			for i, cell := range rec.cells {
				if builders[i].append(cell) {
					continue
				}
				if o.strict {
					return nil, &ConversionError{Line: rec.line, Column: header[i], Value: cell}
				}
				ok = false
			}
		}
		keep[r] = ok
		if !ok {
			dropped++
		}
	}

	cols := make([]dataset.Column, len(header))
	for i, b := range builders {
		cols[i] = b.build(header[i])
	}
	frame, err := dataset.NewFrame(cols...)
	if err != nil {
		return nil, fmt.Errorf("failed to build dataset: %w", err)
	}
	if dropped > 0 {
		if frame, err = frame.Select(keep); err != nil {
			return nil, err
		}
		monitoring.Logf("%s: dropped %d of %d rows with missing or unparsable values", o.name, dropped, len(rows))
	}
	monitoring.Debugf("%s: %s format, %d columns, %d rows", o.name, format, len(header), frame.Len())
	return newTraceFile(o.name, format, frame, dropped), nil
}

// Name identifies the trace in logs and tables.
func (tf *TraceFile) Name() string { return tf.name }

// Format returns the detected delimiter convention.
func (tf *TraceFile) Format() Format { return tf.format }

// Dropped returns how many rows the lenient parse discarded. Filtered
// trace files report zero.
func (tf *TraceFile) Dropped() int { return tf.dropped }

// Len returns the number of rows.
func (tf *TraceFile) Len() int { return tf.frame.Len() }

// Version is unique per TraceFile within the process. Statistic caches use
// it to decide whether a cached value still applies.
func (tf *TraceFile) Version() uint64 { return tf.version }

// Frame exposes the dataset for computing statistics. It is shared, not a
// copy, and must not be modified.
func (tf *TraceFile) Frame() *dataset.Frame { return tf.frame }

// Filter returns a new trace file with the rows selected by f. The receiver
// is unchanged.
func (tf *TraceFile) Filter(f filter.Filter) (*TraceFile, error) {
	frame, err := f.Apply(tf.frame)
	if err != nil {
		return nil, fmt.Errorf("filter %s on %s: %w", f, tf.name, err)
	}
	return newTraceFile(tf.name+" | "+f.String(), tf.format, frame, 0), nil
}
