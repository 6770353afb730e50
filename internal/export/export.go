// Package export converts trace files to Apache Arrow tables and writes
// them as Parquet.
package export

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/banshee-data/tracestats/internal/dataset"
	"github.com/banshee-data/tracestats/internal/fsutil"
	"github.com/banshee-data/tracestats/internal/monitoring"
	"github.com/banshee-data/tracestats/internal/trace"
)

// Schema metadata keys.
const (
	MetaName    = "tracestats.name"
	MetaFormat  = "tracestats.format"
	MetaDropped = "tracestats.dropped_rows"
)

// Schema maps each frame column to a nullable Arrow field: Float to
// float64, Int to int64, String to utf8.
func Schema(tf *trace.TraceFile) *arrow.Schema {
	cols := tf.Frame().Columns()
	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		fields[i] = arrow.Field{Name: c.Name, Type: arrowType(c.Kind), Nullable: true}
	}
	md := arrow.NewMetadata(
		[]string{MetaName, MetaFormat, MetaDropped},
		[]string{tf.Name(), tf.Format().String(), strconv.Itoa(tf.Dropped())},
	)
	return arrow.NewSchema(fields, &md)
}

func arrowType(k dataset.Kind) arrow.DataType {
	switch k {
	case dataset.Float:
		return arrow.PrimitiveTypes.Float64
	case dataset.Int:
		return arrow.PrimitiveTypes.Int64
	default:
		return arrow.BinaryTypes.String
	}
}

// Table builds an Arrow table holding a copy of the trace data. Missing
// cells (NaN floats, -1 ints, empty strings) become nulls. The caller must
// Release the table.
func Table(tf *trace.TraceFile, mem memory.Allocator) (arrow.Table, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	schema := Schema(tf)
	rb := array.NewRecordBuilder(mem, schema)
	defer rb.Release()

	for i, c := range tf.Frame().Columns() {
		switch b := rb.Field(i).(type) {
		case *array.Float64Builder:
			b.Reserve(len(c.Floats()))
			for _, v := range c.Floats() {
				if math.IsNaN(v) {
					b.AppendNull()
					continue
				}
				b.Append(v)
			}
		case *array.Int64Builder:
			b.Reserve(len(c.Ints()))
			for _, v := range c.Ints() {
				if v == trace.MissingInt {
					b.AppendNull()
					continue
				}
				b.Append(v)
			}
		case *array.StringBuilder:
			b.Reserve(len(c.Strings()))
			for _, v := range c.Strings() {
				if v == trace.MissingString {
					b.AppendNull()
					continue
				}
				b.Append(v)
			}
		default:
			return nil, fmt.Errorf("column %q: unexpected builder %T", c.Name, b)
		}
	}

	rec := rb.NewRecord()
	defer rec.Release()
	return array.NewTableFromRecords(schema, []arrow.Record{rec}), nil
}

// WriteParquet writes the trace as a Snappy compressed Parquet file with
// the Arrow schema stored alongside. w is not closed.
func WriteParquet(w io.Writer, tf *trace.TraceFile) error {
	table, err := Table(tf, nil)
	if err != nil {
		return err
	}
	defer table.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(table.Schema(), struct{ io.Writer }{w}, props, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	if err := writer.WriteTable(table, max(table.NumRows(), 1)); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write table to parquet: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	monitoring.Debugf("exported %d rows of %s to parquet", table.NumRows(), tf.Name())
	return nil
}

// WriteParquetFile creates path on fsys and writes the trace to it.
func WriteParquetFile(fsys fsutil.FileSystem, path string, tf *trace.TraceFile) error {
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	if err := WriteParquet(f, tf); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
