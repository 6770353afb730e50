// Package table assembles evaluated statistics into a label/value/unit table
// for the console or for export.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/xuri/excelize/v2"

	"github.com/banshee-data/tracestats/internal/dataset"
	"github.com/banshee-data/tracestats/internal/statistic"
	"github.com/banshee-data/tracestats/internal/trace"
)

// Column headers. The label column has a blank header.
const (
	HeaderLabel = ""
	HeaderValue = "Value"
	HeaderUnit  = "Unit"
)

// DefaultDecimalPlaces is used by String.
const DefaultDecimalPlaces = 2

// Row is one evaluated statistic in its preferred unit.
type Row struct {
	Label string
	Value float64
	Unit  string
}

// Table is an immutable snapshot of evaluated statistics.
type Table struct {
	rows []Row
}

// New evaluates stats[i] on files[i]. Both slices must have the same length.
func New(stats []statistic.Statistic, files []*trace.TraceFile) (*Table, error) {
	if len(stats) != len(files) {
		return nil, fmt.Errorf("%d statistics and %d trace files are not of equal length: %w",
			len(stats), len(files), dataset.ErrInvalidArgument)
	}
	rows := make([]Row, len(stats))
	for i, s := range stats {
		v, err := s.Get(files[i])
		if err != nil {
			return nil, fmt.Errorf("%s on %s: %w", s.Label(), files[i].Name(), err)
		}
		rows[i] = Row{Label: s.Label(), Value: v, Unit: s.Unit()}
	}
	return &Table{rows: rows}, nil
}

// FromRows builds a table from already evaluated rows, e.g. loaded from a
// store. The slice is copied.
func FromRows(rows []Row) *Table {
	return &Table{rows: append([]Row(nil), rows...)}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Rows returns a copy of the rows.
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	copy(out, t.rows)
	return out
}

func checkDecimals(decimals int) error {
	if decimals < 0 {
		return fmt.Errorf("decimal places must be non-negative, got %d: %w", decimals, dataset.ErrInvalidArgument)
	}
	return nil
}

func formatValue(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// Render writes the table as aligned text: labels left aligned to the widest
// label, values right aligned with a fixed number of decimals.
func (t *Table) Render(w io.Writer, decimals int) error {
	if err := checkDecimals(decimals); err != nil {
		return err
	}
	values := make([]string, len(t.rows))
	labelWidth := runewidth.StringWidth(HeaderLabel)
	valueWidth := runewidth.StringWidth(HeaderValue)
	for i, r := range t.rows {
		values[i] = formatValue(r.Value, decimals)
		labelWidth = max(labelWidth, runewidth.StringWidth(r.Label))
		valueWidth = max(valueWidth, runewidth.StringWidth(values[i]))
	}

	var b strings.Builder
	writeLine := func(label, value, unit string) {
		b.WriteString(runewidth.FillRight(label, labelWidth))
		b.WriteString("  ")
		b.WriteString(runewidth.FillLeft(value, valueWidth))
		b.WriteString("  ")
		b.WriteString(unit)
		b.WriteString("\n")
	}
	writeLine(HeaderLabel, HeaderValue, HeaderUnit)
	for i, r := range t.rows {
		writeLine(r.Label, values[i], r.Unit)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// String renders with DefaultDecimalPlaces.
func (t *Table) String() string {
	var b strings.Builder
	_ = t.Render(&b, DefaultDecimalPlaces)
	return b.String()
}

// WriteCSV writes label,value,unit rows with a header line.
func (t *Table) WriteCSV(w io.Writer, decimals int) error {
	if err := checkDecimals(decimals); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"label", "value", "unit"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range t.rows {
		if err := cw.Write([]string{r.Label, formatValue(r.Value, decimals), r.Unit}); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SheetName is the worksheet WriteXLSX fills.
const SheetName = "Statistics"

// WriteXLSX writes the table as an Excel workbook with full precision
// values.
func (t *Table) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	header := []interface{}{HeaderLabel, HeaderValue, HeaderUnit}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, r := range t.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{r.Label, r.Value, r.Unit}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
