package trace

import (
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/tracestats/internal/dataset"
)

// Sentinels written for cells that fail conversion. Rows holding them are
// dropped in lenient mode.
const (
	MissingInt    int64 = -1
	MissingString       = ""
)

// MissingFloat is the float conversion sentinel.
var MissingFloat = math.NaN()

// Known trace columns.
const (
	ColTime       = "t (s)"
	ColPosition   = "pos (m)"
	ColSpeed      = "v (m/s)"
	ColID         = "id"
	ColLane       = "lane"
	ColFromLane   = "fromln"
	ColToLane     = "tolane"
	ColFromA      = "from a"
	ColToA        = "to a"
	ColType       = "type"
	ColOrigin     = "origin"
	ColDest       = "dest"
	ColTravelTime = "tt (s)"
	ColDelayTime  = "dt (s)"
)

// converters maps column names to the scalar kind they are coerced to.
// Columns not listed stay strings unless a categorical lookup applies.
var converters = map[string]dataset.Kind{
	ColTime:       dataset.Float,
	ColFromLane:   dataset.Int,
	ColToLane:     dataset.Int,
	ColFromA:      dataset.Float,
	ColToA:        dataset.Float,
	ColPosition:   dataset.Float,
	ColSpeed:      dataset.Float,
	ColID:         dataset.Int,
	ColLane:       dataset.Int,
	ColTravelTime: dataset.Float,
	ColDelayTime:  dataset.Float,
}

// ConvertFloat parses a float with the given decimal separator. Failures
// return MissingFloat and false. A literal NaN cell counts as a failure.
func ConvertFloat(raw string, decimal byte) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if decimal != '.' {
		raw = strings.ReplaceAll(raw, string(decimal), ".")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) {
		return MissingFloat, false
	}
	return v, true
}

// ConvertInt parses a base-10 integer. Failures return MissingInt and false.
func ConvertInt(raw string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return MissingInt, false
	}
	return v, true
}

// columnBuilder accumulates one column while parsing. append reports
// whether the cell converted cleanly.
type columnBuilder interface {
	append(raw string) bool
	appendMissing()
	build(name string) dataset.Column
}

func newBuilder(column string, decimal byte, lookup *Lookup, capacity int) columnBuilder {
	if table := lookup.Table(column); len(table) > 0 {
		return &categoryBuilder{table: table, values: make([]string, 0, capacity)}
	}
	kind, ok := converters[column]
	switch {
	case ok && kind == dataset.Float:
		return &floatBuilder{decimal: decimal, values: make([]float64, 0, capacity)}
	case ok && kind == dataset.Int:
		return &intBuilder{values: make([]int64, 0, capacity)}
	default:
		return &stringBuilder{values: make([]string, 0, capacity)}
	}
}

type floatBuilder struct {
	decimal byte
	values  []float64
}

func (b *floatBuilder) append(raw string) bool {
	v, ok := ConvertFloat(raw, b.decimal)
	b.values = append(b.values, v)
	return ok
}

func (b *floatBuilder) appendMissing() { b.values = append(b.values, MissingFloat) }

func (b *floatBuilder) build(name string) dataset.Column {
	return dataset.FloatColumn(name, b.values)
}

type intBuilder struct {
	values []int64
}

func (b *intBuilder) append(raw string) bool {
	v, ok := ConvertInt(raw)
	b.values = append(b.values, v)
	return ok
}

func (b *intBuilder) appendMissing() { b.values = append(b.values, MissingInt) }

func (b *intBuilder) build(name string) dataset.Column {
	return dataset.IntColumn(name, b.values)
}

type stringBuilder struct {
	values []string
}

func (b *stringBuilder) append(raw string) bool {
	b.values = append(b.values, raw)
	return raw != MissingString
}

func (b *stringBuilder) appendMissing() { b.values = append(b.values, MissingString) }

func (b *stringBuilder) build(name string) dataset.Column {
	return dataset.StringColumn(name, b.values)
}

// categoryBuilder resolves integer codes to names from side metadata.
type categoryBuilder struct {
	table  map[int64]string
	values []string
}

func (b *categoryBuilder) append(raw string) bool {
	code, ok := ConvertInt(raw)
	if !ok {
		b.values = append(b.values, MissingString)
		return false
	}
	name, ok := b.table[code]
	if !ok {
		b.values = append(b.values, MissingString)
		return false
	}
	b.values = append(b.values, name)
	return true
}

func (b *categoryBuilder) appendMissing() { b.values = append(b.values, MissingString) }

func (b *categoryBuilder) build(name string) dataset.Column {
	return dataset.StringColumn(name, b.values)
}
