package trace

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Format is one of the three delimiter conventions FOSIM writes.
type Format int

const (
	// FormatComma is plain CSV: delimiter ",", decimal ".".
	FormatComma Format = iota
	// FormatSemicolon is localized CSV: delimiter ";", decimal ",".
	FormatSemicolon
	// FormatFixedWidth separates columns by two or more blanks, decimal ".".
	FormatFixedWidth
)

func (f Format) String() string {
	switch f {
	case FormatComma:
		return "csv"
	case FormatSemicolon:
		return "csv;"
	case FormatFixedWidth:
		return "fixed-width"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Decimal returns the decimal separator of the format.
func (f Format) Decimal() byte {
	if f == FormatSemicolon {
		return ','
	}
	return '.'
}

var (
	doubleBlank = regexp.MustCompile(`[ \t]{2,}`)
	wideSpace   = regexp.MustCompile(`\s{2,}`)
	utf8BOM     = []byte{0xEF, 0xBB, 0xBF}
)

// DetectFormat picks the format from the header line. The checks are
// ordered and the first match wins.
func DetectFormat(header string) Format {
	header = strings.TrimRight(header, "\r\n")
	switch {
	case doubleBlank.MatchString(header):
		return FormatFixedWidth
	case strings.Contains(header, ";"):
		return FormatSemicolon
	default:
		return FormatComma
	}
}

// record is one split line with its 1-based line number.
type record struct {
	line  int
	cells []string
}

// splitRecords detects the format from the first line and splits the whole
// content into trimmed cells. Blank lines are skipped.
func splitRecords(data []byte) (Format, []record, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	header := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		header = data[:i]
	}
	format := DetectFormat(string(header))

	var (
		records []record
		err     error
	)
	if format == FormatFixedWidth {
		records = splitFixedWidth(data)
	} else {
		records, err = splitDelimited(data, rune(delimiter(format)))
	}
	return format, records, err
}

func delimiter(f Format) byte {
	if f == FormatSemicolon {
		return ';'
	}
	return ','
}

func splitFixedWidth(data []byte) []record {
	lines := strings.Split(string(data), "\n")
	records := make([]record, 0, len(lines))
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		records = append(records, record{line: i + 1, cells: wideSpace.Split(line, -1)})
	}
	return records
}

func splitDelimited(data []byte, comma rune) ([]record, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var records []record
	for {
		cells, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to split trace data: %w", err)
		}
		line, _ := r.FieldPos(0)
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		if len(cells) == 1 && cells[0] == "" {
			continue
		}
		records = append(records, record{line: line, cells: cells})
	}
	return records, nil
}
