package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/tracestats/internal/fsutil"
	"github.com/banshee-data/tracestats/internal/monitoring"
)

// Section describes one kind of categorical declaration in a FOSIM project
// (.fos) file. Matching lines look like
//
//	<prefix> <index>: <field> ... <name>
//
// where the name starts at the NameField-th whitespace separated field after
// the colon and runs to the end of the line, spaces included.
type Section struct {
	Name      string
	Prefix    string
	Exclude   string // lines starting with this are never parsed, e.g. a table header
	NameField int    // 1-based
	Column    string // trace column resolved through this section
}

// Sections known in FOSIM project files.
var (
	VehicleTypes = Section{Name: "vehicle types", Prefix: "vehicle types", Exclude: "vehicle types:", NameField: 2, Column: ColType}
	Sources      = Section{Name: "sources", Prefix: "source", Exclude: "source to sink", NameField: 4, Column: ColOrigin}
	Sinks        = Section{Name: "sinks", Prefix: "sink", NameField: 4, Column: ColDest}
)

// DefaultSections are resolved when no sections are configured.
var DefaultSections = []Section{VehicleTypes}

// Entry is one parsed declaration.
type Entry struct {
	Section string
	Column  string
	Index   int64
	Name    string
}

// ErrMetadataLine is wrapped by errors from ParseMetadataLine.
var ErrMetadataLine = errors.New("malformed metadata line")

var blanks = regexp.MustCompile(`\s+`)

// Matches reports whether line belongs to the section.
func (s Section) Matches(line string) bool {
	if !strings.HasPrefix(line, s.Prefix) {
		return false
	}
	return s.Exclude == "" || !strings.HasPrefix(line, s.Exclude)
}

// ParseMetadataLine extracts the index and name from a declaration line.
// The index is the last space separated token before the first colon.
func ParseMetadataLine(line string, nameField int) (int64, string, error) {
	head, tail, ok := strings.Cut(line, ":")
	if !ok {
		return 0, "", fmt.Errorf("%w: no colon in %q", ErrMetadataLine, line)
	}
	tokens := strings.Split(strings.TrimRight(head, " \t"), " ")
	index, err := strconv.ParseInt(tokens[len(tokens)-1], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("%w: bad index in %q: %v", ErrMetadataLine, line, err)
	}
	tail = strings.TrimSpace(tail)
	if tail == "" {
		return 0, "", fmt.Errorf("%w: no name in %q", ErrMetadataLine, line)
	}
	if nameField < 1 {
		nameField = 1
	}
	fields := blanks.Split(tail, nameField)
	return index, fields[len(fields)-1], nil
}

// ParseMetadata scans a project file and returns the declarations of all
// given sections in file order. Lines that match a section but do not parse
// are logged and skipped.
func ParseMetadata(r io.Reader, sections []Section) ([]Entry, error) {
	var entries []Entry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		for _, s := range sections {
			if !s.Matches(line) {
				continue
			}
			index, name, err := ParseMetadataLine(line, s.NameField)
			if err != nil {
				monitoring.Logf("metadata line %d ignored: %v", lineNo, err)
				break
			}
			entries = append(entries, Entry{Section: s.Name, Column: s.Column, Index: index, Name: name})
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	return entries, nil
}

// Lookup maps integer codes to names, per trace column.
type Lookup struct {
	tables map[string]map[int64]string
}

// NewLookup accumulates entries. Later entries overwrite earlier ones with
// the same column and index.
func NewLookup(entries []Entry) *Lookup {
	l := &Lookup{tables: make(map[string]map[int64]string)}
	for _, e := range entries {
		l.Add(e.Column, e.Index, e.Name)
	}
	return l
}

// Add registers one code for a column.
func (l *Lookup) Add(column string, index int64, name string) {
	t, ok := l.tables[column]
	if !ok {
		t = make(map[int64]string)
		l.tables[column] = t
	}
	t[index] = name
}

// Table returns the code table of a column, nil if none. Safe on a nil
// Lookup.
func (l *Lookup) Table(column string) map[int64]string {
	if l == nil {
		return nil
	}
	return l.tables[column]
}

// Columns lists the columns with a non-empty table.
func (l *Lookup) Columns() []string {
	if l == nil {
		return nil
	}
	var cols []string
	for c, t := range l.tables {
		if len(t) > 0 {
			cols = append(cols, c)
		}
	}
	sort.Strings(cols)
	return cols
}

// LoadMetadata reads a project file through fsys and builds its lookup.
func LoadMetadata(fsys fsutil.FileSystem, path string, sections []Section) (*Lookup, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata file: %w", err)
	}
	defer f.Close()

	entries, err := ParseMetadata(f, sections)
	if err != nil {
		return nil, err
	}
	monitoring.Debugf("metadata %s: %d declarations", path, len(entries))
	return NewLookup(entries), nil
}
