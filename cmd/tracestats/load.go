package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/tracestats/internal/config"
	"github.com/banshee-data/tracestats/internal/filter"
	"github.com/banshee-data/tracestats/internal/fsutil"
	"github.com/banshee-data/tracestats/internal/monitoring"
	"github.com/banshee-data/tracestats/internal/security"
	"github.com/banshee-data/tracestats/internal/trace"
)

// inputFlags are shared by every command that reads a trace.
type inputFlags struct {
	configPath string
	fos        string
	strict     bool
	od         bool
	area       string
	types      []string
	ranges     []string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "Analysis config (.json)")
	cmd.Flags().StringVar(&f.fos, "fos", "", "FOSIM project file with vehicle type names")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "Fail on the first unparsable cell instead of dropping the row")
	cmd.Flags().BoolVar(&f.od, "od", false, "Also resolve origin and destination names from the project file")
	cmd.Flags().StringVar(&f.area, "area", "", "Space-time area as minT,maxT,minPos,maxPos")
	cmd.Flags().StringSliceVar(&f.types, "type", nil, "Keep only these vehicle types (names when --fos is given, raw codes otherwise)")
	cmd.Flags().StringArrayVar(&f.ranges, "range", nil, "Keep rows with column in [min, max), as 'column:min:max'")
}

// resolve merges the config file read from fsys with the command line;
// flags win.
func (f *inputFlags) resolve(cmd *cobra.Command, fsys fsutil.FileSystem) (*config.AnalysisConfig, error) {
	cfg := config.EmptyAnalysisConfig()
	if f.configPath != "" {
		loaded, err := config.LoadAnalysisConfig(fsys, f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		if p := cfg.GetMetadataFile(); p != "" && !filepath.IsAbs(p) {
			p = filepath.Join(filepath.Dir(f.configPath), p)
			cfg.MetadataFile = &p
		}
	}
	if f.fos != "" {
		cfg.MetadataFile = &f.fos
	}
	if cmd.Flags().Changed("strict") {
		cfg.Strict = &f.strict
	}
	if f.area != "" {
		area, err := parseArea(f.area)
		if err != nil {
			return nil, err
		}
		cfg.Area = area
	}
	if len(f.types) > 0 {
		cfg.Filters = append(cfg.Filters, config.FilterSpec{
			Kind:   config.FilterKindInSet,
			Column: trace.ColType,
			Values: f.types,
		})
	}
	for _, r := range f.ranges {
		spec, err := parseRange(r)
		if err != nil {
			return nil, err
		}
		cfg.Filters = append(cfg.Filters, spec)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return cfg, nil
}

// parseArea reads "minT,maxT,minPos,maxPos".
func parseArea(s string) (*config.AreaConfig, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("--area needs minT,maxT,minPos,maxPos, got %q", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("--area value %q: %w", p, err)
		}
		v[i] = f
	}
	return &config.AreaConfig{MinT: v[0], MaxT: v[1], MinPos: v[2], MaxPos: v[3]}, nil
}

// parseRange reads "column:min:max". The column may itself contain colons.
func parseRange(s string) (config.FilterSpec, error) {
	hi := strings.LastIndex(s, ":")
	if hi <= 0 {
		return config.FilterSpec{}, fmt.Errorf("--range needs column:min:max, got %q", s)
	}
	lo := strings.LastIndex(s[:hi], ":")
	if lo <= 0 {
		return config.FilterSpec{}, fmt.Errorf("--range needs column:min:max, got %q", s)
	}
	minV, err := strconv.ParseFloat(strings.TrimSpace(s[lo+1:hi]), 64)
	if err != nil {
		return config.FilterSpec{}, fmt.Errorf("--range min in %q: %w", s, err)
	}
	maxV, err := strconv.ParseFloat(strings.TrimSpace(s[hi+1:]), 64)
	if err != nil {
		return config.FilterSpec{}, fmt.Errorf("--range max in %q: %w", s, err)
	}
	return config.FilterSpec{
		Kind:   config.FilterKindRange,
		Column: s[:lo],
		Min:    &minV,
		Max:    &maxV,
	}, nil
}

// sections returns the project file sections to resolve.
func (f *inputFlags) sections() []trace.Section {
	if f.od {
		return []trace.Section{trace.VehicleTypes, trace.Sources, trace.Sinks}
	}
	return trace.DefaultSections
}

// loader opens traces with one shared metadata lookup.
type loader struct {
	fsys   fsutil.FileSystem
	cfg    *config.AnalysisConfig
	lookup *trace.Lookup
}

func newLoader(fsys fsutil.FileSystem, cfg *config.AnalysisConfig, sections []trace.Section) (*loader, error) {
	l := &loader{fsys: fsys, cfg: cfg}
	if p := cfg.GetMetadataFile(); p != "" {
		lookup, err := trace.LoadMetadata(fsys, p, sections)
		if err != nil {
			return nil, err
		}
		l.lookup = lookup
	}
	return l, nil
}

func (l *loader) open(path string) (*trace.TraceFile, error) {
	opts := []trace.Option{
		trace.WithFileSystem(l.fsys),
		trace.WithStrict(l.cfg.GetStrict()),
	}
	if l.lookup != nil {
		opts = append(opts, trace.WithLookup(l.lookup))
	}
	tf, err := trace.Open(path, opts...)
	if err != nil {
		return nil, err
	}
	monitoring.Debugf("loaded %s: %d rows, %d dropped, format %s", path, tf.Len(), tf.Dropped(), tf.Format())
	return tf, nil
}

// filters returns the configured filters followed by the area, if any.
func (l *loader) filters() (filter.Chain, error) {
	chain, err := l.cfg.BuildFilters()
	if err != nil {
		return nil, err
	}
	if area := l.cfg.BuildArea(); area != nil {
		chain = append(chain, area)
	}
	return chain, nil
}

// applyWhereAvailable applies each filter whose columns the trace has, so a
// vehicle type filter can apply to samples but skip a lane change file
// without a type column. With required set, a missing column is an error.
func applyWhereAvailable(tf *trace.TraceFile, chain filter.Chain, required bool) (*trace.TraceFile, error) {
	var use filter.Chain
	for _, f := range chain {
		if required {
			use = append(use, f)
			continue
		}
		if err := tf.Frame().Require(filter.Columns(f)...); err != nil {
			monitoring.Debugf("skipping %s on %s: %v", f, tf.Name(), err)
			continue
		}
		use = append(use, f)
	}
	if len(use) == 0 {
		return tf, nil
	}
	return tf.Filter(use)
}

// outputPolicy allows the working and temp directories plus the
// directories holding the inputs.
func outputPolicy(inputs ...string) (*security.OutputPolicy, error) {
	var dirs []string
	for _, in := range inputs {
		if in != "" {
			dirs = append(dirs, filepath.Dir(in))
		}
	}
	return security.DefaultOutputPolicy(dirs...)
}

// writeOutput validates path and streams write into it.
func writeOutput(fsys fsutil.FileSystem, policy *security.OutputPolicy, path string, exts []string, write func(io.Writer) error) error {
	if err := policy.Validate(path, exts...); err != nil {
		return err
	}
	w, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(w); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
