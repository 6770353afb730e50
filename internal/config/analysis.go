package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/tracestats/internal/filter"
	"github.com/banshee-data/tracestats/internal/fsutil"
)

// Filter kinds accepted in the filters list.
const (
	FilterKindRange = "range"
	FilterKindInSet = "inset"
)

const defaultDecimalPlaces = 2

// AnalysisConfig describes one evaluation run. Fields omitted from the
// JSON file fall back to the Get* defaults.
type AnalysisConfig struct {
	DecimalPlaces *int         `json:"decimal_places,omitempty"`
	Strict        *bool        `json:"strict,omitempty"`
	MetadataFile  *string      `json:"metadata_file,omitempty"`
	Area          *AreaConfig  `json:"area,omitempty"`
	Filters       []FilterSpec `json:"filters,omitempty"`
}

// AreaConfig is the space-time window used for density and flow.
type AreaConfig struct {
	MinT   float64 `json:"min_t"`
	MaxT   float64 `json:"max_t"`
	MinPos float64 `json:"min_pos"`
	MaxPos float64 `json:"max_pos"`
}

// FilterSpec is a filter as written in the config file. Range specs use
// Min/Max and the inclusive flags; inset specs use Values.
type FilterSpec struct {
	Kind         string   `json:"kind"`
	Column       string   `json:"column"`
	Min          *float64 `json:"min,omitempty"`
	Max          *float64 `json:"max,omitempty"`
	MinInclusive *bool    `json:"min_inclusive,omitempty"`
	MaxInclusive *bool    `json:"max_inclusive,omitempty"`
	Values       []string `json:"values,omitempty"`
}

func ptrInt(v int) *int             { return &v }
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }

// EmptyAnalysisConfig returns a config with every field unset.
func EmptyAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{}
}

// LoadAnalysisConfig loads an AnalysisConfig from a JSON file in fsys.
// The file must have a .json extension and be under 1MB.
func LoadAnalysisConfig(fsys fsutil.FileSystem, path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyAnalysisConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *AnalysisConfig) Validate() error {
	if c.DecimalPlaces != nil && *c.DecimalPlaces < 0 {
		return fmt.Errorf("decimal_places must be non-negative, got %d", *c.DecimalPlaces)
	}
	for i, f := range c.Filters {
		if err := f.validate(); err != nil {
			return fmt.Errorf("filters[%d]: %w", i, err)
		}
	}
	return nil
}

func (f FilterSpec) validate() error {
	if f.Column == "" {
		return fmt.Errorf("column is required")
	}
	switch f.Kind {
	case FilterKindRange:
		if f.Min == nil || f.Max == nil {
			return fmt.Errorf("range filter on %q needs min and max", f.Column)
		}
		if *f.Min > *f.Max {
			return fmt.Errorf("range filter on %q has min %g greater than max %g", f.Column, *f.Min, *f.Max)
		}
	case FilterKindInSet:
		if len(f.Values) == 0 {
			return fmt.Errorf("inset filter on %q needs at least one value", f.Column)
		}
	default:
		return fmt.Errorf("unknown filter kind %q", f.Kind)
	}
	return nil
}

// GetDecimalPlaces returns decimal_places or the default of 2.
func (c *AnalysisConfig) GetDecimalPlaces() int {
	if c.DecimalPlaces == nil {
		return defaultDecimalPlaces
	}
	return *c.DecimalPlaces
}

// GetStrict returns strict or false.
func (c *AnalysisConfig) GetStrict() bool {
	if c.Strict == nil {
		return false
	}
	return *c.Strict
}

// GetMetadataFile returns metadata_file or "".
func (c *AnalysisConfig) GetMetadataFile() string {
	if c.MetadataFile == nil {
		return ""
	}
	return *c.MetadataFile
}

// BuildFilters converts the filter specs in order.
func (c *AnalysisConfig) BuildFilters() (filter.Chain, error) {
	chain := make(filter.Chain, 0, len(c.Filters))
	for i, spec := range c.Filters {
		f, err := spec.Build()
		if err != nil {
			return nil, fmt.Errorf("filters[%d]: %w", i, err)
		}
		chain = append(chain, f)
	}
	return chain, nil
}

// Build converts a single spec.
func (f FilterSpec) Build() (filter.Filter, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	if f.Kind == FilterKindInSet {
		return filter.NewInSet(f.Column, f.Values...), nil
	}
	var opts []filter.RangeOption
	if f.MinInclusive != nil {
		opts = append(opts, filter.MinInclusive(*f.MinInclusive))
	}
	if f.MaxInclusive != nil {
		opts = append(opts, filter.MaxInclusive(*f.MaxInclusive))
	}
	r, err := filter.NewRange(f.Column, *f.Min, *f.Max, opts...)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// BuildArea returns the configured area, or nil when none is set.
func (c *AnalysisConfig) BuildArea() *filter.Area {
	if c.Area == nil {
		return nil
	}
	return filter.NewArea(c.Area.MinT, c.Area.MaxT, c.Area.MinPos, c.Area.MaxPos)
}
