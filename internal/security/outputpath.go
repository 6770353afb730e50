// Package security checks where exported tables, Parquet files and charts
// may be written.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrOutsideAllowedDirs is returned for output paths that resolve
	// outside every allowed directory.
	ErrOutsideAllowedDirs = errors.New("output path outside allowed directories")
	// ErrExtension is returned for output paths with an unexpected extension.
	ErrExtension = errors.New("unsupported output extension")
)

// OutputPolicy lists the directories outputs may be written to.
type OutputPolicy struct {
	AllowedDirs []string
}

// DefaultOutputPolicy allows the working directory, the temp directory and
// any extra directories, e.g. the one holding the input trace.
func DefaultOutputPolicy(extra ...string) (*OutputPolicy, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	dirs := append([]string{cwd, os.TempDir()}, extra...)
	return &OutputPolicy{AllowedDirs: dirs}, nil
}

// Validate checks filePath against the policy. When exts is non-empty the
// path must end in one of them (case insensitive, with the leading dot).
func (p *OutputPolicy) Validate(filePath string, exts ...string) error {
	if len(exts) > 0 {
		ext := strings.ToLower(filepath.Ext(filePath))
		ok := false
		for _, e := range exts {
			if ext == strings.ToLower(e) {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("%w: %q, want one of %s", ErrExtension, ext, strings.Join(exts, ", "))
		}
	}
	if len(p.AllowedDirs) == 0 {
		return fmt.Errorf("%w: no allowed directories specified", ErrOutsideAllowedDirs)
	}
	for _, dir := range p.AllowedDirs {
		if within(filePath, dir) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s is not within %v", ErrOutsideAllowedDirs, filePath, p.AllowedDirs)
}

// within resolves symlinks on both sides. For a path that does not exist
// yet the nearest existing parent is resolved, so a symlinked directory
// cannot smuggle a new file out of dir.
func within(filePath, dir string) bool {
	absPath, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	canonicalDir, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		return false
	}

	canonicalPath := absPath
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		canonicalPath = resolved
	} else {
		for check := absPath; ; {
			parent := filepath.Dir(check)
			if parent == check {
				break
			}
			if resolved, err := filepath.EvalSymlinks(parent); err == nil {
				rel, _ := filepath.Rel(parent, absPath)
				canonicalPath = filepath.Join(resolved, rel)
				break
			}
			check = parent
		}
	}

	rel, err := filepath.Rel(canonicalDir, canonicalPath)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// SanitizeFilename makes a safe file name from an arbitrary string, such as
// a trace name that carries filter descriptions. Characters other than
// ASCII letters, digits, dot, underscore and dash become a single
// underscore; the result is at most 128 bytes.
func SanitizeFilename(s string) string {
	const maxLen = 128
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}

// DefaultOutputPath derives an output path next to input with the given
// extension, e.g. runs/Inv_21.trc becomes runs/Inv_21.parquet.
func DefaultOutputPath(input, ext string) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(input), SanitizeFilename(base)+ext)
}
