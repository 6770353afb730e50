package security

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestOutputPolicyValidate(t *testing.T) {
	tmpDir := t.TempDir()
	safeDir := filepath.Join(tmpDir, "safe")
	unsafeDir := filepath.Join(tmpDir, "unsafe")
	for _, d := range []string{safeDir, unsafeDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatalf("Failed to create %s: %v", d, err)
		}
	}
	if err := os.Symlink(unsafeDir, filepath.Join(safeDir, "evil-symlink")); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	policy := &OutputPolicy{AllowedDirs: []string{safeDir}}
	tests := []struct {
		name    string
		path    string
		exts    []string
		wantErr error
	}{
		{"inside", filepath.Join(safeDir, "out.parquet"), []string{".parquet"}, nil},
		{"nested new dir", filepath.Join(safeDir, "a", "b", "out.png"), nil, nil},
		{"extension case", filepath.Join(safeDir, "OUT.PNG"), []string{".png", ".html"}, nil},
		{"traversal", filepath.Join(safeDir, "..", "unsafe", "out.csv"), nil, ErrOutsideAllowedDirs},
		{"symlinked parent", filepath.Join(safeDir, "evil-symlink", "out.csv"), nil, ErrOutsideAllowedDirs},
		{"absolute elsewhere", "/etc/passwd", nil, ErrOutsideAllowedDirs},
		{"wrong extension", filepath.Join(safeDir, "out.txt"), []string{".csv"}, ErrExtension},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Validate(tt.path, tt.exts...)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestOutputPolicyNoDirs(t *testing.T) {
	err := (&OutputPolicy{}).Validate("out.csv")
	if !errors.Is(err, ErrOutsideAllowedDirs) {
		t.Errorf("expected ErrOutsideAllowedDirs, got %v", err)
	}
}

func TestDefaultOutputPolicy(t *testing.T) {
	extra := t.TempDir()
	policy, err := DefaultOutputPolicy(extra)
	if err != nil {
		t.Fatalf("DefaultOutputPolicy() error = %v", err)
	}
	if err := policy.Validate(filepath.Join(os.TempDir(), "export.csv")); err != nil {
		t.Errorf("temp dir should be allowed: %v", err)
	}
	if err := policy.Validate("relative.csv"); err != nil {
		t.Errorf("working directory should be allowed: %v", err)
	}
	if err := policy.Validate(filepath.Join(extra, "x.png")); err != nil {
		t.Errorf("extra dir should be allowed: %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"Inv_21.trc":                  "Inv_21.trc",
		"samples | t (s) in [1, 3)":   "samples_t_s_in_1_3",
		"":                            "unknown",
		"...":                         "unknown",
		"vehicle types/../../etc":     "vehicle_types_.._.._etc",
		"passenger car":               "passenger_car",
	}
	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDefaultOutputPath(t *testing.T) {
	got := DefaultOutputPath(filepath.Join("runs", "Inv_21.trc"), ".parquet")
	if want := filepath.Join("runs", "Inv_21.parquet"); got != want {
		t.Errorf("DefaultOutputPath() = %q, want %q", got, want)
	}
}
