package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/banshee-data/tracestats/internal/config"
	"github.com/banshee-data/tracestats/internal/export"
	"github.com/banshee-data/tracestats/internal/fsutil"
	"github.com/banshee-data/tracestats/internal/security"
	"github.com/banshee-data/tracestats/internal/trace"
)

type exportFlags struct {
	inputFlags
	in  string
	out string
}

func newExportCmd() *cobra.Command {
	f := &exportFlags{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Convert a trace file to Parquet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, f, fsutil.OSFileSystem{})
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&f.in, "in", "", "Trace file to convert")
	cmd.Flags().StringVar(&f.out, "out", "", "Parquet output (default: next to the input)")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

// openFiltered loads one trace and applies every configured filter to it.
func openFiltered(fsys fsutil.FileSystem, cfg *config.AnalysisConfig, sections []trace.Section, path string) (*trace.TraceFile, error) {
	ld, err := newLoader(fsys, cfg, sections)
	if err != nil {
		return nil, err
	}
	chain, err := ld.filters()
	if err != nil {
		return nil, err
	}
	tf, err := ld.open(path)
	if err != nil {
		return nil, err
	}
	return applyWhereAvailable(tf, chain, true)
}

func runExport(cmd *cobra.Command, f *exportFlags, fsys fsutil.FileSystem) error {
	cfg, err := f.resolve(cmd, fsys)
	if err != nil {
		return err
	}
	tf, err := openFiltered(fsys, cfg, f.sections(), f.in)
	if err != nil {
		return err
	}
	out := f.out
	if out == "" {
		out = security.DefaultOutputPath(f.in, ".parquet")
	}
	policy, err := outputPolicy(f.in)
	if err != nil {
		return err
	}
	err = writeOutput(fsys, policy, out, []string{".parquet"}, func(w io.Writer) error {
		return export.WriteParquet(w, tf)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", tf.Len(), out)
	return nil
}
