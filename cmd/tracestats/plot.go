package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/tracestats/internal/chart"
	"github.com/banshee-data/tracestats/internal/fsutil"
	"github.com/banshee-data/tracestats/internal/security"
)

type plotFlags struct {
	inputFlags
	in          string
	out         string
	title       string
	maxVehicles int
}

func newPlotCmd() *cobra.Command {
	f := &plotFlags{}
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Draw a time-space diagram as PNG or HTML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlot(cmd, f, fsutil.OSFileSystem{})
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&f.in, "in", "", "Vehicle samples trace file")
	cmd.Flags().StringVar(&f.out, "out", "", "Output .png or .html (default: PNG next to the input)")
	cmd.Flags().StringVar(&f.title, "title", "", "Chart title (default: the trace name)")
	cmd.Flags().IntVar(&f.maxVehicles, "max-vehicles", chart.DefaultMaxVehicles, "Draw at most this many vehicles")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func runPlot(cmd *cobra.Command, f *plotFlags, fsys fsutil.FileSystem) error {
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
		out = security.DefaultOutputPath(f.in, ".png")
	}
	o := chart.Options{Title: f.title, Area: cfg.BuildArea(), MaxVehicles: f.maxVehicles}
	render := func(w io.Writer) error { return chart.WritePNG(w, tf, o) }
	if strings.EqualFold(filepath.Ext(out), ".html") {
		render = func(w io.Writer) error { return chart.WriteHTML(w, tf, o) }
	}

	policy, err := outputPolicy(f.in)
	if err != nil {
		return err
	}
	if err := writeOutput(fsys, policy, out, []string{".png", ".html"}, render); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
	return nil
}
