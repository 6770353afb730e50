// Command tracestats computes traffic statistics from FOSIM trace files.
package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/banshee-data/tracestats/internal/monitoring"
	"github.com/banshee-data/tracestats/internal/version"
)

const appName = "tracestats"

type globalFlags struct {
	quiet bool
	debug bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Traffic statistics from FOSIM trace files",
		Long: `tracestats loads FOSIM vehicle samples and lane change traces, filters
them, and reports total time spent, total distance traveled, mean speed,
density, flow and the number of lane changes.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.quiet {
				monitoring.SetLogger(nil)
			}
			monitoring.SetDebug(g.debug)
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&g.quiet, "quiet", "q", false, "Suppress dropped-row and metadata warnings")
	rootCmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "Log per-step details")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}

	rootCmd.AddCommand(
		newStatsCmd(),
		newExportCmd(),
		newPlotCmd(),
		newHistoryCmd(),
		versionCmd,
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}
