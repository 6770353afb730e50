package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/banshee-data/tracestats/internal/filter"
	"github.com/banshee-data/tracestats/internal/fsutil"
	"github.com/banshee-data/tracestats/internal/statistic"
	"github.com/banshee-data/tracestats/internal/store"
	"github.com/banshee-data/tracestats/internal/table"
	"github.com/banshee-data/tracestats/internal/trace"
)

type statsFlags struct {
	inputFlags
	samples     string
	laneChanges string
	decimals    int
	csvOut      string
	xlsxOut     string
	dbPath      string
}

func newStatsCmd() *cobra.Command {
	f := &statsFlags{}
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the statistics table for a vehicle samples trace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, f, fsutil.OSFileSystem{})
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&f.samples, "samples", "", "Vehicle samples trace file")
	cmd.Flags().StringVar(&f.laneChanges, "lane-changes", "", "Lane change trace file")
	cmd.Flags().IntVar(&f.decimals, "decimals", table.DefaultDecimalPlaces, "Decimal places in the printed table")
	cmd.Flags().StringVar(&f.csvOut, "csv", "", "Also write the table as CSV")
	cmd.Flags().StringVar(&f.xlsxOut, "xlsx", "", "Also write the table as an Excel workbook")
	cmd.Flags().StringVar(&f.dbPath, "db", "", "Store the run in this SQLite database")
	_ = cmd.MarkFlagRequired("samples")
	return cmd
}

// buildStatistics returns the standard statistic set and the trace each
// one is evaluated on. Density and flow need an area; lane changes need a
// lane change trace.
func buildStatistics(samples, laneChanges *trace.TraceFile, area *filter.Area) ([]statistic.Statistic, []*trace.TraceFile) {
	tts := statistic.NewTotalTimeSpent()
	tdt := statistic.NewTotalDistanceTraveled()
	stats := []statistic.Statistic{tts, tdt, statistic.NewMeanSpeed(tts, tdt)}
	files := []*trace.TraceFile{samples, samples, samples}
	if area != nil {
		stats = append(stats, statistic.NewDensity(tts, area), statistic.NewFlow(tdt, area))
		files = append(files, samples, samples)
	}
	if laneChanges != nil {
		stats = append(stats, statistic.NewNumberOfLaneChanges())
		files = append(files, laneChanges)
	}
	return stats, files
}

func runStats(cmd *cobra.Command, f *statsFlags, fsys fsutil.FileSystem) error {
	cfg, err := f.resolve(cmd, fsys)
	if err != nil {
		return err
	}
	decimals := cfg.GetDecimalPlaces()
	if cmd.Flags().Changed("decimals") {
		decimals = f.decimals
	}

	ld, err := newLoader(fsys, cfg, f.sections())
	if err != nil {
		return err
	}
	chain, err := ld.filters()
	if err != nil {
		return err
	}

	samples, err := ld.open(f.samples)
	if err != nil {
		return err
	}
	dropped := samples.Dropped()
	if samples, err = applyWhereAvailable(samples, chain, true); err != nil {
		return err
	}

	var laneChanges *trace.TraceFile
	if f.laneChanges != "" {
		if laneChanges, err = ld.open(f.laneChanges); err != nil {
			return err
		}
		dropped += laneChanges.Dropped()
		if laneChanges, err = applyWhereAvailable(laneChanges, chain, false); err != nil {
			return err
		}
	}

	stats, files := buildStatistics(samples, laneChanges, cfg.BuildArea())
	tbl, err := table.New(stats, files)
	if err != nil {
		return err
	}
	if err := tbl.Render(cmd.OutOrStdout(), decimals); err != nil {
		return err
	}

	policy, err := outputPolicy(f.samples)
	if err != nil {
		return err
	}
	if f.csvOut != "" {
		err := writeOutput(fsys, policy, f.csvOut, []string{".csv"}, func(w io.Writer) error {
			return tbl.WriteCSV(w, decimals)
		})
		if err != nil {
			return err
		}
	}
	if f.xlsxOut != "" {
		if err := writeOutput(fsys, policy, f.xlsxOut, []string{".xlsx"}, tbl.WriteXLSX); err != nil {
			return err
		}
	}

	if f.dbPath != "" {
		db, err := store.Open(f.dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		run := &store.Run{
			SamplesFile:     f.samples,
			LaneChangesFile: f.laneChanges,
			Filters:         chain.String(),
			DroppedRows:     dropped,
			Rows:            tbl.Rows(),
		}
		if err := db.SaveRun(run); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "saved run %s\n", run.RunID)
	}
	return nil
}
