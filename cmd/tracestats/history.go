package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/tracestats/internal/store"
	"github.com/banshee-data/tracestats/internal/table"
)

type historyFlags struct {
	dbPath   string
	limit    int
	show     string
	decimals int
}

func newHistoryCmd() *cobra.Command {
	f := &historyFlags{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored runs, or show one with --show",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.dbPath, "db", "", "SQLite database written by stats --db")
	cmd.Flags().IntVar(&f.limit, "limit", 20, "Number of runs to list (0 for all)")
	cmd.Flags().StringVar(&f.show, "show", "", "Print the table of this run id")
	cmd.Flags().IntVar(&f.decimals, "decimals", table.DefaultDecimalPlaces, "Decimal places for --show")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}

func runHistory(cmd *cobra.Command, f *historyFlags) error {
	db, err := store.Open(f.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	if f.show != "" {
		run, err := db.GetRun(f.show)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "run %s on %s\n", run.RunID, run.SamplesFile)
		return run.Table().Render(out, f.decimals)
	}

	runs, err := db.ListRuns(f.limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tCREATED\tSAMPLES\tFILTERS\tDROPPED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
			r.RunID, r.CreatedAt().UTC().Format(time.RFC3339), r.SamplesFile, r.Filters, r.DroppedRows)
	}
	return tw.Flush()
}
