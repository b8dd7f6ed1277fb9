package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/codefionn/reproschnell/internal/results"
)

func resultsCmd(global *globalFlags) *cobra.Command {
	var (
		limit  int
		asCSV  bool
		dbPath string
	)
	cmd := &cobra.Command{
		Use:   "results",
		Short: "List recorded reproduction attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cleanup, err := setup(global)
			if err != nil {
				return err
			}
			defer cleanup()
			if dbPath != "" {
				cfg.ResultsDBPath = dbPath
			}

			store, err := results.Open(cfg.ResultsDBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			recs, err := store.List(ctx, limit)
			if err != nil {
				return err
			}
			if asCSV {
				return results.WriteCSV(os.Stdout, recs)
			}

			counts, err := store.CountByStatus(ctx)
			if err != nil {
				return err
			}
			return printResults(recs, counts)
		},
	}

	f := cmd.Flags()
	f.IntVar(&limit, "limit", 50, "maximum number of attempts to list (0 for all)")
	f.BoolVar(&asCSV, "csv", false, "write CSV to stdout")
	f.StringVar(&dbPath, "db", "", "results database path (defaults to the configured one)")
	return cmd
}

func printResults(recs []*results.Record, counts map[string]int) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tAPP\tISSUE\tSTATUS\tDURATION\tCOMMANDS\tREASON")
	for _, r := range recs {
		app := r.PackageName
		if app == "" {
			app = r.AppName
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"), app, r.IssueNumber, r.Status,
			r.Duration.Round(time.Second), r.CommandCount, r.FailureReason)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	statuses := make([]string, 0, len(counts))
	total := 0
	for status, n := range counts {
		statuses = append(statuses, status)
		total += n
	}
	sort.Strings(statuses)

	fmt.Printf("\nTotal attempts: %d\n", total)
	for _, status := range statuses {
		n := counts[status]
		fmt.Printf("  %-15s %d (%.1f%%)\n", status+":", n, 100*float64(n)/float64(total))
	}
	return nil
}
