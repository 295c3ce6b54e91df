package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/chaos-io/eraser-bench/store"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded benchmark runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.DB == "" {
			return errors.New("db is required (flag --db or ERASER_DB)")
		}
		db, err := store.New(cmd.Context(), cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close(context.Background())

		runs, err := db.ListRuns(cmd.Context(), runsLimit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		return writeRuns(cmd.OutOrStdout(), runs)
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to show, 0 for all")
	rootCmd.AddCommand(runsCmd)
}

func writeRuns(out io.Writer, runs []store.RunRecord) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(out, "No runs recorded.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTARTED\tDURATION\tOK\tPARTIAL\tFAILED\tSKIPPED\tOUTPUT")
	fmt.Fprintln(w, "---\t-------\t--------\t--\t-------\t------\t-------\t------")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
			r.Succeeded, r.Partial, r.Failed, r.SkippedGroups, r.OutputFolder)
	}
	return w.Flush()
}
