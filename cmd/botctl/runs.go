package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"tickbot.ai/internal/persistence/indexdb"
	"tickbot.ai/internal/scheduler"
)

func newRunsCmd(o *options) *cobra.Command {
	var f indexdb.RunFilter
	var outcome string
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent task runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Outcome = scheduler.Outcome(outcome)
			return withIndex(o, func(idx *indexdb.SQLiteIndex) error {
				runs, err := idx.Runs(cmd.Context(), f)
				if err != nil {
					return err
				}
				return printRuns(cmd.OutOrStdout(), runs)
			})
		},
	}
	cmd.Flags().StringVar(&f.Kind, "kind", "", "only runs of this task kind")
	cmd.Flags().StringVar(&outcome, "outcome", "", "only runs whose latest outcome is this")
	cmd.Flags().IntVarP(&f.Limit, "limit", "n", 20, "maximum runs to show")
	return cmd
}

func newFailuresCmd(o *options) *cobra.Command {
	var limit int
	var grouped bool
	cmd := &cobra.Command{
		Use:   "failures",
		Short: "List failed task runs and their reasons",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIndex(o, func(idx *indexdb.SQLiteIndex) error {
				if grouped {
					reasons, err := idx.FailureReasons(cmd.Context())
					if err != nil {
						return err
					}
					w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
					fmt.Fprintln(w, "COUNT\tKIND\tREASON")
					for _, r := range reasons {
						fmt.Fprintf(w, "%d\t%s\t%s\n", r.Count, r.Kind, r.Reason)
					}
					return w.Flush()
				}
				runs, err := idx.Failures(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return printRuns(cmd.OutOrStdout(), runs)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to show")
	cmd.Flags().BoolVar(&grouped, "by-reason", false, "count failures per kind and reason")
	return cmd
}

func withIndex(o *options, fn func(*indexdb.SQLiteIndex) error) error {
	idx, err := indexdb.OpenSQLite(o.indexPath())
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer idx.Close()
	return fn(idx)
}

func printRuns(out io.Writer, runs []indexdb.Run) error {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tKIND\tOUTCOME\tATTEMPTS\tTICKS\tUPDATED\tREASON")
	for _, r := range runs {
		kind := r.Kind
		if r.Urgent {
			kind += "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			shortID(r.RunID), kind, r.Outcome, r.Attempts, r.Ticks, formatAge(r.LastAt), r.Reason)
	}
	return w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
	return fmt.Sprintf("%dd ago", int(d.Hours())/24)
}

