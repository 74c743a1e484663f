package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tickbot.ai/internal/persistence/indexdb"
	persistlog "tickbot.ai/internal/persistence/log"
	"tickbot.ai/internal/scheduler"
)

// events reads the compressed event log, which keeps everything the index
// may have dropped. With a run ID prefix it shows one run's lifecycle.
func newEventsCmd(o *options) *cobra.Command {
	var (
		kind     string
		limit    int
		useIndex bool
	)
	cmd := &cobra.Command{
		Use:   "events [run-id-prefix]",
		Short: "Replay task lifecycle events",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			var events []scheduler.Event
			if useIndex {
				if prefix == "" {
					return fmt.Errorf("--index needs a full run id")
				}
				err := withIndex(o, func(idx *indexdb.SQLiteIndex) error {
					var err error
					events, err = idx.Events(cmd.Context(), prefix)
					return err
				})
				if err != nil {
					return err
				}
			} else {
				err := persistlog.ReadEvents(o.dataDir, func(e scheduler.Event) bool {
					if prefix != "" && !strings.HasPrefix(e.RunID, prefix) {
						return true
					}
					if kind != "" && e.Kind != kind {
						return true
					}
					events = append(events, e)
					return true
				})
				if err != nil {
					return err
				}
			}
			if limit > 0 && len(events) > limit {
				events = events[len(events)-limit:]
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "AT\tTICK\tRUN\tKIND\tOUTCOME\tATTEMPT\tREASON")
			for _, e := range events {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%d\t%s\n",
					e.At.Local().Format("2006-01-02 15:04:05"), e.Tick, shortID(e.RunID), e.Kind, e.Outcome, e.Attempt, e.Reason)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "only events of this task kind")
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "show at most the last n events; 0 for all")
	cmd.Flags().BoolVar(&useIndex, "index", false, "read from the sqlite index instead of the event log")
	return cmd
}
