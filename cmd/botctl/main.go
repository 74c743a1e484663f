package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

type options struct {
	dataDir string
}

func (o *options) indexPath() string { return filepath.Join(o.dataDir, "index", "tickbot.sqlite") }

func newRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:          "botctl",
		Short:        "Inspect tickbot task runs and plans",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&o.dataDir, "data", "./data", "bot runtime data directory")
	root.AddCommand(newRunsCmd(o), newFailuresCmd(o), newEventsCmd(o), newPlanCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
