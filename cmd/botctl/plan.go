package main

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/cobra"

	"tickbot.ai/internal/catalogs"
	"tickbot.ai/internal/plan"
	"tickbot.ai/internal/tuning"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Work with plan files",
	}
	cmd.AddCommand(newPlanValidateCmd())
	return cmd
}

func newPlanValidateCmd() *cobra.Command {
	var configDir string
	cmd := &cobra.Command{
		Use:   "validate [plan.yaml]",
		Short: "Check a plan against its schema and build every task",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(configDir, "plan.yaml")
			if len(args) == 1 {
				path = args[0]
			}
			p, err := plan.Load(path)
			if err != nil {
				return err
			}
			items, err := catalogs.Load(filepath.Join(configDir, "items.yaml"))
			if err != nil {
				return fmt.Errorf("load items: %w", err)
			}
			tune, err := tuning.Load(filepath.Join(configDir, "tuning.yaml"))
			if errors.Is(err, fs.ErrNotExist) {
				tune, err = tuning.Defaults(), nil
			}
			if err != nil {
				return err
			}
			b := plan.Builder{Tuning: tune, Items: items}
			tasks, err := b.Tasks(p)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, t := range tasks {
				fmt.Fprintf(out, "%2d  %s\n", i+1, t.Description())
			}
			if p.OnDeath != nil {
				fmt.Fprintf(out, "on death: %s\n", b.Death(p.OnDeath).Description())
			}
			fmt.Fprintf(out, "%s: ok (%d tasks)\n", path, len(tasks))
			return nil
		},
	}
	cmd.Flags().StringVar(&configDir, "configs", "./configs", "config directory holding items.yaml and tuning.yaml")
	return cmd
}
