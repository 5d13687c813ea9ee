package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/pairomaniac/capture-stream/internal/rules"
	"github.com/spf13/cobra"
)

// CreateCleanupCmd creates the cleanup command.
func CreateCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove window rules left behind by sessions that no longer run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			a, err := newApp()
			if err != nil {
				return err
			}
			purger, ok := a.ruleBackend().(rules.Purger)
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "This session keeps no window rules on disk")
				return nil
			}
			return cleanup(cmd.Context(), cmd.OutOrStdout(), purger)
		},
	}
}

func cleanup(ctx context.Context, out io.Writer, purger rules.Purger) error {
	purged, err := purger.PurgeStale(ctx)
	if err != nil {
		return fmt.Errorf("purge stale window rules: %w", err)
	}
	if len(purged) == 0 {
		fmt.Fprintln(out, "No stale window rules")
		return nil
	}
	for _, id := range purged {
		fmt.Fprintf(out, "Removed stale window rule %s\n", id)
	}
	return nil
}
