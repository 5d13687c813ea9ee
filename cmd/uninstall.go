package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pairomaniac/capture-stream/internal/config"
	"github.com/pairomaniac/capture-stream/internal/rules"
	"github.com/spf13/cobra"
)

// desktopEntryName is the launcher file installed under applications/.
const desktopEntryName = config.AppName + ".desktop"

// CreateUninstallCmd creates the uninstall command.
func CreateUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the desktop entry, settings and leftover window rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			a, err := newApp()
			if err != nil {
				return err
			}
			dataHome, err := config.DataHome()
			if err != nil {
				return err
			}
			configDir, err := config.ConfigDir()
			if err != nil {
				return err
			}

			targets := []string{
				filepath.Join(dataHome, "applications", desktopEntryName),
				configDir,
				a.opts.PreferencesFile,
			}
			purger, _ := a.ruleBackend().(rules.Purger)
			return uninstall(cmd.Context(), cmd.OutOrStdout(), targets, purger)
		},
	}
}

// uninstall purges every rule written by the tool, then deletes targets.
// Missing targets are skipped.
func uninstall(ctx context.Context, out io.Writer, targets []string, purger rules.Purger) error {
	if purger != nil {
		purged, err := purger.PurgeAll(ctx)
		if err != nil {
			return fmt.Errorf("remove window rules: %w", err)
		}
		for _, id := range purged {
			fmt.Fprintf(out, "Removed window rule %s\n", id)
		}
	}

	for _, target := range targets {
		if target == "" {
			continue
		}
		if _, err := os.Lstat(target); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("remove %s: %w", target, err)
		}
		fmt.Fprintf(out, "Removed %s\n", target)
	}
	return nil
}
