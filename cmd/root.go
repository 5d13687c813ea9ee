// Package cmd holds the cobra commands of capture-stream.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/pairomaniac/capture-stream/internal/capability"
	"github.com/pairomaniac/capture-stream/internal/devices"
	"github.com/pairomaniac/capture-stream/internal/diagnostics"
	"github.com/pairomaniac/capture-stream/internal/hotplug"
	"github.com/pairomaniac/capture-stream/internal/negotiate"
	"github.com/pairomaniac/capture-stream/internal/player"
	"github.com/pairomaniac/capture-stream/internal/prefs"
	"github.com/pairomaniac/capture-stream/internal/probe"
	"github.com/pairomaniac/capture-stream/internal/prompt"
	"github.com/pairomaniac/capture-stream/internal/rules"
	"github.com/pairomaniac/capture-stream/internal/version"
	"github.com/spf13/cobra"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitInterrupted = 130
)

// NewRootCmd creates the root command. Without arguments it runs the
// negotiation and the player session.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "capture-stream",
		Short: "Low-latency capture card viewer",
		Long: "Picks a capture card and audio source, negotiates format, resolution and framerate, " +
			"and launches VLC in a borderless window pinned below other windows.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			a, err := newApp()
			if err != nil {
				return err
			}
			return runStream(cmd.Context(), a)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Version = version.Get().String()

	root.AddCommand(CreateUninstallCmd())
	root.AddCommand(CreateCleanupCmd())
	root.AddCommand(CreateDevicesCmd())
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context, args []string, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetErr(stderr)

	return exitCode(ctx, root.ExecuteContext(ctx), stderr)
}

// exitCode maps the command result to a process exit code. A shutdown signal
// wins over whatever error it caused in a prompt or a probe.
func exitCode(ctx context.Context, err error, stderr io.Writer) int {
	switch {
	case ctx.Err() != nil:
		return ExitInterrupted
	case err == nil:
		return ExitOK
	case errors.Is(err, prompt.ErrCancelled):
		return ExitOK
	default:
		fmt.Fprintf(stderr, "capture-stream: %v\n", err)
		return ExitFailure
	}
}

// runStream checks dependencies, then negotiates and runs the player.
func runStream(ctx context.Context, a *app) error {
	required := diagnostics.RequiredBinaries(a.session, a.opts.PlayerBinary, a.opts.PromptBinary)
	if err := diagnostics.Check(required); err != nil {
		a.logger.Error("Missing dependencies", "error", err)
		return err
	}

	prober := probe.New()
	deps := negotiate.Deps{
		Catalog:      devices.NewCatalog(prober),
		Capabilities: capability.NewResolver(prober),
		Preferences:  prefs.NewStore(a.opts.PreferencesFile),
		Prompter:     prompt.NewZenity(a.opts.PromptBinary),
		Rules:        rules.NewManager(a.ruleBackend(), rules.WithEventBus(a.bus)),
		Launcher:     player.NewVLC(a.opts.PlayerBinary),
		Bus:          a.bus,
	}

	monitor, err := hotplug.NewMonitor(hotplug.SubsystemVideo4Linux)
	if err != nil {
		a.logger.Warn("Hotplug monitoring unavailable", "error", err)
	} else {
		defer monitor.Close()
		deps.Hotplug = hotplug.NewWatcher(monitor, a.bus)
	}

	return stream(ctx, a.logger, deps)
}

// stream negotiates and runs one player session, logging how it ended.
func stream(ctx context.Context, logger *slog.Logger, deps negotiate.Deps, opts ...negotiate.Option) error {
	_, err := negotiate.New(deps, opts...).Run(ctx)
	var exitErr *player.ExitError
	switch {
	case ctx.Err() != nil:
		logger.Info("Interrupted", "cause", context.Cause(ctx))
	case errors.Is(err, prompt.ErrCancelled):
		logger.Info("Cancelled by user")
	case errors.As(err, &exitErr):
		logger.Warn("Player failed", "code", exitErr.Code, "tail", exitErr.Tail)
	case negotiate.CodeOf(err) != "":
		logger.Error("Negotiation failed", "code", negotiate.CodeOf(err), "error", err)
	case err != nil:
		logger.Error("Session failed", "error", err)
	}
	return err
}
