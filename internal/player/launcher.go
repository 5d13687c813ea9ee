// Package player builds the VLC command line and runs it.
package player

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pairomaniac/capture-stream/internal/logging"
	"github.com/pairomaniac/capture-stream/internal/process"
)

// ExitError reports a non-zero player exit with its last stderr lines.
type ExitError struct {
	Code int
	Tail []string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("player exited with code %d", e.Code)
	if len(e.Tail) > 0 {
		msg += "\n\n" + strings.Join(e.Tail, "\n")
	}
	return msg
}

// Launcher starts the media player for a resolved parameter set.
type Launcher interface {
	Launch(ctx context.Context, p Params) (int, error)
}

// tailLines is how much of the player's stderr an ExitError carries. VLC
// prints several module warnings before the one that explains a failure.
const tailLines = 8

// VLC launches the vlc binary.
type VLC struct {
	binary string
	logger *slog.Logger
}

// NewVLC creates a launcher for binary, "vlc" when empty.
func NewVLC(binary string) *VLC {
	if binary == "" {
		binary = "vlc"
	}
	return &VLC{
		binary: binary,
		logger: logging.GetLogger("player"),
	}
}

// Command returns the full command line Launch runs for p.
func (v *VLC) Command(p Params) []string {
	return append([]string{v.binary}, BuildArgs(p)...)
}

// Launch runs the player until it exits or ctx is cancelled. A non-zero
// exit is returned as an *ExitError alongside the code. Cancelling ctx stops
// the player with SIGINT, then SIGKILL after a grace period.
func (v *VLC) Launch(ctx context.Context, p Params) (int, error) {
	proc := process.New("player", v.Command(p), v.logger, process.WithTailLines(tailLines))
	proc.SetLogParser(v.logger, ParseLogLevel)

	code, err := proc.Run(ctx)
	if err != nil {
		return code, fmt.Errorf("launch %s: %w", v.binary, err)
	}
	if code != 0 && ctx.Err() == nil {
		return code, &ExitError{Code: code, Tail: proc.Tail()}
	}
	return code, nil
}
