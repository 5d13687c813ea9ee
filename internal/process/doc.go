// Package process provides subprocess lifecycle management for the media
// player and one-shot queries against the external tools.
//
// Process wraps os/exec for a single long-running subprocess:
//   - Graceful shutdown with SIGINT and configurable timeout
//   - Force kill with SIGKILL if graceful shutdown times out
//   - Output streaming with pluggable log parsing
//   - A bounded tail of stderr for error reporting, sized by WithTailLines
//
// Output runs a short command and returns its stdout. A missing binary or a
// failing command yields empty output; only context cancellation is an error.
//
// Example usage:
//
//	p := process.New("player", []string{"vlc", "v4l2:///dev/video0"}, logger)
//	exitCode, err := p.Run(ctx)
//	if exitCode != 0 {
//	    fmt.Println(strings.Join(p.Tail(), "\n"))
//	}
package process
