package process

import (
	"context"
	"os/exec"
)

// Output runs name with args and returns its stdout. Stderr is discarded.
// A missing binary or a non-zero exit yields empty output and no error, so
// callers treat a broken tool the same as one that reports nothing. The
// only error is ctx's, when it ends before the command does.
func Output(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if err != nil {
		return "", nil
	}
	return string(out), nil
}

// Exec runs name with args for its side effect and reports whether it
// exited successfully.
func Exec(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}
