package main

import (
	"context"
	"os"

	"github.com/pairomaniac/capture-stream/cmd"
)

func main() {
	ctx, stop := cmd.NotifyContext(context.Background())
	code := cmd.Execute(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}
