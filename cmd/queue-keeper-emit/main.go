// Package main is the entry point for queue-keeper-emit, which publishes
// store lifecycle events for local testing and backfills.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"queue-keeper/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}
