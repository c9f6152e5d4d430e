// Package main is the entry point for the remindo CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"remindo/internal/backend"
	"remindo/internal/cli"
	"remindo/internal/commands"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, backend.Open)

	// Run and exit with code
	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}
