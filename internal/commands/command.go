// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"

	"remindo/internal/backend"
	"remindo/internal/config"
	"remindo/internal/service"
)

// Requirement is what a command needs before it can run.
type Requirement int

const (
	// NoBackend commands only need the config.
	NoBackend Requirement = iota

	// NeedsBackend commands need the store and auth collaborators.
	NeedsBackend

	// NeedsSession commands also need a signed-in, verified identity.
	NeedsSession
)

// Env is what the dispatcher hands to a command.
type Env struct {
	// Config is always set.
	Config *config.Config

	// Backend is nil for NoBackend commands.
	Backend *backend.Backend

	// Identity is set for NeedsSession commands.
	Identity service.Identity
}

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// Requires reports what the dispatcher must set up before Run.
	Requires() Requirement

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int
}
