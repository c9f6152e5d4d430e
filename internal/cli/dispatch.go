package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"remindo/internal/authflow"
	"remindo/internal/backend"
	"remindo/internal/commands"
	"remindo/internal/config"
	"remindo/internal/exitcode"
	"remindo/internal/logging"
	"remindo/internal/service"
)

// BackendFactory opens the collaborators for a command.
// Tests inject fakes through it.
type BackendFactory func(ctx context.Context, cfg *config.Config, out io.Writer) (*backend.Backend, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  BackendFactory
}

// NewDispatcher creates a new dispatcher with the given registry and backend
// factory. A nil factory uses backend.Open.
func NewDispatcher(registry *commands.Registry, factory BackendFactory) *Dispatcher {
	if factory == nil {
		factory = backend.Open
	}
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> dispatch to "list" command with no args
	if len(args) == 0 {
		return d.dispatch(ctx, "list", nil, out, errOut)
	}

	cmdName := args[0]

	// If first token starts with -, it's an error (flags require a command)
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatch(ctx, cmdName, args[1:], out, errOut)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmdName string, args []string, out, errOut io.Writer) int {
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args, out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	// Create flag set with custom error handling
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	// Common flags
	var configDir string
	var quiet bool
	var debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		return flagError(errOut, err)
	}

	// Check if first positional arg starts with - (should have been parsed as flag)
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = cfg.Quiet || quiet
	cfg.Debug = cfg.Debug || debug
	logging.Setup(errOut, cfg.Debug)

	env := &commands.Env{Config: cfg}
	if cmd.Requires() == commands.NoBackend {
		return cmd.Run(ctx, env, positionalArgs, out, errOut)
	}

	b, err := d.factory(ctx, cfg, out)
	if err != nil {
		fmt.Fprintf(errOut, "error: backend error: %s\n", err)
		return exitcode.BackendError
	}
	defer func() {
		if err := b.Close(context.Background()); err != nil {
			l := logging.For("cli")
			l.Warn().Err(err).Msg("close backend")
		}
	}()
	env.Backend = b

	if cmd.Requires() == commands.NeedsSession {
		if code := d.resume(ctx, env, errOut); code != exitcode.Success {
			return code
		}
	}

	return cmd.Run(ctx, env, positionalArgs, out, errOut)
}

// resume restores the saved session into env.Identity.
func (d *Dispatcher) resume(ctx context.Context, env *commands.Env, errOut io.Writer) int {
	session, err := env.Config.LoadSession()
	if errors.Is(err, config.ErrNoSession) {
		fmt.Fprintln(errOut, "error: not logged in (run: remindo login)")
		return exitcode.AuthError
	}
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.AuthError
	}

	id, err := authflow.New(env.Backend.Auth).Resume(ctx, session.Token)
	if err != nil {
		if !sessionRejected(err) {
			cause := err
			if inner := errors.Unwrap(err); inner != nil {
				cause = inner
			}
			fmt.Fprintf(errOut, "error: backend error: %v\n", cause)
			return exitcode.BackendError
		}
		if rmErr := env.Config.RemoveSession(); rmErr != nil {
			l := logging.For("cli")
			l.Warn().Err(rmErr).Msg("remove session")
		}
		var flowErr *authflow.Error
		if errors.As(err, &flowErr) {
			fmt.Fprintf(errOut, "error: %s\n", flowErr.Message)
		} else {
			fmt.Fprintf(errOut, "error: %s\n", err)
		}
		return exitcode.AuthError
	}
	env.Identity = id
	return exitcode.Success
}

// sessionRejected reports whether err means the saved session can never
// be resumed, as opposed to the identity provider being unavailable.
func sessionRejected(err error) bool {
	if authflow.IsKind(err, authflow.Verification) {
		return true
	}
	switch service.AuthCode(err) {
	case service.CodeUserTokenExpired, service.CodeUserNotFound:
		return true
	}
	return false
}

// flagError maps a flag parse error to an error line and exit code.
func flagError(errOut io.Writer, err error) int {
	errStr := err.Error()

	// Check for missing flag value
	if strings.Contains(errStr, "needs a value") || strings.Contains(errStr, "flag needs an argument") {
		parts := strings.Split(errStr, ":")
		flagPart := strings.TrimSpace(parts[len(parts)-1])
		fmt.Fprintf(errOut, "error: flag needs an argument: %s\n", flagPart)
		return exitcode.UserError
	}

	// Check for unknown flag
	if strings.HasPrefix(errStr, "flag provided but not defined:") {
		flagName := strings.TrimPrefix(errStr, "flag provided but not defined: ")
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", flagName)
		return exitcode.UserError
	}

	fmt.Fprintf(errOut, "error: %s\n", errStr)
	return exitcode.UserError
}
