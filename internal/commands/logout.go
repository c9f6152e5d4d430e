package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"remindo/internal/authflow"
	"remindo/internal/config"
	"remindo/internal/exitcode"
)

func init() {
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string          { return "logout" }
func (c *LogoutCmd) Aliases() []string     { return nil }
func (c *LogoutCmd) Synopsis() string      { return "Sign out and remove the stored session" }
func (c *LogoutCmd) Usage() string         { return "remindo logout [common flags]" }
func (c *LogoutCmd) Requires() Requirement { return NeedsBackend }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	cfg := env.Config
	sess, err := cfg.LoadSession()
	if errors.Is(err, config.ErrNoSession) {
		info(env, out, "not logged in")
		return exitcode.Success
	}

	// Sign out with the collaborator when the session is still good. The
	// local session is removed either way.
	if err == nil {
		flow := authflow.New(env.Backend.Auth)
		if _, err := flow.Resume(ctx, sess.Token); err == nil {
			flow.Logout(ctx)
		}
	}

	if err := cfg.RemoveSession(); err != nil {
		fmt.Fprintf(errOut, "error: failed to remove session: %v\n", err)
		return exitcode.AuthError
	}

	info(env, out, "ok")
	return exitcode.Success
}
