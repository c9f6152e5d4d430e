package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"remindo/internal/authflow"
	"remindo/internal/config"
	"remindo/internal/exitcode"
	"remindo/internal/output"
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	email    string
	password string
}

func (c *LoginCmd) Name() string          { return "login" }
func (c *LoginCmd) Aliases() []string     { return nil }
func (c *LoginCmd) Synopsis() string      { return "Sign in with email and password" }
func (c *LoginCmd) Usage() string         { return "remindo login --email <email> [--password <pw>]" }
func (c *LoginCmd) Requires() Requirement { return NeedsBackend }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.password, "password", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	password := c.password
	if password == "" {
		password = os.Getenv(PasswordEnv)
	}

	flow := authflow.New(env.Backend.Auth)
	id, err := flow.Login(ctx, c.email, password)
	if err != nil {
		// A stale session must not outlive a failed login.
		env.Config.RemoveSession()
		return fail(errOut, err)
	}

	err = env.Config.SaveSession(config.Session{
		Token:   id.Token,
		UID:     id.UID,
		Email:   id.Email,
		SavedAt: time.Now().UTC(),
	})
	if err != nil {
		fmt.Fprintf(errOut, "error: failed to save session: %v\n", err)
		return exitcode.AuthError
	}

	if !env.Config.Quiet {
		output.FormatWelcome(out, id)
	}
	return exitcode.Success
}
