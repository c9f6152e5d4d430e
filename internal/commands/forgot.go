package commands

import (
	"context"
	"flag"
	"io"

	"remindo/internal/authflow"
	"remindo/internal/exitcode"
)

func init() {
	Register(&ForgotCmd{})
}

// ForgotCmd implements the forgot command.
type ForgotCmd struct {
	email string
}

func (c *ForgotCmd) Name() string          { return "forgot" }
func (c *ForgotCmd) Aliases() []string     { return []string{"forgot-password"} }
func (c *ForgotCmd) Synopsis() string      { return "Email a password reset link" }
func (c *ForgotCmd) Usage() string         { return "remindo forgot --email <email>" }
func (c *ForgotCmd) Requires() Requirement { return NeedsBackend }

func (c *ForgotCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
}

func (c *ForgotCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	flow := authflow.New(env.Backend.Auth)
	if err := flow.ResetPassword(ctx, c.email); err != nil {
		return fail(errOut, err)
	}
	info(env, out, "%s", authflow.MsgResetSent)
	return exitcode.Success
}
