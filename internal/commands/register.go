package commands

import (
	"context"
	"flag"
	"io"
	"os"

	"remindo/internal/authflow"
	"remindo/internal/exitcode"
)

// PasswordEnv supplies the password when --password is omitted.
const PasswordEnv = "REMINDO_PASSWORD"

func init() {
	Register(&RegisterCmd{})
}

// RegisterCmd implements the register command.
type RegisterCmd struct {
	name     string
	email    string
	password string
}

func (c *RegisterCmd) Name() string          { return "register" }
func (c *RegisterCmd) Aliases() []string     { return []string{"signup"} }
func (c *RegisterCmd) Synopsis() string      { return "Create an account" }
func (c *RegisterCmd) Usage() string         { return "remindo register --name <name> --email <email> --password <pw>" }
func (c *RegisterCmd) Requires() Requirement { return NeedsBackend }

func (c *RegisterCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.name, "name", "", "")
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.password, "password", "", "")
}

func (c *RegisterCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	password := c.password
	if password == "" {
		password = os.Getenv(PasswordEnv)
	}

	flow := authflow.New(env.Backend.Auth)
	if err := flow.Register(ctx, c.name, c.email, password); err != nil {
		return fail(errOut, err)
	}

	info(env, out, "%s", authflow.MsgVerificationSent)
	return exitcode.Success
}
