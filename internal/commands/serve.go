package commands

import (
	"context"
	"flag"
	"io"

	"remindo/internal/exitcode"
	"remindo/internal/web"
)

func init() {
	Register(&ServeCmd{})
}

// ServeCmd implements the serve command.
type ServeCmd struct {
	addr string
}

func (c *ServeCmd) Name() string          { return "serve" }
func (c *ServeCmd) Aliases() []string     { return nil }
func (c *ServeCmd) Synopsis() string      { return "Serve email verification and password reset links" }
func (c *ServeCmd) Usage() string         { return "remindo serve [--addr <host:port>]" }
func (c *ServeCmd) Requires() Requirement { return NeedsBackend }

func (c *ServeCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.addr, "addr", "", "")
}

func (c *ServeCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	addr := c.addr
	if addr == "" {
		addr = env.Config.Serve.Addr
	}

	info(env, out, "listening on http://%s", addr)
	if err := web.Serve(ctx, addr, web.NewRouter(env.Backend.Actions)); err != nil {
		return fail(errOut, err)
	}
	return exitcode.Success
}
