package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"remindo/internal/controller"
	"remindo/internal/exitcode"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	at string
}

func (c *AddCmd) Name() string          { return "add" }
func (c *AddCmd) Aliases() []string     { return []string{"create"} }
func (c *AddCmd) Synopsis() string      { return "Create a task" }
func (c *AddCmd) Usage() string         { return "remindo add [--at <time>] <text...>" }
func (c *AddCmd) Requires() Requirement { return NeedsSession }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.at, "at", "", "")
}

func (c *AddCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	var reminderAt *time.Time
	if c.at != "" {
		at, err := ParseWhen(c.at, time.Now())
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		reminderAt = &at
	}

	ctrl := controller.New(env.Backend.Store, env.Identity)
	ctrl.SetInput(strings.Join(args, " "), reminderAt)
	if _, err := ctrl.Submit(ctx); err != nil {
		return fail(errOut, err)
	}

	info(env, out, "ok")
	return exitcode.Success
}
