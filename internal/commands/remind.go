package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"remindo/internal/exitcode"
	"remindo/internal/output"
)

func init() {
	Register(&RemindCmd{})
}

// RemindCmd implements the remind command.
type RemindCmd struct {
	clear bool
}

func (c *RemindCmd) Name() string          { return "remind" }
func (c *RemindCmd) Aliases() []string     { return nil }
func (c *RemindCmd) Synopsis() string      { return "Set or clear a task's reminder" }
func (c *RemindCmd) Usage() string         { return "remindo remind <n> <time> | remindo remind --clear <n>" }
func (c *RemindCmd) Requires() Requirement { return NeedsSession }

func (c *RemindCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.clear, "clear", false, "")
}

func (c *RemindCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	n, err := ParseTaskNum(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	var at time.Time
	switch {
	case c.clear && len(args) > 1:
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
		return exitcode.UserError
	case !c.clear && len(args) < 2:
		fmt.Fprintln(errOut, "error: time required")
		return exitcode.UserError
	case !c.clear:
		at, err = ParseWhen(strings.Join(args[1:], " "), time.Now())
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
	}

	ctrl, err := openTasks(ctx, env)
	if err != nil {
		return fail(errOut, err)
	}
	defer ctrl.Stop()

	task, err := taskAt(ctrl, n)
	if err != nil {
		fmt.Fprintf(errOut, "error: task not found: %d\n", n)
		return exitcode.UserError
	}

	if c.clear {
		err = ctrl.ClearReminder(ctx, task.ID)
	} else {
		err = ctrl.SetReminder(ctx, task.ID, at)
	}
	if err != nil {
		return fail(errOut, err)
	}

	if c.clear {
		info(env, out, "ok")
	} else {
		info(env, out, "ok, reminder at %s", output.FormatReminder(at, time.Now()))
	}
	return exitcode.Success
}
