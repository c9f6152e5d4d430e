package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"remindo/internal/exitcode"
)

func init() {
	Register(&EditCmd{})
}

// EditCmd implements the edit command.
type EditCmd struct {
	at    string
	clear bool
}

func (c *EditCmd) Name() string          { return "edit" }
func (c *EditCmd) Aliases() []string     { return []string{"update"} }
func (c *EditCmd) Synopsis() string      { return "Change a task's text or reminder" }
func (c *EditCmd) Usage() string         { return "remindo edit [--at <time> | --clear-reminder] <n> [text...]" }
func (c *EditCmd) Requires() Requirement { return NeedsSession }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.at, "at", "", "")
	fs.BoolVar(&c.clear, "clear-reminder", false, "")
}

func (c *EditCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if c.at != "" && c.clear {
		fmt.Fprintln(errOut, "error: --at and --clear-reminder are mutually exclusive")
		return exitcode.UserError
	}
	n, err := ParseTaskNum(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	text := strings.Join(args[1:], " ")
	if text == "" && c.at == "" && !c.clear {
		fmt.Fprintln(errOut, "error: nothing to change")
		return exitcode.UserError
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
	if err := ctrl.BeginEdit(task.ID); err != nil {
		return fail(errOut, err)
	}

	draft := ctrl.Input()
	if text != "" {
		draft.Text = text
	}
	switch {
	case c.clear:
		draft.ReminderAt = nil
	case c.at != "":
		at, err := ParseWhen(c.at, time.Now())
		if err != nil {
			ctrl.CancelEdit()
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		draft.ReminderAt = &at
	}
	ctrl.SetInput(draft.Text, draft.ReminderAt)

	if _, err := ctrl.Submit(ctx); err != nil {
		return fail(errOut, err)
	}
	info(env, out, "ok")
	return exitcode.Success
}
