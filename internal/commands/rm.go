package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"remindo/internal/exitcode"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct{}

func (c *RmCmd) Name() string          { return "rm" }
func (c *RmCmd) Aliases() []string     { return []string{"delete"} }
func (c *RmCmd) Synopsis() string      { return "Delete a task" }
func (c *RmCmd) Usage() string         { return "remindo rm <n>" }
func (c *RmCmd) Requires() Requirement { return NeedsSession }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	n, err := ParseTaskNum(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if len(args) > 1 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
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
	if err := ctrl.Delete(ctx, task.ID); err != nil {
		return fail(errOut, err)
	}

	info(env, out, "ok")
	return exitcode.Success
}
