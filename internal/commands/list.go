package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"remindo/internal/exitcode"
	"remindo/internal/output"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `remindo` (no args) and `remindo list`.
type ListCmd struct{}

func (c *ListCmd) Name() string          { return "list" }
func (c *ListCmd) Aliases() []string     { return []string{"ls"} }
func (c *ListCmd) Synopsis() string      { return "List tasks" }
func (c *ListCmd) Usage() string         { return "remindo list [common flags]" }
func (c *ListCmd) Requires() Requirement { return NeedsSession }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ListCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	ctrl, err := openTasks(ctx, env)
	if err != nil {
		return fail(errOut, err)
	}
	defer ctrl.Stop()

	tasks := ctrl.Tasks()
	if !env.Config.Quiet {
		output.FormatWelcome(out, env.Identity)
	}
	output.FormatTasks(out, tasks, time.Now())
	if len(tasks) == 0 {
		info(env, out, "no tasks found")
	}
	return exitcode.Success
}
