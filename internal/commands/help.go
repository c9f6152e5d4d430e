package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"remindo/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string          { return "help" }
func (c *HelpCmd) Aliases() []string     { return nil }
func (c *HelpCmd) Synopsis() string      { return "Print usage" }
func (c *HelpCmd) Usage() string         { return "remindo help" }
func (c *HelpCmd) Requires() Requirement { return NoBackend }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  remindo                                            List tasks
  remindo list [common flags]
  remindo add [common flags] [--at <time>] <text...>
  remindo edit [common flags] [--at <time> | --clear-reminder] <n> [text...]
  remindo rm [common flags] <n>
  remindo remind [common flags] <n> <time>
  remindo remind [common flags] --clear <n>
  remindo watch [common flags] [--policy exact-minute|catch-up] [--interval <duration>]
  remindo register [common flags] --name <name> --email <email> --password <pw>
  remindo login [common flags] --email <email> [--password <pw>]
  remindo logout [common flags]
  remindo forgot [common flags] --email <email>
  remindo verify [common flags] <code>
  remindo reset-password [common flags] --password <pw> <code>
  remindo serve [common flags] [--addr <host:port>]
  remindo connect [common flags]
  remindo help
  remindo version

Times:
  15:04, 3:04PM (today) or 2006-01-02 15:04, in local time

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr

Environment:
  REMINDO_PASSWORD         Password for login and register
  REMINDO_STORE_TYPE       memory, postgres, mongo or googletasks
  REMINDO_STORE_URL        Store connection URL
`
