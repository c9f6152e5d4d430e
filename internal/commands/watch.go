package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sync"
	"time"

	"remindo/internal/controller"
	"remindo/internal/exitcode"
	"remindo/internal/logging"
	"remindo/internal/output"
	"remindo/internal/reminder"
	"remindo/internal/service"
)

func init() {
	Register(&WatchCmd{})
}

// WatchCmd implements the watch command. It follows the task list and
// fires reminders until interrupted.
type WatchCmd struct {
	policy   string
	interval time.Duration
}

func (c *WatchCmd) Name() string          { return "watch" }
func (c *WatchCmd) Aliases() []string     { return nil }
func (c *WatchCmd) Synopsis() string      { return "Follow the task list and fire reminders" }
func (c *WatchCmd) Usage() string         { return "remindo watch [--policy exact-minute|catch-up] [--interval <duration>]" }
func (c *WatchCmd) Requires() Requirement { return NeedsSession }

func (c *WatchCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.policy, "policy", "", "")
	fs.DurationVar(&c.interval, "interval", 0, "")
}

func (c *WatchCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	cfg := env.Config
	log := logging.For("watch")

	name := c.policy
	if name == "" {
		name = cfg.Reminders.Policy
	}
	policy, err := reminder.ParsePolicy(name)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	interval := c.interval
	if interval == 0 {
		interval = cfg.Reminders.Interval
	}
	if interval < 0 {
		fmt.Fprintf(errOut, "error: invalid interval: %s\n", interval)
		return exitcode.UserError
	}

	perm, err := env.Backend.Notifier.RequestPermission(ctx)
	if err != nil || perm != service.PermissionGranted {
		log.Warn().Err(err).Str("permission", string(perm)).Msg("notification permission not granted")
		fmt.Fprintln(errOut, "warning: Notification permission not granted!")
	}

	var mu sync.Mutex
	show := func(s service.Snapshot) {
		if cfg.Quiet {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		output.FormatSeparator(out)
		output.FormatTasks(out, s.Tasks, time.Now())
		if len(s.Tasks) == 0 {
			fmt.Fprintln(out, "no tasks found")
		}
	}

	if !cfg.Quiet {
		output.FormatWelcome(out, env.Identity)
	}
	ctrl, err := openTasks(ctx, env, controller.OnSnapshot(show))
	if err != nil {
		return fail(errOut, err)
	}
	defer ctrl.Stop()

	scanner := reminder.New(ctrl, env.Backend.Notifier,
		reminder.WithPolicy(policy),
		reminder.WithInterval(interval),
		reminder.WithTitle(cfg.Notifications.Title),
	)
	log.Info().Stringer("policy", policy).Dur("interval", scanner.Interval()).Msg("watching")
	if err := scanner.Run(ctx); err != nil {
		return fail(errOut, err)
	}
	return exitcode.Success
}
