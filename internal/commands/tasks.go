package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"remindo/internal/controller"
	"remindo/internal/service"
)

// ErrTaskRefRequired indicates no task number was provided.
var ErrTaskRefRequired = errors.New("task number required")

// DefaultLoadTimeout bounds the wait for the first snapshot when the
// store config sets no timeout.
const DefaultLoadTimeout = 10 * time.Second

// ParseTaskNum parses the 1-based task number in args[0].
func ParseTaskNum(args []string) (int, error) {
	if len(args) == 0 {
		return 0, ErrTaskRefRequired
	}
	if !isAllDigits(args[0]) {
		return 0, fmt.Errorf("invalid task number: %s", args[0])
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid task number: %s", args[0])
	}
	return n, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// openTasks starts a controller for the session user and waits for the
// first snapshot. The caller must Stop the controller.
func openTasks(ctx context.Context, env *Env, opts ...controller.Option) (*controller.Controller, error) {
	c := controller.New(env.Backend.Store, env.Identity, opts...)
	if err := c.Start(ctx); err != nil {
		return nil, err
	}

	timeout := env.Config.Store.Timeout
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}
	select {
	case <-c.Ready():
		return c, nil
	case <-time.After(timeout):
		c.Stop()
		return nil, fmt.Errorf("no snapshot after %s: %w", timeout, context.DeadlineExceeded)
	case <-ctx.Done():
		c.Stop()
		return nil, ctx.Err()
	}
}

// taskAt resolves a 1-based task number against the current collection.
func taskAt(c *controller.Controller, n int) (service.Task, error) {
	tasks := c.Tasks()
	if n < 1 || n > len(tasks) {
		return service.Task{}, fmt.Errorf("task %d: %w", n, service.ErrNotFound)
	}
	return tasks[n-1], nil
}
