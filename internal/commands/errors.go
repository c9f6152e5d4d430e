package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"remindo/internal/authflow"
	"remindo/internal/controller"
	"remindo/internal/exitcode"
	"remindo/internal/service"
)

// fail reports err on errOut and returns the matching exit code.
func fail(errOut io.Writer, err error) int {
	var flowErr *authflow.Error
	switch {
	case errors.As(err, &flowErr):
		fmt.Fprintf(errOut, "error: %s\n", flowErr.Message)
		if flowErr.Kind == authflow.Validation {
			return exitcode.UserError
		}
		return exitcode.AuthError
	case errors.Is(err, controller.ErrBlankText):
		fmt.Fprintln(errOut, "error: task text required")
		return exitcode.UserError
	case errors.Is(err, controller.ErrNotSignedIn):
		fmt.Fprintln(errOut, "error: not logged in (run: remindo login)")
		return exitcode.AuthError
	case errors.Is(err, service.ErrNotFound):
		fmt.Fprintln(errOut, "error: task not found")
		return exitcode.UserError
	case service.AuthCode(err) != "":
		fmt.Fprintf(errOut, "error: %s\n", authflow.Message(service.AuthCode(err)))
		return exitcode.AuthError
	case errors.Is(err, context.DeadlineExceeded):
		fmt.Fprintln(errOut, "error: backend error: timed out")
		return exitcode.BackendError
	default:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}
}

// info prints an informational line unless --quiet is set.
func info(env *Env, out io.Writer, format string, args ...any) {
	if env.Config.Quiet {
		return
	}
	fmt.Fprintf(out, format+"\n", args...)
}
