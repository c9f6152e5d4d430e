package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"remindo/internal/authflow"
	"remindo/internal/exitcode"
	"remindo/internal/service"
)

func init() {
	Register(&VerifyCmd{})
	Register(&ResetPasswordCmd{})
}

// VerifyCmd implements the verify command.
type VerifyCmd struct{}

func (c *VerifyCmd) Name() string          { return "verify" }
func (c *VerifyCmd) Aliases() []string     { return nil }
func (c *VerifyCmd) Synopsis() string      { return "Confirm an email address" }
func (c *VerifyCmd) Usage() string         { return "remindo verify <code>" }
func (c *VerifyCmd) Requires() Requirement { return NeedsBackend }

func (c *VerifyCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *VerifyCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "error: verification code required")
		return exitcode.UserError
	}
	if err := env.Backend.Actions.ApplyVerification(ctx, args[0]); err != nil {
		return failAction(errOut, err)
	}
	info(env, out, "Your email has been verified. You can now log in.")
	return exitcode.Success
}

// ResetPasswordCmd implements the reset-password command.
type ResetPasswordCmd struct {
	password string
}

func (c *ResetPasswordCmd) Name() string          { return "reset-password" }
func (c *ResetPasswordCmd) Aliases() []string     { return nil }
func (c *ResetPasswordCmd) Synopsis() string      { return "Set a new password from a reset code" }
func (c *ResetPasswordCmd) Usage() string         { return "remindo reset-password --password <pw> <code>" }
func (c *ResetPasswordCmd) Requires() Requirement { return NeedsBackend }

func (c *ResetPasswordCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.password, "password", "", "")
}

func (c *ResetPasswordCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "error: reset code required")
		return exitcode.UserError
	}
	if !authflow.ValidPassword(c.password) {
		fmt.Fprintf(errOut, "error: %s\n", authflow.MsgWeakPassword)
		return exitcode.UserError
	}
	if err := env.Backend.Actions.ConfirmPasswordReset(ctx, args[0], c.password); err != nil {
		return failAction(errOut, err)
	}
	info(env, out, "Your password has been changed. You can now log in with your new password.")
	return exitcode.Success
}

// failAction reports a rejected verification or reset code.
func failAction(errOut io.Writer, err error) int {
	switch service.AuthCode(err) {
	case service.CodeInvalidActionCode, service.CodeUserNotFound:
		fmt.Fprintf(errOut, "error: %s\n", authflow.MsgInvalidLink)
		return exitcode.AuthError
	}
	return fail(errOut, err)
}
