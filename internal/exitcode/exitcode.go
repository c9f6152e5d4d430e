// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, validation, unknown task).
	UserError = 1

	// AuthError indicates a sign-in, verification or session error.
	AuthError = 2

	// BackendError indicates a store, notification or network error.
	BackendError = 3
)
