package service

import (
	"context"
	"time"
)

// Store is the per-user task document store.
// Commands and controllers never import a database driver directly.
type Store interface {
	// Subscribe opens a live view of the user's tasks. The first snapshot is
	// delivered immediately; every later add, update or delete produces a new one.
	// The caller must Close the subscription.
	Subscribe(ctx context.Context, userID string) (Subscription, error)

	// Add creates a task and returns the store-assigned ID.
	Add(ctx context.Context, userID string, p Patch) (string, error)

	// Update writes the patch onto an existing task.
	// Returns ErrNotFound for an unknown ID.
	Update(ctx context.Context, userID, taskID string, p Patch) error

	// Delete removes a task.
	// Returns ErrNotFound for an unknown ID.
	Delete(ctx context.Context, userID, taskID string) error

	// Close releases the store connection.
	Close(ctx context.Context) error
}

// Subscription is a cancellable stream of snapshots.
type Subscription interface {
	// Snapshots delivers full snapshots. A reader that falls behind only
	// sees the most recent one. The channel is closed by Close.
	Snapshots() <-chan Snapshot

	// Close stops delivery. Safe to call more than once.
	Close() error
}

// Auth is the email/password identity provider.
type Auth interface {
	SignUp(ctx context.Context, email, password string) (Identity, error)
	SignIn(ctx context.Context, email, password string) (Identity, error)
	SignOut(ctx context.Context, id Identity) error
	SendVerification(ctx context.Context, id Identity) error

	// SendPasswordReset never discloses whether the email is registered.
	SendPasswordReset(ctx context.Context, email string) error

	UpdateProfile(ctx context.Context, id Identity, displayName string) (Identity, error)

	// Resume restores the identity behind a session token.
	Resume(ctx context.Context, token string) (Identity, error)
}

// ActionCodes completes the out-of-band links sent by the Auth collaborator.
type ActionCodes interface {
	ApplyVerification(ctx context.Context, code string) error
	ConfirmPasswordReset(ctx context.Context, code, newPassword string) error
}

// Notifier delivers local alerts.
type Notifier interface {
	RequestPermission(ctx context.Context) (Permission, error)

	// Schedule fires n once after lead has elapsed.
	Schedule(ctx context.Context, n Notification, lead time.Duration) error
}
