// Package service defines the backend-agnostic contracts for task storage,
// authentication and notification delivery.
package service

import (
	"strings"
	"time"
)

// Task represents a single to-do item.
type Task struct {
	ID         string
	Text       string
	ReminderAt *time.Time // nil means no reminder
	CreatedAt  time.Time
}

// HasReminder reports whether a reminder time is set.
func (t Task) HasReminder() bool {
	return t.ReminderAt != nil
}

// Patch describes a partial write to a task document.
// Text is written when non-nil. Reminder is written only when SetReminder
// is true; a nil Reminder then clears the stored value.
type Patch struct {
	Text        *string
	SetReminder bool
	Reminder    *time.Time
}

// TextPatch returns a patch writing text and reminder together.
func TextPatch(text string, reminder *time.Time) Patch {
	return Patch{Text: &text, SetReminder: true, Reminder: reminder}
}

// ReminderPatch returns a patch touching only the reminder field.
func ReminderPatch(reminder *time.Time) Patch {
	return Patch{SetReminder: true, Reminder: reminder}
}

// Apply writes the patch onto t.
func (p Patch) Apply(t *Task) {
	if p.Text != nil {
		t.Text = *p.Text
	}
	if p.SetReminder {
		if p.Reminder == nil {
			t.ReminderAt = nil
		} else {
			at := *p.Reminder
			t.ReminderAt = &at
		}
	}
}

// Blank reports whether s has no visible characters.
func Blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Snapshot is the full point-in-time task collection of one user.
type Snapshot struct {
	UserID string
	Tasks  []Task
	At     time.Time
}

// Identity is a user as issued by the Auth collaborator.
type Identity struct {
	UID           string
	Email         string
	DisplayName   string
	EmailVerified bool

	// Token resumes the session in a later process.
	Token string
}

// SignedIn reports whether the identity refers to a user.
func (id Identity) SignedIn() bool {
	return id.UID != ""
}

// Permission is the result of a notification permission request.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Notification is a local alert.
type Notification struct {
	Title string
	Body  string
}

// String renders the notification as a single line.
func (n Notification) String() string {
	if n.Body == "" {
		return n.Title
	}
	return n.Title + ": " + n.Body
}
