// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"remindo/internal/service"
)

const (
	// ListSeparator is the separator line between refreshed task lists.
	ListSeparator = "------------"

	// ReminderLayout renders a reminder due today.
	ReminderLayout = "03:04 PM"

	// ReminderDateLayout renders a reminder due on another day.
	ReminderDateLayout = "Jan 02 03:04 PM"
)

// FormatWelcome writes the greeting shown above the task list.
// Falls back to the email when no display name is set.
func FormatWelcome(w io.Writer, id service.Identity) {
	name := id.DisplayName
	if strings.TrimSpace(name) == "" {
		name = id.Email
	}
	fmt.Fprintf(w, "Welcome, %s!\n", name)
}

// FormatTask formats a task line.
// Format: "{N:>4}  {TEXT}" followed by "  [{REMINDER}]" when a reminder is set.
func FormatTask(w io.Writer, num int, task service.Task, now time.Time) {
	line := fmt.Sprintf("%4d  %s", num, normalizeText(task.Text))
	if task.ReminderAt != nil {
		line += "  [" + FormatReminder(*task.ReminderAt, now) + "]"
	}
	fmt.Fprintln(w, line)
}

// FormatSeparator writes ListSeparator.
func FormatSeparator(w io.Writer) {
	fmt.Fprintln(w, ListSeparator)
}

// FormatTasks formats every task, numbered from 1.
func FormatTasks(w io.Writer, tasks []service.Task, now time.Time) {
	for i, t := range tasks {
		FormatTask(w, i+1, t, now)
	}
}

// FormatReminder renders at in local time, with the date only when it is
// not on the same day as now.
func FormatReminder(at, now time.Time) string {
	at, now = at.Local(), now.Local()
	if sameDay(at, now) {
		return at.Format(ReminderLayout)
	}
	return at.Format(ReminderDateLayout)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// normalizeText normalizes a task text for display.
// - Empty or whitespace-only texts become "(untitled)"
// - Newlines are replaced with spaces
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, "\n", " ")

	if strings.TrimSpace(text) == "" {
		return "(untitled)"
	}
	return text
}
