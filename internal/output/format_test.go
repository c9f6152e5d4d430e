package output

import (
	"bytes"
	"testing"
	"time"

	"remindo/internal/service"
	"remindo/internal/testutil"
)

func TestFormatTasks(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local)
	today := time.Date(2024, 3, 1, 10, 5, 0, 0, time.Local)
	later := time.Date(2024, 3, 4, 18, 0, 0, 0, time.Local)

	tasks := []service.Task{
		{ID: "a", Text: "Buy milk"},
		{ID: "b", Text: "Call\nmom", ReminderAt: &today},
		{ID: "c", Text: "Pay rent", ReminderAt: &later},
		{ID: "d", Text: "   "},
	}

	var buf bytes.Buffer
	FormatTasks(&buf, tasks, now)
	testutil.GoldenString(t, "tasks", buf.String())
}

func TestFormatWelcome(t *testing.T) {
	tests := []struct {
		id   service.Identity
		want string
	}{
		{service.Identity{DisplayName: "Amy", Email: "a@x.com"}, "Welcome, Amy!\n"},
		{service.Identity{Email: "a@x.com"}, "Welcome, a@x.com!\n"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		FormatWelcome(&buf, tt.id)
		if buf.String() != tt.want {
			t.Errorf("FormatWelcome(%+v) = %q, want %q", tt.id, buf.String(), tt.want)
		}
	}
}

func TestFormatReminder(t *testing.T) {
	now := time.Date(2024, 3, 1, 23, 0, 0, 0, time.Local)
	if got := FormatReminder(time.Date(2024, 3, 1, 23, 59, 0, 0, time.Local), now); got != "11:59 PM" {
		t.Errorf("same day = %q", got)
	}
	if got := FormatReminder(time.Date(2024, 3, 2, 0, 1, 0, 0, time.Local), now); got != "Mar 02 12:01 AM" {
		t.Errorf("next day = %q", got)
	}
}
