package authflow_test

import (
	"context"
	"testing"
	"time"

	"remindo/internal/authflow"
	"remindo/internal/backend/memstore"
	"remindo/internal/controller"
	"remindo/internal/reminder"
	"remindo/internal/service"
	"remindo/internal/testutil"
)

// Amy registers, verifies, logs in, adds a task, sets a reminder for the
// next minute and gets exactly one notification.
func TestScenario_Amy(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 30, 15, 0, time.Local)
	clock := func() time.Time { return now }

	auth, mailer := testutil.NewAuth(t, clock)
	store := testutil.NewFakeStore(memstore.WithClock(clock))
	notifier := testutil.NewRecordingNotifier()
	flow := authflow.New(auth)

	if err := flow.Register(ctx, "Amy", "a@x.com", "abc123!"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if flow.State() != authflow.PendingVerification {
		t.Fatalf("State() = %v", flow.State())
	}

	m, ok := mailer.Last("verify")
	if !ok {
		t.Fatal("verification email not queued")
	}
	if err := auth.ApplyVerification(ctx, m.Code); err != nil {
		t.Fatalf("ApplyVerification() error = %v", err)
	}

	id, err := flow.Login(ctx, "a@x.com", "abc123!")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if id.DisplayName != "Amy" {
		t.Errorf("DisplayName = %q, want Amy", id.DisplayName)
	}

	ctrl := controller.New(store, id)
	if err := ctrl.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer ctrl.Stop()
	<-ctrl.Ready()
	if n := len(ctrl.Tasks()); n != 0 {
		t.Fatalf("new account has %d tasks", n)
	}

	ctrl.SetInput("Buy milk", nil)
	taskID, err := ctrl.Submit(ctx)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	waitTasks(t, ctrl, func(ts []service.Task) bool { return len(ts) == 1 && ts[0].Text == "Buy milk" })

	due := now.Truncate(time.Minute).Add(time.Minute)
	if err := ctrl.SetReminder(ctx, taskID, due); err != nil {
		t.Fatalf("SetReminder() error = %v", err)
	}
	waitTasks(t, ctrl, func(ts []service.Task) bool { return len(ts) == 1 && ts[0].HasReminder() })

	scanner := reminder.New(ctrl, notifier)
	scanner.Scan(ctx, now)
	scanner.Scan(ctx, due.Add(20*time.Second))
	scanner.Scan(ctx, due.Add(80*time.Second))

	sent := notifier.Sent()
	if len(sent) != 1 {
		t.Fatalf("notifications = %+v, want exactly one", sent)
	}
	if got := sent[0].Notification.String(); got != "Task Reminder: Buy milk" {
		t.Errorf("notification = %q", got)
	}

	if err := ctrl.Delete(ctx, taskID); err != nil {
		t.Fatal(err)
	}
	waitTasks(t, ctrl, func(ts []service.Task) bool { return len(ts) == 0 })
	if got := scanner.Scan(ctx, due); got != 0 {
		t.Errorf("deleted task still notified: %d", got)
	}

	if err := flow.Logout(ctx); err != nil {
		t.Fatal(err)
	}
}

func waitTasks(t *testing.T, c *controller.Controller, cond func([]service.Task) bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond(c.Tasks()) {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met, tasks = %+v", c.Tasks())
		}
		time.Sleep(2 * time.Millisecond)
	}
}
