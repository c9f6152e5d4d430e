package notify

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"remindo/internal/service"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var reminder = service.Notification{Title: "Task Reminder", Body: "Buy milk"}

func TestRequestPermission(t *testing.T) {
	ctx := context.Background()

	got, err := New(&syncBuffer{}).RequestPermission(ctx)
	if err != nil || got != service.PermissionGranted {
		t.Errorf("enabled: got %q, %v", got, err)
	}

	got, err = New(&syncBuffer{}, WithEnabled(false)).RequestPermission(ctx)
	if err != nil || got != service.PermissionDenied {
		t.Errorf("disabled: got %q, %v", got, err)
	}
}

func TestSchedule_Immediate(t *testing.T) {
	buf := &syncBuffer{}
	n := New(buf, WithBell(true))

	if err := n.Schedule(context.Background(), reminder, 0); err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if got, want := buf.String(), "\aTask Reminder: Buy milk\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestSchedule_AfterLead(t *testing.T) {
	buf := &syncBuffer{}
	n := New(buf)

	if err := n.Schedule(context.Background(), reminder, 20*time.Millisecond); err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if buf.String() != "" {
		t.Error("delivered before lead elapsed")
	}

	deadline := time.Now().Add(2 * time.Second)
	for buf.String() == "" && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got, want := buf.String(), "Task Reminder: Buy milk\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	if n.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", n.Pending())
	}
}

func TestSchedule_Disabled(t *testing.T) {
	n := New(&syncBuffer{}, WithEnabled(false))
	if err := n.Schedule(context.Background(), reminder, 0); !errors.Is(err, ErrDisabled) {
		t.Errorf("Schedule() error = %v, want ErrDisabled", err)
	}
}

func TestClose_CancelsPending(t *testing.T) {
	buf := &syncBuffer{}
	n := New(buf)

	n.Schedule(context.Background(), reminder, time.Hour)
	if n.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1", n.Pending())
	}
	n.Close()
	n.Close()

	if n.Pending() != 0 {
		t.Errorf("Pending() after Close = %d", n.Pending())
	}
	if err := n.Schedule(context.Background(), reminder, 0); err == nil {
		t.Error("expected error after Close")
	}
	if buf.String() != "" {
		t.Errorf("output = %q, want empty", buf.String())
	}
}
