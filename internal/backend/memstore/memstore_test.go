package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"remindo/internal/backend/memstore"
	"remindo/internal/service"
)

func next(t *testing.T, sub service.Subscription) service.Snapshot {
	t.Helper()
	select {
	case s, ok := <-sub.Snapshots():
		if !ok {
			t.Fatal("subscription closed")
		}
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return service.Snapshot{}
}

func TestStore_SubscribeDeliversInitialSnapshot(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	defer s.Close(ctx)

	if _, err := s.Add(ctx, "amy", service.TextPatch("Buy milk", nil)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	sub, err := s.Subscribe(ctx, "amy")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	snap := next(t, sub)
	if snap.UserID != "amy" || len(snap.Tasks) != 1 || snap.Tasks[0].Text != "Buy milk" {
		t.Errorf("unexpected initial snapshot %+v", snap)
	}
}

func TestStore_WritesPropagate(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	defer s.Close(ctx)

	sub, err := s.Subscribe(ctx, "amy")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()
	if snap := next(t, sub); len(snap.Tasks) != 0 {
		t.Fatalf("expected empty collection, got %d tasks", len(snap.Tasks))
	}

	id, err := s.Add(ctx, "amy", service.TextPatch("Buy milk", nil))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	snap := next(t, sub)
	if len(snap.Tasks) != 1 || snap.Tasks[0].ID != id {
		t.Fatalf("expected new task %s in snapshot, got %+v", id, snap.Tasks)
	}

	at := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	if err := s.Update(ctx, "amy", id, service.ReminderPatch(&at)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	snap = next(t, sub)
	if snap.Tasks[0].ReminderAt == nil || !snap.Tasks[0].ReminderAt.Equal(at) {
		t.Errorf("expected reminder %v, got %v", at, snap.Tasks[0].ReminderAt)
	}
	if snap.Tasks[0].Text != "Buy milk" {
		t.Errorf("reminder update changed text to %q", snap.Tasks[0].Text)
	}

	if err := s.Delete(ctx, "amy", id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if snap = next(t, sub); len(snap.Tasks) != 0 {
		t.Errorf("expected task removed, got %+v", snap.Tasks)
	}
}

func TestStore_UsersAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	defer s.Close(ctx)

	sub, err := s.Subscribe(ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	next(t, sub)

	if _, err := s.Add(ctx, "amy", service.TextPatch("Amy's task", nil)); err != nil {
		t.Fatal(err)
	}
	select {
	case snap := <-sub.Snapshots():
		t.Fatalf("bob received amy's change: %+v", snap)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStore_UnknownTask(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	defer s.Close(ctx)

	if err := s.Update(ctx, "amy", "missing", service.TextPatch("x", nil)); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Update: expected ErrNotFound, got %v", err)
	}
	if err := s.Delete(ctx, "amy", "missing"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Delete: expected ErrNotFound, got %v", err)
	}
}

func TestStore_CloseEndsSubscriptions(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	sub, err := s.Subscribe(ctx, "amy")
	if err != nil {
		t.Fatal(err)
	}
	next(t, sub)

	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := <-sub.Snapshots(); ok {
		t.Error("expected subscription channel closed")
	}
	if _, err := s.Add(ctx, "amy", service.TextPatch("late", nil)); !errors.Is(err, service.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Errorf("closing an already closed subscription: %v", err)
	}
}

func TestStore_ClosedSubscriptionStopsReceiving(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	defer s.Close(ctx)

	sub, err := s.Subscribe(ctx, "amy")
	if err != nil {
		t.Fatal(err)
	}
	sub.Close()

	// Writing after unsubscribe must not panic on the closed channel.
	if _, err := s.Add(ctx, "amy", service.TextPatch("after", nil)); err != nil {
		t.Fatalf("Add: %v", err)
	}
}
