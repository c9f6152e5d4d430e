package pgstore

import (
	"context"
	"os"
	"reflect"
	"testing"
	"time"

	"remindo/internal/service"
)

func TestUpdateClause(t *testing.T) {
	text := "Buy eggs"
	at := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		patch     service.Patch
		wantSets  []string
		wantCount int
	}{
		{"empty", service.Patch{}, nil, 0},
		{"text only", service.Patch{Text: &text}, []string{"text = $1"}, 1},
		{"reminder only", service.ReminderPatch(&at), []string{"reminder_at = $1"}, 1},
		{"clear reminder", service.ReminderPatch(nil), []string{"reminder_at = $1"}, 1},
		{"both", service.TextPatch(text, &at), []string{"text = $1", "reminder_at = $2"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sets, args := updateClause(tt.patch)
			if !reflect.DeepEqual(sets, tt.wantSets) {
				t.Errorf("sets: got %v, want %v", sets, tt.wantSets)
			}
			if len(args) != tt.wantCount {
				t.Errorf("args: got %d, want %d", len(args), tt.wantCount)
			}
		})
	}
}

// TestStore_Live runs against a real server when REMINDO_TEST_PG_URL is set.
func TestStore_Live(t *testing.T) {
	url := os.Getenv("REMINDO_TEST_PG_URL")
	if url == "" {
		t.Skip("REMINDO_TEST_PG_URL not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, url, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close(ctx)

	user := "live-" + time.Now().Format("150405.000000")
	sub, err := s.Subscribe(ctx, user)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	waitFor := func(n int) service.Snapshot {
		t.Helper()
		deadline := time.After(5 * time.Second)
		for {
			select {
			case snap := <-sub.Snapshots():
				if len(snap.Tasks) == n {
					return snap
				}
			case <-deadline:
				t.Fatalf("timed out waiting for %d tasks", n)
			}
		}
	}
	waitFor(0)

	id, err := s.Add(ctx, user, service.TextPatch("Buy milk", nil))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if snap := waitFor(1); snap.Tasks[0].ID != id {
		t.Errorf("unexpected task %+v", snap.Tasks[0])
	}
	if err := s.Delete(ctx, user, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	waitFor(0)
}
