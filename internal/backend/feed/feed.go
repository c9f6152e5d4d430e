// Package feed implements the coalescing snapshot subscription shared by
// the store backends.
package feed

import (
	"sync"
	"time"

	"remindo/internal/service"
)

// Feed is a service.Subscription whose channel holds at most one pending
// snapshot. Pushing replaces an unread snapshot, so a slow reader always
// sees the latest state.
type Feed struct {
	mu     sync.Mutex
	ch     chan service.Snapshot
	done   chan struct{}
	closed bool
	stop   func()
}

// New creates a Feed. stop runs once, after the channel is closed, to
// release whatever produces the snapshots.
func New(stop func()) *Feed {
	return &Feed{
		ch:   make(chan service.Snapshot, 1),
		done: make(chan struct{}),
		stop: stop,
	}
}

// Snapshots implements service.Subscription.
func (f *Feed) Snapshots() <-chan service.Snapshot {
	return f.ch
}

// Done is closed when the feed is closed.
func (f *Feed) Done() <-chan struct{} {
	return f.done
}

// Push offers a snapshot. Returns false if the feed is closed.
func (f *Feed) Push(s service.Snapshot) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	select {
	case <-f.ch:
	default:
	}
	f.ch <- s
	return true
}

// Close implements service.Subscription.
func (f *Feed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	close(f.ch)
	close(f.done)
	stop := f.stop
	f.mu.Unlock()

	if stop != nil {
		stop()
	}
	return nil
}

// Snapshot builds a snapshot holding deep copies of tasks.
func Snapshot(userID string, tasks []service.Task, at time.Time) service.Snapshot {
	return service.Snapshot{UserID: userID, Tasks: CopyTasks(tasks), At: at}
}

// CopyTasks returns a deep copy of tasks.
func CopyTasks(tasks []service.Task) []service.Task {
	out := make([]service.Task, len(tasks))
	for i, t := range tasks {
		if t.ReminderAt != nil {
			at := *t.ReminderAt
			t.ReminderAt = &at
		}
		out[i] = t
	}
	return out
}
