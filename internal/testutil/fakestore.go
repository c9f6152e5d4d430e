// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"sync"
	"time"

	"remindo/internal/backend/memstore"
	"remindo/internal/service"
)

// FakeStore is an in-memory service.Store with error injection and write
// counters.
type FakeStore struct {
	*memstore.Store

	mu      sync.Mutex
	adds    int
	updates int
	deletes int

	// Error injection for testing
	SubscribeErr error
	AddErr       error
	UpdateErr    error
	DeleteErr    error
}

// NewFakeStore creates an empty FakeStore.
func NewFakeStore(opts ...memstore.Option) *FakeStore {
	return &FakeStore{Store: memstore.New(opts...)}
}

// Subscribe implements service.Store.
func (f *FakeStore) Subscribe(ctx context.Context, userID string) (service.Subscription, error) {
	if f.SubscribeErr != nil {
		return nil, f.SubscribeErr
	}
	return f.Store.Subscribe(ctx, userID)
}

// Add implements service.Store.
func (f *FakeStore) Add(ctx context.Context, userID string, p service.Patch) (string, error) {
	f.mu.Lock()
	f.adds++
	f.mu.Unlock()
	if f.AddErr != nil {
		return "", f.AddErr
	}
	return f.Store.Add(ctx, userID, p)
}

// Update implements service.Store.
func (f *FakeStore) Update(ctx context.Context, userID, taskID string, p service.Patch) error {
	f.mu.Lock()
	f.updates++
	f.mu.Unlock()
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	return f.Store.Update(ctx, userID, taskID, p)
}

// Delete implements service.Store.
func (f *FakeStore) Delete(ctx context.Context, userID, taskID string) error {
	f.mu.Lock()
	f.deletes++
	f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	return f.Store.Delete(ctx, userID, taskID)
}

// Writes returns the number of Add, Update and Delete calls, failed or not.
func (f *FakeStore) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.adds + f.updates + f.deletes
}

// Seed adds a task directly and returns its ID. Seeding is not counted as a write.
func (f *FakeStore) Seed(userID, text string, reminderAt *time.Time) string {
	id, err := f.Store.Add(context.Background(), userID, service.TextPatch(text, reminderAt))
	if err != nil {
		panic(err)
	}
	return id
}

// Get returns the stored task with the given ID.
func (f *FakeStore) Get(userID, taskID string) (service.Task, bool) {
	for _, t := range f.List(userID) {
		if t.ID == taskID {
			return t, true
		}
	}
	return service.Task{}, false
}

// List returns the stored tasks of userID.
func (f *FakeStore) List(userID string) []service.Task {
	sub, err := f.Store.Subscribe(context.Background(), userID)
	if err != nil {
		panic(err)
	}
	defer sub.Close()
	return (<-sub.Snapshots()).Tasks
}
