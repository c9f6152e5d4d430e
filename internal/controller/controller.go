// Package controller mirrors a user's task collection from the store and
// writes edits through to it.
//
// The collection is never modified locally. Every write goes to the store
// and becomes visible only when the subscription delivers the next snapshot.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"remindo/internal/logging"
	"remindo/internal/service"
)

var (
	// ErrBlankText is returned when a task would be written with no text.
	ErrBlankText = errors.New("task text is blank")

	// ErrNotSignedIn is returned when no user identity is attached.
	ErrNotSignedIn = errors.New("not signed in")

	// ErrStarted is returned by Start on a running controller.
	ErrStarted = errors.New("controller already started")
)

// Draft is the pending input of the task form.
// A non-empty EditingID turns a submit into an update of that task.
type Draft struct {
	Text       string
	ReminderAt *time.Time
	EditingID  string
}

// Editing reports whether the draft targets an existing task.
func (d Draft) Editing() bool {
	return d.EditingID != ""
}

// Option configures a Controller.
type Option func(*Controller)

// OnSnapshot registers fn to run after each snapshot replaces the collection.
// fn runs on the pump goroutine.
func OnSnapshot(fn func(service.Snapshot)) Option {
	return func(c *Controller) { c.onSnapshot = fn }
}

// Controller owns the in-memory task collection of one signed-in user.
type Controller struct {
	store      service.Store
	id         service.Identity
	onSnapshot func(service.Snapshot)
	log        zerolog.Logger

	mu     sync.Mutex
	tasks  []service.Task
	input  Draft
	ready  chan struct{}
	sub    service.Subscription
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Controller for id. Call Start to begin mirroring.
func New(store service.Store, id service.Identity, opts ...Option) *Controller {
	c := &Controller{
		store: store,
		id:    id,
		ready: make(chan struct{}),
		log:   logging.For("controller").With().Str("user", id.UID).Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Identity returns the user the controller acts for.
func (c *Controller) Identity() service.Identity {
	return c.id
}

// Start opens the subscription. The collection follows the store until
// Stop is called or ctx is cancelled.
func (c *Controller) Start(ctx context.Context) error {
	if !c.id.SignedIn() {
		return ErrNotSignedIn
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub != nil {
		return ErrStarted
	}

	sub, err := c.store.Subscribe(ctx, c.id.UID)
	if err != nil {
		c.log.Error().Err(err).Msg("subscribe failed")
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.sub, c.cancel, c.done = sub, cancel, done
	go c.pump(ctx, sub, done)
	c.log.Debug().Msg("subscribed")
	return nil
}

func (c *Controller) pump(ctx context.Context, sub service.Subscription, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sub.Snapshots():
			if !ok {
				return
			}
			c.replace(snap)
		}
	}
}

func (c *Controller) replace(snap service.Snapshot) {
	c.mu.Lock()
	c.tasks = snap.Tasks
	select {
	case <-c.ready:
	default:
		close(c.ready)
	}
	c.mu.Unlock()

	c.log.Debug().Int("tasks", len(snap.Tasks)).Msg("snapshot")
	if c.onSnapshot != nil {
		c.onSnapshot(snap)
	}
}

// Stop releases the subscription and waits for the pump to exit. The
// collection is emptied. Safe to call more than once.
func (c *Controller) Stop() error {
	c.mu.Lock()
	sub, cancel, done := c.sub, c.cancel, c.done
	c.sub, c.cancel, c.done = nil, nil, nil
	c.mu.Unlock()

	if sub == nil {
		return nil
	}
	cancel()
	err := sub.Close()
	<-done

	c.mu.Lock()
	c.tasks = nil
	c.mu.Unlock()
	c.log.Debug().Msg("unsubscribed")
	return err
}

// Ready is closed once the first snapshot has arrived.
func (c *Controller) Ready() <-chan struct{} {
	return c.ready
}

// Tasks returns a copy of the current collection in store order.
func (c *Controller) Tasks() []service.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]service.Task(nil), c.tasks...)
}

// Task looks up a task in the current collection.
func (c *Controller) Task(id string) (service.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return service.Task{}, false
}

// SetInput replaces the pending text and reminder, keeping the edit target.
func (c *Controller) SetInput(text string, reminderAt *time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input.Text = text
	c.input.ReminderAt = reminderAt
}

// BeginEdit loads a task into the pending input.
func (c *Controller) BeginEdit(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tasks {
		if t.ID == id {
			c.input = Draft{Text: t.Text, ReminderAt: t.ReminderAt, EditingID: id}
			return nil
		}
	}
	return fmt.Errorf("task %s: %w", id, service.ErrNotFound)
}

// CancelEdit discards the pending input. The store is not touched.
func (c *Controller) CancelEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = Draft{}
}

// Input returns the pending input.
func (c *Controller) Input() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// Submit writes the pending input and clears it on success.
// On failure the input is left as it was.
func (c *Controller) Submit(ctx context.Context) (string, error) {
	d := c.Input()
	id, err := c.CreateOrUpdate(ctx, d)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.input = Draft{}
	c.mu.Unlock()
	return id, nil
}

// CreateOrUpdate writes d to the store and returns the task ID.
// Blank text or a missing identity fail without any store call.
func (c *Controller) CreateOrUpdate(ctx context.Context, d Draft) (string, error) {
	if service.Blank(d.Text) {
		return "", ErrBlankText
	}
	if !c.id.SignedIn() {
		return "", ErrNotSignedIn
	}

	p := service.TextPatch(d.Text, d.ReminderAt)
	if d.Editing() {
		if err := c.store.Update(ctx, c.id.UID, d.EditingID, p); err != nil {
			c.log.Error().Err(err).Str("task", d.EditingID).Msg("update failed")
			return "", fmt.Errorf("failed to update task: %w", err)
		}
		return d.EditingID, nil
	}

	id, err := c.store.Add(ctx, c.id.UID, p)
	if err != nil {
		c.log.Error().Err(err).Msg("add failed")
		return "", fmt.Errorf("failed to add task: %w", err)
	}
	c.log.Debug().Str("task", id).Msg("added")
	return id, nil
}

// Delete removes a task from the store.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if !c.id.SignedIn() {
		return ErrNotSignedIn
	}
	if err := c.store.Delete(ctx, c.id.UID, id); err != nil {
		c.log.Error().Err(err).Str("task", id).Msg("delete failed")
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// SetReminder writes only the reminder time of a task.
func (c *Controller) SetReminder(ctx context.Context, id string, at time.Time) error {
	return c.writeReminder(ctx, id, &at)
}

// ClearReminder removes the reminder of a task.
func (c *Controller) ClearReminder(ctx context.Context, id string) error {
	return c.writeReminder(ctx, id, nil)
}

func (c *Controller) writeReminder(ctx context.Context, id string, at *time.Time) error {
	if !c.id.SignedIn() {
		return ErrNotSignedIn
	}
	if err := c.store.Update(ctx, c.id.UID, id, service.ReminderPatch(at)); err != nil {
		c.log.Error().Err(err).Str("task", id).Msg("reminder update failed")
		return fmt.Errorf("failed to update reminder: %w", err)
	}
	return nil
}
