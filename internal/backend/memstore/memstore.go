// Package memstore implements service.Store in process memory with live
// subscriptions. It backs the "memory" store type and the tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"remindo/internal/backend/feed"
	"remindo/internal/logging"
	"remindo/internal/service"
)

// Store is an in-memory real-time task store.
type Store struct {
	mu     sync.Mutex
	users  map[string]*collection
	closed bool
	now    func() time.Time
	log    zerolog.Logger
}

type collection struct {
	tasks []service.Task
	subs  map[*feed.Feed]struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for CreatedAt and snapshot times.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		users: make(map[string]*collection),
		now:   time.Now,
		log:   logging.For("memstore"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) collection(userID string) *collection {
	c, ok := s.users[userID]
	if !ok {
		c = &collection{subs: make(map[*feed.Feed]struct{})}
		s.users[userID] = c
	}
	return c
}

// broadcast pushes the current state to every subscriber. Caller holds s.mu.
func (s *Store) broadcast(userID string, c *collection) {
	snap := feed.Snapshot(userID, c.tasks, s.now())
	for f := range c.subs {
		f.Push(snap)
	}
	s.log.Debug().Str("user", userID).Int("tasks", len(c.tasks)).Int("subs", len(c.subs)).Msg("broadcast")
}

// Subscribe implements service.Store.
func (s *Store) Subscribe(ctx context.Context, userID string) (service.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, service.ErrClosed
	}

	c := s.collection(userID)
	var f *feed.Feed
	f = feed.New(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(c.subs, f)
	})
	c.subs[f] = struct{}{}
	f.Push(feed.Snapshot(userID, c.tasks, s.now()))
	return f, nil
}

// Add implements service.Store.
func (s *Store) Add(ctx context.Context, userID string, p service.Patch) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", service.ErrClosed
	}

	t := service.Task{ID: xid.New().String(), CreatedAt: s.now()}
	p.Apply(&t)
	c := s.collection(userID)
	c.tasks = append(c.tasks, t)
	s.broadcast(userID, c)
	return t.ID, nil
}

// Update implements service.Store.
func (s *Store) Update(ctx context.Context, userID, taskID string, p service.Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return service.ErrClosed
	}

	c := s.collection(userID)
	for i := range c.tasks {
		if c.tasks[i].ID == taskID {
			p.Apply(&c.tasks[i])
			s.broadcast(userID, c)
			return nil
		}
	}
	return service.ErrNotFound
}

// Delete implements service.Store.
func (s *Store) Delete(ctx context.Context, userID, taskID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return service.ErrClosed
	}

	c := s.collection(userID)
	for i, t := range c.tasks {
		if t.ID == taskID {
			c.tasks = append(c.tasks[:i:i], c.tasks[i+1:]...)
			s.broadcast(userID, c)
			return nil
		}
	}
	return service.ErrNotFound
}

// Close implements service.Store. Open subscriptions are closed.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	var feeds []*feed.Feed
	for _, c := range s.users {
		for f := range c.subs {
			feeds = append(feeds, f)
		}
	}
	s.mu.Unlock()

	for _, f := range feeds {
		f.Close()
	}
	return nil
}
