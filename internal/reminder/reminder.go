// Package reminder periodically checks task reminder times and schedules
// local notifications for the ones that are due.
package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"remindo/internal/logging"
	"remindo/internal/service"
)

const (
	// DefaultInterval is the time between scans.
	DefaultInterval = time.Minute

	// DefaultTitle is the notification title.
	DefaultTitle = "Task Reminder"

	// DefaultLead is the delay handed to the notifier.
	DefaultLead = time.Second
)

// Policy decides when a reminder is due.
type Policy int

const (
	// ExactMinute fires when the reminder and the scan fall in the same
	// wall-clock minute. A minute that no scan observes never fires.
	ExactMinute Policy = iota

	// CatchUp fires every reminder that came due since the scanner started
	// and has not fired yet in this process.
	CatchUp
)

// ParsePolicy parses "exact-minute" or "catch-up".
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "exact-minute", "":
		return ExactMinute, nil
	case "catch-up":
		return CatchUp, nil
	default:
		return 0, fmt.Errorf("unknown reminder policy: %s", s)
	}
}

func (p Policy) String() string {
	if p == CatchUp {
		return "catch-up"
	}
	return "exact-minute"
}

// Source provides the tasks to check.
type Source interface {
	Tasks() []service.Task
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithInterval sets the time between scans.
func WithInterval(d time.Duration) Option {
	return func(s *Scanner) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithPolicy sets the due policy.
func WithPolicy(p Policy) Option {
	return func(s *Scanner) { s.policy = p }
}

// WithClock overrides the time source used by Run.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) { s.now = now }
}

// WithTitle sets the notification title.
func WithTitle(title string) Option {
	return func(s *Scanner) {
		if title != "" {
			s.title = title
		}
	}
}

// WithLead sets the delay passed to the notifier.
func WithLead(d time.Duration) Option {
	return func(s *Scanner) { s.lead = d }
}

// Scanner matches reminder times against the clock.
type Scanner struct {
	source   Source
	notifier service.Notifier
	interval time.Duration
	policy   Policy
	now      func() time.Time
	title    string
	lead     time.Duration
	log      zerolog.Logger

	mu    sync.Mutex
	since time.Time
	fired map[firedKey]struct{}
}

type firedKey struct {
	task string
	at   int64
}

// New creates a Scanner reading tasks from source.
func New(source Source, notifier service.Notifier, opts ...Option) *Scanner {
	s := &Scanner{
		source:   source,
		notifier: notifier,
		interval: DefaultInterval,
		now:      time.Now,
		title:    DefaultTitle,
		lead:     DefaultLead,
		log:      logging.For("reminder"),
		fired:    make(map[firedKey]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Interval returns the time between scans.
func (s *Scanner) Interval() time.Duration {
	return s.interval
}

// Run scans once per interval until ctx is done. The first scan happens
// one interval after Run is called.
func (s *Scanner) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Debug().Dur("interval", s.interval).Stringer("policy", s.policy).Msg("scanner started")
	for {
		select {
		case <-ctx.Done():
			s.log.Debug().Msg("scanner stopped")
			return nil
		case <-ticker.C:
			s.Scan(ctx, s.now())
		}
	}
}

// Scan checks every task once against now and returns the number of
// notifications handed to the notifier.
func (s *Scanner) Scan(ctx context.Context, now time.Time) int {
	tasks := s.source.Tasks()

	s.mu.Lock()
	if s.since.IsZero() {
		s.since = now.Add(-s.interval)
	}
	s.mu.Unlock()

	scheduled := 0
	live := make(map[firedKey]struct{}, len(tasks))
	for _, t := range tasks {
		if t.ReminderAt == nil {
			continue
		}
		key := firedKey{task: t.ID, at: t.ReminderAt.UnixNano()}
		live[key] = struct{}{}
		if !s.due(key, *t.ReminderAt, now) {
			continue
		}

		n := service.Notification{Title: s.title, Body: t.Text}
		if err := s.notifier.Schedule(ctx, n, s.lead); err != nil {
			s.log.Warn().Err(err).Str("task", t.ID).Msg("failed to schedule notification")
			continue
		}
		s.mu.Lock()
		s.fired[key] = struct{}{}
		s.mu.Unlock()
		s.log.Info().Str("task", t.ID).Time("at", *t.ReminderAt).Msg("reminder fired")
		scheduled++
	}

	s.mu.Lock()
	for key := range s.fired {
		if _, ok := live[key]; !ok {
			delete(s.fired, key)
		}
	}
	s.mu.Unlock()
	return scheduled
}

// due reports whether a reminder at at should fire on a scan at now.
// A (task, reminder time) pair fires at most once per process, so scans
// closer together than a minute do not repeat an ExactMinute alert.
func (s *Scanner) due(key firedKey, at, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.fired[key]; ok {
		return false
	}
	if s.policy == ExactMinute {
		return at.Truncate(time.Minute).Equal(now.Truncate(time.Minute))
	}
	return !at.After(now) && at.After(s.since)
}
