// Package notify delivers local alerts to a terminal.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"remindo/internal/logging"
	"remindo/internal/service"
)

// ErrDisabled is returned by Schedule when notifications are turned off.
var ErrDisabled = errors.New("notifications disabled")

// Option configures a Terminal.
type Option func(*Terminal)

// WithBell rings the terminal bell before each alert.
func WithBell(on bool) Option {
	return func(t *Terminal) { t.bell = on }
}

// WithEnabled turns delivery on or off. Disabled terminals deny permission.
func WithEnabled(on bool) Option {
	return func(t *Terminal) { t.enabled = on }
}

// Terminal writes alerts as single lines to a writer.
type Terminal struct {
	mu      sync.Mutex
	w       io.Writer
	bell    bool
	enabled bool
	pending map[*time.Timer]struct{}
	closed  bool
	log     zerolog.Logger
}

var _ service.Notifier = (*Terminal)(nil)

// New creates an enabled Terminal writing to w.
func New(w io.Writer, opts ...Option) *Terminal {
	t := &Terminal{
		w:       w,
		enabled: true,
		pending: make(map[*time.Timer]struct{}),
		log:     logging.For("notify"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RequestPermission implements service.Notifier.
func (t *Terminal) RequestPermission(ctx context.Context) (service.Permission, error) {
	if !t.enabled {
		return service.PermissionDenied, nil
	}
	return service.PermissionGranted, nil
}

// Schedule implements service.Notifier. Delivery happens on a timer
// goroutine; a non-positive lead delivers immediately.
func (t *Terminal) Schedule(ctx context.Context, n service.Notification, lead time.Duration) error {
	if !t.enabled {
		return ErrDisabled
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.New("notifier closed")
	}
	if lead <= 0 {
		return t.deliver(n)
	}

	var timer *time.Timer
	timer = time.AfterFunc(lead, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.pending, timer)
		if t.closed {
			return
		}
		if err := t.deliver(n); err != nil {
			t.log.Error().Err(err).Msg("failed to deliver notification")
		}
	})
	t.pending[timer] = struct{}{}
	t.log.Debug().Str("title", n.Title).Dur("lead", lead).Msg("notification scheduled")
	return nil
}

// deliver writes n. Caller holds mu.
func (t *Terminal) deliver(n service.Notification) error {
	prefix := ""
	if t.bell {
		prefix = "\a"
	}
	_, err := fmt.Fprintf(t.w, "%s%s\n", prefix, n)
	return err
}

// Pending returns the number of scheduled, undelivered alerts.
func (t *Terminal) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Close cancels undelivered alerts.
func (t *Terminal) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	for timer := range t.pending {
		timer.Stop()
	}
	t.pending = nil
	return nil
}
