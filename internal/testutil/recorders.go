package testutil

import (
	"context"
	"sync"
	"time"

	"remindo/internal/backend/localauth"
	"remindo/internal/service"
)

// Scheduled is a notification captured by RecordingNotifier.
type Scheduled struct {
	Notification service.Notification
	Lead         time.Duration
}

// RecordingNotifier captures scheduled notifications instead of delivering them.
type RecordingNotifier struct {
	mu   sync.Mutex
	sent []Scheduled

	// Permission is returned by RequestPermission. Defaults to granted.
	Permission  service.Permission
	ScheduleErr error
}

// NewRecordingNotifier creates a notifier that grants permission.
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{Permission: service.PermissionGranted}
}

// RequestPermission implements service.Notifier.
func (r *RecordingNotifier) RequestPermission(ctx context.Context) (service.Permission, error) {
	return r.Permission, nil
}

// Schedule implements service.Notifier.
func (r *RecordingNotifier) Schedule(ctx context.Context, n service.Notification, lead time.Duration) error {
	if r.ScheduleErr != nil {
		return r.ScheduleErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Scheduled{Notification: n, Lead: lead})
	return nil
}

// Sent returns everything scheduled so far.
func (r *RecordingNotifier) Sent() []Scheduled {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Scheduled(nil), r.sent...)
}

// RecordingMailer captures outgoing messages.
type RecordingMailer struct {
	mu   sync.Mutex
	sent []localauth.Message
}

// Send implements localauth.Mailer.
func (r *RecordingMailer) Send(ctx context.Context, m localauth.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, m)
	return nil
}

// Sent returns every message sent so far.
func (r *RecordingMailer) Sent() []localauth.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]localauth.Message(nil), r.sent...)
}

// Last returns the most recent message with the given kind.
func (r *RecordingMailer) Last(kind string) (localauth.Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.sent) - 1; i >= 0; i-- {
		if r.sent[i].Kind == kind {
			return r.sent[i], true
		}
	}
	return localauth.Message{}, false
}
