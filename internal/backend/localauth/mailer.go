package localauth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"remindo/internal/logging"
)

// Message is an outgoing email.
type Message struct {
	To      string
	Subject string
	Body    string

	// Kind is "verify" or "reset".
	Kind string
	// Code is the action code embedded in the body.
	Code string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// Outbox is a Mailer that drops each message into a directory as a text file.
type Outbox struct {
	Dir string
	log zerolog.Logger
}

// NewOutbox creates an Outbox writing into dir.
func NewOutbox(dir string) *Outbox {
	return &Outbox{Dir: dir, log: logging.For("outbox")}
}

// Send implements Mailer.
func (o *Outbox) Send(ctx context.Context, m Message) error {
	if err := os.MkdirAll(o.Dir, 0700); err != nil {
		return fmt.Errorf("failed to create outbox: %w", err)
	}
	name := fmt.Sprintf("%s-%s-%s.txt",
		time.Now().UTC().Format("20060102T150405.000000000"), m.Kind, sanitize(m.To))
	path := filepath.Join(o.Dir, name)

	content := fmt.Sprintf("To: %s\nSubject: %s\n\n%s\n", m.To, m.Subject, m.Body)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return err
	}
	o.log.Info().Str("to", m.To).Str("kind", m.Kind).Str("path", path).Msg("message queued")
	return nil
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		case r == '@':
			return '_'
		default:
			return -1
		}
	}, s)
}
