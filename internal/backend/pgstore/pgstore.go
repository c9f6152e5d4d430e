// Package pgstore implements service.Store on PostgreSQL. Writes notify the
// tasks channel in the same transaction; subscribers LISTEN on a dedicated
// connection and re-read the user's tasks on every notification.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"remindo/internal/backend/feed"
	"remindo/internal/logging"
	"remindo/internal/service"
)

const (
	// NotifyChannel carries the user ID of every changed collection.
	NotifyChannel = "remindo_tasks"

	// DefaultTimeout bounds each round trip.
	DefaultTimeout = 5 * time.Second
)

const schema = `
create table if not exists tasks (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	text TEXT NOT NULL,
	reminder_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL
);
create index if not exists tasks_user_created_idx on tasks (user_id, created_at);
`

// Store is a PostgreSQL-backed task store.
type Store struct {
	pool    *pgxpool.Pool
	timeout time.Duration
	log     zerolog.Logger
}

// Open connects to url and creates the schema if missing.
func Open(ctx context.Context, url string, timeout time.Duration) (*Store, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	s := &Store{pool: pool, timeout: timeout, log: logging.For("pgstore")}
	initCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := pool.Exec(initCtx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return s, nil
}

// Close implements service.Store.
func (s *Store) Close(ctx context.Context) error {
	s.pool.Close()
	return nil
}

// Add implements service.Store.
func (s *Store) Add(ctx context.Context, userID string, p service.Patch) (string, error) {
	t := service.Task{ID: uuid.NewString(), CreatedAt: time.Now().UTC()}
	p.Apply(&t)

	err := s.notifying(ctx, userID, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			"insert into tasks (id, user_id, text, reminder_at, created_at) values ($1, $2, $3, $4, $5)",
			t.ID, userID, t.Text, t.ReminderAt, t.CreatedAt)
		return err
	})
	if err != nil {
		return "", err
	}
	return t.ID, nil
}

// Update implements service.Store.
func (s *Store) Update(ctx context.Context, userID, taskID string, p service.Patch) error {
	sets, args := updateClause(p)
	if len(sets) == 0 {
		return nil
	}
	args = append(args, taskID, userID)
	sql := fmt.Sprintf("update tasks set %s where id = $%d and user_id = $%d",
		strings.Join(sets, ", "), len(args)-1, len(args))

	return s.notifying(ctx, userID, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return service.ErrNotFound
		}
		return nil
	})
}

// updateClause renders the SET assignments for p.
func updateClause(p service.Patch) ([]string, []any) {
	var sets []string
	var args []any
	if p.Text != nil {
		args = append(args, *p.Text)
		sets = append(sets, fmt.Sprintf("text = $%d", len(args)))
	}
	if p.SetReminder {
		args = append(args, p.Reminder)
		sets = append(sets, fmt.Sprintf("reminder_at = $%d", len(args)))
	}
	return sets, args
}

// Delete implements service.Store.
func (s *Store) Delete(ctx context.Context, userID, taskID string) error {
	return s.notifying(ctx, userID, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "delete from tasks where id = $1 and user_id = $2", taskID, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return service.ErrNotFound
		}
		return nil
	})
}

// notifying runs fn in a transaction that also notifies the user's subscribers.
// The notification is delivered on commit.
func (s *Store) notifying(ctx context.Context, userID string, fn func(context.Context, pgx.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "select pg_notify($1, $2)", NotifyChannel, userID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Subscribe implements service.Store.
func (s *Store) Subscribe(ctx context.Context, userID string) (service.Subscription, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "listen "+NotifyChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	subCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	f := feed.New(func() {
		cancel()
		<-done
	})

	go func() {
		defer close(done)
		defer s.release(conn)

		// The initial read happens after LISTEN so no commit is missed.
		if err := s.push(subCtx, f, userID); err != nil {
			s.log.Error().Err(err).Str("user", userID).Msg("initial snapshot")
			go f.Close()
			return
		}

		for {
			n, err := conn.Conn().WaitForNotification(subCtx)
			if errors.Is(err, context.Canceled) || subCtx.Err() != nil {
				return
			}
			if err != nil {
				s.log.Error().Err(err).Msg("WaitForNotification")
				go f.Close()
				return
			}
			if n.Payload != userID {
				continue
			}
			if err := s.push(subCtx, f, userID); err != nil && subCtx.Err() == nil {
				s.log.Warn().Err(err).Str("user", userID).Msg("snapshot read failed")
			}
		}
	}()

	return f, nil
}

// release stops listening and returns conn to the pool.
func (s *Store) release(conn *pgxpool.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := conn.Exec(ctx, "unlisten *"); err != nil {
		s.log.Debug().Err(err).Msg("unlisten")
	}
	conn.Release()
}

func (s *Store) push(ctx context.Context, f *feed.Feed, userID string) error {
	tasks, err := s.list(ctx, userID)
	if err != nil {
		return err
	}
	f.Push(service.Snapshot{UserID: userID, Tasks: tasks, At: time.Now()})
	return nil
}

// list reads the user's tasks in creation order.
func (s *Store) list(ctx context.Context, userID string) ([]service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		"select id, text, reminder_at, created_at from tasks where user_id = $1 order by created_at, id",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []service.Task{}
	for rows.Next() {
		var t service.Task
		if err := rows.Scan(&t.ID, &t.Text, &t.ReminderAt, &t.CreatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
