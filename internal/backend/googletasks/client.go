// Package googletasks implements service.Store on the Google Tasks API.
// Each user gets a task list titled "remindo:<uid>". The API has no push
// channel for tasks, so subscriptions poll and emit a snapshot whenever
// the list content changes.
package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"remindo/internal/backend/feed"
	"remindo/internal/config"
	"remindo/internal/logging"
	"remindo/internal/service"
)

const (
	// PageSize is the number of tasks per page.
	PageSize = 100

	// APITimeout is the timeout for API calls.
	APITimeout = 5 * time.Second

	// DefaultPollInterval is how often subscriptions re-read the list.
	DefaultPollInterval = 10 * time.Second

	// ListPrefix prefixes the per-user task list title.
	ListPrefix = "remindo:"

	// Scope is the OAuth scope for Google Tasks.
	Scope = "https://www.googleapis.com/auth/tasks"
)

// Client implements service.Store using Google Tasks API.
type Client struct {
	svc  *tasks.Service
	poll time.Duration
	log  zerolog.Logger

	mu    sync.Mutex
	lists map[string]string // userID -> task list ID
}

// New creates a new Google Tasks client.
// Requires oauth_client.json and token.json to exist (see the connect command).
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	// Load OAuth client config
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}

	oauthConfig, err := google.ConfigFromJSON(clientJSON, Scope)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth_client.json: %w", err)
	}

	// Load token
	tokenData, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read token.json: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("invalid token.json: %w", err)
	}

	// Create token source that auto-refreshes
	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, &token))

	return NewWithHTTPClient(ctx, httpClient, cfg.Store.PollInterval)
}

// NewWithHTTPClient creates a client with a custom HTTP client.
// Extra options (such as option.WithEndpoint) are passed to the API client.
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, poll time.Duration, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Client{
		svc:   svc,
		poll:  poll,
		log:   logging.For("googletasks"),
		lists: make(map[string]string),
	}, nil
}

// Close implements service.Store.
func (c *Client) Close(ctx context.Context) error {
	return nil
}

// listID returns the user's task list, creating it on first use.
func (c *Client) listID(ctx context.Context, userID string) (string, error) {
	c.mu.Lock()
	id, ok := c.lists[userID]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	title := ListPrefix + userID
	err := c.svc.Tasklists.List().MaxResults(100).Pages(ctx, func(resp *tasks.TaskLists) error {
		for _, list := range resp.Items {
			if strings.TrimSpace(list.Title) == title {
				id = list.Id
			}
		}
		return nil
	})
	if err != nil {
		return "", wrapError(err)
	}

	if id == "" {
		created, err := c.svc.Tasklists.Insert(&tasks.TaskList{Title: title}).Context(ctx).Do()
		if err != nil {
			return "", wrapError(err)
		}
		id = created.Id
		c.log.Debug().Str("user", userID).Str("list", id).Msg("created task list")
	}

	c.mu.Lock()
	c.lists[userID] = id
	c.mu.Unlock()
	return id, nil
}

// Add implements service.Store.
func (c *Client) Add(ctx context.Context, userID string, p service.Patch) (string, error) {
	listID, err := c.listID(ctx, userID)
	if err != nil {
		return "", err
	}
	var t service.Task
	p.Apply(&t)

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	created, err := c.svc.Tasks.Insert(listID, &tasks.Task{
		Title: t.Text,
		Notes: EncodeNotes(t.ReminderAt),
	}).Context(ctx).Do()
	if err != nil {
		return "", wrapError(err)
	}
	return created.Id, nil
}

// patchBody renders p as a Tasks API patch body.
func patchBody(p service.Patch) *tasks.Task {
	body := &tasks.Task{}
	if p.Text != nil {
		body.Title = *p.Text
		body.ForceSendFields = append(body.ForceSendFields, "Title")
	}
	if p.SetReminder {
		body.Notes = EncodeNotes(p.Reminder)
		body.ForceSendFields = append(body.ForceSendFields, "Notes")
	}
	return body
}

// Update implements service.Store.
func (c *Client) Update(ctx context.Context, userID, taskID string, p service.Patch) error {
	listID, err := c.listID(ctx, userID)
	if err != nil {
		return err
	}
	body := patchBody(p)
	if len(body.ForceSendFields) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	if _, err := c.svc.Tasks.Patch(listID, taskID, body).Context(ctx).Do(); err != nil {
		return wrapError(err)
	}
	return nil
}

// Delete implements service.Store.
func (c *Client) Delete(ctx context.Context, userID, taskID string) error {
	listID, err := c.listID(ctx, userID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	if err := c.svc.Tasks.Delete(listID, taskID).Context(ctx).Do(); err != nil {
		return wrapError(err)
	}
	return nil
}

// list returns the user's open tasks in API order.
func (c *Client) list(ctx context.Context, userID string) ([]service.Task, error) {
	listID, err := c.listID(ctx, userID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	result := []service.Task{}
	err = c.svc.Tasks.List(listID).
		MaxResults(PageSize).
		ShowCompleted(false).
		ShowDeleted(false).
		ShowHidden(false).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, item := range resp.Items {
				result = append(result, toTask(item))
			}
			return nil
		})
	if err != nil {
		return nil, wrapError(err)
	}
	return result, nil
}

func toTask(item *tasks.Task) service.Task {
	t := service.Task{
		ID:         item.Id,
		Text:       item.Title,
		ReminderAt: DecodeNotes(item.Notes),
	}
	if updated, err := time.Parse(time.RFC3339, item.Updated); err == nil {
		t.CreatedAt = updated
	}
	return t
}

// Subscribe implements service.Store by polling.
func (c *Client) Subscribe(ctx context.Context, userID string) (service.Subscription, error) {
	first, err := c.list(ctx, userID)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	f := feed.New(func() {
		cancel()
		<-done
	})
	f.Push(service.Snapshot{UserID: userID, Tasks: first, At: time.Now()})

	go func() {
		defer close(done)
		last := fingerprint(first)
		ticker := time.NewTicker(c.poll)
		defer ticker.Stop()

		for {
			select {
			case <-subCtx.Done():
				return
			case <-ticker.C:
			}
			current, err := c.list(subCtx, userID)
			if err != nil {
				if subCtx.Err() == nil {
					c.log.Warn().Err(err).Str("user", userID).Msg("poll failed")
				}
				continue
			}
			if fp := fingerprint(current); fp != last {
				last = fp
				f.Push(service.Snapshot{UserID: userID, Tasks: current, At: time.Now()})
			}
		}
	}()

	return f, nil
}

// fingerprint summarizes the fields a snapshot consumer can observe.
func fingerprint(ts []service.Task) string {
	var b strings.Builder
	for _, t := range ts {
		b.WriteString(t.ID)
		b.WriteByte(0)
		b.WriteString(t.Text)
		b.WriteByte(0)
		if t.ReminderAt != nil {
			b.WriteString(t.ReminderAt.UTC().Format(time.RFC3339))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// wrapError wraps API errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	// Check for timeout
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "context deadline exceeded") {
		return fmt.Errorf("request timed out")
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("token expired or revoked (run: remindo connect)")
		case http.StatusNotFound:
			return service.ErrNotFound
		}
	}

	return err
}
