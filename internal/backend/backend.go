// Package backend wires the configured collaborators together.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"

	"remindo/internal/backend/googletasks"
	"remindo/internal/backend/localauth"
	"remindo/internal/backend/memstore"
	"remindo/internal/backend/mongostore"
	"remindo/internal/backend/notify"
	"remindo/internal/backend/pgstore"
	"remindo/internal/config"
	"remindo/internal/service"
)

// Backend bundles the collaborators a command may use.
type Backend struct {
	Store    service.Store
	Auth     service.Auth
	Actions  service.ActionCodes
	Notifier service.Notifier

	closers []func(context.Context) error
}

// OnClose registers fn to run on Close, in reverse order.
func (b *Backend) OnClose(fn func(context.Context) error) {
	b.closers = append(b.closers, fn)
}

// Close releases every collaborator.
func (b *Backend) Close(ctx context.Context) error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// Open connects to the configured store and sets up the local identity
// provider and terminal notifier. Alerts are written to out.
func Open(ctx context.Context, cfg *config.Config, out io.Writer) (*Backend, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	b := &Backend{Store: store}
	b.OnClose(store.Close)

	auth, err := OpenAuth(cfg)
	if err != nil {
		b.Close(ctx)
		return nil, err
	}
	b.Auth = auth
	b.Actions = auth

	n := notify.New(out,
		notify.WithEnabled(cfg.Notifications.Enabled),
		notify.WithBell(cfg.Notifications.Bell),
	)
	b.Notifier = n
	b.OnClose(func(context.Context) error { return n.Close() })

	return b, nil
}

// OpenStore connects to the store selected by cfg.Store.Type.
func OpenStore(ctx context.Context, cfg *config.Config) (service.Store, error) {
	sc := cfg.Store
	switch sc.Type {
	case config.StoreMemory:
		return memstore.New(), nil
	case config.StorePostgres:
		return pgstore.Open(ctx, sc.URL, sc.Timeout)
	case config.StoreMongo:
		return mongostore.Open(ctx, sc.URL, sc.Database, sc.Timeout)
	case config.StoreGoogleTasks:
		if !cfg.HasOAuthClient() {
			return nil, fmt.Errorf("%s not found in %s", config.OAuthClientFile, cfg.Dir)
		}
		if !cfg.HasToken() {
			return nil, errors.New("not connected to Google Tasks (run: remindo connect)")
		}
		return googletasks.New(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown store type: %s", sc.Type)
	}
}

// OpenAuth creates the local identity provider. Accounts live in the
// config directory and messages go to its outbox.
func OpenAuth(cfg *config.Config) (*localauth.Auth, error) {
	secret := []byte(cfg.Auth.Secret)
	if len(secret) == 0 {
		var err error
		secret, err = localauth.LoadOrCreateSecret(cfg.SecretPath())
		if err != nil {
			return nil, fmt.Errorf("failed to load signing key: %w", err)
		}
	}

	return localauth.New(localauth.Options{
		UsersPath:   cfg.UsersPath(),
		Secret:      secret,
		SessionTTL:  cfg.Auth.SessionTTL,
		ActionTTL:   cfg.Auth.ActionTTL,
		LinkBaseURL: cfg.Auth.LinkBaseURL,
		MaxFailures: cfg.Auth.MaxFailures,
		Lockout:     cfg.Auth.Lockout,
		BcryptCost:  cfg.Auth.BcryptCost,
		Mailer:      localauth.NewOutbox(cfg.OutboxPath()),
	})
}
