package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/pubsync/pubsync/internal/common/httpclient"
	"github.com/pubsync/pubsync/internal/gateway"
	"github.com/pubsync/pubsync/internal/sync/session"
	"github.com/pubsync/pubsync/internal/sync/session/filestore"
	"github.com/pubsync/pubsync/internal/sync/session/sqlitestore"
	"github.com/rs/zerolog/log"
)

// app is what a command needs to talk to the server: the hydrated session and a
// gateway whose requests carry the session token.
type app struct {
	cfg    *Config
	cache  *session.Cache
	gw     gateway.RepositoryGateway
	closer io.Closer
}

var current *app

// clientConfig feeds the HTTP client from the config and the live session.
type clientConfig struct {
	cfg   *Config
	cache *session.Cache
}

func (c clientConfig) GetServerURL() string { return c.cfg.ServerURL }
func (c clientConfig) GetToken() string     { return c.cache.GetToken() }

func openStore(cfg *Config) (session.PersistentStore, io.Closer, error) {
	switch cfg.Store {
	case StoreSQLite:
		s, err := sqlitestore.New(cfg.StorePath)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to open session database: %w", err)
		}
		return s, s, nil
	default:
		s, err := filestore.New(cfg.StorePath)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to open session file: %w", err)
		}
		return s, nil, nil
	}
}

func openApp(ctx context.Context, cfg *Config) (*app, error) {
	store, closer, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	cache := session.NewCache(store)
	cache.Hydrate(ctx)

	client := httpclient.NewClient(clientConfig{cfg: cfg, cache: cache}, httpclient.ClientOptions{
		Timeout:       cfg.RequestTimeout,
		RateLimit:     cfg.RateLimit,
		RetryAttempts: cfg.RetryAttempts,
	})
	return &app{
		cfg:    cfg,
		cache:  cache,
		gw:     gateway.NewHTTPGateway(client),
		closer: closer,
	}, nil
}

func releaseApp() {
	if current == nil {
		return
	}
	if current.closer != nil {
		if err := current.closer.Close(); err != nil {
			log.Warn().Err(err).Msg("unable to close session store")
		}
	}
	current = nil
}

// requireLogin fails commands that need a session when there is none.
func (a *app) requireLogin() error {
	if !a.cache.IsAuthenticated() {
		return fmt.Errorf("not logged in, run \"pubsync login\" first")
	}
	return nil
}
