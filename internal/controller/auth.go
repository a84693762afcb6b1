// Package controller holds the screen-level state holders. Each controller calls the
// gateway, updates the session where needed and publishes the outcome as an
// asyncstate value that a view renders.
package controller

import (
	"context"

	"github.com/pubsync/pubsync/internal/gateway"
	"github.com/pubsync/pubsync/internal/sync/asyncstate"
	"github.com/pubsync/pubsync/internal/sync/envelope"
	"github.com/pubsync/pubsync/internal/sync/session"
)

const (
	MessageLoginFailed    = "login failed"
	MessageRegisterFailed = "registration failed"
)

// Auth drives login, registration and logout.
type Auth struct {
	gw    gateway.RepositoryGateway
	cache *session.Cache
	state *asyncstate.Observable[gateway.AuthResult]
}

func NewAuth(gw gateway.RepositoryGateway, cache *session.Cache) *Auth {
	return &Auth{gw: gw, cache: cache, state: asyncstate.NewObservable[gateway.AuthResult]()}
}

func (a *Auth) State() *asyncstate.Observable[gateway.AuthResult] {
	return a.state
}

// Login authenticates and stores the session. The state becomes Success only after
// the session has been persisted.
func (a *Auth) Login(ctx context.Context, creds gateway.Credentials) envelope.Envelope[gateway.AuthResult] {
	return asyncstate.Run(ctx, a.state, func(ctx context.Context) envelope.Envelope[gateway.AuthResult] {
		return a.establish(ctx, a.gw.Login(ctx, creds))
	}, MessageLoginFailed)
}

// Register creates an account and signs in with it.
func (a *Auth) Register(ctx context.Context, reg gateway.Registration) envelope.Envelope[gateway.AuthResult] {
	return asyncstate.Run(ctx, a.state, func(ctx context.Context) envelope.Envelope[gateway.AuthResult] {
		return a.establish(ctx, a.gw.Register(ctx, reg))
	}, MessageRegisterFailed)
}

func (a *Auth) establish(ctx context.Context, env envelope.Envelope[gateway.AuthResult]) envelope.Envelope[gateway.AuthResult] {
	if !env.OK() {
		return env
	}
	res := env.Payload
	if err := a.cache.Save(ctx, res.Token, res.UserID, res.Role); err != nil {
		return envelope.FromError[gateway.AuthResult](err)
	}
	return env
}

// Logout clears the session. The in-memory session is cleared even if the store
// reports an error.
func (a *Auth) Logout(ctx context.Context) error {
	err := a.cache.Clear(ctx)
	a.state.Set(asyncstate.Idle[gateway.AuthResult]())
	return err
}
