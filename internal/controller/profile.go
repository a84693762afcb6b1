package controller

import (
	"context"
	"net/http"

	"github.com/pubsync/pubsync/internal/gateway"
	"github.com/pubsync/pubsync/internal/sync/asyncstate"
	"github.com/pubsync/pubsync/internal/sync/envelope"
	"github.com/pubsync/pubsync/internal/sync/session"
	"github.com/rs/zerolog/log"
)

const (
	MessageNotLoggedIn   = "not logged in"
	MessageProfileFailed = "unable to load profile"
	MessageUpdateFailed  = "unable to update profile"
)

// Profile shows and edits the signed-in user. A 401 from the server means the
// stored token is no longer accepted, so the session is cleared.
type Profile struct {
	gw    gateway.RepositoryGateway
	cache *session.Cache
	state *asyncstate.Observable[gateway.User]
}

func NewProfile(gw gateway.RepositoryGateway, cache *session.Cache) *Profile {
	return &Profile{gw: gw, cache: cache, state: asyncstate.NewObservable[gateway.User]()}
}

func (p *Profile) State() *asyncstate.Observable[gateway.User] {
	return p.state
}

func (p *Profile) Load(ctx context.Context) envelope.Envelope[gateway.User] {
	return p.run(ctx, p.gw.GetUserInfo, MessageProfileFailed)
}

func (p *Profile) UpdateUsername(ctx context.Context, username string) envelope.Envelope[gateway.User] {
	return p.run(ctx, func(ctx context.Context) envelope.Envelope[gateway.User] {
		return p.gw.UpdateUsername(ctx, username)
	}, MessageUpdateFailed)
}

func (p *Profile) UpdatePicture(ctx context.Context, image []byte) envelope.Envelope[gateway.User] {
	return p.run(ctx, func(ctx context.Context) envelope.Envelope[gateway.User] {
		return p.gw.UpdateProfilePicture(ctx, image)
	}, MessageUpdateFailed)
}

func (p *Profile) run(ctx context.Context, fn func(context.Context) envelope.Envelope[gateway.User], defaultMsg string) envelope.Envelope[gateway.User] {
	return asyncstate.Run(ctx, p.state, func(ctx context.Context) envelope.Envelope[gateway.User] {
		if !p.cache.IsAuthenticated() {
			return envelope.Failure[gateway.User](MessageNotLoggedIn, 0)
		}
		env := fn(ctx)
		if env.StatusCode == http.StatusUnauthorized {
			if err := p.cache.Clear(ctx); err != nil {
				log.Warn().Err(err).Msg("unable to clear rejected session")
			}
		}
		return env
	}, defaultMsg)
}
