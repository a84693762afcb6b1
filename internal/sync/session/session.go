// Package session keeps the authenticated user's token, id and role in memory for
// zero-latency reads while a PersistentStore remains the source of truth. The Cache
// is an explicitly constructed value passed to whoever needs it; there is no
// package-level instance.
package session

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pubsync/pubsync/internal/common/apperrors"
	"github.com/pubsync/pubsync/pkg/types"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidSession = apperrors.ErrClientValidation.New("invalid session")
	ErrPersistSession = apperrors.ErrUnknown.New("unable to persist session")
)

// Context is a snapshot of the authenticated session. All fields are absent when
// logged out.
type Context struct {
	Token  types.NullableString `json:"token"`
	UserID types.NullableInt64  `json:"user_id"`
	Role   types.NullableString `json:"role"`
}

// IsAuthenticated reports whether every field is present.
func (c Context) IsAuthenticated() bool {
	return !c.Token.IsNil() && !c.UserID.IsNil() && !c.Role.IsNil()
}

// Cache mirrors the persisted session in memory. Reads are a single atomic load so
// token, id and role are always observed together. Save and Clear are the only
// mutators and are serialized with each other.
type Cache struct {
	store   PersistentStore
	current atomic.Pointer[Context]

	hydrateOnce sync.Once
	writeMu     sync.Mutex
	now         func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source used to check token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache creates a logged-out cache backed by store. Call Hydrate once at startup.
func NewCache(store PersistentStore, opts ...Option) *Cache {
	c := &Cache{store: store, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	c.current.Store(&Context{})
	return c
}

// Hydrate loads the persisted session into memory. Only the first call reads the
// store; later calls return the current snapshot. An unreadable store, a partial
// record, a malformed user id or an expired token all hydrate as logged out.
func (c *Cache) Hydrate(ctx context.Context) Context {
	c.hydrateOnce.Do(func() {
		c.writeMu.Lock()
		defer c.writeMu.Unlock()

		sc, err := c.load(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("session not restored")
			if errors.Is(err, ErrInvalidSession) {
				if err := c.removeAll(ctx); err != nil {
					log.Warn().Err(err).Msg("unable to discard invalid session")
				}
			}
			sc = Context{}
		}
		c.current.Store(&sc)
		log.Debug().Bool("authenticated", sc.IsAuthenticated()).Msg("session hydrated")
	})
	return c.Current()
}

func (c *Cache) load(ctx context.Context) (Context, error) {
	values := make(map[string]string, len(sessionKeys))
	for _, k := range sessionKeys {
		v, ok, err := c.store.Get(ctx, k)
		if err != nil {
			return Context{}, ErrPersistSession.MsgErr("unable to read session", err)
		}
		if ok && v != "" {
			values[k] = v
		}
	}
	if len(values) == 0 {
		return Context{}, nil
	}
	if len(values) != len(sessionKeys) {
		return Context{}, ErrInvalidSession.Msg("incomplete session record")
	}

	userID, err := types.ParseNullableInt64(values[KeyUserID])
	if err != nil {
		return Context{}, ErrInvalidSession.MsgErr("malformed user id", err)
	}
	if expired(values[KeyToken], c.now()) {
		return Context{}, ErrInvalidSession.Msg("token expired")
	}
	return Context{
		Token:  types.NullableStringFrom(values[KeyToken]),
		UserID: userID,
		Role:   types.NullableStringFrom(values[KeyRole]),
	}, nil
}

// expired reports whether token is a JWT whose exp claim is in the past. Opaque
// tokens and JWTs without exp never expire client side; the server stays the judge.
func expired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}

// Save persists the session and then publishes it to readers. If persisting fails
// the in-memory session is left unchanged.
func (c *Cache) Save(ctx context.Context, token string, userID int64, role string) error {
	if token == "" || role == "" {
		return ErrInvalidSession.Msg("token and role are required")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	values := map[string]string{
		KeyToken:  token,
		KeyUserID: strconv.FormatInt(userID, 10),
		KeyRole:   role,
	}
	if rs, ok := c.store.(RecordStore); ok {
		if err := rs.SetAll(ctx, values); err != nil {
			return ErrPersistSession.Err(err)
		}
	} else {
		for _, k := range sessionKeys {
			if err := c.store.Set(ctx, k, values[k]); err != nil {
				return ErrPersistSession.Err(err)
			}
		}
	}

	c.current.Store(&Context{
		Token:  types.NullableStringFrom(token),
		UserID: types.NullableInt64From(userID),
		Role:   types.NullableStringFrom(role),
	})
	log.Debug().Int64("user_id", userID).Str("role", role).Msg("session saved")
	return nil
}

// Clear removes the persisted session and logs the cache out. The in-memory session
// is reset even when the store fails, so a failed logout never leaves a usable token.
func (c *Cache) Clear(ctx context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.current.Store(&Context{})
	if err := c.removeAll(ctx); err != nil {
		return ErrPersistSession.Err(err)
	}
	log.Debug().Msg("session cleared")
	return nil
}

func (c *Cache) removeAll(ctx context.Context) error {
	if rs, ok := c.store.(RecordStore); ok {
		return rs.RemoveAll(ctx, sessionKeys...)
	}
	var errs []error
	for _, k := range sessionKeys {
		if err := c.store.Remove(ctx, k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Current returns the in-memory session without touching the store.
func (c *Cache) Current() Context {
	return *c.current.Load()
}

// GetToken returns the current token or "".
func (c *Cache) GetToken() string {
	return c.Current().Token.String()
}

// IsAuthenticated reports whether a complete session is loaded.
func (c *Cache) IsAuthenticated() bool {
	return c.Current().IsAuthenticated()
}

// AuthorizationHeader returns the bearer header value, or "" when logged out.
func (c *Cache) AuthorizationHeader() string {
	tok := c.GetToken()
	if tok == "" {
		return ""
	}
	return "Bearer " + tok
}
