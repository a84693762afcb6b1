package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keyStore implements only PersistentStore so the per-key write path is exercised.
type keyStore struct {
	mu      sync.Mutex
	values  map[string]string
	failGet bool
	failSet string
}

func newKeyStore() *keyStore {
	return &keyStore{values: map[string]string{}}
}

func (s *keyStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet {
		return "", false, errors.New("disk unreadable")
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *keyStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key == s.failSet {
		return errors.New("disk full")
	}
	s.values[key] = value
	return nil
}

func (s *keyStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return tok
}

func TestHydrateEmptyStore(t *testing.T) {
	c := NewCache(NewMemoryStore())
	sc := c.Hydrate(context.Background())
	assert.False(t, sc.IsAuthenticated())
	assert.True(t, sc.Token.IsNil())
	assert.Equal(t, "", c.AuthorizationHeader())
}

func TestSaveThenRead(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	c := NewCache(store)
	c.Hydrate(ctx)

	require.NoError(t, c.Save(ctx, "t", 1, "admin"))
	sc := c.Current()
	assert.True(t, sc.IsAuthenticated())
	assert.Equal(t, "t", sc.Token.String())
	assert.Equal(t, int64(1), sc.UserID.Value)
	assert.Equal(t, "admin", sc.Role.String())
	assert.Equal(t, "Bearer t", c.AuthorizationHeader())

	v, ok, _ := store.Get(ctx, KeyUserID)
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestClearThenRestart(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	c := NewCache(store)
	c.Hydrate(ctx)
	require.NoError(t, c.Save(ctx, "t", 1, "admin"))
	require.NoError(t, c.Clear(ctx))
	assert.False(t, c.IsAuthenticated())

	restarted := NewCache(store).Hydrate(ctx)
	assert.True(t, restarted.Token.IsNil())
	assert.True(t, restarted.UserID.IsNil())
	assert.True(t, restarted.Role.IsNil())
}

func TestHydrateRunsOnce(t *testing.T) {
	ctx := context.Background()
	store := newKeyStore()
	store.values = map[string]string{KeyToken: "t", KeyUserID: "3", KeyRole: "user"}
	c := NewCache(store)
	assert.True(t, c.Hydrate(ctx).IsAuthenticated())

	store.values = map[string]string{}
	assert.True(t, c.Hydrate(ctx).IsAuthenticated(), "second hydrate must not reread the store")
	assert.Equal(t, "t", c.GetToken())
}

func TestHydrateUnreadableStore(t *testing.T) {
	store := newKeyStore()
	store.values = map[string]string{KeyToken: "t", KeyUserID: "3", KeyRole: "user"}
	store.failGet = true
	sc := NewCache(store).Hydrate(context.Background())
	assert.False(t, sc.IsAuthenticated())
}

func TestHydratePartialRecordIsDiscarded(t *testing.T) {
	ctx := context.Background()
	store := newKeyStore()
	store.values = map[string]string{KeyToken: "t", KeyRole: "user"}

	sc := NewCache(store).Hydrate(ctx)
	assert.False(t, sc.IsAuthenticated())
	assert.Empty(t, store.values, "partial record should be removed")
}

func TestHydrateMalformedUserID(t *testing.T) {
	store := NewMemoryStore()
	store.values = map[string]string{KeyToken: "t", KeyUserID: "abc", KeyRole: "user"}
	sc := NewCache(store).Hydrate(context.Background())
	assert.False(t, sc.IsAuthenticated())
}

func TestHydrateExpiredToken(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	store := NewMemoryStore()
	store.values = map[string]string{KeyToken: signedToken(t, now.Add(-time.Minute)), KeyUserID: "1", KeyRole: "user"}
	sc := NewCache(store, WithClock(func() time.Time { return now })).Hydrate(ctx)
	assert.False(t, sc.IsAuthenticated())

	store = NewMemoryStore()
	valid := signedToken(t, now.Add(time.Hour))
	store.values = map[string]string{KeyToken: valid, KeyUserID: "1", KeyRole: "user"}
	sc = NewCache(store, WithClock(func() time.Time { return now })).Hydrate(ctx)
	assert.True(t, sc.IsAuthenticated())
	assert.Equal(t, valid, sc.Token.String())
}

func TestSaveFailureLeavesMirror(t *testing.T) {
	ctx := context.Background()
	store := newKeyStore()
	c := NewCache(store)
	c.Hydrate(ctx)
	require.NoError(t, c.Save(ctx, "old", 1, "user"))

	store.failSet = KeyRole
	err := c.Save(ctx, "new", 2, "admin")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistSession)
	assert.Equal(t, "old", c.GetToken())
}

func TestSaveValidation(t *testing.T) {
	c := NewCache(NewMemoryStore())
	err := c.Save(context.Background(), "", 1, "admin")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestConcurrentReadsSeeWholeSnapshots(t *testing.T) {
	ctx := context.Background()
	c := NewCache(NewMemoryStore())
	c.Hydrate(ctx)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			sc := c.Current()
			if sc.Token.IsNil() {
				continue
			}
			switch sc.Token.String() {
			case "a":
				assert.Equal(t, "reader", sc.Role.String())
			case "b":
				assert.Equal(t, "admin", sc.Role.String())
			}
		}
	}()

	for i := 0; i < 200; i++ {
		require.NoError(t, c.Save(ctx, "a", 1, "reader"))
		require.NoError(t, c.Save(ctx, "b", 2, "admin"))
		require.NoError(t, c.Clear(ctx))
	}
	close(done)
	wg.Wait()
}
