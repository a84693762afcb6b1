package controller

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/pubsync/pubsync/internal/gateway"
	"github.com/pubsync/pubsync/internal/sync/asyncstate"
	"github.com/pubsync/pubsync/internal/sync/envelope"
	"github.com/pubsync/pubsync/internal/sync/search"
	"github.com/pubsync/pubsync/internal/sync/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGateway overrides the operations a test needs. Calling any other operation
// panics through the nil embedded interface.
type stubGateway struct {
	gateway.RepositoryGateway

	mu          sync.Mutex
	login       envelope.Envelope[gateway.AuthResult]
	categories  envelope.Envelope[[]gateway.Category]
	pages       map[int]envelope.Envelope[[]gateway.Publication]
	like        func(id int64) envelope.Envelope[gateway.ToggleState]
	user        envelope.Envelope[gateway.User]
	comment     envelope.Envelope[gateway.Comment]
	deleted     envelope.Envelope[envelope.NoContent]
	userCalls   int
	searchCalls []string
}

func (s *stubGateway) Login(context.Context, gateway.Credentials) envelope.Envelope[gateway.AuthResult] {
	return s.login
}

func (s *stubGateway) Register(context.Context, gateway.Registration) envelope.Envelope[gateway.AuthResult] {
	return s.login
}

func (s *stubGateway) GetAllCategories(context.Context) envelope.Envelope[[]gateway.Category] {
	return s.categories
}

func (s *stubGateway) GetPublications(_ context.Context, page int) envelope.Envelope[[]gateway.Publication] {
	if env, ok := s.pages[page]; ok {
		return env
	}
	return envelope.Success([]gateway.Publication{}, http.StatusOK)
}

func (s *stubGateway) SearchPublications(_ context.Context, query string, page int) envelope.Envelope[[]gateway.Publication] {
	s.mu.Lock()
	s.searchCalls = append(s.searchCalls, query)
	s.mu.Unlock()
	return envelope.Success([]gateway.Publication{{ID: 1, Title: query}}, http.StatusOK)
}

func (s *stubGateway) ToggleLike(_ context.Context, id int64) envelope.Envelope[gateway.ToggleState] {
	return s.like(id)
}

func (s *stubGateway) ToggleBookmark(context.Context, int64) envelope.Envelope[gateway.ToggleState] {
	return envelope.Success(gateway.ToggleState{}, http.StatusNoContent)
}

func (s *stubGateway) CreateComment(context.Context, int64, string) envelope.Envelope[gateway.Comment] {
	return s.comment
}

func (s *stubGateway) DeleteComment(context.Context, int64) envelope.Envelope[envelope.NoContent] {
	return s.deleted
}

func (s *stubGateway) GetUserInfo(context.Context) envelope.Envelope[gateway.User] {
	s.mu.Lock()
	s.userCalls++
	s.mu.Unlock()
	return s.user
}

func newCache(t *testing.T) *session.Cache {
	t.Helper()
	c := session.NewCache(session.NewMemoryStore())
	c.Hydrate(context.Background())
	return c
}

func TestLoginStoresSession(t *testing.T) {
	gw := &stubGateway{login: envelope.Success(gateway.AuthResult{Token: "tok", UserID: 4, Role: "user"}, http.StatusOK)}
	cache := newCache(t)
	auth := NewAuth(gw, cache)

	env := auth.Login(context.Background(), gateway.Credentials{Email: "a@b.io", Password: "pw"})
	require.True(t, env.OK())
	assert.Equal(t, asyncstate.KindSuccess, auth.State().Get().Kind())

	sc := cache.Current()
	assert.True(t, sc.IsAuthenticated())
	assert.Equal(t, "tok", sc.Token.String())
	assert.Equal(t, "4", sc.UserID.String())

	require.NoError(t, auth.Logout(context.Background()))
	assert.False(t, cache.IsAuthenticated())
	assert.Equal(t, asyncstate.KindIdle, auth.State().Get().Kind())
}

func TestLoginFailureLeavesSession(t *testing.T) {
	gw := &stubGateway{login: envelope.Failure[gateway.AuthResult]("invalid credentials", http.StatusUnauthorized)}
	cache := newCache(t)
	auth := NewAuth(gw, cache)

	env := auth.Register(context.Background(), gateway.Registration{})
	assert.False(t, env.OK())
	msg, ok := auth.State().Get().Message()
	require.True(t, ok)
	assert.Equal(t, "invalid credentials", msg)
	assert.False(t, cache.IsAuthenticated())
}

func TestLoginWithUnusableResult(t *testing.T) {
	gw := &stubGateway{login: envelope.Success(gateway.AuthResult{UserID: 4}, http.StatusOK)}
	cache := newCache(t)
	auth := NewAuth(gw, cache)

	env := auth.Login(context.Background(), gateway.Credentials{})
	assert.False(t, env.OK())
	assert.Equal(t, asyncstate.KindError, auth.State().Get().Kind())
	assert.False(t, cache.IsAuthenticated())
}

func TestCatalog(t *testing.T) {
	gw := &stubGateway{categories: envelope.Success([]gateway.Category{{ID: 1, Name: "Go"}}, http.StatusOK)}
	c := NewCatalog(gw)

	ch, unsubscribe := c.Categories.Subscribe(4)
	defer unsubscribe()
	c.LoadCategories(context.Background())

	var kinds []asyncstate.Kind
	for i := 0; i < 3; i++ {
		kinds = append(kinds, (<-ch).Kind())
	}
	assert.Equal(t, []asyncstate.Kind{asyncstate.KindIdle, asyncstate.KindLoading, asyncstate.KindSuccess}, kinds)
	data, _ := c.Categories.Get().Data()
	assert.Equal(t, "Go", data[0].Name)
}

func publications(from, n int) []gateway.Publication {
	out := make([]gateway.Publication, n)
	for i := range out {
		out[i] = gateway.Publication{ID: int64(from + i), Likes: 2}
	}
	return out
}

func TestFeedPaging(t *testing.T) {
	gw := &stubGateway{pages: map[int]envelope.Envelope[[]gateway.Publication]{
		0: envelope.Success(publications(1, 3), http.StatusOK),
		1: envelope.Success(publications(4, 1), http.StatusOK),
	}}
	f := NewFeed(gw, 3)
	ctx := context.Background()

	require.True(t, f.LoadMore(ctx).OK())
	assert.False(t, f.Exhausted())
	require.True(t, f.LoadMore(ctx).OK())
	assert.True(t, f.Exhausted())

	env := f.LoadMore(ctx)
	require.True(t, env.OK())
	assert.Len(t, *env.Payload, 4)

	require.True(t, f.Refresh(ctx).OK())
	assert.Len(t, f.Publications(), 3)
}

func TestFeedPageFailure(t *testing.T) {
	gw := &stubGateway{pages: map[int]envelope.Envelope[[]gateway.Publication]{
		0: envelope.Failure[[]gateway.Publication]("boom", http.StatusInternalServerError),
	}}
	f := NewFeed(gw, 3)
	env := f.LoadMore(context.Background())
	assert.False(t, env.OK())
	msg, _ := f.State().Get().Message()
	assert.Equal(t, "boom", msg)
	assert.False(t, f.Exhausted())
}

func TestFeedLikeRollsBack(t *testing.T) {
	release := make(chan struct{})
	gw := &stubGateway{
		pages: map[int]envelope.Envelope[[]gateway.Publication]{0: envelope.Success(publications(1, 1), http.StatusOK)},
		like: func(int64) envelope.Envelope[gateway.ToggleState] {
			<-release
			return envelope.Failure[gateway.ToggleState]("unexpected status 500", http.StatusInternalServerError)
		},
	}
	f := NewFeed(gw, 20)
	ctx := context.Background()
	require.True(t, f.LoadMore(ctx).OK())

	e, done := f.ToggleLike(ctx, 1)
	assert.True(t, e.Active)
	assert.Equal(t, 3, e.Count)
	data, _ := f.State().Get().Data()
	assert.True(t, data[0].Liked)
	assert.Equal(t, 3, data[0].Likes)

	close(release)
	out := <-done
	assert.True(t, out.RolledBack)
	f.Wait()

	p := f.Publications()[0]
	assert.False(t, p.Liked)
	assert.Equal(t, 2, p.Likes)
	data, _ = f.State().Get().Data()
	assert.Equal(t, p, data[0])
}

func TestFeedLikeConfirmed(t *testing.T) {
	active, count := true, 10
	gw := &stubGateway{
		pages: map[int]envelope.Envelope[[]gateway.Publication]{0: envelope.Success(publications(1, 1), http.StatusOK)},
		like: func(int64) envelope.Envelope[gateway.ToggleState] {
			return envelope.Success(gateway.ToggleState{Active: &active, Count: &count}, http.StatusOK)
		},
	}
	f := NewFeed(gw, 20)
	ctx := context.Background()
	require.True(t, f.LoadMore(ctx).OK())

	f.ToggleLike(ctx, 1)
	_, done := f.ToggleBookmark(ctx, 1)
	<-done
	f.Wait()

	p := f.Publications()[0]
	assert.True(t, p.Liked)
	assert.Equal(t, 10, p.Likes)
	assert.True(t, p.Bookmarked)
}

func TestProfile(t *testing.T) {
	gw := &stubGateway{user: envelope.Failure[gateway.User]("session expired", http.StatusUnauthorized)}
	cache := newCache(t)
	p := NewProfile(gw, cache)
	ctx := context.Background()

	env := p.Load(ctx)
	assert.Equal(t, MessageNotLoggedIn, *env.Message)
	assert.Equal(t, 0, gw.userCalls)

	require.NoError(t, cache.Save(ctx, "tok", 1, "user"))
	env = p.Load(ctx)
	assert.Equal(t, "session expired", *env.Message)
	assert.False(t, cache.IsAuthenticated(), "rejected token is dropped")

	gw.user = envelope.Success(gateway.User{ID: 1, Username: "bob"}, http.StatusOK)
	require.NoError(t, cache.Save(ctx, "tok", 1, "user"))
	env = p.Load(ctx)
	require.True(t, env.OK())
	data, _ := p.State().Get().Data()
	assert.Equal(t, "bob", data.Username)
}

func TestSearchUsesGateway(t *testing.T) {
	gw := &stubGateway{}
	s := NewSearch(gw, search.Options{Debounce: 10 * time.Millisecond})
	defer s.Close()

	s.Search("g")
	s.Search("go")
	require.Eventually(t, func() bool { return len(s.Snapshot().Items) == 1 }, time.Second, 5*time.Millisecond)
	gw.mu.Lock()
	defer gw.mu.Unlock()
	assert.Equal(t, []string{"go"}, gw.searchCalls)
}

func kindsOf[T any](t *testing.T, ch <-chan asyncstate.State[T], n int) []asyncstate.Kind {
	t.Helper()
	var kinds []asyncstate.Kind
	for i := 0; i < n; i++ {
		select {
		case st := <-ch:
			kinds = append(kinds, st.Kind())
		case <-time.After(time.Second):
			t.Fatalf("timeout after %d states", i)
		}
	}
	return kinds
}

func TestComments(t *testing.T) {
	gw := &stubGateway{
		comment: envelope.Success(gateway.Comment{ID: 9, PublicationID: 5, Body: "nice"}, http.StatusCreated),
		deleted: envelope.Failure[envelope.NoContent]("not found", http.StatusNotFound),
	}
	c := NewComments(gw)
	ctx := context.Background()

	created, stopCreated := c.Created.Subscribe(4)
	defer stopCreated()
	deleted, stopDeleted := c.Deleted.Subscribe(4)
	defer stopDeleted()

	env := c.Create(ctx, 5, "nice")
	require.True(t, env.OK())
	assert.Equal(t, []asyncstate.Kind{asyncstate.KindIdle, asyncstate.KindLoading, asyncstate.KindSuccess}, kindsOf(t, created, 3))
	data, ok := c.Created.Get().Data()
	require.True(t, ok)
	assert.Equal(t, int64(9), data.ID)

	del := c.Delete(ctx, 9)
	assert.False(t, del.OK())
	assert.Equal(t, []asyncstate.Kind{asyncstate.KindIdle, asyncstate.KindLoading, asyncstate.KindError}, kindsOf(t, deleted, 3))
	msg, ok := c.Deleted.Get().Message()
	require.True(t, ok)
	assert.Equal(t, "not found", msg)

	gw.comment = envelope.Failure[gateway.Comment]("", http.StatusInternalServerError)
	c.Create(ctx, 5, "again")
	msg, _ = c.Created.Get().Message()
	assert.NotEmpty(t, msg)

	gw.deleted = envelope.Success(envelope.NoContent{}, http.StatusNoContent)
	require.True(t, c.Delete(ctx, 9).OK())
	assert.Equal(t, asyncstate.KindSuccess, c.Deleted.Get().Kind())
}

func TestFeedSettlesWhenTogglesFailInReverse(t *testing.T) {
	calls := make(chan chan bool, 2)
	gw := &stubGateway{
		pages: map[int]envelope.Envelope[[]gateway.Publication]{0: envelope.Success(publications(1, 1), http.StatusOK)},
		like: func(int64) envelope.Envelope[gateway.ToggleState] {
			release := make(chan bool)
			calls <- release
			<-release
			return envelope.Failure[gateway.ToggleState]("unexpected status 503", http.StatusServiceUnavailable)
		},
	}
	f := NewFeed(gw, 20)
	ctx := context.Background()
	require.True(t, f.LoadMore(ctx).OK())

	_, done1 := f.ToggleLike(ctx, 1)
	c1 := <-calls
	_, done2 := f.ToggleLike(ctx, 1)
	c2 := <-calls

	c2 <- true
	<-done2
	c1 <- true
	<-done1
	f.Wait()

	p := f.Publications()[0]
	assert.False(t, p.Liked)
	assert.Equal(t, 2, p.Likes)
	data, ok := f.State().Get().Data()
	require.True(t, ok)
	assert.Equal(t, p, data[0], "published list matches the settled state")
}
