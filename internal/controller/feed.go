package controller

import (
	"context"
	"sync"

	"github.com/pubsync/pubsync/internal/gateway"
	"github.com/pubsync/pubsync/internal/sync/asyncstate"
	"github.com/pubsync/pubsync/internal/sync/envelope"
	"github.com/pubsync/pubsync/internal/sync/optimistic"
	"github.com/pubsync/pubsync/internal/sync/search"
)

const (
	MessageFeedFailed = "unable to load publications"
	MessageFeedBusy   = "a page is already loading"
)

// Feed pages through publications and applies like and bookmark toggles
// optimistically. The published list always reflects the local toggle state.
type Feed struct {
	gw       gateway.RepositoryGateway
	pageSize int
	state    *asyncstate.Observable[[]gateway.Publication]

	likes     *optimistic.Toggler[int64]
	bookmarks *optimistic.Toggler[int64]

	// pubMu orders list publications so a list computed earlier never
	// replaces one computed later.
	pubMu sync.Mutex

	mu        sync.Mutex
	items     []gateway.Publication
	page      int
	exhausted bool
	loading   bool
}

// NewFeed returns an empty feed. pageSize is the server's page size and is used to
// detect the last page; zero selects the default.
func NewFeed(gw gateway.RepositoryGateway, pageSize int) *Feed {
	if pageSize <= 0 {
		pageSize = search.DefaultPageSize
	}
	f := &Feed{
		gw:       gw,
		pageSize: pageSize,
		state:    asyncstate.NewObservable[[]gateway.Publication](),
	}
	onChange := optimistic.WithObserver[int64](func(int64, optimistic.Entry) { f.republish() })
	f.likes = optimistic.New[int64]("like", func(ctx context.Context, id int64) envelope.Envelope[optimistic.Confirmation] {
		return envelope.Map(gw.ToggleLike(ctx, id), confirmation)
	}, onChange)
	f.bookmarks = optimistic.New[int64]("bookmark", func(ctx context.Context, id int64) envelope.Envelope[optimistic.Confirmation] {
		return envelope.Map(gw.ToggleBookmark(ctx, id), confirmation)
	}, onChange)
	return f
}

func confirmation(s gateway.ToggleState) optimistic.Confirmation {
	return optimistic.Confirmation{Active: s.Active, Count: s.Count}
}

func (f *Feed) State() *asyncstate.Observable[[]gateway.Publication] {
	return f.state
}

// Exhausted reports whether the last page has been loaded.
func (f *Feed) Exhausted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exhausted
}

// LoadMore fetches the next page. It fails fast while another page is loading and
// is a no-op success after the last page. A failed page can be retried.
func (f *Feed) LoadMore(ctx context.Context) envelope.Envelope[[]gateway.Publication] {
	f.mu.Lock()
	if f.loading {
		f.mu.Unlock()
		return envelope.Failure[[]gateway.Publication](MessageFeedBusy, 0)
	}
	if f.exhausted {
		f.mu.Unlock()
		return envelope.Success(f.Publications(), 0)
	}
	f.loading = true
	page := f.page
	f.mu.Unlock()

	f.pubMu.Lock()
	f.state.Set(asyncstate.Loading[[]gateway.Publication]())
	f.pubMu.Unlock()
	env := f.gw.GetPublications(ctx, page)

	f.mu.Lock()
	f.loading = false
	if env.OK() {
		f.items = append(f.items, *env.Payload...)
		f.page++
		f.exhausted = len(*env.Payload) < f.pageSize
	}
	f.mu.Unlock()

	if !env.OK() {
		f.pubMu.Lock()
		f.state.Set(asyncstate.Failure[[]gateway.Publication](env.MessageOr(MessageFeedFailed)))
		f.pubMu.Unlock()
		return env
	}
	for _, p := range *env.Payload {
		f.likes.Seed(p.ID, optimistic.Entry{Active: p.Liked, Count: p.Likes, Counted: true})
		f.bookmarks.Seed(p.ID, optimistic.Entry{Active: p.Bookmarked})
	}
	f.pubMu.Lock()
	items := f.Publications()
	f.state.Set(asyncstate.Success(items))
	f.pubMu.Unlock()
	return envelope.Success(items, env.StatusCode)
}

// Refresh drops the loaded pages and loads the first one again.
func (f *Feed) Refresh(ctx context.Context) envelope.Envelope[[]gateway.Publication] {
	f.mu.Lock()
	if f.loading {
		f.mu.Unlock()
		return envelope.Failure[[]gateway.Publication](MessageFeedBusy, 0)
	}
	f.items = nil
	f.page = 0
	f.exhausted = false
	f.mu.Unlock()
	return f.LoadMore(ctx)
}

// Publications returns the loaded publications with the local like and bookmark
// state applied.
func (f *Feed) Publications() []gateway.Publication {
	f.mu.Lock()
	items := append([]gateway.Publication(nil), f.items...)
	f.mu.Unlock()
	for i := range items {
		if e, ok := f.likes.Get(items[i].ID); ok {
			items[i].Liked = e.Active
			items[i].Likes = e.Count
		}
		if e, ok := f.bookmarks.Get(items[i].ID); ok {
			items[i].Bookmarked = e.Active
		}
	}
	return items
}

// ToggleLike flips the like of a publication. The returned entry is the optimistic
// state; the channel reports how the server confirmation resolved.
func (f *Feed) ToggleLike(ctx context.Context, publicationID int64) (optimistic.Entry, <-chan optimistic.Outcome) {
	if _, ok := f.likes.Get(publicationID); !ok {
		f.likes.Seed(publicationID, optimistic.Entry{Counted: true})
	}
	return f.likes.Toggle(ctx, publicationID)
}

// ToggleBookmark flips the bookmark of a publication.
func (f *Feed) ToggleBookmark(ctx context.Context, publicationID int64) (optimistic.Entry, <-chan optimistic.Outcome) {
	return f.bookmarks.Toggle(ctx, publicationID)
}

// Wait blocks until every outstanding toggle has resolved.
func (f *Feed) Wait() {
	f.likes.Wait()
	f.bookmarks.Wait()
}

// republish pushes the current list after a toggle changed it, unless the feed is
// in a state that does not show the list.
func (f *Feed) republish() {
	f.pubMu.Lock()
	defer f.pubMu.Unlock()
	if f.state.Get().Kind() != asyncstate.KindSuccess {
		return
	}
	f.state.Set(asyncstate.Success(f.Publications()))
}
