// Package search turns a stream of query edits into debounced, paginated and
// cancellable remote searches.
//
// Every new query starts a new generation. Results are applied only when their
// generation is still current, so a page that arrives after the user kept typing is
// dropped instead of being merged into the new results. At most one page request is
// outstanding per generation.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pubsync/pubsync/internal/sync/asyncstate"
	"github.com/pubsync/pubsync/internal/sync/envelope"
	"github.com/rs/zerolog/log"
)

const (
	DefaultPageSize = 20
	DefaultDebounce = 300 * time.Millisecond
)

// MessageSearchFailed is shown when a failed page carries no message.
const MessageSearchFailed = "search failed"

// Fetch loads one zero-based page of results for query.
type Fetch[T any] func(ctx context.Context, query string, page int) envelope.Envelope[[]T]

// Options configures a Coordinator. Zero values select the defaults.
type Options struct {
	PageSize int
	Debounce time.Duration
	Clock    Clock
}

// Session is a snapshot of the coordinator's search state.
type Session[T any] struct {
	Query      string
	Page       int // next page to request
	Items      []T
	Exhausted  bool
	Generation uint64
	InFlight   bool
}

// Coordinator owns one incremental search.
type Coordinator[T any] struct {
	fetch    Fetch[T]
	pageSize int
	debounce time.Duration
	clock    Clock

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	sess        Session[T]
	timer       Timer
	cancelFetch context.CancelFunc
	closed      bool

	state *asyncstate.Observable[[]T]
	wg    sync.WaitGroup
}

// NewCoordinator returns an idle coordinator that loads pages through fetch.
func NewCoordinator[T any](fetch Fetch[T], opts Options) *Coordinator[T] {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator[T]{
		fetch:    fetch,
		pageSize: opts.PageSize,
		debounce: opts.Debounce,
		clock:    opts.Clock,
		ctx:      ctx,
		cancel:   cancel,
		state:    asyncstate.NewObservable[[]T](),
	}
}

// State exposes the accumulated results for rendering.
func (c *Coordinator[T]) State() *asyncstate.Observable[[]T] {
	return c.state
}

// Snapshot returns a copy of the current search state.
func (c *Coordinator[T]) Snapshot() Session[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.sess
	s.Items = append([]T(nil), c.sess.Items...)
	return s
}

// Search makes query the active query. Repeating the active query does nothing.
// Otherwise the pending debounce timer and any outstanding page request are
// abandoned, the results are reset and the first page is requested once the
// debounce delay passes without another call.
func (c *Coordinator[T]) Search(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || query == c.sess.Query {
		return
	}
	c.stopLocked()

	gen := c.sess.Generation + 1
	c.sess = Session[T]{Query: query, Generation: gen}
	c.state.Set(asyncstate.Idle[[]T]())

	log.Debug().Str("query", query).Uint64("generation", gen).Msg("search query changed")
	if isBlank(query) {
		return
	}
	c.timer = c.clock.AfterFunc(c.debounce, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.loadMoreLocked(gen)
	})
}

// LoadMore requests the next page of the active query. It does nothing while a page
// is outstanding, after the last page, or when the query is blank, so it is safe to
// call from a scroll listener that fires repeatedly. It reports whether a request
// was started.
func (c *Coordinator[T]) LoadMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadMoreLocked(c.sess.Generation)
}

// loadMoreLocked starts the next page fetch for generation gen. It bails out when
// gen is no longer the active generation. c.mu must be held.
func (c *Coordinator[T]) loadMoreLocked(gen uint64) bool {
	if c.closed || gen != c.sess.Generation || c.sess.InFlight || c.sess.Exhausted || isBlank(c.sess.Query) {
		return false
	}
	c.sess.InFlight = true
	query, page := c.sess.Query, c.sess.Page
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancelFetch = cancel
	c.state.Set(asyncstate.Loading[[]T]())
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		defer cancel()

		var env envelope.Envelope[[]T]
		if ctx.Err() == nil {
			env = c.fetch(ctx, query, page)
		}
		c.complete(gen, page, env)
	}()
	return true
}

func (c *Coordinator[T]) complete(gen uint64, page int, env envelope.Envelope[[]T]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.sess.Generation {
		log.Debug().Uint64("generation", gen).Int("page", page).Msg("discarding stale search page")
		return
	}
	c.sess.InFlight = false
	c.cancelFetch = nil

	if !env.OK() {
		c.sess.Exhausted = true
		msg := env.MessageOr(MessageSearchFailed)
		log.Warn().Str("query", c.sess.Query).Int("page", page).Str("msg", msg).Msg("search page failed")
		c.state.Set(asyncstate.Failure[[]T](msg))
		return
	}

	items := *env.Payload
	c.sess.Items = append(c.sess.Items, items...)
	c.sess.Page++
	if len(items) < c.pageSize {
		c.sess.Exhausted = true
	}
	c.state.Set(asyncstate.Success(append([]T(nil), c.sess.Items...)))
}

// stopLocked abandons the pending timer and the outstanding request.
func (c *Coordinator[T]) stopLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancelFetch != nil {
		c.cancelFetch()
		c.cancelFetch = nil
	}
}

// Wait blocks until every started page request has completed.
func (c *Coordinator[T]) Wait() {
	c.wg.Wait()
}

// Close abandons pending work and stops publishing state.
func (c *Coordinator[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopLocked()
	c.mu.Unlock()

	c.cancel()
	c.state.Close()
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
