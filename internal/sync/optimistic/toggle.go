// Package optimistic implements boolean toggles (like, bookmark) that update local
// state immediately and confirm with the server in the background.
//
// Every toggle bumps a per-entity version. A response is applied as it arrives only
// when no newer toggle of the same entity has been issued since; older responses are
// held back. When the last outstanding toggle of an entity resolves, the entity
// settles on the server's state: the most recently received server confirmation if
// any arrived, otherwise the pre-toggle state with the successful toggles replayed.
package optimistic

import (
	"context"
	"sync"

	"github.com/pubsync/pubsync/internal/sync/envelope"
	"github.com/rs/zerolog/log"
)

// Entry is the locally observed state of one toggleable field.
type Entry struct {
	Active  bool // liked, bookmarked
	Count   int  // associated counter, meaningful when Counted
	Counted bool // false for toggles without a counter, such as bookmarks
}

// flip returns the entry after one toggle and the counter delta it applied.
// The counter never goes below zero.
func (e Entry) flip() (Entry, int) {
	next := e
	next.Active = !e.Active
	if !e.Counted {
		return next, 0
	}
	delta := 1
	if !next.Active {
		delta = -1
	}
	next.Count = clamp(e.Count + delta)
	return next, delta
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// Confirmation is the server's view of an entity after a toggle. Either field may be
// nil when the server does not report it.
type Confirmation struct {
	Active *bool
	Count  *int
}

func (c Confirmation) applyTo(e Entry) Entry {
	if c.Active != nil {
		e.Active = *c.Active
	}
	if c.Count != nil && e.Counted {
		e.Count = clamp(*c.Count)
	}
	return e
}

func (c Confirmation) empty() bool {
	return c.Active == nil && c.Count == nil
}

// Call issues the confirming network request for one toggle.
type Call[K comparable] func(ctx context.Context, id K) envelope.Envelope[Confirmation]

// Outcome describes how one toggle resolved.
type Outcome struct {
	Version    uint64
	OK         bool   // the server accepted the toggle
	Stale      bool   // a newer toggle was issued before this one resolved
	RolledBack bool   // the optimistic change was reverted
	Message    string // failure message when !OK
	Entry      Entry  // entity state after applying this outcome
}

type flag struct {
	Entry
	version uint64 // bumped by every toggle
	rev     uint64 // bumped by every change of Entry, orders notifications

	// per burst of overlapping toggles
	inFlight    int
	base        Entry
	succeeded   int
	lastConfirm *Confirmation
}

// Toggler tracks toggleable entities keyed by K.
type Toggler[K comparable] struct {
	name     string
	call     Call[K]
	observer func(K, Entry)

	mu      sync.Mutex
	entries map[K]*flag
	wg      sync.WaitGroup

	notifyMu sync.Mutex
	notified map[K]uint64
}

// Option configures a Toggler.
type Option[K comparable] func(*Toggler[K])

// WithObserver registers a function called after every change of an entity's local
// state. Calls are serialized and a change superseded by a newer one is not
// delivered, so the last call for an entity always carries its current state. fn
// may read the Toggler but must not call Toggle or Seed.
func WithObserver[K comparable](fn func(id K, e Entry)) Option[K] {
	return func(t *Toggler[K]) {
		t.observer = fn
	}
}

// New returns a Toggler whose confirmations are issued through call. name is used in logs.
func New[K comparable](name string, call Call[K], opts ...Option[K]) *Toggler[K] {
	t := &Toggler[K]{
		name:    name,
		call:    call,
		entries:  make(map[K]*flag),
		notified: make(map[K]uint64),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Seed records the server's state for id, for example from a freshly loaded page.
// It is ignored while a toggle of id is outstanding.
func (t *Toggler[K]) Seed(id K, e Entry) {
	t.mu.Lock()
	f, ok := t.entries[id]
	if ok && f.inFlight > 0 {
		t.mu.Unlock()
		return
	}
	if !ok {
		f = &flag{}
		t.entries[id] = f
	}
	e.Count = clamp(e.Count)
	f.Entry = e
	f.rev++
	rev := f.rev
	t.mu.Unlock()
	t.notify(id, e, rev)
}

// Get returns the local state of id.
func (t *Toggler[K]) Get(id K) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.entries[id]
	if !ok {
		return Entry{}, false
	}
	return f.Entry, true
}

// Pending reports whether a toggle of id is outstanding.
func (t *Toggler[K]) Pending(id K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.entries[id]
	return ok && f.inFlight > 0
}

// Toggle flips id locally, returns the optimistic state and confirms in the
// background. The returned channel receives exactly one Outcome and is then closed.
func (t *Toggler[K]) Toggle(ctx context.Context, id K) (Entry, <-chan Outcome) {
	t.mu.Lock()
	f, ok := t.entries[id]
	if !ok {
		f = &flag{}
		t.entries[id] = f
	}
	if f.inFlight == 0 {
		f.base = f.Entry
		f.succeeded = 0
		f.lastConfirm = nil
	}
	prev := f.Entry
	next, delta := prev.flip()
	f.Entry = next
	f.version++
	version := f.version
	f.inFlight++
	f.rev++
	rev := f.rev
	t.mu.Unlock()

	t.notify(id, next, rev)
	log.Debug().Str("toggle", t.name).Interface("entity", id).Uint64("version", version).Bool("active", next.Active).Msg("optimistic update")

	done := make(chan Outcome, 1)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer close(done)
		env := t.safeCall(ctx, id)
		done <- t.resolve(id, version, prev, delta, env)
	}()
	return next, done
}

func (t *Toggler[K]) safeCall(ctx context.Context, id K) (env envelope.Envelope[Confirmation]) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("toggle", t.name).Interface("panic", r).Msg("toggle call panicked")
			env = envelope.Failure[Confirmation]("", 0)
		}
	}()
	return t.call(ctx, id)
}

func (t *Toggler[K]) resolve(id K, version uint64, prev Entry, delta int, env envelope.Envelope[Confirmation]) Outcome {
	t.mu.Lock()
	f := t.entries[id]
	f.inFlight--
	out := Outcome{Version: version, OK: env.OK(), Stale: version != f.version}
	before := f.Entry

	if env.OK() {
		f.succeeded++
		if c := *env.Payload; !c.empty() {
			f.lastConfirm = &c
			if !out.Stale {
				f.Entry = c.applyTo(f.Entry)
			}
		}
	} else {
		out.Message = env.MessageOr("")
		if !out.Stale {
			f.Entry.Active = prev.Active
			if f.Counted {
				f.Entry.Count = clamp(f.Entry.Count - delta)
			}
			out.RolledBack = true
		}
	}

	if f.inFlight == 0 {
		f.Entry = f.settle()
	}
	out.Entry = f.Entry
	changed := f.Entry != before
	if changed {
		f.rev++
	}
	rev := f.rev
	t.mu.Unlock()

	if changed {
		t.notify(id, out.Entry, rev)
	}
	ev := log.Debug()
	if !out.OK {
		ev = log.Warn()
	}
	ev.Str("toggle", t.name).Interface("entity", id).Uint64("version", version).
		Bool("ok", out.OK).Bool("stale", out.Stale).Bool("rolled_back", out.RolledBack).
		Str("msg", out.Message).Msg("toggle resolved")
	return out
}

// settle computes the server's state once no toggle of the entity is outstanding.
func (f *flag) settle() Entry {
	if f.lastConfirm != nil {
		return f.lastConfirm.applyTo(f.replay())
	}
	return f.replay()
}

// replay applies the accepted toggles of the burst to the state that preceded it.
func (f *flag) replay() Entry {
	e := f.base
	for i := 0; i < f.succeeded; i++ {
		e, _ = e.flip()
	}
	return e
}

// Wait blocks until every outstanding confirmation has resolved.
func (t *Toggler[K]) Wait() {
	t.wg.Wait()
}

// notify delivers e unless a later revision of id has already been delivered.
func (t *Toggler[K]) notify(id K, e Entry, rev uint64) {
	if t.observer == nil {
		return
	}
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()
	if rev <= t.notified[id] {
		return
	}
	t.notified[id] = rev
	t.observer(id, e)
}
