package asyncstate

import (
	"sync"
	"sync/atomic"
)

// subscriber is one reader of an Observable. Delivery keeps only the most recent
// states: when the buffer is full the oldest pending state is dropped.
type subscriber[T any] struct {
	ch chan State[T]

	mu     sync.Mutex // protects closed flag and send
	closed bool
}

func (s *subscriber[T]) send(st State[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- st:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

func (s *subscriber[T]) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Observable holds the current State of one operation. It has a single writer, the
// controller owning the operation, and any number of readers. Readers get the current
// value, never history: Get is a lock-free load and a new subscription starts with
// the current value.
type Observable[T any] struct {
	current atomic.Pointer[State[T]]

	mu          sync.Mutex
	subscribers map[uint64]*subscriber[T]
	counter     uint64
	closed      bool
}

// NewObservable returns an Observable in the Idle state.
func NewObservable[T any]() *Observable[T] {
	o := &Observable[T]{subscribers: make(map[uint64]*subscriber[T])}
	idle := Idle[T]()
	o.current.Store(&idle)
	return o
}

// Get returns the current state.
func (o *Observable[T]) Get() State[T] {
	return *o.current.Load()
}

// Set publishes a new state. A Loading state is not republished while the current
// state is already Loading, and nothing is published after Close. Set reports
// whether the state was published.
func (o *Observable[T]) Set(s State[T]) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return false
	}
	if s.kind == KindLoading && o.current.Load().kind == KindLoading {
		return false
	}
	o.current.Store(&s)
	for _, sub := range o.subscribers {
		sub.send(s)
	}
	return true
}

// Subscribe returns a channel receiving the current state followed by every later
// state, and a function that ends the subscription. A reader that falls behind by
// more than bufferSize states skips the older ones.
func (o *Observable[T]) Subscribe(bufferSize int) (<-chan State[T], func()) {
	if bufferSize < 1 {
		bufferSize = 1
	}
	sub := &subscriber[T]{ch: make(chan State[T], bufferSize)}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		sub.close()
		return sub.ch, func() {}
	}
	o.counter++
	id := o.counter
	o.subscribers[id] = sub
	sub.send(*o.current.Load())

	unsubscribe := func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if s, ok := o.subscribers[id]; ok {
			s.close()
			delete(o.subscribers, id)
		}
	}
	return sub.ch, unsubscribe
}

// Close ends all subscriptions. The last state remains readable through Get.
func (o *Observable[T]) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}
	o.closed = true
	for id, sub := range o.subscribers {
		sub.close()
		delete(o.subscribers, id)
	}
}
