package asyncstate

import (
	"context"
	"testing"
	"time"

	"github.com/pubsync/pubsync/internal/sync/envelope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateAccessors(t *testing.T) {
	s := Success([]string{"a"})
	data, ok := s.Data()
	assert.True(t, ok)
	assert.Equal(t, []string{"a"}, data)
	_, ok = s.Message()
	assert.False(t, ok)
	assert.True(t, s.IsTerminal())

	f := Failure[int]("boom")
	msg, ok := f.Message()
	assert.True(t, ok)
	assert.Equal(t, "boom", msg)
	_, ok = f.Data()
	assert.False(t, ok)
	assert.Equal(t, "error(boom)", f.String())

	assert.False(t, Loading[int]().IsTerminal())
	assert.Equal(t, "idle", Idle[int]().String())
}

func TestObservableTransitions(t *testing.T) {
	o := NewObservable[int]()
	assert.Equal(t, KindIdle, o.Get().Kind())

	assert.True(t, o.Set(Loading[int]()))
	assert.False(t, o.Set(Loading[int]()), "loading must not republish itself")
	assert.True(t, o.Set(Success(5)))
	assert.True(t, o.Set(Loading[int]()), "success can be superseded")
	assert.True(t, o.Set(Failure[int]("x")))
	assert.True(t, o.Set(Loading[int]()), "error can be superseded")
}

func TestSubscribeSeesCurrentValueOnly(t *testing.T) {
	o := NewObservable[int]()
	o.Set(Loading[int]())
	o.Set(Success(1))

	ch, unsub := o.Subscribe(4)
	defer unsub()

	first := <-ch
	assert.Equal(t, KindSuccess, first.Kind())
	select {
	case s := <-ch:
		t.Fatalf("late subscriber received history: %v", s)
	default:
	}
}

func TestMultipleSubscribersBroadcast(t *testing.T) {
	o := NewObservable[string]()
	ch1, unsub1 := o.Subscribe(2)
	defer unsub1()
	ch2, unsub2 := o.Subscribe(2)
	defer unsub2()
	<-ch1
	<-ch2

	o.Set(Loading[string]())
	for i, ch := range []<-chan State[string]{ch1, ch2} {
		select {
		case s := <-ch:
			assert.Equal(t, KindLoading, s.Kind(), "subscriber %d", i)
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d: timeout waiting for state", i)
		}
	}
}

func TestSlowSubscriberKeepsLatest(t *testing.T) {
	o := NewObservable[int]()
	ch, unsub := o.Subscribe(1)
	defer unsub()

	o.Set(Loading[int]())
	o.Set(Success(1))
	o.Set(Loading[int]())
	o.Set(Success(2))

	s := <-ch
	v, ok := s.Data()
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestUnsubscribeAndClose(t *testing.T) {
	o := NewObservable[int]()
	ch, unsub := o.Subscribe(1)
	<-ch
	unsub()
	_, ok := <-ch
	assert.False(t, ok)

	ch2, _ := o.Subscribe(1)
	<-ch2
	o.Close()
	_, ok = <-ch2
	assert.False(t, ok)
	assert.False(t, o.Set(Success(3)))

	ch3, unsub3 := o.Subscribe(1)
	unsub3()
	_, ok = <-ch3
	assert.False(t, ok)
}

func TestRun(t *testing.T) {
	o := NewObservable[int]()
	ch, unsub := o.Subscribe(8)
	defer unsub()
	<-ch

	e := Run(context.Background(), o, func(context.Context) envelope.Envelope[int] {
		return envelope.Success(7, 200)
	}, "load failed")
	require.True(t, e.OK())
	assert.Equal(t, KindLoading, (<-ch).Kind())
	final := <-ch
	v, _ := final.Data()
	assert.Equal(t, 7, v)

	Run(context.Background(), o, func(context.Context) envelope.Envelope[int] {
		return envelope.Failure[int]("not found", 404)
	}, "load failed")
	msg, ok := o.Get().Message()
	require.True(t, ok)
	assert.Equal(t, "not found", msg)

	Run(context.Background(), o, func(context.Context) envelope.Envelope[int] {
		return envelope.Envelope[int]{StatusCode: 200}
	}, "load failed")
	msg, _ = o.Get().Message()
	assert.Equal(t, "load failed", msg)
}

func TestRunRecoversPanic(t *testing.T) {
	o := NewObservable[int]()
	e := Run(context.Background(), o, func(context.Context) envelope.Envelope[int] {
		panic("bad state")
	}, "something went wrong")
	assert.False(t, e.OK())
	msg, ok := o.Get().Message()
	require.True(t, ok)
	assert.Equal(t, "something went wrong", msg)
}
