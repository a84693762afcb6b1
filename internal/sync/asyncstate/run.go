package asyncstate

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/pubsync/pubsync/internal/sync/envelope"
	"github.com/rs/zerolog/log"
)

// Run drives o through Loading and then Success or Error according to the envelope
// returned by call. defaultMsg is used when a failure envelope carries no message.
// A panic inside call is recovered and reported as an Error state.
func Run[T any](ctx context.Context, o *Observable[T], call func(context.Context) envelope.Envelope[T], defaultMsg string) (result envelope.Envelope[T]) {
	o.Set(Loading[T]())

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack_trace", string(debug.Stack())).
				Msg("panic in async operation")
			result = envelope.Failure[T](defaultMsg, 0)
			o.Set(Failure[T](result.MessageOr(defaultMsg)))
		}
	}()

	result = call(ctx)
	Apply(o, result, defaultMsg)
	return result
}

// Apply publishes the terminal state corresponding to e.
func Apply[T any](o *Observable[T], e envelope.Envelope[T], defaultMsg string) {
	if e.Payload != nil {
		o.Set(Success(*e.Payload))
		return
	}
	o.Set(Failure[T](e.MessageOr(defaultMsg)))
}
