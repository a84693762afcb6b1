// Package asyncstate models the lifecycle of an asynchronous operation as observed by
// a presentation layer. A State is one of Idle, Loading, Success or Error; an
// Observable holds the current State of one logical operation and broadcasts changes
// to any number of readers.
package asyncstate

import "fmt"

// Kind discriminates the variants of State.
type Kind int

const (
	KindIdle Kind = iota
	KindLoading
	KindSuccess
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindIdle:
		return "idle"
	case KindLoading:
		return "loading"
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// State is a tagged union. Data is meaningful only for Success and Message only
// for Error; use the accessors rather than reading fields.
type State[T any] struct {
	kind    Kind
	data    T
	message string
}

func Idle[T any]() State[T] {
	return State[T]{kind: KindIdle}
}

func Loading[T any]() State[T] {
	return State[T]{kind: KindLoading}
}

func Success[T any](data T) State[T] {
	return State[T]{kind: KindSuccess, data: data}
}

// Failure builds the Error variant.
func Failure[T any](message string) State[T] {
	return State[T]{kind: KindError, message: message}
}

func (s State[T]) Kind() Kind {
	return s.kind
}

// Data returns the payload of a Success state.
func (s State[T]) Data() (T, bool) {
	if s.kind != KindSuccess {
		var zero T
		return zero, false
	}
	return s.data, true
}

// Message returns the message of an Error state.
func (s State[T]) Message() (string, bool) {
	if s.kind != KindError {
		return "", false
	}
	return s.message, true
}

// IsTerminal reports whether the state is Success or Error.
func (s State[T]) IsTerminal() bool {
	return s.kind == KindSuccess || s.kind == KindError
}

func (s State[T]) String() string {
	switch s.kind {
	case KindSuccess:
		return fmt.Sprintf("success(%v)", s.data)
	case KindError:
		return fmt.Sprintf("error(%s)", s.message)
	default:
		return s.kind.String()
	}
}
