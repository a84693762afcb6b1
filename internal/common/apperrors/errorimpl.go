package apperrors

import (
	"errors"
	"strings"
)

// appError implements the Error interface.
type appError struct {
	msg           string  // primary error message
	base          error   // base error for errors.Is/As compatibility
	wrappedErrors []error // additional wrapped errors
	statuscode    int     // HTTP status code, 0 for transport and input errors
	kind          Kind
}

// Error returns the primary message.
func (e *appError) Error() string {
	return e.msg
}

// ErrorAll returns the message followed by the messages of all wrapped errors
// that are not part of the derivation chain.
func (e *appError) ErrorAll() string {
	var b strings.Builder
	b.WriteString(e.msg)
	for _, err := range e.wrappedErrors {
		var ae *appError
		if errors.As(err, &ae) && errors.Is(e, ae) && ae.msg == e.msg {
			continue
		}
		b.WriteString("; ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *appError) Unwrap() error {
	return e.base
}

func (e *appError) UnwrapAll() []error {
	return e.wrappedErrors
}

// Msg creates a new error with a new message that wraps the original.
// Kind and status code are inherited.
func (e *appError) Msg(msg string) Error {
	return &appError{
		msg:           msg,
		base:          e,
		wrappedErrors: append([]error{e}, e.wrappedErrors...),
		statuscode:    e.statuscode,
		kind:          e.kind,
	}
}

// New creates a fresh error of the same family. Kind and status code are inherited.
func (e *appError) New(msg string) Error {
	return &appError{
		msg:        msg,
		base:       e,
		statuscode: e.statuscode,
		kind:       e.kind,
	}
}

func (e *appError) MsgErr(msg string, errs ...error) Error {
	all := append([]error{e}, errs...)
	return &appError{
		msg:           msg,
		base:          e,
		wrappedErrors: all,
		statuscode:    e.statuscode,
		kind:          e.kind,
	}
}

func (e *appError) Err(errs ...error) Error {
	all := append([]error{e}, errs...)
	return &appError{
		msg:           e.msg,
		base:          e,
		wrappedErrors: all,
		statuscode:    e.statuscode,
		kind:          e.kind,
	}
}

// SetStatusCode returns a shallow copy with an updated status code.
func (e *appError) SetStatusCode(code int) Error {
	cp := *e
	cp.statuscode = code
	return &cp
}

func (e *appError) StatusCode() int {
	return e.statuscode
}

func (e *appError) Kind() Kind {
	return e.kind
}

// Is reports a match against the base error or any wrapped error.
func (e *appError) Is(target error) bool {
	if target == nil {
		return false
	}
	if errors.Is(e.base, target) {
		return true
	}
	for _, err := range e.wrappedErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// New creates a root error of KindUnknown.
func New(msg string) Error {
	return &appError{msg: msg}
}

// NewKind creates a root error of the given kind.
func NewKind(kind Kind, msg string) Error {
	return &appError{msg: msg, kind: kind}
}

// Root errors for each kind. Derive from these with New or Msg so that callers
// can test the family with errors.Is.
var (
	ErrUnknown          = NewKind(KindUnknown, "unknown error")
	ErrNetworkTimeout   = NewKind(KindNetworkTimeout, "request timed out")
	ErrNetworkIO        = NewKind(KindNetworkIO, "network unavailable")
	ErrServer           = NewKind(KindServerError, "unexpected server response")
	ErrClientValidation = NewKind(KindClientValidation, "invalid input")
)

// KindOf returns the Kind of err, or KindUnknown when err is not an Error.
func KindOf(err error) Kind {
	var ae Error
	if errors.As(err, &ae) {
		return ae.Kind()
	}
	return KindUnknown
}

// StatusCodeOf returns the status code carried by err, or 0.
func StatusCodeOf(err error) int {
	var ae Error
	if errors.As(err, &ae) {
		return ae.StatusCode()
	}
	return 0
}
