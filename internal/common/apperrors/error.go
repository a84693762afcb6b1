// Package apperrors provides the error taxonomy used across the client. Every error
// carries a Kind describing where the failure happened (transport, server, input) and,
// for server failures, the HTTP status code the remote returned. Errors can be derived
// from one another so that errors.Is matches both the specific error and its family.
package apperrors

// Kind classifies an error by the layer that produced it.
type Kind int

const (
	KindUnknown          Kind = iota // unclassified failure
	KindNetworkTimeout               // request deadline or client timeout elapsed
	KindNetworkIO                    // connection refused, DNS failure, reset
	KindServerError                  // remote returned a non-success status code
	KindClientValidation             // input rejected before dispatch
)

// String returns a short lowercase name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNetworkTimeout:
		return "network_timeout"
	case KindNetworkIO:
		return "network_io"
	case KindServerError:
		return "server_error"
	case KindClientValidation:
		return "client_validation"
	default:
		return "unknown"
	}
}

// Error defines the interface for application errors. It extends the standard error
// interface with derivation, kind and status code management. All derivation methods
// return Error to support chaining.
type Error interface {
	error
	Unwrap() error // support for errors.Is / errors.As

	New(msg string) Error                  // creates a new error using current as template
	Msg(msg string) Error                  // creates a new error with message and wraps original
	MsgErr(msg string, err ...error) Error // creates error with message and wraps extra errors
	Err(err ...error) Error                // attaches additional errors to current error
	SetStatusCode(int) Error               // sets the HTTP status code for the error
	StatusCode() int                       // returns the current status code
	Kind() Kind                            // returns the error classification
	ErrorAll() string                      // returns full message including wrapped errors
	UnwrapAll() []error                    // returns all wrapped errors
}
