// Package envelope normalizes the outcome of a remote call into a single result
// shape. An Envelope carries either a payload (success) or a short human readable
// message (failure), together with the HTTP status code. Classification never
// fails: malformed bodies and transport errors degrade to a failure message.
package envelope

import (
	"bytes"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/pubsync/pubsync/internal/common/apperrors"
	"github.com/tidwall/gjson"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Default messages used when the server does not supply one.
const (
	MessageUnknownError    = "unknown error"
	MessageInvalidResponse = "invalid response body"
)

// ErrInvalidResponse is reported when a success body cannot be decoded.
var ErrInvalidResponse = apperrors.ErrServer.New(MessageInvalidResponse)

// Envelope is the normalized result of one remote call. It is created once,
// consumed by the caller and never cached.
type Envelope[T any] struct {
	Payload    *T
	Message    *string
	StatusCode int

	err error
}

// NoContent is the payload type for calls whose success carries no body.
type NoContent struct{}

// OK reports whether the envelope carries a payload.
func (e Envelope[T]) OK() bool {
	return e.Payload != nil
}

// MessageOr returns the failure message, or def when the envelope has none.
// A well formed failure always has a message; def covers the degenerate case of
// an envelope with neither payload nor message.
func (e Envelope[T]) MessageOr(def string) string {
	if e.Message != nil && *e.Message != "" {
		return *e.Message
	}
	if def == "" {
		return MessageUnknownError
	}
	return def
}

// Err converts a failure envelope into an apperrors error. It returns nil on success.
func (e Envelope[T]) Err() error {
	if e.OK() {
		return nil
	}
	msg := e.MessageOr(MessageUnknownError)
	if e.err != nil {
		var ae apperrors.Error
		if errors.As(e.err, &ae) {
			return ae.Msg(msg)
		}
		return apperrors.ErrUnknown.MsgErr(msg, e.err)
	}
	return apperrors.ErrServer.New(msg).SetStatusCode(e.StatusCode)
}

// Kind returns the error classification of a failure envelope, or KindUnknown on success.
func (e Envelope[T]) Kind() apperrors.Kind {
	if e.OK() {
		return apperrors.KindUnknown
	}
	return apperrors.KindOf(e.Err())
}

// Success builds a success envelope.
func Success[T any](v T, status int) Envelope[T] {
	return Envelope[T]{Payload: &v, StatusCode: status}
}

// Failure builds a failure envelope carrying msg.
func Failure[T any](msg string, status int) Envelope[T] {
	if msg == "" {
		msg = MessageUnknownError
	}
	return Envelope[T]{Message: &msg, StatusCode: status}
}

// FromError builds a failure envelope from an error raised before or instead of a
// server response, such as input validation or a transport failure. The status code is 0.
func FromError[T any](err error) Envelope[T] {
	if err == nil {
		return Failure[T](MessageUnknownError, 0)
	}
	e := Failure[T](err.Error(), 0)
	e.err = err
	return e
}

// Map converts the payload of a success envelope, keeping failures as they are.
func Map[T, U any](e Envelope[T], f func(T) U) Envelope[U] {
	out := Envelope[U]{Message: e.Message, StatusCode: e.StatusCode, err: e.err}
	if e.Payload != nil {
		v := f(*e.Payload)
		out.Payload = &v
	}
	return out
}

// Raw is a transport outcome before classification. Err is set when the request
// never produced a response.
type Raw struct {
	StatusCode int
	Body       []byte
	Err        error
}

// Fallbacks maps status codes to messages used when the error body has no "msg".
type Fallbacks map[int]string

// UnexpectedStatus is the message for failure codes without a specific fallback.
func UnexpectedStatus(code int) string {
	return fmt.Sprintf("unexpected status %d", code)
}

// Classify turns a raw transport outcome into an Envelope. A status in codes is a
// success and the body is decoded into T; an empty body yields the zero T so that a
// success always carries a payload. Any other status is a failure whose message is
// the "msg" field of the JSON error body, else the fallback for the code, else a
// generic message naming the code.
func Classify[T any](raw Raw, codes SuccessCodes, fallbacks Fallbacks) Envelope[T] {
	if raw.Err != nil {
		return FromError[T](raw.Err)
	}

	if codes.Contains(raw.StatusCode) {
		v, err := decode[T](raw.Body)
		if err != nil {
			e := Failure[T](MessageInvalidResponse, raw.StatusCode)
			e.err = ErrInvalidResponse.Err(err).SetStatusCode(raw.StatusCode)
			return e
		}
		return Success(v, raw.StatusCode)
	}

	if msg := ErrorMessage(raw.Body); msg != "" {
		return Failure[T](msg, raw.StatusCode)
	}
	if msg, ok := fallbacks[raw.StatusCode]; ok && msg != "" {
		return Failure[T](msg, raw.StatusCode)
	}
	return Failure[T](UnexpectedStatus(raw.StatusCode), raw.StatusCode)
}

// ErrorMessage extracts the "msg" string from a JSON error body. It returns "" when
// the body is empty, not JSON, or has no string "msg" field.
func ErrorMessage(body []byte) string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return ""
	}
	m := gjson.GetBytes(body, "msg")
	if m.Type != gjson.String {
		return ""
	}
	return m.String()
}

func decode[T any](body []byte) (T, error) {
	var v T
	if _, ok := any(v).(NoContent); ok {
		return v, nil
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return v, err
	}
	return v, nil
}
