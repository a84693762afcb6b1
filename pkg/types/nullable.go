// Package types provides nullable value types used by the session model, where an
// absent value (logged out, never persisted) must be told apart from a zero value.
package types

// Nullable is implemented by types that can represent an absent value.
type Nullable interface {
	// IsNil returns true if the value is absent.
	IsNil() bool
}
