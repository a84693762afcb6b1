package types

import "encoding/json"

// NullableString represents a string that may be absent.
type NullableString struct {
	Value string
	Valid bool // Valid is true if Value is present
}

// String returns the value, or an empty string when absent.
func (ns NullableString) String() string {
	if ns.Valid {
		return ns.Value
	}
	return ""
}

// IsNil reports whether the string is absent or empty. The session layer treats an
// empty token the same as a missing one.
func (ns NullableString) IsNil() bool {
	return !ns.Valid || ns.Value == ""
}

// Ptr returns a pointer to the value, or nil when absent.
func (ns NullableString) Ptr() *string {
	if !ns.Valid {
		return nil
	}
	v := ns.Value
	return &v
}

func (ns NullableString) MarshalJSON() ([]byte, error) {
	if ns.Valid {
		return json.Marshal(ns.Value)
	}
	return []byte("null"), nil
}

func (ns *NullableString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*ns = NullString()
		return nil
	}
	ns.Valid = true
	return json.Unmarshal(data, &ns.Value)
}

// NullableStringFrom creates a present NullableString.
func NullableStringFrom(s string) NullableString {
	return NullableString{Value: s, Valid: true}
}

// NullString creates an absent NullableString.
func NullString() NullableString {
	return NullableString{}
}

var _ json.Marshaler = NullableString{}
var _ json.Unmarshaler = &NullableString{}
var _ Nullable = NullableString{}
