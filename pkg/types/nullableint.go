package types

import (
	"encoding/json"
	"strconv"
)

// NullableInt64 represents an integer that may be absent.
type NullableInt64 struct {
	Value int64
	Valid bool
}

func (ni NullableInt64) IsNil() bool {
	return !ni.Valid
}

// String returns the decimal form of the value, or an empty string when absent.
// This is the form used when the value is persisted as a string.
func (ni NullableInt64) String() string {
	if !ni.Valid {
		return ""
	}
	return strconv.FormatInt(ni.Value, 10)
}

func (ni NullableInt64) Ptr() *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Value
	return &v
}

func (ni NullableInt64) MarshalJSON() ([]byte, error) {
	if ni.Valid {
		return json.Marshal(ni.Value)
	}
	return []byte("null"), nil
}

func (ni *NullableInt64) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*ni = NullInt64()
		return nil
	}
	ni.Valid = true
	return json.Unmarshal(data, &ni.Value)
}

// NullableInt64From creates a present NullableInt64.
func NullableInt64From(v int64) NullableInt64 {
	return NullableInt64{Value: v, Valid: true}
}

// ParseNullableInt64 parses a persisted decimal string. An empty string yields an
// absent value; a malformed string yields an error.
func ParseNullableInt64(s string) (NullableInt64, error) {
	if s == "" {
		return NullInt64(), nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return NullInt64(), err
	}
	return NullableInt64From(v), nil
}

// NullInt64 creates an absent NullableInt64.
func NullInt64() NullableInt64 {
	return NullableInt64{}
}

var _ json.Marshaler = NullableInt64{}
var _ json.Unmarshaler = &NullableInt64{}
var _ Nullable = NullableInt64{}
