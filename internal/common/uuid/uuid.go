// Package uuid generates time-ordered request identifiers. It wraps
// github.com/google/uuid and uses version 7 so ids sort by creation time in logs.
package uuid

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"
)

// UUID represents a UUID, aliased from github.com/google/uuid.UUID
type UUID = uuid.UUID

// New returns a new UUIDv7. Panics if the random source fails.
func New() UUID {
	id, err := uuid.NewV7()
	if err != nil {
		panic(err)
	}
	return id
}

// NewRequestID returns a new UUIDv7 in its canonical string form, used for the
// X-Request-ID header on outgoing calls.
func NewRequestID() string {
	return New().String()
}

// Parse parses a UUID string.
func Parse(s string) (UUID, error) {
	return uuid.Parse(s)
}

// IsUUIDv7 reports whether the given UUID is a UUIDv7.
func IsUUIDv7(id UUID) bool {
	return id.Version() == uuid.Version(7)
}

// IssuedAt extracts the millisecond timestamp stored in the top 48 bits of a UUIDv7.
func IssuedAt(u UUID) time.Time {
	tsMillis := binary.BigEndian.Uint64(u[0:8]) >> 16
	return time.UnixMilli(int64(tsMillis))
}
