// Package security provides identifier generation utilities
package security

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// GenerateULID generates a new ULID string.
func GenerateULID() string {
	return ulid.Make().String()
}

// ParseULID validates a ULID string and returns the time it was minted.
func ParseULID(id string) (time.Time, error) {
	parsed, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid ulid %q: %w", id, err)
	}
	return ulid.Time(parsed.Time()), nil
}
