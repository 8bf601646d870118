// Package uid generates identifiers for correlation ids and OAuth state values.
package uid

import "github.com/google/uuid"

// StringID produces unique string identifiers.
type StringID interface {
	Generate() string
}

// UUID generates RFC 9562 UUID strings.
type UUID struct {
	random bool
}

// NewUUID returns a time-ordered (v7) UUID generator, used for correlation ids.
func NewUUID() *UUID {
	return &UUID{}
}

// NewRandomUUID returns a v4 UUID generator whose output carries no timestamp,
// suitable for unguessable values such as OAuth state.
func NewRandomUUID() *UUID {
	return &UUID{random: true}
}

// Generate returns a new UUID string.
func (u *UUID) Generate() string {
	if u.random {
		return uuid.NewString()
	}

	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
