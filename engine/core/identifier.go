package core

import "github.com/google/uuid"

// NewIdentifier returns a fresh random GUID for an asset.
func NewIdentifier() uuid.UUID {
	return uuid.New()
}

// ParseIdentifier parses s, returning uuid.Nil and false for blank or malformed input.
func ParseIdentifier(s string) (uuid.UUID, bool) {
	if s == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
