package id

import (
	"strings"

	"github.com/google/uuid"
)

// New returns a fresh random identifier.
func New() string {
	return uuid.NewString()
}

// Valid reports whether s can be used as an entity identifier.
func Valid(s string) bool {
	return strings.TrimSpace(s) != ""
}

// OrNew returns s unless it is blank, in which case a new identifier is minted.
func OrNew(s string) string {
	if Valid(s) {
		return s
	}
	return New()
}
