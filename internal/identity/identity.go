// Package identity derives canonical conversation identifiers.
package identity

import (
	"errors"
	"strings"
)

// Separator joins the two participant ids inside a conversation id. User ids
// containing it are rejected at the provisioning boundary (directory service),
// which keeps the derived ids collision-free.
const Separator = "_"

var ErrInvalidParticipants = errors.New("invalid participants")

// CanonicalConversationID returns the same id for (a, b) and (b, a): the
// lexicographically smaller id first, joined by Separator. Pure function, no
// lookups.
func CanonicalConversationID(a, b string) (string, error) {
	if a == "" || b == "" || a == b {
		return "", ErrInvalidParticipants
	}
	if a < b {
		return a + Separator + b, nil
	}
	return b + Separator + a, nil
}

// ValidUserID reports whether id is usable as a participant id.
func ValidUserID(id string) bool {
	return id != "" && !strings.Contains(id, Separator)
}
