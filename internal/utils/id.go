package utils

import (
	"strings"

	"github.com/google/uuid"
)

const roomKeyLen = 8

// NewID returns a random UUID string.
func NewID() string {
	return uuid.NewString()
}

// NewRoomKey returns a short public room identifier: the first eight hex
// characters of a random UUID.
func NewRoomKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:roomKeyLen]
}
