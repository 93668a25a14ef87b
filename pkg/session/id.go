package session

import (
	"crypto/rand"
	"encoding/hex"
)

// IDLength is the length of IDs produced by NewID.
const IDLength = 32

// NewID returns 128 random bits rendered as lowercase hexadecimal.
func NewID() string {
	var b [IDLength / 2]byte
	// crypto/rand.Read never returns an error since Go 1.24.
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// ValidID reports whether id has the shape of an ID produced by NewID.
func ValidID(id string) bool {
	if len(id) != IDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
