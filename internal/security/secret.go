// Package security holds containers for key material that must never leak
// through logs or formatting.
package security

import (
	"encoding/json"
	"fmt"
	"io"
)

const redacted = "[SECRET]"

// Secret wraps key bytes. Every formatting and encoding path prints a
// placeholder instead of the content.
type Secret []byte

func (s Secret) String() string { return redacted }

// Format covers %v, %+v, %#v, %s, %x and friends.
func (s Secret) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, redacted)
}

func (s Secret) MarshalJSON() ([]byte, error) { return json.Marshal(redacted) }

func (s Secret) MarshalText() ([]byte, error) { return []byte(redacted), nil }

// Use runs fn with the underlying bytes without copying them. fn must not
// retain the slice.
func (s Secret) Use(fn func([]byte) error) error {
	return fn([]byte(s))
}

// Zero overwrites the bytes in place.
func (s Secret) Zero() {
	for i := range s {
		s[i] = 0
	}
}

// IsZero reports whether the secret is empty or has been wiped.
func (s Secret) IsZero() bool {
	for _, b := range s {
		if b != 0 {
			return false
		}
	}
	return true
}
