// Package token mints the opaque identifiers embedded in asset QR payloads.
package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// tokenBytes is the entropy per token. 18 bytes (144 bits) encodes to 24
// base64url characters with no padding.
const tokenBytes = 18

// Length is the character length of every generated token
const Length = 24

// ErrTooManyCollisions is returned when repeated generation attempts all
// collided with stored tokens. With 144-bit tokens this indicates a broken
// randomness source or a corrupted store, not bad luck.
var ErrTooManyCollisions = errors.New("token: too many collisions")

const maxAttempts = 5

// ExistsFunc reports whether a token is already present in the store,
// including tokens of deleted assets.
type ExistsFunc func(ctx context.Context, token string) (bool, error)

// New returns a fresh random token without any uniqueness check
func New() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token: read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Generate returns a token that exists does not already know. The store's
// unique constraint remains the final guard; this check only keeps the
// insert path free of constraint-violation handling in the common case.
func Generate(ctx context.Context, exists ExistsFunc) (string, error) {
	for i := 0; i < maxAttempts; i++ {
		tok, err := New()
		if err != nil {
			return "", err
		}
		dup, err := exists(ctx, tok)
		if err != nil {
			return "", fmt.Errorf("token: collision check: %w", err)
		}
		if !dup {
			return tok, nil
		}
	}
	return "", ErrTooManyCollisions
}

// Valid reports whether s has the exact shape of a generated token. The
// resolver uses this to reject malformed input before touching the store;
// matching stays case-sensitive and exact.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}
