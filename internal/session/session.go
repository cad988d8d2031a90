// Package session issues and resolves bearer tokens for logged-in
// identities. Tokens live in memory by default or in Redis when configured,
// always TTL-bound.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound means the token is unknown or expired.
var ErrNotFound = errors.New("session not found")

// Store resolves bearer tokens to owner identities.
type Store interface {
	// Create issues a fresh token for owner, valid for ttl.
	Create(ctx context.Context, owner string, ttl time.Duration) (string, error)

	// Owner returns the identity a token belongs to, or ErrNotFound.
	Owner(ctx context.Context, token string) (string, error)

	// Delete invalidates a token. Unknown tokens are not an error.
	Delete(ctx context.Context, token string) error
}

// NewToken returns a 128-bit random token, hex encoded.
func NewToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
