package tokenstore

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// tokenBytes is the amount of randomness in a token.
const tokenBytes = 16

// TokenLength is the length of a token returned by NewToken.
var TokenLength = base64.RawURLEncoding.EncodedLen(tokenBytes)

// NewToken returns a fresh random token: 128 bits from crypto/rand in
// unpadded URL-safe base64.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
