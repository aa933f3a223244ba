package authcore

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"
)

const opaqueTokenBytes = 32

// newOpaqueToken generates a cryptographically random single-use token value.
// The value is disclosed to the caller exactly once; only its hash is ever
// persisted.
func newOpaqueToken() (string, error) {
	raw := make([]byte, opaqueTokenBytes)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// hashOpaque is the deterministic one-way hash shared by every opaque token
// kind (refresh, verification, reset). The store never holds a value an
// attacker could replay without also knowing the random plaintext.
func hashOpaque(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
