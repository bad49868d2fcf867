// Package sha256 derives fixed-length keys from arbitrary strings.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher turns source URLs into compact key material.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash hashes the input and returns a hex digest.
func (h *Hasher) Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Key returns the hex digest of s, suitable as a cache or lock key suffix.
func (h *Hasher) Key(s string) string {
	return h.Hash([]byte(s))
}
