package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint computes the SHA-256 cache key for a candidate/requirement pair.
// The texts are NUL-separated so that shifting bytes across the boundary
// yields a different key.
func Fingerprint(candidate, requirement string) string {
	h := sha256.New()
	h.Write([]byte(candidate))
	h.Write([]byte{0})
	h.Write([]byte(requirement))
	return hex.EncodeToString(h.Sum(nil))
}
