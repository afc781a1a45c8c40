package ack

import (
	"crypto/sha256"
	"encoding/hex"
)

// MaxHashSize is the maximum number of bytes hashed from signature
// material. Hashing only the first 1MB prevents memory exhaustion on
// oversized submissions while keeping collision resistance for reference
// purposes.
const MaxHashSize = 1024 * 1024 // 1MB

// HashContent computes the SHA-256 hash of the content and returns it as a
// hex-encoded string. For content exceeding MaxHashSize, only the first
// MaxHashSize bytes are hashed.
//
// Returns an empty string if content is empty.
func HashContent(content []byte) string {
	if len(content) == 0 {
		return ""
	}

	toHash := content
	if len(content) > MaxHashSize {
		toHash = content[:MaxHashSize]
	}

	hash := sha256.Sum256(toHash)
	return hex.EncodeToString(hash[:])
}
