package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashContent returns a stable hex identifier for a piece of content,
// used as the analysis result cache key.
func HashContent(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
