package dna

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Digest returns the deduplication key for g: the lowercase hex SHA-256 of
// its rows joined by newlines. Identical grids always share a key.
func Digest(g Grid) string {
	sum := sha256.Sum256([]byte(strings.Join(g.rows, "\n")))
	return hex.EncodeToString(sum[:])
}
