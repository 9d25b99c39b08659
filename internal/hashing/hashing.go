package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Calculate returns the hex encoded SHA-256 digest of the data. The digest is
// only used for integrity responses.
func Calculate(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func CalculateFromStr(data string) string {
	return Calculate([]byte(data))
}

// Verify compares case-insensitively, clients often send upper-case hex.
func Verify(data []byte, expected string) bool {
	return Calculate(data) == strings.ToLower(strings.TrimSpace(expected))
}
