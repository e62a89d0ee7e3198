package vault

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	MinGeneratedLen = 8
	MaxGeneratedLen = 128

	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*()_+-=[]{}|;:,.<>?"
)

// GeneratePassword returns a random password of length clamped to
// [MinGeneratedLen, MaxGeneratedLen]. Each character is drawn uniformly.
func GeneratePassword(length int, includeSymbols bool) (string, error) {
	length = max(MinGeneratedLen, min(length, MaxGeneratedLen))

	charset := lowerChars + upperChars + digitChars
	if includeSymbols {
		charset += symbolChars
	}

	n := big.NewInt(int64(len(charset)))
	out := make([]byte, length)
	for i := range out {
		idx, err := rand.Int(rand.Reader, n)
		if err != nil {
			return "", fmt.Errorf("vault: generate password: %w", err)
		}
		out[i] = charset[idx.Int64()]
	}
	return string(out), nil
}
