package services

import (
	"crypto/rand"
	"fmt"
)

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// CryptoTokenSource draws session tokens from crypto/rand. At the default
// length of 100 alphanumeric characters collisions are negligible.
type CryptoTokenSource struct{}

func (CryptoTokenSource) Generate(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("token length must be positive, got %d", length)
	}

	// Bytes >= limit are rejected to keep the alphabet uniform.
	limit := byte(256 - 256%len(tokenAlphabet))

	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
