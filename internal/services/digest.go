package services

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Digester digests passwords to lowercase hex SHA-256, the stored
// representation in the users table.
type SHA256Digester struct{}

func (SHA256Digester) Digest(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
