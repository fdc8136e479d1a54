package token

import (
	"crypto/sha256"
	"encoding/hex"
)

// fingerprintLen is the number of hex characters kept by Fingerprint.
const fingerprintLen = 12

// Hash computes the hex-encoded SHA-256 hash of a token.
func Hash(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// Fingerprint returns a short, stable identifier for a secret, safe to log.
// It returns "" for an empty secret.
func Fingerprint(secret string) string {
	if secret == "" {
		return ""
	}
	return Hash(secret)[:fingerprintLen]
}
