package adaptive

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Envelope prefix and version written by SealString.
const envelopePrefix = "enc:v1:"

const (
	saltLength    = 16
	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
)

var (
	// ErrPassphraseRequired is returned when sealing or opening without a passphrase.
	ErrPassphraseRequired = errors.New("adaptive: passphrase required")
	// ErrInvalidEnvelope is returned for input that SealString did not produce.
	ErrInvalidEnvelope = errors.New("adaptive: invalid envelope")
	// ErrDecryptionFailed is returned for a wrong passphrase or corrupted data.
	ErrDecryptionFailed = errors.New("adaptive: decryption failed - wrong passphrase or corrupted data")
)

// DeriveKey stretches passphrase into a KeySize key with argon2id.
func DeriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argon2Time, argon2Memory, argon2Threads, KeySize)
}

// IsSealed reports whether s looks like a SealString envelope.
func IsSealed(s string) bool {
	return strings.HasPrefix(s, envelopePrefix)
}

// SealString encrypts plaintext under passphrase. The result has the form
// "enc:v1:<cipher>:<salt>:<ciphertext>" with base64url fields. label is bound
// as associated data and must be passed unchanged to OpenString.
func SealString(passphrase, label, plaintext string) (string, error) {
	if passphrase == "" {
		return "", ErrPassphraseRequired
	}

	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("adaptive: read salt: %w", err)
	}

	c, err := New(DeriveKey(passphrase, salt))
	if err != nil {
		return "", err
	}
	ct, err := c.Encrypt([]byte(plaintext), []byte(label))
	if err != nil {
		return "", err
	}

	enc := base64.RawURLEncoding
	return envelopePrefix + string(c.Type()) + ":" + enc.EncodeToString(salt) + ":" + enc.EncodeToString(ct), nil
}

// OpenString reverses SealString.
func OpenString(passphrase, label, sealed string) (string, error) {
	if passphrase == "" {
		return "", ErrPassphraseRequired
	}
	if !IsSealed(sealed) {
		return "", ErrInvalidEnvelope
	}

	parts := strings.Split(strings.TrimPrefix(sealed, envelopePrefix), ":")
	if len(parts) != 3 {
		return "", ErrInvalidEnvelope
	}
	enc := base64.RawURLEncoding
	salt, err := enc.DecodeString(parts[1])
	if err != nil || len(salt) != saltLength {
		return "", ErrInvalidEnvelope
	}
	ct, err := enc.DecodeString(parts[2])
	if err != nil {
		return "", ErrInvalidEnvelope
	}

	c, err := NewWithType(DeriveKey(passphrase, salt), CipherType(parts[0]))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	pt, err := c.Decrypt(ct, []byte(label))
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(pt), nil
}
