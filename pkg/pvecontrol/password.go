package pvecontrol

import (
	"github.com/yndnr/pveapi-go/pkg/token"
)

// PasswordAlphabet is the character set of generated passwords.
const PasswordAlphabet = "qzxswdcvfrtgbnhujmkolp23456789ZXSWEDCVFRTGBNHUJMKLP"

// DefaultPasswordLength is used when GeneratePassword is called with n <= 0.
const DefaultPasswordLength = 10

// GeneratePassword returns n characters drawn uniformly from PasswordAlphabet.
func GeneratePassword(n int) (string, error) {
	if n <= 0 {
		n = DefaultPasswordLength
	}
	return token.GenerateFromAlphabet(PasswordAlphabet, n)
}
