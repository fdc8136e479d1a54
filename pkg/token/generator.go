package token

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// ErrEmptyAlphabet is returned when no characters are available to draw from.
var ErrEmptyAlphabet = errors.New("token: empty alphabet")

// GenerateBytes generates random bytes.
func GenerateBytes(length int) ([]byte, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return nil, err
	}
	return bytes, nil
}

// GenerateFromAlphabet returns length characters drawn uniformly from alphabet.
func GenerateFromAlphabet(alphabet string, length int) (string, error) {
	chars := []rune(alphabet)
	if len(chars) == 0 {
		return "", ErrEmptyAlphabet
	}
	max := big.NewInt(int64(len(chars)))
	out := make([]rune, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = chars[n.Int64()]
	}
	return string(out), nil
}
