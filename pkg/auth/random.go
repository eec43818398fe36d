package auth

import (
	"crypto/rand"
	"fmt"
)

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// OneTimeTokenLength is the size of guest verification and magic-link tokens.
const OneTimeTokenLength = 48

// GenerateToken returns n characters drawn uniformly from [A-Za-z0-9].
func GenerateToken(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("token length must be positive")
	}
	// 248 is the largest multiple of 62 below 256.
	const limit = 256 - 256%len(tokenAlphabet)

	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("reading random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
