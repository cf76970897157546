package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var digitRange = big.NewInt(10)

// GenerateCode returns a numeric code of the given length. Each digit is drawn
// independently and uniformly from crypto/rand; leading zeros are kept.
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("code length must be positive, got %d", length)
	}

	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, digitRange)
		if err != nil {
			return "", fmt.Errorf("read random digit: %w", err)
		}
		code[i] = byte('0' + n.Int64())
	}
	return string(code), nil
}
