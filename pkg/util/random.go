package util

import (
	"crypto/rand"
	"math/big"
)

const digits = "0123456789"

// GenerateOTPCode returns a numeric one-time code of the given length
func GenerateOTPCode(length int) (string, error) {
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		code[i] = digits[n.Int64()]
	}
	return string(code), nil
}
