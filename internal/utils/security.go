// Package utils provides shared utility functions across the application.
package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateToken generates a secure random token of length hex characters * 2.
func GenerateToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", b), nil
}

// GenerateOTP generates a random numeric one-time password of the given
// number of digits, without a leading zero.
func GenerateOTP(digits int) (string, error) {
	if digits < 1 {
		return "", fmt.Errorf("otp digits must be positive, got %d", digits)
	}
	low := int64(1)
	for range digits - 1 {
		low *= 10
	}
	n, err := rand.Int(rand.Reader, big.NewInt(low*9))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", low+n.Int64()), nil
}
