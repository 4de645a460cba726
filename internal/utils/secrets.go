package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// GenerateSecret returns n random bytes hex-encoded
func GenerateSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// RandomCode returns length upper-case hex characters
func RandomCode(length int) (string, error) {
	s, err := GenerateSecret((length + 1) / 2)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(s[:length]), nil
}
