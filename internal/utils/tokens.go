package utils

import (
	"crypto/rand"
	"encoding/base64"
	"io"
)

// GenerateSecureToken creates a cryptographically secure random token.
func GenerateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

// GenerateAPIKey returns a fresh machine-client key. The prefix makes key
// material recognizable in configs and audit logs.
func GenerateAPIKey() (string, error) {
	token, err := GenerateSecureToken(24)
	if err != nil {
		return "", err
	}
	return "pt_" + token, nil
}
