package utils

import (
	"regexp"
	"strings"
	"unicode"
)

var sessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// IsValidSessionID checks a client-supplied session identifier: URL-safe
// charset and bounded length. Everything else about a session is server
// data; this is the one field the client names itself.
func IsValidSessionID(id string) bool {
	return id != "" && len(id) <= 128 && sessionIDPattern.MatchString(id)
}

// IsValidEventType bounds the event type field. Unknown types are accepted
// and stored as-is; only the length is enforced.
func IsValidEventType(eventType string) bool {
	return eventType != "" && len(eventType) <= 64
}

// IsValidEmail checks if the email string contains an "@" symbol.
func IsValidEmail(email string) bool {
	return strings.Contains(email, "@") && strings.Contains(email, ".")
}

// IsComplexPassword checks if the password meets the complexity requirements.
func IsComplexPassword(password string) bool {
	var (
		hasMinLen  = len(password) >= 8
		hasUpper   = false
		hasLower   = false
		hasNumber  = false
		hasSpecial = false
	)

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	return hasMinLen && hasUpper && hasLower && hasNumber && hasSpecial
}
