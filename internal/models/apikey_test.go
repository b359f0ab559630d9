package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIKeyAllows(t *testing.T) {
	tests := []struct {
		name    string
		key     APIKey
		path    string
		allowed bool
	}{
		{"empty list allows everything", APIKey{}, "/api/results", true},
		{"star allows everything", APIKey{AllowedPaths: "*"}, "/api/admin/keys", true},
		{"admin flag overrides list", APIKey{IsAdmin: true, AllowedPaths: "/api/events"}, "/api/results", true},
		{"prefix match", APIKey{AllowedPaths: "/api/results,/api/events"}, "/api/results/abc", true},
		{"prefix miss", APIKey{AllowedPaths: "/api/events"}, "/api/results", false},
		{"whitespace tolerated", APIKey{AllowedPaths: " /api/events , /api/results "}, "/api/events", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.key.Allows(tt.path))
		})
	}
}

func TestFormatDocumentNumber(t *testing.T) {
	assert.Equal(t, "26/08-0042", FormatDocumentNumber(2026, 8, 42))
	assert.Equal(t, "99/12-0001", FormatDocumentNumber(1999, 12, 1))
}
