package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidSessionID(t *testing.T) {
	assert.True(t, IsValidSessionID("sess_2026-03-10_Ab9"))
	assert.True(t, IsValidSessionID("a"))
	assert.True(t, IsValidSessionID(strings.Repeat("x", 128)))

	assert.False(t, IsValidSessionID(""))
	assert.False(t, IsValidSessionID(strings.Repeat("x", 129)))
	assert.False(t, IsValidSessionID("has space"))
	assert.False(t, IsValidSessionID("semi;colon"))
	assert.False(t, IsValidSessionID("path/../traversal"))
}

func TestIsValidEventType(t *testing.T) {
	assert.True(t, IsValidEventType("focus_loss"))
	assert.True(t, IsValidEventType("custom.vendor.event"))
	assert.False(t, IsValidEventType(""))
	assert.False(t, IsValidEventType(strings.Repeat("e", 65)))
}

func TestIsComplexPassword(t *testing.T) {
	assert.True(t, IsComplexPassword("Str0ng!pass"))
	assert.False(t, IsComplexPassword("short1!"))
	assert.False(t, IsComplexPassword("alllowercase1!"))
	assert.False(t, IsComplexPassword("NoNumbers!"))
	assert.False(t, IsComplexPassword("NoSpecial123"))
}
