package models

import (
	"strings"
	"time"
)

// APIKey authenticates machine clients (the test frontend, integrations).
// AllowedPaths is a comma-separated list of path prefixes; "*" or empty
// means every endpoint.
type APIKey struct {
	ID           uint       `gorm:"primaryKey" json:"-"`
	Key          string     `gorm:"size:64;uniqueIndex" json:"-"`
	Name         string     `gorm:"size:100" json:"name"`
	Description  string     `gorm:"size:500" json:"description,omitempty"`
	AllowedPaths string     `gorm:"size:500" json:"allowedPaths,omitempty"`
	IsAdmin      bool       `json:"isAdmin"`
	IsActive     bool       `gorm:"default:true" json:"isActive"`
	UsageCount   int64      `json:"usageCount"`
	LastUsedAt   *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Allows reports whether the key may call the given request path.
func (k *APIKey) Allows(path string) bool {
	allowed := strings.TrimSpace(k.AllowedPaths)
	if allowed == "" || allowed == "*" || k.IsAdmin {
		return true
	}
	for _, prefix := range strings.Split(allowed, ",") {
		prefix = strings.TrimSpace(prefix)
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
