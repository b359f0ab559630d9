package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"proctrace/internal/repository"
)

const (
	apiKeyHeader       = "X-API-Key"
	adminSessionKey    = "adminID"
	adminContextKey    = "admin"
	apiKeyContextKey   = "api_key"
	usageUpdateTimeout = 5 * time.Second
)

// APIKeyRequired authenticates machine clients via the X-API-Key header.
// The key must be active and allowed to call the request path. Usage
// accounting happens off the request path.
func APIKeyRequired(keys *repository.APIKeys, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(apiKeyHeader)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			return
		}

		row, err := keys.GetActive(c.Request.Context(), key)
		if err != nil {
			log.Warn("Rejected API key", zap.String("path", c.Request.URL.Path), zap.String("client_ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}

		if !row.Allows(c.Request.URL.Path) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "API key not allowed for this endpoint"})
			return
		}

		c.Set(apiKeyContextKey, row)

		go func(id uint) {
			ctx, cancel := context.WithTimeout(context.Background(), usageUpdateTimeout)
			defer cancel()
			if err := keys.BumpUsage(ctx, id, time.Now()); err != nil {
				log.Warn("Failed to bump API key usage", zap.Uint("key_id", id), zap.Error(err))
			}
		}(row.ID)

		c.Next()
	}
}

// AdminLoaderMiddleware checks for an adminID in the session. If found, it
// loads the account and adds it to the context. Stale sessions for deleted
// or deactivated accounts are cleared.
func AdminLoaderMiddleware(admins *repository.Admins) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		adminID, ok := session.Get(adminSessionKey).(uint)
		if !ok {
			c.Next()
			return
		}

		admin, err := admins.GetByID(c.Request.Context(), adminID)
		if err != nil || !admin.IsActive {
			session.Clear()
			session.Options(sessions.Options{Path: "/", MaxAge: -1})
			session.Save()
			c.Next()
			return
		}

		c.Set(adminContextKey, admin)
		c.Next()
	}
}

// AdminRequired checks that a valid admin was loaded into the context.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(adminContextKey); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}
