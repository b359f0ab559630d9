package router

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Keys for the CSRF token in the session and request header. The token is
// issued at login and must be echoed on every session-authenticated unsafe
// request. API-key clients are not cookie-authenticated and skip this.
const (
	csrfTokenSessionKey = "csrf_token"
	csrfTokenHeaderKey  = "X-CSRF-Token"
)

// CSRFProtection validates the CSRF header on unsafe methods. It runs on
// the admin route group only, after the session middleware.
func CSRFProtection() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			c.Next()
			return
		}

		session := sessions.Default(c)
		realToken, ok := session.Get(csrfTokenSessionKey).(string)
		if !ok || realToken == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "CSRF token not found in session"})
			return
		}

		if c.GetHeader(csrfTokenHeaderKey) != realToken {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid CSRF token"})
			return
		}

		c.Next()
	}
}
