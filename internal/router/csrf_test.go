package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func csrfTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("test-secret"))))

	// Stand-in for login: seeds the session token the way AuthHandler does.
	r.POST("/seed", func(c *gin.Context) {
		session := sessions.Default(c)
		session.Set(csrfTokenSessionKey, "tok-123")
		session.Save()
		c.Status(http.StatusOK)
	})

	protected := r.Group("/protected")
	protected.Use(CSRFProtection())
	{
		protected.GET("/data", func(c *gin.Context) { c.Status(http.StatusOK) })
		protected.POST("/data", func(c *gin.Context) { c.Status(http.StatusOK) })
	}
	return r
}

func seedSession(t *testing.T, r *gin.Engine) []*http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/seed", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Result().Cookies()
}

func TestCSRFSafeMethodsPass(t *testing.T) {
	r := csrfTestEngine()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected/data", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCSRFRejectsMissingToken(t *testing.T) {
	r := csrfTestEngine()
	cookies := seedSession(t, r)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/protected/data", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCSRFRejectsWrongToken(t *testing.T) {
	r := csrfTestEngine()
	cookies := seedSession(t, r)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/protected/data", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	req.Header.Set(csrfTokenHeaderKey, "tok-wrong")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCSRFAcceptsMatchingToken(t *testing.T) {
	r := csrfTestEngine()
	cookies := seedSession(t, r)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/protected/data", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	req.Header.Set(csrfTokenHeaderKey, "tok-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCSRFRejectsUnsafeWithoutSession(t *testing.T) {
	r := csrfTestEngine()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/protected/data", nil)
	req.Header.Set(csrfTokenHeaderKey, "tok-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
